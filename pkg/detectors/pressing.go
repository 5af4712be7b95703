package detectors

import (
	"streamteam/pkg/geometry"
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// PressingDetector computes an instantaneous pressing index for the
// player in possession on every activeKeys tick. Each opponent inside
// the pressing radius contributes proportionally to their closeness,
// weighted up when they are moving fast (closing down). The index
// crossing the configured threshold drives a phased underPressureEvent,
// and the boolean is mirrored to a shared store the kick detector reads.
type PressingDetector struct {
	Cfg        types.PressingConfig
	Roster     *Roster
	Positions  *Positions
	Possession *store.SingleValueStore
	Pressure   *store.SingleValueStore // per key: bool, consumed by the kick detector

	runs      *PhaseRuns
	runHolder *store.SingleValueStore // per key: the holder the running phase belongs to
}

// NewPressingDetector builds the detector. pressure is the shared
// under-pressure flag store.
func NewPressingDetector(cfg types.PressingConfig, roster *Roster, positions *Positions,
	possession, pressure *store.SingleValueStore, reg *store.Registry) *PressingDetector {
	if cfg.PressingRadius <= 0 {
		cfg.PressingRadius = 10
	}
	return &PressingDetector{
		Cfg:        cfg,
		Roster:     roster,
		Positions:  positions,
		Possession: possession,
		Pressure:   pressure,
		runs:       NewPhaseRuns(reg),
		runHolder:  reg.NewSingleValue(),
	}
}

// Index computes the pressing index for the given holder, from opponent
// positions and speeds.
func (d *PressingDetector) Index(key, holder string) float64 {
	holderPos, ok := d.Positions.Of(key, holder)
	if !ok {
		return 0
	}
	team := d.Roster.TeamOf(holder)
	radius := d.Cfg.PressingRadius
	index := 0.0
	for _, opp := range d.Roster.Players {
		if d.Roster.TeamOf(opp) == team {
			continue
		}
		oppPos, ok := d.Positions.Of(key, opp)
		if !ok {
			continue
		}
		dist := geometry.Dist2D(holderPos, oppPos)
		if dist >= radius {
			continue
		}
		closeness := (radius - dist) / radius
		// A fast-moving opponent presses harder than a standing one.
		speedFactor := 1 + d.Positions.SpeedOf(key, opp)/10
		index += closeness * speedFactor
	}
	return index
}

func (d *PressingDetector) Process(e *types.Element) ([]*types.Element, error) {
	if e.StreamName != "activeKeys" {
		return nil, nil
	}
	key := e.Key

	possession, _ := d.Possession.Get(key, "")
	holder := possession.Possession.PlayerID

	index := 0.0
	if holder != "" {
		index = d.Index(key, holder)
	}
	pressed := holder != "" && index > d.Cfg.MinPressingIndexForUnderPressure
	d.Pressure.Put(key, "", types.BoolValue(pressed))

	var out []*types.Element
	payload := map[string]types.Value{
		"pressingIndex": types.DoubleValue(index),
	}
	var objects, groups []string
	if holder != "" {
		payload["playerId"] = types.StringValue(holder)
		payload["teamId"] = types.StringValue(possession.Possession.TeamID)
		objects = []string{holder}
		groups = []string{possession.Possession.TeamID}
	}
	out = append(out, deriveFor(e, StreamPressingState, objects, groups, payload))

	// One phase run per key. If the holder changes while the pressure
	// persists, the old run ends and a new one starts on this tick.
	prevHolder, _ := d.runHolder.Get(key, "")
	if pressed && prevHolder.String != "" && prevHolder.String != holder {
		if phase, runID, emit := d.runs.Transition(key, "", false); emit {
			ev := derive(e, StreamUnderPressureEvent, map[string]types.Value{
				"pressureId": types.LongValue(runID),
			})
			ev.ObjectIdentifiers = []string{prevHolder.String}
			ev.GroupIdentifiers = []string{d.Roster.TeamOf(prevHolder.String)}
			ev.Phase = phase
			out = append(out, ev)
		}
	}
	if phase, runID, emit := d.runs.Transition(key, "", pressed); emit {
		ev := deriveFor(e, StreamUnderPressureEvent, objects, groups,
			map[string]types.Value{
				"pressureId":    types.LongValue(runID),
				"pressingIndex": types.DoubleValue(index),
			})
		ev.Phase = phase
		out = append(out, ev)
	}
	if pressed {
		d.runHolder.Put(key, "", types.StringValue(holder))
	} else {
		d.runHolder.Delete(key, "")
	}
	return out, nil
}

var _ graph.Operator = (*PressingDetector)(nil)
