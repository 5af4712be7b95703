package detectors

import (
	"streamteam/pkg/geometry"
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

const (
	counterSpeedLevelChanges = "numSpeedLevelChanges"
	counterDribblings        = "numDribblings"
	counterDribblingLength   = "dribblingLength"
)

// DribblingSpeedDetector buckets every player's speed into configured
// levels and tracks dribblings: the player in possession moving above
// the dribbling speed threshold for long enough.
type DribblingSpeedDetector struct {
	Cfg        types.DribblingConfig
	Roster     *Roster
	Positions  *Positions
	Possession *store.SingleValueStore

	levels *store.SingleValueStore // (key, player) -> current speed level
	stats  *store.SingleValueStore
	runs   *PhaseRuns
	state  *store.SingleValueStore // aboveSince / run length / last position, per player
}

const (
	slotAboveSince = "aboveSince|"
	slotRunLength  = "runLength|"
	slotRunLastPos = "runLastPos|"
)

// NewDribblingSpeedDetector builds the detector with its state in reg.
func NewDribblingSpeedDetector(cfg types.DribblingConfig, roster *Roster, positions *Positions,
	possession *store.SingleValueStore, reg *store.Registry) *DribblingSpeedDetector {
	return &DribblingSpeedDetector{
		Cfg:        cfg,
		Roster:     roster,
		Positions:  positions,
		Possession: possession,
		levels:     reg.NewSingleValue(),
		stats:      reg.NewSingleValue(),
		runs:       NewPhaseRuns(reg),
		state:      reg.NewSingleValue(),
	}
}

func (d *DribblingSpeedDetector) Process(e *types.Element) ([]*types.Element, error) {
	if len(e.ObjectIdentifiers) == 0 || len(e.Positions) == 0 {
		return nil, nil
	}
	player := e.ObjectIdentifiers[0]
	team := d.Roster.TeamOf(player)
	if team == "" {
		return nil, nil // ball samples carry no speed levels
	}
	key := e.Key
	speed := d.Positions.SpeedOf(key, player)

	out := d.updateSpeedLevel(e, player, team, speed)
	out = append(out, d.updateDribbling(e, player, team, speed)...)
	return out, nil
}

func (d *DribblingSpeedDetector) speedLevel(speed float64) int64 {
	level := int64(0)
	for _, threshold := range d.Cfg.SpeedLevels {
		if speed >= threshold {
			level++
		}
	}
	return level
}

func (d *DribblingSpeedDetector) updateSpeedLevel(e *types.Element, player, team string, speed float64) []*types.Element {
	key := e.Key
	level := d.speedLevel(speed)
	prev, seen := d.levels.Get(key, player)
	d.levels.Put(key, player, types.LongValue(level))
	if seen && prev.Long == level {
		return nil
	}
	if !seen && level == 0 {
		return nil
	}

	_ = d.stats.Increase(key, player+"|"+counterSpeedLevelChanges, types.LongValue(1))
	_ = d.stats.Increase(key, team+"|"+counterSpeedLevelChanges, types.LongValue(1))

	out := []*types.Element{deriveFor(e, StreamSpeedLevelChangeEvent, []string{player}, []string{team},
		map[string]types.Value{
			"playerId": types.StringValue(player),
			"teamId":   types.StringValue(team),
			"level":    types.LongValue(level),
			"speed":    types.DoubleValue(speed),
		})}
	for _, item := range []StatItem{{ID: player, TeamID: team}, {ID: team, TeamID: team, IsTeam: true}} {
		changes, _ := d.stats.GetLong(key, item.ID+"|"+counterSpeedLevelChanges)
		out = append(out, deriveFor(e, StreamSpeedLevelStatistics, []string{item.ID}, []string{item.TeamID},
			map[string]types.Value{
				"itemId":                 types.StringValue(item.ID),
				"isTeam":                 types.BoolValue(item.IsTeam),
				counterSpeedLevelChanges: types.LongValue(changes),
			}))
	}
	return out
}

func (d *DribblingSpeedDetector) updateDribbling(e *types.Element, player, team string, speed float64) []*types.Element {
	key := e.Key
	gen := e.GenerationTimestamp
	pos := e.Positions[0]

	possession, _ := d.Possession.Get(key, "")
	possessing := possession.Possession.PlayerID == player

	fastEnough := false
	if possessing && speed > d.Cfg.DribblingSpeedThreshold {
		since, ok := d.state.Get(key, slotAboveSince+player)
		if !ok {
			d.state.Put(key, slotAboveSince+player, types.LongValue(gen))
			since = types.LongValue(gen)
		}
		fastEnough = gen-since.Long >= d.Cfg.DribblingTimeThreshold.Milliseconds()
	} else {
		d.state.Delete(key, slotAboveSince+player)
	}

	phase, runID, emit := d.runs.Transition(key, player, fastEnough)
	if !emit {
		return nil
	}

	switch phase {
	case types.PhaseStart:
		d.state.Put(key, slotRunLength+player, types.DoubleValue(0))
		d.state.Put(key, slotRunLastPos+player, types.Vector3Value(pos))
	case types.PhaseActive:
		if last, ok := d.state.Get(key, slotRunLastPos+player); ok {
			_ = d.state.Increase(key, slotRunLength+player, types.DoubleValue(geometry.Dist2D(last.Vector3, pos)))
		}
		d.state.Put(key, slotRunLastPos+player, types.Vector3Value(pos))
	}
	length, _ := d.state.GetDouble(key, slotRunLength+player)

	ev := deriveFor(e, StreamDribblingEvent, []string{player}, []string{team},
		map[string]types.Value{
			"playerId":    types.StringValue(player),
			"teamId":      types.StringValue(team),
			"dribblingId": types.LongValue(runID),
			"length":      types.DoubleValue(length),
		})
	ev.Phase = phase
	out := []*types.Element{ev}

	if phase == types.PhaseEnd {
		_ = d.stats.Increase(key, player+"|"+counterDribblings, types.LongValue(1))
		_ = d.stats.Increase(key, team+"|"+counterDribblings, types.LongValue(1))
		_ = d.stats.Increase(key, player+"|"+counterDribblingLength, types.DoubleValue(length))
		_ = d.stats.Increase(key, team+"|"+counterDribblingLength, types.DoubleValue(length))
		d.state.Delete(key, slotRunLength+player)
		d.state.Delete(key, slotRunLastPos+player)

		for _, item := range []StatItem{{ID: player, TeamID: team}, {ID: team, TeamID: team, IsTeam: true}} {
			count, _ := d.stats.GetLong(key, item.ID+"|"+counterDribblings)
			total, _ := d.stats.GetDouble(key, item.ID+"|"+counterDribblingLength)
			out = append(out, deriveFor(e, StreamDribblingStatistics, []string{item.ID}, []string{item.TeamID},
				map[string]types.Value{
					"itemId":               types.StringValue(item.ID),
					"isTeam":               types.BoolValue(item.IsTeam),
					counterDribblings:      types.LongValue(count),
					counterDribblingLength: types.DoubleValue(total),
				}))
		}
	}
	return out
}

var _ graph.Operator = (*DribblingSpeedDetector)(nil)
