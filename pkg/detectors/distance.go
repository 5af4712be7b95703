package detectors

import (
	"streamteam/pkg/geometry"
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

const counterDistance = "distance"

// DistanceDetector accumulates covered distance per player and team. It
// is window-driven: each activeKeys tick it diffs every player's current
// position against the position used at the previous tick. The first
// tick for a key only records the baseline.
type DistanceDetector struct {
	Roster    *Roster
	Positions *Positions

	lastUsed *store.SingleValueStore // (key, player) -> position at the previous tick
	totals   *store.SingleValueStore // (key, itemID) -> accumulated metres
}

// NewDistanceDetector builds the detector with its state in reg.
func NewDistanceDetector(roster *Roster, positions *Positions, reg *store.Registry) *DistanceDetector {
	return &DistanceDetector{
		Roster:    roster,
		Positions: positions,
		lastUsed:  reg.NewSingleValue(),
		totals:    reg.NewSingleValue(),
	}
}

func (d *DistanceDetector) Process(e *types.Element) ([]*types.Element, error) {
	if e.StreamName != "activeKeys" {
		return nil, nil
	}
	key := e.Key

	sawBaseline := false
	for _, player := range d.Roster.Players {
		cur, known := d.Positions.Of(key, player)
		if !known {
			continue
		}
		last, hasLast := d.lastUsed.Get(key, player)
		d.lastUsed.Put(key, player, types.Vector3Value(cur))
		if !hasLast {
			continue
		}
		sawBaseline = true
		delta := geometry.Dist2D(last.Vector3, cur)
		_ = d.totals.Increase(key, player, types.DoubleValue(delta))
		_ = d.totals.Increase(key, d.Roster.TeamOf(player), types.DoubleValue(delta))
	}
	if !sawBaseline {
		return nil, nil
	}

	items := d.Roster.StatItems()
	out := make([]*types.Element, 0, len(items))
	for _, item := range items {
		total, err := d.totals.GetDouble(key, item.ID)
		if err != nil {
			continue
		}
		out = append(out, deriveFor(e, StreamDistanceStatistics, []string{item.ID}, []string{item.TeamID},
			map[string]types.Value{
				"itemId":        types.StringValue(item.ID),
				"isTeam":        types.BoolValue(item.IsTeam),
				counterDistance: types.DoubleValue(total),
			}))
	}
	return out, nil
}

var _ graph.Operator = (*DistanceDetector)(nil)
