package detectors

import (
	"math"

	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// OffsideDetector maintains the virtual offside line: the x-coordinate
// of the second-deepest defender on each half. Recomputed on every
// player sample while someone possesses the ball; a state element is
// emitted whenever either line changes, including transitions to and
// from "no line" when possession is lost.
type OffsideDetector struct {
	Roster     *Roster
	Positions  *Positions
	Possession *store.SingleValueStore

	last *store.SingleValueStore // previously emitted lines, per key
}

const (
	slotLeftLine     = "leftLine"
	slotRightLine    = "rightLine"
	slotHasLeftLine  = "hasLeftLine"
	slotHasRightLine = "hasRightLine"
	slotLinesKnown   = "linesKnown"
)

// NewOffsideDetector builds the detector with its state in reg.
func NewOffsideDetector(roster *Roster, positions *Positions,
	possession *store.SingleValueStore, reg *store.Registry) *OffsideDetector {
	return &OffsideDetector{
		Roster:     roster,
		Positions:  positions,
		Possession: possession,
		last:       reg.NewSingleValue(),
	}
}

// secondDeepest returns the second-extreme x among team's players toward
// the given goal line (left: most negative, right: most positive).
func (d *OffsideDetector) secondDeepest(key, team string, towardLeft bool) (float64, bool) {
	best, second := math.NaN(), math.NaN()
	deeper := func(a, b float64) bool {
		if towardLeft {
			return a < b
		}
		return a > b
	}
	for _, p := range d.Roster.Players {
		if d.Roster.TeamOf(p) != team {
			continue
		}
		pos, ok := d.Positions.Of(key, p)
		if !ok {
			continue
		}
		switch {
		case math.IsNaN(best) || deeper(pos.X, best):
			second = best
			best = pos.X
		case math.IsNaN(second) || deeper(pos.X, second):
			second = pos.X
		}
	}
	if math.IsNaN(second) {
		return 0, false
	}
	return second, true
}

func (d *OffsideDetector) Process(e *types.Element) ([]*types.Element, error) {
	if len(e.ObjectIdentifiers) == 0 || d.Roster.TeamOf(e.ObjectIdentifiers[0]) == "" {
		return nil, nil
	}
	key := e.Key

	possession, _ := d.Possession.Get(key, "")
	inPossession := possession.Possession.PlayerID != ""

	var leftLine, rightLine float64
	var hasLeft, hasRight bool
	if inPossession {
		// The defending side's line on each half: team A defends the
		// half team B attacks, so each half's line comes from whichever
		// team is deeper there.
		leftLine, hasLeft = d.secondDeepest(key, d.deepestTeamToward(key, true), true)
		rightLine, hasRight = d.secondDeepest(key, d.deepestTeamToward(key, false), false)
	}

	known, _ := d.last.GetBoolean(key, slotLinesKnown)
	prevHasLeft, _ := d.last.GetBoolean(key, slotHasLeftLine)
	prevHasRight, _ := d.last.GetBoolean(key, slotHasRightLine)
	prevLeft, _ := d.last.GetDouble(key, slotLeftLine)
	prevRight, _ := d.last.GetDouble(key, slotRightLine)

	changed := !known ||
		hasLeft != prevHasLeft || hasRight != prevHasRight ||
		(hasLeft && leftLine != prevLeft) || (hasRight && rightLine != prevRight)
	if !changed {
		return nil, nil
	}

	d.last.Put(key, slotLinesKnown, types.BoolValue(true))
	d.last.Put(key, slotHasLeftLine, types.BoolValue(hasLeft))
	d.last.Put(key, slotHasRightLine, types.BoolValue(hasRight))
	d.last.Put(key, slotLeftLine, types.DoubleValue(leftLine))
	d.last.Put(key, slotRightLine, types.DoubleValue(rightLine))

	payload := map[string]types.Value{
		"hasLeftLine":  types.BoolValue(hasLeft),
		"hasRightLine": types.BoolValue(hasRight),
	}
	if hasLeft {
		payload["leftLineX"] = types.DoubleValue(leftLine)
	}
	if hasRight {
		payload["rightLineX"] = types.DoubleValue(rightLine)
	}
	return []*types.Element{derive(e, StreamOffsideLineState, payload)}, nil
}

// deepestTeamToward picks the team whose players sit deeper toward the
// given goal line, i.e. the team defending that half.
func (d *OffsideDetector) deepestTeamToward(key string, left bool) string {
	bestTeam := d.Roster.Teams[0]
	bestX := math.NaN()
	for _, team := range d.Roster.Teams {
		for _, p := range d.Roster.Players {
			if d.Roster.TeamOf(p) != team {
				continue
			}
			pos, ok := d.Positions.Of(key, p)
			if !ok {
				continue
			}
			if math.IsNaN(bestX) || (left && pos.X < bestX) || (!left && pos.X > bestX) {
				bestX = pos.X
				bestTeam = team
			}
		}
	}
	return bestTeam
}

var _ graph.Operator = (*OffsideDetector)(nil)
