package detectors

import (
	"math"

	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// KickoffDetector watches ball samples for a kickoff formation: both
// teams represented near the midpoint, the ball on the spot, nobody
// hugging the midline, and enough time since the last kickoff.
type KickoffDetector struct {
	Cfg       types.KickoffConfig
	Roster    *Roster
	Positions *Positions

	// Sides records which team plays left per key, for every detector
	// that needs the attack direction.
	Sides *store.SingleValueStore

	lastKickoff *store.SingleValueStore
}

// NewKickoffDetector builds the detector with its state in reg. sides is
// the shared store the detected left/right assignment is published to.
func NewKickoffDetector(cfg types.KickoffConfig, roster *Roster, positions *Positions,
	sides *store.SingleValueStore, reg *store.Registry) *KickoffDetector {
	return &KickoffDetector{
		Cfg:         cfg,
		Roster:      roster,
		Positions:   positions,
		Sides:       sides,
		lastKickoff: reg.NewSingleValue(),
	}
}

func (d *KickoffDetector) Process(e *types.Element) ([]*types.Element, error) {
	if len(e.ObjectIdentifiers) == 0 || !d.Roster.IsBall(e.ObjectIdentifiers[0]) || len(e.Positions) == 0 {
		return nil, nil
	}
	ball := e.Positions[0]

	if math.Hypot(ball.X, ball.Y) > d.Cfg.MaxBallMidpointDist {
		return nil, nil
	}

	last, ok := d.lastKickoff.Get(e.Key, "")
	if ok && e.GenerationTimestamp-last.Long < d.Cfg.MinTimeBetweenKickoffs.Milliseconds() {
		return nil, nil
	}

	nearMidpoint := map[string]bool{}
	teamSumX := map[string]float64{}
	teamCount := map[string]int{}
	for _, player := range d.Roster.Players {
		pos, known := d.Positions.Of(e.Key, player)
		if !known {
			return nil, nil // formation unknown until every player has been seen
		}
		team := d.Roster.TeamOf(player)
		teamSumX[team] += pos.X
		teamCount[team]++
		if math.Hypot(pos.X, pos.Y) <= d.Cfg.MaxPlayerMidpointDist {
			nearMidpoint[team] = true
			continue
		}
		// Away from the kickoff circle, nobody may stand inside the
		// midline exclusion band.
		if math.Abs(pos.X) < d.Cfg.MinPlayerMidlineDist {
			return nil, nil
		}
	}
	if !nearMidpoint[d.Roster.Teams[0]] || !nearMidpoint[d.Roster.Teams[1]] {
		return nil, nil
	}

	// Which half each team predominantly occupies at this instant.
	leftTeam, rightTeam := d.Roster.Teams[0], d.Roster.Teams[1]
	if teamCount[leftTeam] > 0 && teamCount[rightTeam] > 0 {
		if teamSumX[leftTeam]/float64(teamCount[leftTeam]) > teamSumX[rightTeam]/float64(teamCount[rightTeam]) {
			leftTeam, rightTeam = rightTeam, leftTeam
		}
	}

	d.lastKickoff.Put(e.Key, "", types.LongValue(e.GenerationTimestamp))
	d.Sides.Put(e.Key, "leftTeam", types.StringValue(leftTeam))

	out := deriveFor(e, StreamKickoffEvent, nil, []string{leftTeam, rightTeam}, map[string]types.Value{
		"leftTeam":  types.StringValue(leftTeam),
		"rightTeam": types.StringValue(rightTeam),
	})
	return []*types.Element{out}, nil
}

var _ graph.Operator = (*KickoffDetector)(nil)
