package detectors

import (
	"streamteam/pkg/geometry"
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// DuelQuery lets the kick detector ask whether the kicker is currently
// engaged in a duel without coupling to the possession detector's
// internals.
type DuelQuery interface {
	InDuel(key, playerID string) bool
}

// KickDetector declares a kick when the ball's movement direction
// changes sharply and it then travels far enough from its rest point
// within a short window, without rolling back into a previous rest.
type KickDetector struct {
	Cfg    types.KickConfig
	Roster *Roster
	Field  FieldModel

	Positions  *Positions
	Possession *store.SingleValueStore
	Sides      *store.SingleValueStore
	Pressure   *store.SingleValueStore // per key: bool, written by the pressing detector
	Duels      DuelQuery
	Packing    PackingFunc

	posHist store.TypedHistory[geometry.Vector3]
	tsHist  store.TypedHistory[int64]
	state   *store.SingleValueStore // rest points and the open kick candidate
}

const (
	slotRestPos     = "restPos"
	slotPrevRestPos = "prevRestPos"
	slotCandTS      = "candidateTs"
	slotCandPos     = "candidatePos"
)

// NewKickDetector builds the detector with its state in reg.
func NewKickDetector(cfg types.KickConfig, roster *Roster, field FieldModel, positions *Positions,
	possession, sides, pressure *store.SingleValueStore, duels DuelQuery, packing PackingFunc,
	reg *store.Registry) *KickDetector {
	if packing == nil {
		packing = DefaultPacking
	}
	return &KickDetector{
		Cfg:        cfg,
		Roster:     roster,
		Field:      field,
		Positions:  positions,
		Possession: possession,
		Sides:      sides,
		Pressure:   pressure,
		Duels:      duels,
		Packing:    packing,
		posHist:    store.NewTypedHistory[geometry.Vector3](reg.NewHistory(3)),
		tsHist:     store.NewTypedHistory[int64](reg.NewHistory(2)),
		state:      reg.NewSingleValue(),
	}
}

func (d *KickDetector) Process(e *types.Element) ([]*types.Element, error) {
	if len(e.ObjectIdentifiers) == 0 || !d.Roster.IsBall(e.ObjectIdentifiers[0]) || len(e.Positions) == 0 {
		return nil, nil
	}
	key := e.Key
	pos := e.Positions[0]
	gen := e.GenerationTimestamp

	prevPos, hasPrev := d.posHist.GetLatest(key, "")
	prevTS, hasTS := d.tsHist.GetLatest(key, "")
	positions := d.posHist.GetList(key, "")
	d.posHist.Add(key, "", pos)
	d.tsHist.Add(key, "", gen)

	if !hasPrev || !hasTS || gen <= prevTS {
		return nil, nil
	}

	speed := geometry.Speed2D(prevPos, pos, gen-prevTS)
	if speed < d.Cfg.MaxRestSpeed {
		if rest, ok := d.state.Get(key, slotRestPos); ok && geometry.Dist2D(rest.Vector3, pos) > 0.5 {
			d.state.Put(key, slotPrevRestPos, rest)
		}
		d.state.Put(key, slotRestPos, types.Vector3Value(pos))
	}

	// A sharp direction change opens a kick candidate anchored at the
	// current rest point.
	if len(positions) >= 2 {
		prevDir := positions[0].Sub(positions[1])
		curDir := pos.Sub(positions[0])
		if geometry.AngleBetween2D(prevDir, curDir) > d.Cfg.MinDirChangeAngle {
			anchor := pos
			if rest, ok := d.state.Get(key, slotRestPos); ok {
				anchor = rest.Vector3
			}
			d.state.Put(key, slotCandTS, types.LongValue(gen))
			d.state.Put(key, slotCandPos, types.Vector3Value(anchor))
		}
	}

	cand, open := d.state.Get(key, slotCandTS)
	if !open {
		return nil, nil
	}
	if gen-cand.Long > d.Cfg.KickWindow.Milliseconds() {
		d.clearCandidate(key)
		return nil, nil
	}
	anchor, _ := d.state.Get(key, slotCandPos)
	if geometry.Dist2D(pos, anchor.Vector3) <= d.Cfg.MinKickDist {
		return nil, nil
	}
	if prevRest, ok := d.state.Get(key, slotPrevRestPos); ok {
		if geometry.Dist2D(pos, prevRest.Vector3) <= d.Cfg.MaxBallbackDist {
			d.clearCandidate(key)
			return nil, nil
		}
	}
	d.clearCandidate(key)

	poss, ok := d.Possession.Get(key, "")
	if !ok || poss.Possession.PlayerID == "" {
		return nil, nil // a kick is attributed to the player in possession
	}
	kicker := poss.Possession.PlayerID
	team := poss.Possession.TeamID

	leftTeam := leftTeamOf(d.Sides, key, d.Roster)
	attackRight := team == leftTeam

	var opponents []geometry.Vector3
	for _, p := range d.Roster.Players {
		if d.Roster.TeamOf(p) == team {
			continue
		}
		if op, ok := d.Positions.Of(key, p); ok {
			opponents = append(opponents, op)
		}
	}

	attacked := d.Duels != nil && d.Duels.InDuel(key, kicker)
	underPressure, _ := d.Pressure.GetBoolean(key, "")

	out := deriveFor(e, StreamKickEvent, []string{kicker}, []string{team}, map[string]types.Value{
		"playerId":               types.StringValue(kicker),
		"teamId":                 types.StringValue(team),
		"zone":                   types.StringValue(d.zone(pos, attackRight)),
		"attacked":               types.BoolValue(attacked),
		"underPressure":          types.BoolValue(underPressure),
		"numPlayersNearerToGoal": types.LongValue(int64(d.Packing(pos, opponents, attackRight, d.Field.HalfLength))),
	})
	out.Positions = []geometry.Vector3{pos}
	return []*types.Element{out}, nil
}

func (d *KickDetector) clearCandidate(key string) {
	d.state.Delete(key, slotCandTS)
	d.state.Delete(key, slotCandPos)
}

// zone buckets the kick position into the left, center or right third of
// the pitch width, seen from the kicking team's attacking direction.
func (d *KickDetector) zone(pos geometry.Vector3, attackRight bool) string {
	third := d.Field.HalfWidth * 2 / 6
	y := pos.Y
	if !attackRight {
		y = -y
	}
	switch {
	case y > third:
		return "left"
	case y < -third:
		return "right"
	default:
		return "center"
	}
}

var _ graph.Operator = (*KickDetector)(nil)
