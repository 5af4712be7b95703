package detectors

import (
	"sort"

	"streamteam/pkg/geometry"
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// PossessionDetector assigns ball possession from ball movement relative
// to the nearest player and tracks duels between the player in
// possession and close opponents. Possession state is written to a
// shared store so the kick, pressing, offside and dribbling detectors
// can read who currently holds the ball.
type PossessionDetector struct {
	Cfg    types.PossessionConfig
	Roster *Roster
	Field  FieldModel

	Positions  *Positions
	Possession *store.SingleValueStore // per key: the current PossessionInfo

	posHist  store.TypedHistory[geometry.Vector3]
	vabsHist store.TypedHistory[float64]
	tsHist   store.TypedHistory[int64]

	duels       *PhaseRuns
	activeDuels *store.SingleValueStore // per key: StringList of running duel pair keys
}

// NewPossessionDetector builds the detector. possession is the shared
// store other detectors read the player-in-possession from.
func NewPossessionDetector(cfg types.PossessionConfig, roster *Roster, field FieldModel,
	positions *Positions, possession *store.SingleValueStore, reg *store.Registry) *PossessionDetector {
	return &PossessionDetector{
		Cfg:         cfg,
		Roster:      roster,
		Field:       field,
		Positions:   positions,
		Possession:  possession,
		posHist:     store.NewTypedHistory[geometry.Vector3](reg.NewHistory(3)),
		vabsHist:    store.NewTypedHistory[float64](reg.NewHistory(2)),
		tsHist:      store.NewTypedHistory[int64](reg.NewHistory(2)),
		duels:       NewPhaseRuns(reg),
		activeDuels: reg.NewSingleValue(),
	}
}

// Current returns the possession info for key; both fields empty when
// nobody possesses the ball.
func (d *PossessionDetector) Current(key string) types.PossessionInfo {
	v, ok := d.Possession.Get(key, "")
	if !ok {
		return types.PossessionInfo{}
	}
	return v.Possession
}

// InDuel reports whether playerID is currently part of a running duel.
func (d *PossessionDetector) InDuel(key, playerID string) bool {
	list, _ := d.activeDuels.Get(key, "")
	for _, pair := range list.StringList {
		possessor, opponent := splitPair(pair)
		if possessor == playerID || opponent == playerID {
			return true
		}
	}
	return false
}

func (d *PossessionDetector) Process(e *types.Element) ([]*types.Element, error) {
	if len(e.ObjectIdentifiers) == 0 || len(e.Positions) == 0 {
		return nil, nil
	}
	objectID := e.ObjectIdentifiers[0]
	pos := e.Positions[0]

	// Rolling histories are kept per object; detection runs on ball
	// samples only.
	d.updateHistories(e.Key, objectID, pos, e.GenerationTimestamp)
	if !d.Roster.IsBall(objectID) {
		return nil, nil
	}

	newInfo, decided := d.evaluate(e.Key, pos)
	var out []*types.Element

	prev := d.Current(e.Key)
	if decided && newInfo != prev {
		d.Possession.Put(e.Key, "", types.PossessionValue(newInfo))
		payload := map[string]types.Value{}
		var objects, groups []string
		if newInfo.PlayerID != "" {
			payload["playerId"] = types.StringValue(newInfo.PlayerID)
			payload["teamId"] = types.StringValue(newInfo.TeamID)
			objects = []string{newInfo.PlayerID}
			groups = []string{newInfo.TeamID}
		}
		out = append(out, deriveFor(e, StreamBallPossessionChangeEvent, objects, groups, payload))
	}

	out = append(out, d.updateDuels(e)...)
	return out, nil
}

func (d *PossessionDetector) updateHistories(key, objectID string, pos geometry.Vector3, gen int64) {
	prevPos, hasPrev := d.posHist.GetLatest(key, objectID)
	prevTS, hasTS := d.tsHist.GetLatest(key, objectID)
	if hasPrev && hasTS && gen > prevTS {
		d.vabsHist.Add(key, objectID, geometry.Speed2D(prevPos, pos, gen-prevTS))
	}
	d.posHist.Add(key, objectID, pos)
	d.tsHist.Add(key, objectID, gen)
}

// evaluate decides the new possession state from the current ball
// sample. The second return value is false while the ball's history is
// too short to judge, in which case the previous state stands.
func (d *PossessionDetector) evaluate(key string, ball geometry.Vector3) (types.PossessionInfo, bool) {
	if !d.Field.InField(ball) {
		return types.PossessionInfo{}, true
	}

	player, dist, found := nearestPlayer(ball, key, d.Roster, d.Positions)
	if !found {
		return types.PossessionInfo{}, false
	}

	vabs := d.vabsHist.GetList(key, d.Roster.BallID)
	touched := false
	if len(vabs) >= 2 && dist < d.Cfg.MaxBallPossessionChangeDist {
		diff := vabs[0] - vabs[1]
		if diff < 0 {
			diff = -diff
		}
		if diff > d.Cfg.MinVabsDiff && vabs[1] < d.Cfg.MaxVabsForVabsDiff {
			touched = true
		}
	}
	if !touched {
		positions := d.posHist.GetList(key, d.Roster.BallID)
		if len(positions) >= 3 {
			prevDir := positions[1].Sub(positions[2])
			curDir := positions[0].Sub(positions[1])
			if geometry.AngleBetween2D(prevDir, curDir) > d.Cfg.MinMovingDirAngleDiff {
				touched = true
			}
		}
	}
	if !touched {
		return d.Current(key), true
	}
	return types.PossessionInfo{PlayerID: player, TeamID: d.Roster.TeamOf(player)}, true
}

// updateDuels re-evaluates which opponents currently crowd the player in
// possession and advances each pair's phase run.
func (d *PossessionDetector) updateDuels(e *types.Element) []*types.Element {
	key := e.Key
	cur := d.Current(key)

	desired := map[string]string{} // pair key -> opponent
	if cur.PlayerID != "" {
		if holderPos, ok := d.Positions.Of(key, cur.PlayerID); ok {
			for _, opp := range d.Roster.Players {
				if d.Roster.TeamOf(opp) == cur.TeamID {
					continue
				}
				oppPos, ok := d.Positions.Of(key, opp)
				if !ok {
					continue
				}
				if geometry.Dist2D(holderPos, oppPos) <= d.Cfg.MaxDuelDist {
					desired[cur.PlayerID+"|"+opp] = opp
				}
			}
		}
	}

	prevList, _ := d.activeDuels.Get(key, "")
	var out []*types.Element
	emit := func(possessor, opponent string, phase types.Phase, id int64) {
		ev := deriveFor(e, StreamDuelEvent,
			[]string{possessor, opponent},
			[]string{d.Roster.TeamOf(possessor), d.Roster.TeamOf(opponent)},
			map[string]types.Value{"duelId": types.LongValue(id)})
		ev.Phase = phase
		out = append(out, ev)
	}

	// End runs that are no longer close (or whose possession ended).
	for _, pair := range prevList.StringList {
		if _, still := desired[pair]; still {
			continue
		}
		possessor, opponent := splitPair(pair)
		if phase, id, ok := d.duels.Transition(key, pair, false); ok {
			emit(possessor, opponent, phase, id)
		}
	}
	// Start or continue the runs that are close now, in a stable order.
	next := make([]string, 0, len(desired))
	for pair := range desired {
		next = append(next, pair)
	}
	sort.Strings(next)
	for _, pair := range next {
		possessor, opponent := splitPair(pair)
		if phase, id, ok := d.duels.Transition(key, pair, true); ok {
			emit(possessor, opponent, phase, id)
		}
	}
	d.activeDuels.Put(key, "", types.Value{Kind: types.KindStringList, StringList: next})
	return out
}

func splitPair(pair string) (string, string) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '|' {
			return pair[:i], pair[i+1:]
		}
	}
	return pair, ""
}

var _ graph.Operator = (*PossessionDetector)(nil)
