package detectors

import (
	"streamteam/pkg/geometry"
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// Set-play counter names, also the payload fields of setPlayStatistics.
const (
	counterGoalkicks   = "numGoalkicks"
	counterPenalties   = "numPenalties"
	counterCornerkicks = "numCornerkicks"
	counterFreekicks   = "numFreekicks"
	counterThrowins    = "numThrowins"
)

var setPlayCounters = []string{
	counterGoalkicks, counterPenalties, counterCornerkicks, counterFreekicks, counterThrowins,
}

// SetPlayDetector classifies a ball that was static and started to move:
// depending on where it rests and which team's player is nearest it
// becomes a goal kick, penalty, corner kick or free kick. A ball that
// quickly re-enters the field without resting is a throw-in.
type SetPlayDetector struct {
	Cfg       types.SetPlayConfig
	Roster    *Roster
	Field     FieldModel
	Positions *Positions
	Sides     *store.SingleValueStore

	vabsHist store.TypedHistory[float64]
	histLen  int
	state    *store.SingleValueStore
}

const (
	slotSetPlayLastTS  = "lastSetPlayTs"
	slotSetPlayPrevPos = "prevPos"
	slotSetPlayPrevTS  = "prevTs"
	slotBallInField    = "inField"
	slotBallLeftTS     = "leftFieldTs"
)

// NewSetPlayDetector builds the detector with its state in reg.
func NewSetPlayDetector(cfg types.SetPlayConfig, roster *Roster, field FieldModel,
	positions *Positions, sides *store.SingleValueStore, reg *store.Registry) *SetPlayDetector {
	histLen := cfg.VelocityHistoryLength
	if histLen < 2 {
		histLen = 3
	}
	return &SetPlayDetector{
		Cfg:       cfg,
		Roster:    roster,
		Field:     field,
		Positions: positions,
		Sides:     sides,
		vabsHist:  store.NewTypedHistory[float64](reg.NewHistory(histLen)),
		histLen:   histLen,
		state:     reg.NewSingleValue(),
	}
}

func (d *SetPlayDetector) Process(e *types.Element) ([]*types.Element, error) {
	if len(e.ObjectIdentifiers) == 0 || !d.Roster.IsBall(e.ObjectIdentifiers[0]) || len(e.Positions) == 0 {
		return nil, nil
	}
	key := e.Key
	pos := e.Positions[0]
	gen := e.GenerationTimestamp

	d.updateVelocity(key, pos, gen)

	var out []*types.Element
	if ev := d.checkThrowin(e, pos, gen); ev != nil {
		out = append(out, ev...)
	}
	if ev := d.checkStaticBallMoved(e, pos, gen); ev != nil {
		out = append(out, ev...)
	}
	return out, nil
}

func (d *SetPlayDetector) updateVelocity(key string, pos geometry.Vector3, gen int64) {
	prevPos, hasPos := d.state.Get(key, slotSetPlayPrevPos)
	prevTS, hasTS := d.state.Get(key, slotSetPlayPrevTS)
	if hasPos && hasTS && gen > prevTS.Long {
		d.vabsHist.Add(key, "", geometry.Speed2D(prevPos.Vector3, pos, gen-prevTS.Long))
	}
	d.state.Put(key, slotSetPlayPrevPos, types.Vector3Value(pos))
	d.state.Put(key, slotSetPlayPrevTS, types.LongValue(gen))
}

// checkThrowin watches the ball crossing the side line and back: a quick
// return without resting is a throw-in.
func (d *SetPlayDetector) checkThrowin(e *types.Element, pos geometry.Vector3, gen int64) []*types.Element {
	key := e.Key
	inField := d.Field.InField(pos)
	was, seen := d.state.Get(key, slotBallInField)
	d.state.Put(key, slotBallInField, types.BoolValue(inField))

	if !seen {
		return nil
	}
	if was.Bool && !inField {
		d.state.Put(key, slotBallLeftTS, types.LongValue(gen))
		return nil
	}
	if was.Bool || !inField {
		return nil
	}
	// Re-entry. Only a quick one, with the ball never having rested
	// outside, counts as a throw-in.
	left, ok := d.state.Get(key, slotBallLeftTS)
	if !ok || gen-left.Long > d.Cfg.MaxTimeThrowinDetection.Milliseconds() {
		return nil
	}
	if d.ballWasStatic(key) || d.suppressed(key, gen) {
		return nil
	}
	return d.emitSetPlay(e, StreamThrowinEvent, counterThrowins, pos, gen)
}

func (d *SetPlayDetector) checkStaticBallMoved(e *types.Element, pos geometry.Vector3, gen int64) []*types.Element {
	vabs := d.vabsHist.GetList(e.Key, "")
	if len(vabs) < d.histLen {
		return nil
	}
	if vabs[0] <= d.Cfg.MinVAbsMovement {
		return nil
	}
	for _, older := range vabs[1:] {
		if older > d.Cfg.MaxVAbsStatic {
			return nil
		}
	}
	if d.suppressed(e.Key, gen) {
		return nil
	}

	stream, counter := d.classify(e.Key, pos)
	return d.emitSetPlay(e, stream, counter, pos, gen)
}

// classify names the set play from the area of the sample at which the
// ball is first seen moving and the team of the nearest player.
func (d *SetPlayDetector) classify(key string, pos geometry.Vector3) (string, string) {
	nearest, _, found := nearestPlayer(pos, key, d.Roster, d.Positions)
	nearestTeam := ""
	if found {
		nearestTeam = d.Roster.TeamOf(nearest)
	}
	leftTeam := leftTeamOf(d.Sides, key, d.Roster)

	switch d.Field.AreaOf(pos) {
	case AreaLeftPenaltyBox:
		if nearestTeam == leftTeam {
			return StreamGoalkickEvent, counterGoalkicks
		}
		return StreamPenaltyEvent, counterPenalties
	case AreaRightPenaltyBox:
		if nearestTeam == leftTeam {
			return StreamPenaltyEvent, counterPenalties
		}
		return StreamGoalkickEvent, counterGoalkicks
	case AreaLeftTopCorner, AreaLeftBottomCorner, AreaRightTopCorner, AreaRightBottomCorner:
		return StreamCornerkickEvent, counterCornerkicks
	default:
		return StreamFreekickEvent, counterFreekicks
	}
}

func (d *SetPlayDetector) ballWasStatic(key string) bool {
	for _, v := range d.vabsHist.GetList(key, "") {
		if v <= d.Cfg.MaxVAbsStatic {
			return true
		}
	}
	return false
}

func (d *SetPlayDetector) suppressed(key string, gen int64) bool {
	last, ok := d.state.Get(key, slotSetPlayLastTS)
	return ok && gen-last.Long < d.Cfg.MinTimeBetweenSetPlays.Milliseconds()
}

// emitSetPlay records the suppression timestamp, bumps the nearest
// player's counters (whichever team they belong to) and emits the event
// plus the running statistics.
func (d *SetPlayDetector) emitSetPlay(e *types.Element, stream, counter string, pos geometry.Vector3, gen int64) []*types.Element {
	key := e.Key
	d.state.Put(key, slotSetPlayLastTS, types.LongValue(gen))

	nearest, _, found := nearestPlayer(pos, key, d.Roster, d.Positions)
	var objects, groups []string
	payload := map[string]types.Value{}
	if found {
		team := d.Roster.TeamOf(nearest)
		objects = []string{nearest}
		groups = []string{team}
		payload["playerId"] = types.StringValue(nearest)
		payload["teamId"] = types.StringValue(team)
		_ = d.state.Increase(key, nearest+"|"+counter, types.LongValue(1))
		_ = d.state.Increase(key, team+"|"+counter, types.LongValue(1))
	}
	out := []*types.Element{deriveFor(e, stream, objects, groups, payload)}

	if found {
		team := d.Roster.TeamOf(nearest)
		for _, item := range []StatItem{{ID: nearest, TeamID: team}, {ID: team, TeamID: team, IsTeam: true}} {
			statPayload := map[string]types.Value{
				"itemId": types.StringValue(item.ID),
				"isTeam": types.BoolValue(item.IsTeam),
			}
			for _, c := range setPlayCounters {
				v, _ := d.state.GetLong(key, item.ID+"|"+c)
				statPayload[c] = types.LongValue(v)
			}
			out = append(out, deriveFor(e, StreamSetPlayStatistics, []string{item.ID}, []string{item.TeamID}, statPayload))
		}
	}
	return out
}

var _ graph.Operator = (*SetPlayDetector)(nil)
