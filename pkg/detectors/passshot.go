package detectors

import (
	"math"

	"streamteam/pkg/geometry"
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// Pass/shot counter names, also used as payload field names on the
// emitted statistics elements.
const (
	counterPasses         = "numSuccessfulPasses"
	counterInterceptions  = "numInterceptions"
	counterMisplaced      = "numMisplacedPasses"
	counterClearances     = "numClearances"
	counterForwardPasses  = "numForwardPasses"
	counterBackwardPasses = "numBackwardPasses"
	counterLeftPasses     = "numLeftPasses"
	counterRightPasses    = "numRightPasses"
	counterPackingSum     = "packingSum"
	counterGoals          = "numGoals"
	counterShotsOffTarget = "numShotsOffTarget"
)

var passCounters = []string{
	counterPasses, counterInterceptions, counterMisplaced, counterClearances,
	counterForwardPasses, counterBackwardPasses, counterLeftPasses, counterRightPasses,
	counterPackingSum,
}

var shotCounters = []string{counterGoals, counterShotsOffTarget}

// PassShotDetector is the state machine between a kick and its
// terminating event: the next possession change classifies the kick as a
// successful pass, an interception or a misplaced pass; the ball leaving
// the field classifies it as a goal, a shot off target or a clearance.
type PassShotDetector struct {
	Cfg       types.PassShotConfig
	Roster    *Roster
	Field     FieldModel
	Positions *Positions
	Sides     *store.SingleValueStore

	pending *store.SingleValueStore // the open kick, one per key
	stats   *store.SingleValueStore // (key, itemID|counter) -> long
}

const (
	slotPendingKicker  = "kicker"
	slotPendingTeam    = "team"
	slotPendingTS      = "ts"
	slotPendingPos     = "pos"
	slotPendingPacking = "packing"
)

// NewPassShotDetector builds the detector with its state in reg.
func NewPassShotDetector(cfg types.PassShotConfig, roster *Roster, field FieldModel,
	positions *Positions, sides *store.SingleValueStore, reg *store.Registry) *PassShotDetector {
	return &PassShotDetector{
		Cfg:       cfg,
		Roster:    roster,
		Field:     field,
		Positions: positions,
		Sides:     sides,
		pending:   reg.NewSingleValue(),
		stats:     reg.NewSingleValue(),
	}
}

func (d *PassShotDetector) Process(e *types.Element) ([]*types.Element, error) {
	switch e.StreamName {
	case StreamKickEvent:
		return nil, d.recordKick(e)
	case StreamBallPossessionChangeEvent:
		return d.onPossessionChange(e)
	case StreamAreaEvent:
		return d.onAreaEvent(e)
	default:
		return nil, nil
	}
}

func (d *PassShotDetector) recordKick(e *types.Element) error {
	if len(e.ObjectIdentifiers) == 0 {
		return nil
	}
	key := e.Key
	d.pending.Put(key, slotPendingKicker, types.StringValue(e.ObjectIdentifiers[0]))
	if len(e.GroupIdentifiers) > 0 {
		d.pending.Put(key, slotPendingTeam, types.StringValue(e.GroupIdentifiers[0]))
	}
	d.pending.Put(key, slotPendingTS, types.LongValue(e.GenerationTimestamp))
	if len(e.Positions) > 0 {
		d.pending.Put(key, slotPendingPos, types.Vector3Value(e.Positions[0]))
	}
	if packing, ok := e.Payload["numPlayersNearerToGoal"]; ok {
		d.pending.Put(key, slotPendingPacking, packing)
	}
	return nil
}

type pendingKick struct {
	kicker  string
	team    string
	ts      int64
	pos     geometry.Vector3
	packing int64
}

func (d *PassShotDetector) openKick(key string) (pendingKick, bool) {
	kicker, ok := d.pending.Get(key, slotPendingKicker)
	if !ok {
		return pendingKick{}, false
	}
	team, _ := d.pending.Get(key, slotPendingTeam)
	ts, _ := d.pending.Get(key, slotPendingTS)
	pos, _ := d.pending.Get(key, slotPendingPos)
	packing, _ := d.pending.Get(key, slotPendingPacking)
	return pendingKick{
		kicker: kicker.String, team: team.String, ts: ts.Long,
		pos: pos.Vector3, packing: packing.Long,
	}, true
}

func (d *PassShotDetector) clearPending(key string) {
	for _, slot := range []string{slotPendingKicker, slotPendingTeam, slotPendingTS, slotPendingPos, slotPendingPacking} {
		d.pending.Delete(key, slot)
	}
}

func (d *PassShotDetector) onPossessionChange(e *types.Element) ([]*types.Element, error) {
	key := e.Key
	kick, open := d.openKick(key)
	if !open {
		return nil, nil
	}
	receiver, hasReceiver := e.Payload["playerId"]
	if !hasReceiver {
		return nil, nil // ball still loose; keep waiting
	}
	if e.GenerationTimestamp-kick.ts > d.Cfg.MaxTime.Milliseconds() {
		d.clearPending(key)
		return nil, nil
	}
	d.clearPending(key)

	if receiver.String == kick.kicker {
		return nil, nil
	}
	receiverTeam, _ := e.Payload["teamId"]

	receiverPos, known := d.Positions.Of(key, receiver.String)
	delta := geometry.Vector3{}
	if known {
		delta = receiverPos.Sub(kick.pos)
	}
	attackRight := kick.team == leftTeamOf(d.Sides, key, d.Roster)
	forward := delta.X
	if !attackRight {
		forward = -forward
	}
	lateral := delta.Y
	if !attackRight {
		lateral = -lateral
	}

	var out []*types.Element
	if receiverTeam.String == kick.team {
		out = append(out, deriveFor(e, StreamSuccessfulPassEvent,
			[]string{kick.kicker, receiver.String}, []string{kick.team},
			map[string]types.Value{
				"kickerId":   types.StringValue(kick.kicker),
				"receiverId": types.StringValue(receiver.String),
				"teamId":     types.StringValue(kick.team),
				"kickTs":     types.LongValue(kick.ts),
			}))
		d.bump(key, kick.kicker, kick.team, counterPasses)
		d.bump(key, kick.kicker, kick.team, directionCounter(forward, lateral))
		d.add(key, kick.kicker, kick.team, counterPackingSum, kick.packing)
	} else {
		// A forward or sidewards ball caught by the opponent is an
		// interception; only a clearly backward one is a misplaced pass.
		theta := math.Atan2(math.Abs(lateral), forward)
		stream := StreamMisplacedPassEvent
		counter := counterMisplaced
		if theta <= math.Pi/2+d.Cfg.SidewardsAngleThreshold {
			stream = StreamInterceptionEvent
			counter = counterInterceptions
		}
		out = append(out, deriveFor(e, stream,
			[]string{kick.kicker, receiver.String}, []string{kick.team, receiverTeam.String},
			map[string]types.Value{
				"kickerId":    types.StringValue(kick.kicker),
				"teamId":      types.StringValue(kick.team),
				"interceptor": types.StringValue(receiver.String),
				"interceptMs": types.LongValue(e.GenerationTimestamp - kick.ts),
			}))
		d.bump(key, kick.kicker, kick.team, counter)
	}
	out = append(out, d.emitStats(e, StreamPassStatistics, kick.kicker, kick.team, passCounters)...)
	return out, nil
}

func (d *PassShotDetector) onAreaEvent(e *types.Element) ([]*types.Element, error) {
	key := e.Key
	kick, open := d.openKick(key)
	if !open {
		return nil, nil
	}
	areaID, _ := e.Payload["areaId"]
	inArea, _ := e.Payload["inArea"]

	switch {
	case inArea.Bool && goalLineArea(areaID.String):
		d.clearPending(key)
		stream := StreamShotOffTargetEvent
		counter := counterShotsOffTarget
		if centerGoalArea(areaID.String) {
			z, _ := e.Payload["z"]
			if z.Double <= d.goalHeight() {
				stream = StreamGoalEvent
				counter = counterGoals
			}
		}
		d.bump(key, kick.kicker, kick.team, counter)
		out := []*types.Element{deriveFor(e, stream,
			[]string{kick.kicker}, []string{kick.team},
			map[string]types.Value{
				"playerId": types.StringValue(kick.kicker),
				"teamId":   types.StringValue(kick.team),
				"areaId":   areaID,
			})}
		out = append(out, d.emitStats(e, StreamShotStatistics, kick.kicker, kick.team, shotCounters)...)
		return out, nil

	case !inArea.Bool && areaID.String == AreaField:
		exit, _ := e.Payload["exitArea"]
		if exit.String != "side" {
			return nil, nil // a goal-line crossing is handled by its enter event
		}
		d.clearPending(key)
		out := []*types.Element{deriveFor(e, StreamClearanceEvent,
			[]string{kick.kicker}, []string{kick.team},
			map[string]types.Value{
				"playerId": types.StringValue(kick.kicker),
				"teamId":   types.StringValue(kick.team),
			})}
		d.bump(key, kick.kicker, kick.team, counterClearances)
		out = append(out, d.emitStats(e, StreamPassStatistics, kick.kicker, kick.team, passCounters)...)
		return out, nil
	}
	return nil, nil
}

func (d *PassShotDetector) goalHeight() float64 {
	if d.Cfg.GoalHeight > 0 {
		return d.Cfg.GoalHeight
	}
	return d.Field.GoalHeight
}

func goalLineArea(area string) bool {
	switch area {
	case AreaLeftGoal, AreaRightGoal, AreaAboveLeftGoal, AreaBelowLeftGoal,
		AreaAboveRightGoal, AreaBelowRightGoal:
		return true
	}
	return false
}

func centerGoalArea(area string) bool {
	return area == AreaLeftGoal || area == AreaRightGoal
}

func directionCounter(forward, lateral float64) string {
	if math.Abs(forward) >= math.Abs(lateral) {
		if forward >= 0 {
			return counterForwardPasses
		}
		return counterBackwardPasses
	}
	if lateral > 0 {
		return counterLeftPasses
	}
	return counterRightPasses
}

func (d *PassShotDetector) bump(key, player, team, counter string) {
	d.add(key, player, team, counter, 1)
}

func (d *PassShotDetector) add(key, player, team, counter string, delta int64) {
	_ = d.stats.Increase(key, player+"|"+counter, types.LongValue(delta))
	_ = d.stats.Increase(key, team+"|"+counter, types.LongValue(delta))
}

// emitStats builds one statistics element for the player and one for the
// team, carrying every counter of the given set.
func (d *PassShotDetector) emitStats(trigger *types.Element, stream, player, team string, counters []string) []*types.Element {
	items := []StatItem{
		{ID: player, TeamID: team},
		{ID: team, TeamID: team, IsTeam: true},
	}
	out := make([]*types.Element, 0, len(items))
	for _, item := range items {
		payload := map[string]types.Value{
			"itemId": types.StringValue(item.ID),
			"isTeam": types.BoolValue(item.IsTeam),
		}
		for _, c := range counters {
			v, _ := d.stats.GetLong(trigger.Key, item.ID+"|"+c)
			payload[c] = types.LongValue(v)
		}
		out = append(out, deriveFor(trigger, stream, []string{item.ID}, []string{item.TeamID}, payload))
	}
	return out
}

var _ graph.Operator = (*PassShotDetector)(nil)
