package detectors

import (
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// passRecord is one successful pass in the combination window.
type passRecord struct {
	Kicker   string
	Receiver string
	Team     string
	TS       int64
}

// PassCombinationDetector chains successful passes into sequences and
// recognises double passes (A to B and straight back to A). Any
// interception, misplaced pass, clearance or ball-out breaks the chain.
type PassCombinationDetector struct {
	Cfg    types.PassComboConfig
	passes store.TypedHistory[passRecord]
	hist   *store.HistoryStore
}

// NewPassCombinationDetector builds the detector with its state in reg.
func NewPassCombinationDetector(cfg types.PassComboConfig, reg *store.Registry) *PassCombinationDetector {
	maxHistory := cfg.MaxHistory
	if maxHistory < 2 {
		maxHistory = 10
	}
	hist := reg.NewHistory(maxHistory)
	return &PassCombinationDetector{
		Cfg:    cfg,
		passes: store.NewTypedHistory[passRecord](hist),
		hist:   hist,
	}
}

func (d *PassCombinationDetector) Process(e *types.Element) ([]*types.Element, error) {
	switch e.StreamName {
	case StreamSuccessfulPassEvent:
		return d.onPass(e)
	case StreamInterceptionEvent, StreamMisplacedPassEvent, StreamClearanceEvent:
		d.hist.EvictKey(e.Key)
		return nil, nil
	case StreamAreaEvent:
		// The ball leaving the field breaks any running combination.
		if area, ok := e.Payload["areaId"]; ok && area.String == AreaField {
			if in, ok := e.Payload["inArea"]; ok && !in.Bool {
				d.hist.EvictKey(e.Key)
			}
		}
		return nil, nil
	default:
		return nil, nil
	}
}

func (d *PassCombinationDetector) onPass(e *types.Element) ([]*types.Element, error) {
	kicker, _ := e.Payload["kickerId"]
	receiver, _ := e.Payload["receiverId"]
	team, _ := e.Payload["teamId"]
	if kicker.String == "" || receiver.String == "" {
		return nil, nil
	}
	cur := passRecord{
		Kicker:   kicker.String,
		Receiver: receiver.String,
		Team:     team.String,
		TS:       e.GenerationTimestamp,
	}
	d.passes.Add(e.Key, "", cur)

	chain := []passRecord{cur}
	all := d.passes.GetList(e.Key, "") // newest first; all[0] == cur
	for i := 1; i < len(all); i++ {
		newer, older := all[i-1], all[i]
		if older.Team != cur.Team {
			break
		}
		if newer.TS-older.TS > d.Cfg.MaxTimeBetweenPasses.Milliseconds() {
			break
		}
		chain = append(chain, older)
	}
	if len(chain) < 2 {
		return nil, nil
	}

	// Players in play order, oldest pass first.
	players := make([]string, 0, len(chain)+1)
	players = append(players, chain[len(chain)-1].Kicker)
	for i := len(chain) - 1; i >= 0; i-- {
		players = append(players, chain[i].Receiver)
	}

	out := []*types.Element{deriveFor(e, StreamPassSequenceEvent, players, []string{cur.Team},
		map[string]types.Value{
			"teamId": types.StringValue(cur.Team),
			"length": types.LongValue(int64(len(chain))),
		})}

	prev := chain[1]
	if prev.Kicker == cur.Receiver && prev.Receiver == cur.Kicker {
		out = append(out, deriveFor(e, StreamDoublePassEvent,
			[]string{cur.Receiver, cur.Kicker}, []string{cur.Team},
			map[string]types.Value{
				"teamId":  types.StringValue(cur.Team),
				"playerA": types.StringValue(cur.Receiver),
				"playerB": types.StringValue(cur.Kicker),
			}))
	}
	return out, nil
}

var _ graph.Operator = (*PassCombinationDetector)(nil)
