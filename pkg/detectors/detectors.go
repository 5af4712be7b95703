// Package detectors contains the stateful football analytics operators:
// kickoff, ball possession and duels, kicks, passes and shots, pass
// combinations, set plays, dribbling and speed levels, distances,
// pressing, offside line, team area, heatmaps and match time. Each
// detector is a graph operator with all of its state held in keyed
// stores; a detector only ever sees the elements its task's filter
// graph routes to it.
package detectors

import (
	"fmt"

	"streamteam/pkg/geometry"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// Roster is the static player/team/ball assignment a worker is
// configured with. Exactly two teams; every player belongs to one.
type Roster struct {
	BallID     string
	Teams      [2]string
	PlayerTeam map[string]string
	// Players preserves configuration order for deterministic iteration.
	Players []string
}

// NewRoster builds a roster from the worker configuration.
func NewRoster(cfg types.StreamTeamConfig) (*Roster, error) {
	if len(cfg.Teams) != 2 {
		return nil, fmt.Errorf("roster: expected exactly 2 teams, got %d", len(cfg.Teams))
	}
	r := &Roster{
		BallID:     cfg.Ball,
		Teams:      [2]string{cfg.Teams[0], cfg.Teams[1]},
		PlayerTeam: make(map[string]string, len(cfg.Players)),
	}
	for _, p := range cfg.Players {
		if _, dup := r.PlayerTeam[p.ObjectID]; dup {
			return nil, fmt.Errorf("roster: duplicate player %q", p.ObjectID)
		}
		if p.TeamID != r.Teams[0] && p.TeamID != r.Teams[1] {
			return nil, fmt.Errorf("roster: player %q references unknown team %q", p.ObjectID, p.TeamID)
		}
		r.PlayerTeam[p.ObjectID] = p.TeamID
		r.Players = append(r.Players, p.ObjectID)
	}
	return r, nil
}

// TeamOf returns the team a player belongs to, or "" for the ball or an
// unknown object.
func (r *Roster) TeamOf(objectID string) string { return r.PlayerTeam[objectID] }

// Opponent returns the other team.
func (r *Roster) Opponent(teamID string) string {
	if teamID == r.Teams[0] {
		return r.Teams[1]
	}
	return r.Teams[0]
}

// IsBall reports whether objectID is the tracked ball.
func (r *Roster) IsBall(objectID string) bool { return objectID == r.BallID }

// StatItem is the unit aggregate counters are kept for: a single player
// (with their team) or a whole team.
type StatItem struct {
	ID     string
	TeamID string
	IsTeam bool
}

// StatItems returns every statistics item in configuration order:
// players first, then the two teams.
func (r *Roster) StatItems() []StatItem {
	items := make([]StatItem, 0, len(r.Players)+2)
	for _, p := range r.Players {
		items = append(items, StatItem{ID: p, TeamID: r.PlayerTeam[p]})
	}
	for _, t := range r.Teams {
		items = append(items, StatItem{ID: t, TeamID: t, IsTeam: true})
	}
	return items
}

// derive builds an output event from the element that triggered it. The
// generation and processing timestamps are inherited from the trigger so
// re-running identical inputs yields identical outputs.
func derive(trigger *types.Element, stream string, payload map[string]types.Value) *types.Element {
	return &types.Element{
		StreamName:          stream,
		Key:                 trigger.Key,
		GenerationTimestamp: trigger.GenerationTimestamp,
		ProcessingTimestamp: trigger.ProcessingTimestamp,
		Payload:             payload,
		Category:            types.Output,
	}
}

// deriveFor is derive plus the object/group identifiers the event names.
func deriveFor(trigger *types.Element, stream string, objects, groups []string, payload map[string]types.Value) *types.Element {
	e := derive(trigger, stream, payload)
	e.ObjectIdentifiers = objects
	e.GroupIdentifiers = groups
	return e
}

// PhaseRuns drives the START/ACTIVE/END lifecycle shared by the duel,
// dribbling and under-pressure detectors. State per (key, innerKey) is
// either absent (NONE) or the run identifier of the active run; run
// identifiers come from a strictly increasing per-key counter so
// subscribers can stitch the phases of one run together.
type PhaseRuns struct {
	counter *store.SingleValueStore
	active  *store.SingleValueStore
}

// NewPhaseRuns allocates the two backing stores from the registry.
func NewPhaseRuns(reg *store.Registry) *PhaseRuns {
	return &PhaseRuns{counter: reg.NewSingleValue(), active: reg.NewSingleValue()}
}

// Transition feeds one observation into the machine and reports what to
// emit: the phase (Start on NONE->ACTIVE, Active while it persists, End
// on ACTIVE->NONE), the run identifier, and whether to emit at all.
func (p *PhaseRuns) Transition(key, innerKey string, nowActive bool) (types.Phase, int64, bool) {
	cur, running := p.active.Get(key, innerKey)
	switch {
	case nowActive && !running:
		next, err := p.counter.GetLong(key, "")
		if err != nil {
			return types.PhaseNone, 0, false
		}
		next++
		p.counter.Put(key, "", types.LongValue(next))
		p.active.Put(key, innerKey, types.LongValue(next))
		return types.PhaseStart, next, true
	case nowActive && running:
		return types.PhaseActive, cur.Long, true
	case !nowActive && running:
		p.active.Delete(key, innerKey)
		return types.PhaseEnd, cur.Long, true
	default:
		return types.PhaseNone, 0, false
	}
}

// RunningID returns the active run id for (key, innerKey), if any.
func (p *PhaseRuns) RunningID(key, innerKey string) (int64, bool) {
	v, ok := p.active.Get(key, innerKey)
	if !ok {
		return 0, false
	}
	return v.Long, true
}

// Positions is the shared per-object positional state nearly every
// detector reads: the latest position, the latest absolute field-plane
// speed, and the last sample timestamp, all per (key, objectID). One
// PositionTracker writes it ahead of the detectors in the graph.
type Positions struct {
	Current *store.SingleValueStore
	Speed   *store.SingleValueStore
	LastTS  *store.SingleValueStore
}

// NewPositions allocates the backing stores from the registry.
func NewPositions(reg *store.Registry) *Positions {
	return &Positions{
		Current: reg.NewSingleValue(),
		Speed:   reg.NewSingleValue(),
		LastTS:  reg.NewSingleValue(),
	}
}

// Update records one field-object sample and derives its absolute speed
// from the previous sample. Out-of-order samples (older generation
// timestamp than the stored one) are ignored.
func (p *Positions) Update(key, objectID string, pos geometry.Vector3, gen int64) {
	prevTS, ok := p.LastTS.Get(key, objectID)
	if ok && gen < prevTS.Long {
		return
	}
	if prev, okPos := p.Current.Get(key, objectID); okPos && ok {
		speed := geometry.Speed2D(prev.Vector3, pos, gen-prevTS.Long)
		p.Speed.Put(key, objectID, types.DoubleValue(speed))
	}
	p.Current.Put(key, objectID, types.Vector3Value(pos))
	p.LastTS.Put(key, objectID, types.LongValue(gen))
}

// Of returns the latest position of objectID, if one has been seen.
func (p *Positions) Of(key, objectID string) (geometry.Vector3, bool) {
	v, ok := p.Current.Get(key, objectID)
	if !ok {
		return geometry.Vector3{}, false
	}
	return v.Vector3, true
}

// SpeedOf returns the latest absolute speed of objectID in m/s.
func (p *Positions) SpeedOf(key, objectID string) float64 {
	v, ok := p.Speed.Get(key, objectID)
	if !ok {
		return 0
	}
	return v.Double
}

// PositionTracker is the graph operator that feeds Positions from
// fieldObjectState elements and forwards them unchanged.
type PositionTracker struct {
	Positions *Positions
}

func (t *PositionTracker) Process(e *types.Element) ([]*types.Element, error) {
	if len(e.ObjectIdentifiers) > 0 && len(e.Positions) > 0 {
		t.Positions.Update(e.Key, e.ObjectIdentifiers[0], e.Positions[0], e.GenerationTimestamp)
	}
	return []*types.Element{e}, nil
}

// leftTeamOf reads the side assignment published by the kickoff
// detector; before the first kickoff the first configured team is
// assumed to play left.
func leftTeamOf(sides *store.SingleValueStore, key string, roster *Roster) string {
	v, ok := sides.Get(key, "leftTeam")
	if !ok || v.String == "" {
		return roster.Teams[0]
	}
	return v.String
}

// nearestPlayer scans the roster for the player closest to pos in the
// x-y plane. Returns false if no player position is known yet.
func nearestPlayer(pos geometry.Vector3, key string, roster *Roster, positions *Positions) (string, float64, bool) {
	best := ""
	bestDist := 0.0
	for _, player := range roster.Players {
		p, ok := positions.Of(key, player)
		if !ok {
			continue
		}
		d := geometry.Dist2D(pos, p)
		if best == "" || d < bestDist {
			best, bestDist = player, d
		}
	}
	return best, bestDist, best != ""
}
