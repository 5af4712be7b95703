package detectors

import (
	"testing"

	"github.com/stretchr/testify/require"

	"streamteam/pkg/geometry"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

const (
	testKey  = "match-1"
	ballID   = "BALL"
	teamA    = "TeamA"
	teamB    = "TeamB"
	playerA1 = "A1"
	playerA2 = "A2"
	playerB1 = "B1"
	playerB2 = "B2"
)

func testRoster(t *testing.T) *Roster {
	t.Helper()
	r, err := NewRoster(types.StreamTeamConfig{
		Ball:  ballID,
		Teams: []string{teamA, teamB},
		Players: []types.PlayerDef{
			{ObjectID: playerA1, TeamID: teamA},
			{ObjectID: playerA2, TeamID: teamA},
			{ObjectID: playerB1, TeamID: teamB},
			{ObjectID: playerB2, TeamID: teamB},
		},
	})
	require.NoError(t, err)
	return r
}

func testField() FieldModel {
	return NewFieldModel(types.FieldConfig{LengthM: 105, WidthM: 68, GoalHeight: 2.44})
}

func sample(objectID string, gen int64, pos geometry.Vector3) *types.Element {
	return &types.Element{
		StreamName:          StreamFieldObjectState,
		Key:                 testKey,
		GenerationTimestamp: gen,
		ObjectIdentifiers:   []string{objectID},
		Positions:           []geometry.Vector3{pos},
		Category:            types.RawInput,
	}
}

func v3(x, y float64) geometry.Vector3 { return geometry.Vector3{X: x, Y: y} }

func place(p *Positions, objectID string, pos geometry.Vector3, gen int64) {
	p.Update(testKey, objectID, pos, gen)
}

func TestRosterValidation(t *testing.T) {
	_, err := NewRoster(types.StreamTeamConfig{Teams: []string{"only-one"}})
	require.Error(t, err)

	_, err = NewRoster(types.StreamTeamConfig{
		Teams:   []string{teamA, teamB},
		Players: []types.PlayerDef{{ObjectID: playerA1, TeamID: "nope"}},
	})
	require.Error(t, err)
}

func TestStatItemsOrder(t *testing.T) {
	r := testRoster(t)
	items := r.StatItems()
	require.Len(t, items, 6)
	require.Equal(t, playerA1, items[0].ID)
	require.True(t, items[4].IsTeam)
	require.Equal(t, teamA, items[4].ID)
	require.Equal(t, teamB, items[5].ID)
}

func TestPhaseRunsLifecycle(t *testing.T) {
	reg := store.NewRegistry()
	runs := NewPhaseRuns(reg)

	phase, id, emit := runs.Transition(testKey, "x", true)
	require.True(t, emit)
	require.Equal(t, types.PhaseStart, phase)
	require.EqualValues(t, 1, id)

	phase, id, emit = runs.Transition(testKey, "x", true)
	require.True(t, emit)
	require.Equal(t, types.PhaseActive, phase)
	require.EqualValues(t, 1, id)

	phase, id, emit = runs.Transition(testKey, "x", false)
	require.True(t, emit)
	require.Equal(t, types.PhaseEnd, phase)
	require.EqualValues(t, 1, id)

	_, _, emit = runs.Transition(testKey, "x", false)
	require.False(t, emit)

	// A fresh run gets the next identifier from the per-key counter.
	_, id, _ = runs.Transition(testKey, "y", true)
	require.EqualValues(t, 2, id)
}

func TestPositionsSpeedAndOrdering(t *testing.T) {
	reg := store.NewRegistry()
	p := NewPositions(reg)
	p.Update(testKey, playerA1, v3(0, 0), 1000)
	p.Update(testKey, playerA1, v3(3, 4), 2000) // 5 m in 1 s
	require.InDelta(t, 5.0, p.SpeedOf(testKey, playerA1), 1e-9)

	// A late out-of-order sample must not regress the position.
	p.Update(testKey, playerA1, v3(100, 100), 1500)
	pos, ok := p.Of(testKey, playerA1)
	require.True(t, ok)
	require.Equal(t, v3(3, 4), pos)
}
