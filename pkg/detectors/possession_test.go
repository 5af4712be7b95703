package detectors

import (
	"testing"

	"github.com/stretchr/testify/require"

	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

func newPossessionFixture(t *testing.T) (*PossessionDetector, *Positions) {
	reg := store.NewRegistry()
	roster := testRoster(t)
	positions := NewPositions(reg)
	d := NewPossessionDetector(types.PossessionConfig{
		MaxBallPossessionChangeDist: 2.5,
		MinVabsDiff:                 1.0,
		MaxVabsForVabsDiff:          2.0,
		MinMovingDirAngleDiff:       1.0,
		MaxDuelDist:                 2.0,
	}, roster, testField(), positions, reg.NewSingleValue(), reg)
	return d, positions
}

// A resting ball accelerating next to a player assigns possession to
// that player; a nearby opponent opens a duel that ends when they
// withdraw.
func TestPossessionChangeAndDuel(t *testing.T) {
	d, positions := newPossessionFixture(t)

	place(positions, playerA1, v3(2, 0), 900)
	place(positions, playerA2, v3(-20, 5), 900)
	place(positions, playerB1, v3(10, 10), 900)
	place(positions, playerB2, v3(20, -5), 900)

	// Ball at rest, then suddenly moving at 3 m/s.
	_, err := d.Process(sample(ballID, 1000, v3(0, 0)))
	require.NoError(t, err)
	_, err = d.Process(sample(ballID, 1100, v3(0, 0)))
	require.NoError(t, err)
	out, err := d.Process(sample(ballID, 1200, v3(0.3, 0)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, StreamBallPossessionChangeEvent, out[0].StreamName)
	require.Equal(t, playerA1, out[0].Payload["playerId"].String)
	require.Equal(t, teamA, out[0].Payload["teamId"].String)

	// Opponent approaches to within duel distance.
	place(positions, playerB1, v3(3, 1), 1250)
	out, err = d.Process(sample(ballID, 1300, v3(0.35, 0)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, StreamDuelEvent, out[0].StreamName)
	require.Equal(t, types.PhaseStart, out[0].Phase)
	require.EqualValues(t, 1, out[0].Payload["duelId"].Long)
	require.Equal(t, []string{playerA1, playerB1}, out[0].ObjectIdentifiers)
	require.True(t, d.InDuel(testKey, playerA1))

	// Still close: the run continues.
	out, err = d.Process(sample(ballID, 1400, v3(0.4, 0)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, types.PhaseActive, out[0].Phase)
	require.EqualValues(t, 1, out[0].Payload["duelId"].Long)

	// Opponent withdraws: the run ends with the same identifier.
	place(positions, playerB1, v3(10, 10), 1450)
	out, err = d.Process(sample(ballID, 1500, v3(0.45, 0)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, types.PhaseEnd, out[0].Phase)
	require.EqualValues(t, 1, out[0].Payload["duelId"].Long)
	require.False(t, d.InDuel(testKey, playerA1))
}

// The possession event names both a player and a team, or neither.
func TestPossessionLostWhenBallLeavesField(t *testing.T) {
	d, positions := newPossessionFixture(t)

	place(positions, playerA1, v3(2, 0), 900)
	place(positions, playerB1, v3(10, 10), 900)

	_, _ = d.Process(sample(ballID, 1000, v3(0, 0)))
	_, _ = d.Process(sample(ballID, 1100, v3(0, 0)))
	out, err := d.Process(sample(ballID, 1200, v3(0.3, 0)))
	require.NoError(t, err)
	require.Len(t, out, 1)

	// Ball sails out over the side line: possession reverts to nobody.
	out, err = d.Process(sample(ballID, 2000, v3(0, 40)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	ev := out[0]
	require.Equal(t, StreamBallPossessionChangeEvent, ev.StreamName)
	_, hasPlayer := ev.Payload["playerId"]
	_, hasTeam := ev.Payload["teamId"]
	require.False(t, hasPlayer)
	require.False(t, hasTeam)
	require.Equal(t, types.PossessionInfo{}, d.Current(testKey))
}

// A sharp direction change alone assigns possession to the nearest
// player even without a velocity jump.
func TestPossessionByDirectionChange(t *testing.T) {
	d, positions := newPossessionFixture(t)
	place(positions, playerB2, v3(9.5, 0.2), 900)

	// Three samples at constant high speed: right, right, then up.
	_, _ = d.Process(sample(ballID, 1000, v3(5, 0)))
	_, _ = d.Process(sample(ballID, 1500, v3(10, 0)))
	out, err := d.Process(sample(ballID, 2000, v3(10, 5)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, playerB2, out[0].Payload["playerId"].String)
	require.Equal(t, teamB, out[0].Payload["teamId"].String)
}
