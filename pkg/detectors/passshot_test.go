package detectors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"streamteam/pkg/geometry"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

func newPassShotFixture(t *testing.T) (*PassShotDetector, *Positions) {
	reg := store.NewRegistry()
	roster := testRoster(t)
	positions := NewPositions(reg)
	d := NewPassShotDetector(types.PassShotConfig{
		MaxTime:                 2 * time.Second,
		SidewardsAngleThreshold: 0.2,
		GoalHeight:              2.44,
	}, roster, testField(), positions, reg.NewSingleValue(), reg)
	return d, positions
}

func kickBy(player, team string, gen int64, pos geometry.Vector3, packing int64) *types.Element {
	return &types.Element{
		StreamName:          StreamKickEvent,
		Key:                 testKey,
		GenerationTimestamp: gen,
		ObjectIdentifiers:   []string{player},
		GroupIdentifiers:    []string{team},
		Positions:           []geometry.Vector3{pos},
		Payload: map[string]types.Value{
			"numPlayersNearerToGoal": types.LongValue(packing),
		},
		Category: types.Output,
	}
}

func possessionChange(player, team string, gen int64) *types.Element {
	payload := map[string]types.Value{}
	if player != "" {
		payload["playerId"] = types.StringValue(player)
		payload["teamId"] = types.StringValue(team)
	}
	return &types.Element{
		StreamName:          StreamBallPossessionChangeEvent,
		Key:                 testKey,
		GenerationTimestamp: gen,
		Payload:             payload,
		Category:            types.Output,
	}
}

func areaEvent(areaID string, inArea bool, z float64, gen int64) *types.Element {
	return &types.Element{
		StreamName:          StreamAreaEvent,
		Key:                 testKey,
		GenerationTimestamp: gen,
		Payload: map[string]types.Value{
			"areaId": types.StringValue(areaID),
			"inArea": types.BoolValue(inArea),
			"z":      types.DoubleValue(z),
		},
		Category: types.Output,
	}
}

func TestSameTeamReceiverIsSuccessfulPass(t *testing.T) {
	d, positions := newPassShotFixture(t)
	place(positions, playerA2, v3(10, 0), 1400)

	_, err := d.Process(kickBy(playerA1, teamA, 1000, v3(0, 0), 3))
	require.NoError(t, err)
	out, err := d.Process(possessionChange(playerA2, teamA, 1500))
	require.NoError(t, err)

	require.NotEmpty(t, out)
	require.Equal(t, StreamSuccessfulPassEvent, out[0].StreamName)
	require.Equal(t, playerA1, out[0].Payload["kickerId"].String)
	require.Equal(t, playerA2, out[0].Payload["receiverId"].String)

	// Statistics follow for the kicker and their team, with the packing
	// value folded into the sum.
	var stats []*types.Element
	for _, e := range out[1:] {
		require.Equal(t, StreamPassStatistics, e.StreamName)
		stats = append(stats, e)
	}
	require.Len(t, stats, 2)
	require.EqualValues(t, 1, stats[0].Payload[counterPasses].Long)
	require.EqualValues(t, 1, stats[0].Payload[counterForwardPasses].Long)
	require.EqualValues(t, 3, stats[0].Payload[counterPackingSum].Long)
	require.True(t, stats[1].Payload["isTeam"].Bool)
}

func TestOpponentReceiverForwardIsInterception(t *testing.T) {
	d, positions := newPassShotFixture(t)
	place(positions, playerB1, v3(15, 1), 1400)

	_, _ = d.Process(kickBy(playerA1, teamA, 1000, v3(0, 0), 0))
	out, err := d.Process(possessionChange(playerB1, teamB, 1500))
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, StreamInterceptionEvent, out[0].StreamName)
}

func TestOpponentReceiverBackwardIsMisplacedPass(t *testing.T) {
	d, positions := newPassShotFixture(t)
	place(positions, playerB1, v3(-15, 1), 1400)

	_, _ = d.Process(kickBy(playerA1, teamA, 1000, v3(0, 0), 0))
	out, err := d.Process(possessionChange(playerB1, teamB, 1500))
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, StreamMisplacedPassEvent, out[0].StreamName)
}

func TestGoalLineCrossingIsGoalOrShotOffTarget(t *testing.T) {
	d, _ := newPassShotFixture(t)

	_, _ = d.Process(kickBy(playerA1, teamA, 1000, v3(40, 0), 0))
	out, err := d.Process(areaEvent(AreaLeftGoal, true, 1.0, 1400))
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, StreamGoalEvent, out[0].StreamName)

	_, _ = d.Process(kickBy(playerA1, teamA, 2000, v3(40, 0), 0))
	out, err = d.Process(areaEvent(AreaLeftGoal, true, 3.0, 2400))
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, StreamShotOffTargetEvent, out[0].StreamName)

	for _, e := range out[1:] {
		require.Equal(t, StreamShotStatistics, e.StreamName)
	}
}

func TestSideLineExitIsClearance(t *testing.T) {
	d, _ := newPassShotFixture(t)

	_, _ = d.Process(kickBy(playerA1, teamA, 1000, v3(0, 30), 0))
	leave := areaEvent(AreaField, false, 0, 1300)
	leave.Payload["exitArea"] = types.StringValue("side")
	out, err := d.Process(leave)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, StreamClearanceEvent, out[0].StreamName)
}

func TestLatePossessionChangeIsNoPass(t *testing.T) {
	d, positions := newPassShotFixture(t)
	place(positions, playerA2, v3(10, 0), 1400)

	_, _ = d.Process(kickBy(playerA1, teamA, 1000, v3(0, 0), 0))
	out, err := d.Process(possessionChange(playerA2, teamA, 4000))
	require.NoError(t, err)
	require.Empty(t, out)

	// The pending kick is consumed; a later change produces nothing.
	out, err = d.Process(possessionChange(playerA2, teamA, 4100))
	require.NoError(t, err)
	require.Empty(t, out)
}
