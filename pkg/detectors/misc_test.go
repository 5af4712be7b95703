package detectors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"streamteam/pkg/geometry"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

func TestDefaultPacking(t *testing.T) {
	opponents := []geometry.Vector3{v3(10, 0), v3(20, 5), v3(-5, 0), v3(60, 0)}
	require.Equal(t, 2, DefaultPacking(v3(0, 0), opponents, true, 52.5))
	require.Equal(t, 1, DefaultPacking(v3(0, 0), opponents, false, 52.5))
	require.Equal(t, 0, DefaultPacking(v3(50, 0), opponents, true, 52.5))
}

func TestAreaDetectorTransitions(t *testing.T) {
	reg := store.NewRegistry()
	d := NewAreaDetector(testField(), reg)

	out, err := d.Process(sample(ballID, 1000, v3(0, 0)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, AreaField, out[0].Payload["areaId"].String)
	require.True(t, out[0].Payload["inArea"].Bool)

	// Into the left penalty box: leave field area, enter the box.
	out, err = d.Process(sample(ballID, 2000, v3(-40, 0)))
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, AreaField, out[0].Payload["areaId"].String)
	require.False(t, out[0].Payload["inArea"].Bool)
	require.Equal(t, AreaLeftPenaltyBox, out[1].Payload["areaId"].String)
	require.True(t, out[1].Payload["inArea"].Bool)

	// No transition: nothing emitted.
	out, err = d.Process(sample(ballID, 2100, v3(-41, 1)))
	require.NoError(t, err)
	require.Empty(t, out)

	// Over the goal line inside the posts: the leave event names the
	// boundary and the goal area is entered.
	out, err = d.Process(sample(ballID, 3000, v3(-53, 0.5)))
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, AreaLeftPenaltyBox, out[0].Payload["areaId"].String)
	require.Equal(t, AreaLeftGoal, out[0].Payload["exitArea"].String)
	require.Equal(t, AreaLeftGoal, out[1].Payload["areaId"].String)
}

func TestPassCombinationSequencesAndDoublePass(t *testing.T) {
	reg := store.NewRegistry()
	d := NewPassCombinationDetector(types.PassComboConfig{
		MaxHistory:           10,
		MaxTimeBetweenPasses: 10 * time.Second,
	}, reg)

	pass := func(kicker, receiver string, gen int64) *types.Element {
		return &types.Element{
			StreamName:          StreamSuccessfulPassEvent,
			Key:                 testKey,
			GenerationTimestamp: gen,
			Payload: map[string]types.Value{
				"kickerId":   types.StringValue(kicker),
				"receiverId": types.StringValue(receiver),
				"teamId":     types.StringValue(teamA),
			},
			Category: types.Output,
		}
	}

	out, err := d.Process(pass(playerA1, playerA2, 1000))
	require.NoError(t, err)
	require.Empty(t, out) // a single pass is no sequence yet

	out, err = d.Process(pass(playerA2, playerA1, 3000))
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, StreamPassSequenceEvent, out[0].StreamName)
	require.EqualValues(t, 2, out[0].Payload["length"].Long)
	require.Equal(t, []string{playerA1, playerA2, playerA1}, out[0].ObjectIdentifiers)
	require.Equal(t, StreamDoublePassEvent, out[1].StreamName)

	// An interception breaks the chain.
	_, err = d.Process(&types.Element{StreamName: StreamInterceptionEvent, Key: testKey, Category: types.Output})
	require.NoError(t, err)
	out, err = d.Process(pass(playerA1, playerA2, 5000))
	require.NoError(t, err)
	require.Empty(t, out)

	// A long gap between passes also breaks it.
	out, err = d.Process(pass(playerA2, playerA1, 30_000))
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestDribblingLifecycle(t *testing.T) {
	reg := store.NewRegistry()
	roster := testRoster(t)
	positions := NewPositions(reg)
	possession := reg.NewSingleValue()
	d := NewDribblingSpeedDetector(types.DribblingConfig{
		DribblingSpeedThreshold: 3.0,
		DribblingTimeThreshold:  500 * time.Millisecond,
		SpeedLevels:             []float64{2, 4, 7},
	}, roster, positions, possession, reg)

	possession.Put(testKey, "", types.PossessionValue(types.PossessionInfo{PlayerID: playerA1, TeamID: teamA}))

	feed := func(gen int64, pos geometry.Vector3) []*types.Element {
		place(positions, playerA1, pos, gen)
		out, err := d.Process(sample(playerA1, gen, pos))
		require.NoError(t, err)
		return out
	}

	feed(1000, v3(0, 0))
	// 5 m/s: above the dribbling threshold and into speed level 2.
	out := feed(2000, v3(5, 0))
	var streams []string
	for _, e := range out {
		streams = append(streams, e.StreamName)
	}
	require.Contains(t, streams, StreamSpeedLevelChangeEvent)

	// Still fast after the time threshold: the dribbling run starts.
	out = feed(3000, v3(10, 0))
	var dribbling *types.Element
	for _, e := range out {
		if e.StreamName == StreamDribblingEvent {
			dribbling = e
		}
	}
	require.NotNil(t, dribbling)
	require.Equal(t, types.PhaseStart, dribbling.Phase)

	out = feed(4000, v3(15, 0))
	dribbling = nil
	for _, e := range out {
		if e.StreamName == StreamDribblingEvent {
			dribbling = e
		}
	}
	require.NotNil(t, dribbling)
	require.Equal(t, types.PhaseActive, dribbling.Phase)
	require.InDelta(t, 5.0, dribbling.Payload["length"].Double, 1e-9)

	// Player slows down: the run ends and statistics follow.
	out = feed(5000, v3(15.5, 0))
	var sawEnd, sawStats bool
	for _, e := range out {
		if e.StreamName == StreamDribblingEvent && e.Phase == types.PhaseEnd {
			sawEnd = true
		}
		if e.StreamName == StreamDribblingStatistics {
			sawStats = true
			if e.Payload["itemId"].String == playerA1 {
				require.EqualValues(t, 1, e.Payload[counterDribblings].Long)
			}
		}
	}
	require.True(t, sawEnd)
	require.True(t, sawStats)
}

func TestOffsideLineTracksSecondDeepestDefender(t *testing.T) {
	reg := store.NewRegistry()
	roster := testRoster(t)
	positions := NewPositions(reg)
	possession := reg.NewSingleValue()
	d := NewOffsideDetector(roster, positions, possession, reg)

	place(positions, playerA1, v3(-40, 0), 900)
	place(positions, playerA2, v3(-30, 5), 900)
	place(positions, playerB1, v3(40, 0), 900)
	place(positions, playerB2, v3(30, 5), 900)
	possession.Put(testKey, "", types.PossessionValue(types.PossessionInfo{PlayerID: playerB1, TeamID: teamB}))

	out, err := d.Process(sample(playerA1, 1000, v3(-40, 0)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, StreamOffsideLineState, out[0].StreamName)
	require.True(t, out[0].Payload["hasLeftLine"].Bool)
	require.InDelta(t, -30, out[0].Payload["leftLineX"].Double, 1e-9)
	require.InDelta(t, 30, out[0].Payload["rightLineX"].Double, 1e-9)

	// Unchanged lines: no new state element.
	out, err = d.Process(sample(playerA1, 1100, v3(-40, 0)))
	require.NoError(t, err)
	require.Empty(t, out)

	// Possession lost: lines transition to null.
	possession.Put(testKey, "", types.PossessionValue(types.PossessionInfo{}))
	out, err = d.Process(sample(playerA1, 1200, v3(-40, 0)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.False(t, out[0].Payload["hasLeftLine"].Bool)
	require.False(t, out[0].Payload["hasRightLine"].Bool)
}

func TestTeamAreaEmitsOnChange(t *testing.T) {
	reg := store.NewRegistry()
	roster := testRoster(t)
	positions := NewPositions(reg)
	d := NewTeamAreaDetector(roster, positions, reg)

	// Two known positions only: not enough for an area.
	place(positions, playerA1, v3(0, 0), 900)
	place(positions, playerA2, v3(10, 0), 900)
	out, err := d.Process(sample(playerA1, 1000, v3(0, 0)))
	require.NoError(t, err)
	require.Empty(t, out)

	// Third teammate unknown; the roster only has two per team, so use
	// a bigger roster whose team A has three players.
	bigRoster, err := NewRoster(types.StreamTeamConfig{
		Ball:  ballID,
		Teams: []string{teamA, teamB},
		Players: []types.PlayerDef{
			{ObjectID: "A1", TeamID: teamA},
			{ObjectID: "A2", TeamID: teamA},
			{ObjectID: "A3", TeamID: teamA},
			{ObjectID: "B1", TeamID: teamB},
		},
	})
	require.NoError(t, err)
	reg2 := store.NewRegistry()
	positions2 := NewPositions(reg2)
	d2 := NewTeamAreaDetector(bigRoster, positions2, reg2)

	place(positions2, "A1", v3(0, 0), 900)
	place(positions2, "A2", v3(10, 0), 900)
	place(positions2, "A3", v3(0, 10), 900)

	out, err = d2.Process(sample("A1", 1000, v3(0, 0)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, StreamTeamAreaState, out[0].StreamName)
	require.InDelta(t, 100.0, out[0].Payload["mbrArea"].Double, 1e-9)
	require.InDelta(t, 50.0, out[0].Payload["hullArea"].Double, 1e-9)

	// Same formation: no re-emission.
	out, err = d2.Process(sample("A2", 1100, v3(10, 0)))
	require.NoError(t, err)
	require.Empty(t, out)

	// A player moves: areas change and a new state is emitted.
	place(positions2, "A3", v3(0, 20), 1150)
	out, err = d2.Process(sample("A3", 1200, v3(0, 20)))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.InDelta(t, 200.0, out[0].Payload["mbrArea"].Double, 1e-9)
}
