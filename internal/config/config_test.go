package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
app:
  logLevel: debug
  tickInterval: 500ms
streamTeam:
  ball: BALL
  teams: [TeamA, TeamB]
  activeTimeThreshold: 30s
  players:
    - objectId: A1
      teamId: TeamA
    - objectId: B1
      teamId: TeamB
  kickoffDetection:
    maxPlayerMidpointDist: 9.15
    maxBallMidpointDist: 0.5
    minPlayerMidlineDist: 1.0
    minTimeBetweenKickoffs: 60s
  heatmapDetection:
    cellsX: 20
    cellsY: 10
    intervals: [1m, 5m]
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.App.LogLevel)
	require.Equal(t, 500*time.Millisecond, cfg.App.TickIntervalDuration)
	require.Equal(t, 30*time.Second, cfg.StreamTeam.ActiveTimeThreshold)
	require.Equal(t, 60*time.Second, cfg.StreamTeam.KickoffDetection.MinTimeBetweenKickoffs)
	require.Len(t, cfg.StreamTeam.Heatmap.Intervals, 2)
	require.Equal(t, time.Minute, cfg.StreamTeam.Heatmap.Intervals[0])
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
streamTeam:
  ball: BALL
  teams: [TeamA, TeamB]
  players:
    - objectId: A1
      teamId: TeamA
`))
	require.NoError(t, err)
	require.Equal(t, "info", cfg.App.LogLevel)
	require.Equal(t, time.Second, cfg.App.TickIntervalDuration)
	require.Equal(t, 60*time.Second, cfg.StreamTeam.ActiveTimeThreshold)
	require.Equal(t, 2*time.Second, cfg.StreamTeam.PassShot.MaxTime)
}

func TestWrongTeamArityIsFatal(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
streamTeam:
  ball: BALL
  teams: [OnlyOne]
  players:
    - objectId: A1
      teamId: OnlyOne
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "exactly 2 teams")
}

func TestUnparseableDurationIsFatal(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
streamTeam:
  ball: BALL
  teams: [TeamA, TeamB]
  activeTimeThreshold: not-a-duration
  players:
    - objectId: A1
      teamId: TeamA
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unparseable duration")
}

func TestUnknownPlayerTeamIsFatal(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
streamTeam:
  ball: BALL
  teams: [TeamA, TeamB]
  players:
    - objectId: A1
      teamId: TeamX
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown team")
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("STREAMTEAM_LOG_LEVEL", "warn")
	t.Setenv("STREAMTEAM_KAFKA_BROKERS", "k1:9092, k2:9092")
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.App.LogLevel)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}
