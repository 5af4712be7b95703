// Package config loads and validates the worker configuration from YAML
// with environment-variable overrides. Configuration errors are fatal at
// worker start; nothing here is recoverable at runtime.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"streamteam/pkg/compression"
	"streamteam/pkg/deduplication"
	"streamteam/pkg/dlq"
	streamerrors "streamteam/pkg/errors"
	"streamteam/pkg/tracing"
	"streamteam/pkg/transport"
	"streamteam/pkg/types"
)

const component = "config"

// Config is the full worker configuration.
type Config struct {
	App           AppConfig              `yaml:"app"`
	Kafka         transport.KafkaConfig  `yaml:"kafka"`
	Compression   compression.Config     `yaml:"compression"`
	DLQ           dlq.Config             `yaml:"dlq"`
	Deduplication deduplication.Config   `yaml:"deduplication"`
	Tracing       tracing.Config         `yaml:"tracing"`
	StreamTeam    types.StreamTeamConfig `yaml:"-"`

	// streamTeamWire is the YAML-facing shape of StreamTeam; durations
	// arrive as strings ("60s") and are parsed into StreamTeam.
	StreamTeamWire streamTeamWire `yaml:"streamTeam"`
}

// AppConfig covers process-level settings.
type AppConfig struct {
	LogLevel      string `yaml:"logLevel"`
	MetricsListen string `yaml:"metricsListen"`
	TickInterval  string `yaml:"tickInterval"`

	// parsed form of TickInterval
	TickIntervalDuration time.Duration `yaml:"-"`
}

// streamTeamWire mirrors types.StreamTeamConfig with string durations,
// following the parse-at-load idiom used for every duration here.
type streamTeamWire struct {
	Ball                    string            `yaml:"ball"`
	Players                 []types.PlayerDef `yaml:"players"`
	Teams                   []string          `yaml:"teams"`
	ActiveTimeThreshold     string            `yaml:"activeTimeThreshold"`
	LogProcessingTimestamps bool              `yaml:"logProcessingTimestamps"`

	KickoffDetection struct {
		MaxPlayerMidpointDist  float64 `yaml:"maxPlayerMidpointDist"`
		MaxBallMidpointDist    float64 `yaml:"maxBallMidpointDist"`
		MinPlayerMidlineDist   float64 `yaml:"minPlayerMidlineDist"`
		MinTimeBetweenKickoffs string  `yaml:"minTimeBetweenKickoffs"`
	} `yaml:"kickoffDetection"`

	Possession types.PossessionConfig `yaml:"possessionDetection"`

	Kick struct {
		MinKickDist       float64 `yaml:"minKickDist"`
		MaxBallbackDist   float64 `yaml:"maxBallbackDist"`
		MinDirChangeAngle float64 `yaml:"minDirChangeAngle"`
		MaxRestSpeed      float64 `yaml:"maxRestSpeed"`
		KickWindow        string  `yaml:"kickWindow"`
	} `yaml:"kickDetection"`

	PassShot struct {
		MaxTime                 string  `yaml:"maxTime"`
		SidewardsAngleThreshold float64 `yaml:"sidewardsAngleThreshold"`
		GoalHeight              float64 `yaml:"goalHeight"`
	} `yaml:"passShotDetection"`

	PassCombination struct {
		MaxHistory           int    `yaml:"maxHistory"`
		MaxTimeBetweenPasses string `yaml:"maxTimeBetweenPasses"`
	} `yaml:"passCombinationDetection"`

	SetPlay struct {
		MaxVAbsStatic           float64 `yaml:"maxVAbsStatic"`
		MinVAbsMovement         float64 `yaml:"minVAbsMovement"`
		VelocityHistoryLength   int     `yaml:"velocityHistoryLength"`
		MinTimeBetweenSetPlays  string  `yaml:"minTimeBetweenSetPlays"`
		MaxTimeThrowinDetection string  `yaml:"maxTimeThrowinDetection"`
	} `yaml:"setPlayDetection"`

	Dribbling struct {
		DribblingSpeedThreshold float64   `yaml:"dribblingSpeedThreshold"`
		DribblingTimeThreshold  string    `yaml:"dribblingTimeThreshold"`
		SpeedLevels             []float64 `yaml:"speedLevels"`
	} `yaml:"dribblingDetection"`

	Pressing types.PressingConfig `yaml:"pressingDetection"`

	Heatmap struct {
		CellsX    int      `yaml:"cellsX"`
		CellsY    int      `yaml:"cellsY"`
		Intervals []string `yaml:"intervals"`
	} `yaml:"heatmapDetection"`

	Field types.FieldConfig `yaml:"field"`
}

// LoadConfig reads, defaults, overrides and validates the configuration.
func LoadConfig(configFile string) (*Config, error) {
	cfg := &Config{}
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, streamerrors.Config(component, "LoadConfig", "cannot read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, streamerrors.Config(component, "LoadConfig", "cannot parse config file", err)
		}
	}
	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)
	if err := resolveDurations(cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.MetricsListen == "" {
		cfg.App.MetricsListen = ":9102"
	}
	if cfg.App.TickInterval == "" {
		cfg.App.TickInterval = "1s"
	}
	if cfg.StreamTeamWire.ActiveTimeThreshold == "" {
		cfg.StreamTeamWire.ActiveTimeThreshold = "60s"
	}
	w := &cfg.StreamTeamWire
	if w.KickoffDetection.MinTimeBetweenKickoffs == "" {
		w.KickoffDetection.MinTimeBetweenKickoffs = "60s"
	}
	if w.Kick.KickWindow == "" {
		w.Kick.KickWindow = "1s"
	}
	if w.PassShot.MaxTime == "" {
		w.PassShot.MaxTime = "2s"
	}
	if w.PassCombination.MaxTimeBetweenPasses == "" {
		w.PassCombination.MaxTimeBetweenPasses = "10s"
	}
	if w.SetPlay.MinTimeBetweenSetPlays == "" {
		w.SetPlay.MinTimeBetweenSetPlays = "10s"
	}
	if w.SetPlay.MaxTimeThrowinDetection == "" {
		w.SetPlay.MaxTimeThrowinDetection = "5s"
	}
	if w.Dribbling.DribblingTimeThreshold == "" {
		w.Dribbling.DribblingTimeThreshold = "500ms"
	}
}

// applyEnvironmentOverrides lets deployment environments override the
// operational knobs without editing the file.
func applyEnvironmentOverrides(cfg *Config) {
	cfg.App.LogLevel = getEnvString("STREAMTEAM_LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.MetricsListen = getEnvString("STREAMTEAM_METRICS_LISTEN", cfg.App.MetricsListen)
	cfg.App.TickInterval = getEnvString("STREAMTEAM_TICK_INTERVAL", cfg.App.TickInterval)
	cfg.Kafka.Brokers = getEnvStringSlice("STREAMTEAM_KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.ConsumerGroup = getEnvString("STREAMTEAM_KAFKA_GROUP", cfg.Kafka.ConsumerGroup)
	cfg.Kafka.Auth.Username = getEnvString("STREAMTEAM_KAFKA_USERNAME", cfg.Kafka.Auth.Username)
	cfg.Kafka.Auth.Password = getEnvString("STREAMTEAM_KAFKA_PASSWORD", cfg.Kafka.Auth.Password)
	cfg.Tracing.Enabled = getEnvBool("STREAMTEAM_TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Endpoint = getEnvString("STREAMTEAM_TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.StreamTeamWire.ActiveTimeThreshold = getEnvString("STREAMTEAM_ACTIVE_TIME_THRESHOLD", cfg.StreamTeamWire.ActiveTimeThreshold)
}

// resolveDurations parses every string duration into the typed config.
func resolveDurations(cfg *Config) error {
	parse := func(name, value string) (time.Duration, error) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, streamerrors.Config(component, "resolveDurations",
				fmt.Sprintf("%s: unparseable duration %q", name, value), err)
		}
		return d, nil
	}

	var err error
	if cfg.App.TickIntervalDuration, err = parse("app.tickInterval", cfg.App.TickInterval); err != nil {
		return err
	}

	w := cfg.StreamTeamWire
	st := &cfg.StreamTeam
	st.Ball = w.Ball
	st.Players = w.Players
	st.Teams = w.Teams
	st.LogProcessingTimestamps = w.LogProcessingTimestamps
	if st.ActiveTimeThreshold, err = parse("streamTeam.activeTimeThreshold", w.ActiveTimeThreshold); err != nil {
		return err
	}

	st.KickoffDetection.MaxPlayerMidpointDist = w.KickoffDetection.MaxPlayerMidpointDist
	st.KickoffDetection.MaxBallMidpointDist = w.KickoffDetection.MaxBallMidpointDist
	st.KickoffDetection.MinPlayerMidlineDist = w.KickoffDetection.MinPlayerMidlineDist
	if st.KickoffDetection.MinTimeBetweenKickoffs, err = parse("kickoffDetection.minTimeBetweenKickoffs", w.KickoffDetection.MinTimeBetweenKickoffs); err != nil {
		return err
	}

	st.Possession = w.Possession

	st.Kick.MinKickDist = w.Kick.MinKickDist
	st.Kick.MaxBallbackDist = w.Kick.MaxBallbackDist
	st.Kick.MinDirChangeAngle = w.Kick.MinDirChangeAngle
	st.Kick.MaxRestSpeed = w.Kick.MaxRestSpeed
	if st.Kick.KickWindow, err = parse("kickDetection.kickWindow", w.Kick.KickWindow); err != nil {
		return err
	}

	st.PassShot.SidewardsAngleThreshold = w.PassShot.SidewardsAngleThreshold
	st.PassShot.GoalHeight = w.PassShot.GoalHeight
	if st.PassShot.MaxTime, err = parse("passShotDetection.maxTime", w.PassShot.MaxTime); err != nil {
		return err
	}

	st.PassCombination.MaxHistory = w.PassCombination.MaxHistory
	if st.PassCombination.MaxTimeBetweenPasses, err = parse("passCombinationDetection.maxTimeBetweenPasses", w.PassCombination.MaxTimeBetweenPasses); err != nil {
		return err
	}

	st.SetPlay.MaxVAbsStatic = w.SetPlay.MaxVAbsStatic
	st.SetPlay.MinVAbsMovement = w.SetPlay.MinVAbsMovement
	st.SetPlay.VelocityHistoryLength = w.SetPlay.VelocityHistoryLength
	if st.SetPlay.MinTimeBetweenSetPlays, err = parse("setPlayDetection.minTimeBetweenSetPlays", w.SetPlay.MinTimeBetweenSetPlays); err != nil {
		return err
	}
	if st.SetPlay.MaxTimeThrowinDetection, err = parse("setPlayDetection.maxTimeThrowinDetection", w.SetPlay.MaxTimeThrowinDetection); err != nil {
		return err
	}

	st.Dribbling.DribblingSpeedThreshold = w.Dribbling.DribblingSpeedThreshold
	st.Dribbling.SpeedLevels = w.Dribbling.SpeedLevels
	if st.Dribbling.DribblingTimeThreshold, err = parse("dribblingDetection.dribblingTimeThreshold", w.Dribbling.DribblingTimeThreshold); err != nil {
		return err
	}

	st.Pressing = w.Pressing

	st.Heatmap.CellsX = w.Heatmap.CellsX
	st.Heatmap.CellsY = w.Heatmap.CellsY
	for _, iv := range w.Heatmap.Intervals {
		d, perr := parse("heatmapDetection.intervals", iv)
		if perr != nil {
			return perr
		}
		st.Heatmap.Intervals = append(st.Heatmap.Intervals, d)
	}

	st.Field = w.Field
	return nil
}

// ValidateConfig enforces the start-up invariants.
func ValidateConfig(cfg *Config) error {
	var problems []string
	addProblem := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	st := cfg.StreamTeam
	if st.Ball == "" {
		addProblem("streamTeam.ball: required")
	}
	if len(st.Teams) != 2 {
		addProblem("streamTeam.teams: expected exactly 2 teams, got %d", len(st.Teams))
	}
	if len(st.Players) == 0 {
		addProblem("streamTeam.players: required")
	}
	teamSet := map[string]bool{}
	for _, team := range st.Teams {
		teamSet[team] = true
	}
	for _, p := range st.Players {
		if p.ObjectID == "" {
			addProblem("streamTeam.players: player with empty objectId")
		}
		if !teamSet[p.TeamID] {
			addProblem("streamTeam.players: player %q references unknown team %q", p.ObjectID, p.TeamID)
		}
	}
	if st.ActiveTimeThreshold <= 0 {
		addProblem("streamTeam.activeTimeThreshold: must be positive")
	}
	if cfg.App.TickIntervalDuration <= 0 {
		addProblem("app.tickInterval: must be positive")
	}
	if level := strings.ToLower(cfg.App.LogLevel); level != "debug" && level != "info" && level != "warn" && level != "error" {
		addProblem("app.logLevel: unknown level %q", cfg.App.LogLevel)
	}

	if len(problems) > 0 {
		return streamerrors.Config(component, "ValidateConfig", strings.Join(problems, "; "), nil)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
