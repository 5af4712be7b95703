package types

import "time"

// PlayerDef binds a tracked object id to the team it plays for.
type PlayerDef struct {
	ObjectID string `yaml:"objectId"`
	TeamID   string `yaml:"teamId"`
}

// Config is the worker configuration. The streamTeam namespace is
// structured as nested structs instead of a flat map so validation can
// check types and arity once at startup.
type Config struct {
	StreamTeam StreamTeamConfig `yaml:"streamTeam"`
}

// StreamTeamConfig is the `streamTeam.*` namespace: the roster, the
// active-keys threshold, and one sub-namespace per detector.
type StreamTeamConfig struct {
	Ball                    string        `yaml:"ball"`
	Players                 []PlayerDef   `yaml:"players"`
	Teams                   []string      `yaml:"teams"`
	ActiveTimeThreshold     time.Duration `yaml:"activeTimeThreshold"`
	LogProcessingTimestamps bool          `yaml:"logProcessingTimestamps"`

	KickoffDetection KickoffConfig    `yaml:"kickoffDetection"`
	Possession       PossessionConfig `yaml:"possessionDetection"`
	Kick             KickConfig       `yaml:"kickDetection"`
	PassShot         PassShotConfig   `yaml:"passShotDetection"`
	PassCombination  PassComboConfig  `yaml:"passCombinationDetection"`
	SetPlay          SetPlayConfig    `yaml:"setPlayDetection"`
	Dribbling        DribblingConfig  `yaml:"dribblingDetection"`
	Pressing         PressingConfig   `yaml:"pressingDetection"`
	Offside          OffsideConfig    `yaml:"offsideDetection"`
	TeamArea         TeamAreaConfig   `yaml:"teamAreaDetection"`
	Heatmap          HeatmapConfig    `yaml:"heatmapDetection"`
	MatchTime        MatchTimeConfig  `yaml:"matchTimeDetection"`
	Field            FieldConfig      `yaml:"field"`
}

// FieldConfig carries the pitch geometry the named-area logic consults.
type FieldConfig struct {
	LengthM      float64 `yaml:"lengthM"`
	WidthM       float64 `yaml:"widthM"`
	GoalHeight   float64 `yaml:"goalHeight"`
	GoalWidthM   float64 `yaml:"goalWidthM"`
	PenaltyBoxX  float64 `yaml:"penaltyBoxX"`
	PenaltyBoxY  float64 `yaml:"penaltyBoxY"`
	CornerRadius float64 `yaml:"cornerRadius"`
}

type KickoffConfig struct {
	MaxPlayerMidpointDist  float64       `yaml:"maxPlayerMidpointDist"`
	MaxBallMidpointDist    float64       `yaml:"maxBallMidpointDist"`
	MinPlayerMidlineDist   float64       `yaml:"minPlayerMidlineDist"`
	MinTimeBetweenKickoffs time.Duration `yaml:"minTimeBetweenKickoffs"`
}

type PossessionConfig struct {
	MaxBallPossessionChangeDist float64 `yaml:"maxBallPossessionChangeDist"`
	MinVabsDiff                 float64 `yaml:"minVabsDiff"`
	MaxVabsForVabsDiff          float64 `yaml:"maxVabsForVabsDiff"`
	MinMovingDirAngleDiff       float64 `yaml:"minMovingDirAngleDiff"` // radians
	MaxDuelDist                 float64 `yaml:"maxDuelDist"`
}

type KickConfig struct {
	MinKickDist       float64       `yaml:"minKickDist"`
	MaxBallbackDist   float64       `yaml:"maxBallbackDist"`
	MinDirChangeAngle float64       `yaml:"minDirChangeAngle"` // radians
	MaxRestSpeed      float64       `yaml:"maxRestSpeed"`      // m/s below which the ball counts as resting
	KickWindow        time.Duration `yaml:"kickWindow"`
}

type PassShotConfig struct {
	MaxTime                 time.Duration `yaml:"maxTime"`
	SidewardsAngleThreshold float64       `yaml:"sidewardsAngleThreshold"` // radians
	GoalHeight              float64       `yaml:"goalHeight"`
}

type PassComboConfig struct {
	MaxHistory           int           `yaml:"maxHistory"`
	MaxTimeBetweenPasses time.Duration `yaml:"maxTimeBetweenPasses"`
}

type SetPlayConfig struct {
	MaxVAbsStatic           float64       `yaml:"maxVAbsStatic"`
	MinVAbsMovement         float64       `yaml:"minVAbsMovement"`
	VelocityHistoryLength   int           `yaml:"velocityHistoryLength"`
	MinTimeBetweenSetPlays  time.Duration `yaml:"minTimeBetweenSetPlays"`
	MaxTimeThrowinDetection time.Duration `yaml:"maxTimeThrowinDetection"`
}

type DribblingConfig struct {
	DribblingSpeedThreshold float64       `yaml:"dribblingSpeedThreshold"`
	DribblingTimeThreshold  time.Duration `yaml:"dribblingTimeThreshold"`
	SpeedLevels             []float64     `yaml:"speedLevels"`
}

type PressingConfig struct {
	MinPressingIndexForUnderPressure float64 `yaml:"minPressingIndexForUnderPressure"`
	PressingRadius                   float64 `yaml:"pressingRadius"` // metres within which an opponent contributes
}

type OffsideConfig struct {
	// no tunables; the offside line follows from roster and positions.
}

type TeamAreaConfig struct {
	// no tunables beyond the roster; retained for symmetry with the
	// other per-detector namespaces.
}

type HeatmapConfig struct {
	CellsX    int             `yaml:"cellsX"`
	CellsY    int             `yaml:"cellsY"`
	Intervals []time.Duration `yaml:"intervals"`
}

type MatchTimeConfig struct {
	// no tunables; emission cadence is one event per elapsed second.
}
