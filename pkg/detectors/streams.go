package detectors

// Output stream names produced by the detectors.
const (
	StreamKickoffEvent              = "kickoffEvent"
	StreamBallPossessionChangeEvent = "ballPossessionChangeEvent"
	StreamDuelEvent                 = "duelEvent"
	StreamKickEvent                 = "kickEvent"
	StreamSuccessfulPassEvent       = "successfulPassEvent"
	StreamInterceptionEvent         = "interceptionEvent"
	StreamMisplacedPassEvent        = "misplacedPassEvent"
	StreamGoalEvent                 = "goalEvent"
	StreamShotOffTargetEvent        = "shotOffTargetEvent"
	StreamClearanceEvent            = "clearanceEvent"
	StreamPassStatistics            = "passStatistics"
	StreamShotStatistics            = "shotStatistics"
	StreamPassSequenceEvent         = "passSequenceEvent"
	StreamDoublePassEvent           = "doublePassEvent"
	StreamGoalkickEvent             = "goalkickEvent"
	StreamPenaltyEvent              = "penaltyEvent"
	StreamCornerkickEvent           = "cornerkickEvent"
	StreamFreekickEvent             = "freekickEvent"
	StreamThrowinEvent              = "throwinEvent"
	StreamSetPlayStatistics         = "setPlayStatistics"
	StreamSpeedLevelChangeEvent     = "speedLevelChangeEvent"
	StreamSpeedLevelStatistics      = "speedLevelStatistics"
	StreamDribblingEvent            = "dribblingEvent"
	StreamDribblingStatistics       = "dribblingStatistics"
	StreamDistanceStatistics        = "distanceStatistics"
	StreamUnderPressureEvent        = "underPressureEvent"
	StreamPressingState             = "pressingState"
	StreamOffsideLineState          = "offsideLineState"
	StreamTeamAreaState             = "teamAreaState"
	StreamHeatmapStatistics         = "heatmapStatistics"
	StreamMatchTimeProgressEvent    = "matchTimeProgressEvent"
	StreamAreaEvent                 = "areaEvent"
)

// Input stream names the detectors consume.
const (
	StreamFieldObjectState = "fieldObjectState"
)
