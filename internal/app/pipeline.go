package app

import (
	"github.com/sirupsen/logrus"

	"streamteam/pkg/clock"
	"streamteam/pkg/detectors"
	"streamteam/pkg/graph"
	"streamteam/pkg/ops"
	"streamteam/pkg/schema"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// Pipeline is the wired analytics task: both processor graphs plus the
// shared state behind them.
type Pipeline struct {
	Graph    *graph.Graph
	Window   *graph.WindowGraph
	Registry *store.Registry
	Keys     *ops.ActiveKeys

	// LastBall exposes the most recent ball sample per key for the
	// stats endpoint.
	LastBall *store.SingleValueStore
}

// buildPipeline assembles the detector graphs the way one task instance
// runs them: a position/active-keys spine, a ball filter and a player
// filter fanning out to the element-driven detectors, and a window
// graph ticking the statistics detectors.
func buildPipeline(cfg types.StreamTeamConfig, clk clock.Clock, logger *logrus.Logger) (*Pipeline, error) {
	roster, err := detectors.NewRoster(cfg)
	if err != nil {
		return nil, err
	}
	field := detectors.NewFieldModel(cfg.Field)
	registry := store.NewRegistry()

	positions := detectors.NewPositions(registry)
	possession := registry.NewSingleValue()
	sides := registry.NewSingleValue()
	pressure := registry.NewSingleValue()
	lastBall := registry.NewSingleValue()

	possessionDet := detectors.NewPossessionDetector(cfg.Possession, roster, field, positions, possession, registry)
	kickoffDet := detectors.NewKickoffDetector(cfg.KickoffDetection, roster, positions, sides, registry)
	kickDet := detectors.NewKickDetector(cfg.Kick, roster, field, positions,
		possession, sides, pressure, possessionDet, detectors.DefaultPacking, registry)
	areaDet := detectors.NewAreaDetector(field, registry)
	passShotDet := detectors.NewPassShotDetector(cfg.PassShot, roster, field, positions, sides, registry)
	passComboDet := detectors.NewPassCombinationDetector(cfg.PassCombination, registry)
	setPlayDet := detectors.NewSetPlayDetector(cfg.SetPlay, roster, field, positions, sides, registry)
	dribblingDet := detectors.NewDribblingSpeedDetector(cfg.Dribbling, roster, positions, possession, registry)
	offsideDet := detectors.NewOffsideDetector(roster, positions, possession, registry)
	teamAreaDet := detectors.NewTeamAreaDetector(roster, positions, registry)
	heatmapDet := detectors.NewHeatmapDetector(cfg.Heatmap, roster, field, registry)
	matchTimeDet := detectors.NewMatchTimeDetector(roster, registry)
	distanceDet := detectors.NewDistanceDetector(roster, positions, registry)
	pressingDet := detectors.NewPressingDetector(cfg.Pressing, roster, positions, possession, pressure, registry)

	keys := ops.NewActiveKeys(clk, registry)

	ballFilter, err := ops.NewFilter(ops.MatchAll, []ops.Predicate{{
		Schema:   schema.MustParse("arrayValue{objectIdentifiers,0,true}"),
		Form:     ops.Equality,
		Expected: types.StringValue(cfg.Ball),
	}})
	if err != nil {
		return nil, err
	}
	playerFilter, err := ops.NewFilter(ops.MatchAll, []ops.Predicate{{
		Schema:   schema.MustParse("arrayValue{objectIdentifiers,0,true}"),
		Form:     ops.Inequality,
		Expected: types.StringValue(cfg.Ball),
	}})
	if err != nil {
		return nil, err
	}

	// The last raw ball sample is kept for operational visibility.
	lastBallStore := &ops.StoreOp{
		Singles: []ops.SingleEntry{
			{
				Schema:   schema.MustParse("positionValue{0}"),
				InnerKey: schema.Static,
				Kind:     types.KindVector3,
				Target:   lastBall,
			},
		},
		Forward: false,
		Logger:  logger,
	}

	// Shared sinks consuming several parents' outputs.
	passShotNode := graph.NewNode("passShot", passShotDet)
	passComboNode := graph.NewNode("passCombination", passComboDet)
	passShotNode.AddChild(passComboNode)
	matchTimeNode := graph.NewNode("matchTime", matchTimeDet)

	kickoffNode := graph.NewNode("kickoff", kickoffDet).AddChild(matchTimeNode)
	possessionNode := graph.NewNode("possession", possessionDet).AddChild(passShotNode)
	kickNode := graph.NewNode("kick", kickDet).AddChild(passShotNode)
	areaNode := graph.NewNode("area", areaDet).AddChild(passShotNode).AddChild(passComboNode)

	ballNode := graph.NewNode("ballFilter", ballFilter).
		AddChild(kickoffNode).
		AddChild(kickNode).
		AddChild(areaNode).
		AddChild(graph.NewNode("setPlay", setPlayDet)).
		AddChild(matchTimeNode).
		AddChild(graph.NewNode("lastBall", lastBallStore))

	playerNode := graph.NewNode("playerFilter", playerFilter).
		AddChild(graph.NewNode("dribbling", dribblingDet)).
		AddChild(graph.NewNode("offside", offsideDet)).
		AddChild(graph.NewNode("teamArea", teamAreaDet)).
		AddChild(graph.NewNode("heatmapSamples", heatmapDet))

	// The possession detector sees every sample (its histories span all
	// objects); the filters then split ball and player fan-out.
	tracker := graph.NewNode("activeKeys", &ops.Tracker{Keys: keys}).
		AddChild(possessionNode).
		AddChild(ballNode).
		AddChild(playerNode)

	root := graph.NewNode("positions", &detectors.PositionTracker{Positions: positions}).AddChild(tracker)

	g := graph.NewGraph(logger).AddStart(root)

	window := graph.NewWindowGraph(logger)
	window.AddRoot(graph.NewWindowRoot("tick", &ops.TickSource{Keys: keys, Threshold: cfg.ActiveTimeThreshold}).
		AddChild(graph.NewNode("distance", distanceDet)).
		AddChild(graph.NewNode("pressing", pressingDet)).
		AddChild(graph.NewNode("heatmapStats", heatmapDet)))

	return &Pipeline{
		Graph:    g,
		Window:   window,
		Registry: registry,
		Keys:     keys,
		LastBall: lastBall,
	}, nil
}
