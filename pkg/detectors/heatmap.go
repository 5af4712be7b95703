package detectors

import (
	"strconv"
	"time"

	"streamteam/pkg/geometry"
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// secondCells is one second's worth of grid hits for one statistics
// item, kept sparse since a player covers one or two cells per second.
type secondCells struct {
	Second int64
	Cells  map[int]int64
}

// HeatmapDetector rasterises player positions onto a configurable grid.
// Samples accumulate per player and per team into a full-game grid and a
// rolling per-second history; every activeKeys tick emits one
// heatmapStatistics element per item per configured interval plus the
// full game.
type HeatmapDetector struct {
	Cfg    types.HeatmapConfig
	Roster *Roster
	Field  FieldModel

	fullGame *store.SingleValueStore // (key, itemID) -> flattened grid as LongList
	perSec   store.TypedHistory[*secondCells]
}

// NewHeatmapDetector builds the detector with its state in reg.
func NewHeatmapDetector(cfg types.HeatmapConfig, roster *Roster, field FieldModel, reg *store.Registry) *HeatmapDetector {
	if cfg.CellsX <= 0 {
		cfg.CellsX = 25
	}
	if cfg.CellsY <= 0 {
		cfg.CellsY = 15
	}
	maxSeconds := 0
	for _, iv := range cfg.Intervals {
		if s := int(iv / time.Second); s > maxSeconds {
			maxSeconds = s
		}
	}
	if maxSeconds == 0 {
		maxSeconds = 600
	}
	return &HeatmapDetector{
		Cfg:      cfg,
		Roster:   roster,
		Field:    field,
		fullGame: reg.NewSingleValue(),
		perSec:   store.NewTypedHistory[*secondCells](reg.NewHistory(maxSeconds)),
	}
}

// cellOf maps a field position to its flattened grid index.
func (d *HeatmapDetector) cellOf(pos geometry.Vector3) int {
	fx := (pos.X + d.Field.HalfLength) / (2 * d.Field.HalfLength)
	fy := (pos.Y + d.Field.HalfWidth) / (2 * d.Field.HalfWidth)
	ix := clampCell(int(fx*float64(d.Cfg.CellsX)), d.Cfg.CellsX)
	iy := clampCell(int(fy*float64(d.Cfg.CellsY)), d.Cfg.CellsY)
	return iy*d.Cfg.CellsX + ix
}

func clampCell(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (d *HeatmapDetector) Process(e *types.Element) ([]*types.Element, error) {
	if e.StreamName == "activeKeys" {
		return d.emitStatistics(e), nil
	}
	if len(e.ObjectIdentifiers) == 0 || len(e.Positions) == 0 {
		return nil, nil
	}
	player := e.ObjectIdentifiers[0]
	team := d.Roster.TeamOf(player)
	if team == "" {
		return nil, nil
	}

	cell := d.cellOf(e.Positions[0])
	second := e.GenerationTimestamp / 1000
	d.accumulate(e.Key, player, cell, second)
	d.accumulate(e.Key, team, cell, second)
	return nil, nil
}

func (d *HeatmapDetector) accumulate(key, itemID string, cell int, second int64) {
	grid, ok := d.fullGame.Get(key, itemID)
	if !ok || len(grid.LongList) != d.Cfg.CellsX*d.Cfg.CellsY {
		grid = types.Value{Kind: types.KindLongList, LongList: make([]int64, d.Cfg.CellsX*d.Cfg.CellsY)}
	}
	grid.LongList[cell]++
	d.fullGame.Put(key, itemID, grid)

	latest, ok := d.perSec.GetLatest(key, itemID)
	if ok && latest.Second == second {
		latest.Cells[cell]++
		return
	}
	d.perSec.Add(key, itemID, &secondCells{Second: second, Cells: map[int]int64{cell: 1}})
}

func (d *HeatmapDetector) emitStatistics(e *types.Element) []*types.Element {
	key := e.Key
	nowSec := e.GenerationTimestamp / 1000
	var out []*types.Element
	for _, item := range d.Roster.StatItems() {
		full, ok := d.fullGame.Get(key, item.ID)
		if !ok {
			continue
		}
		out = append(out, d.statElement(e, item, "fullGame", full.LongList))
		for _, iv := range d.Cfg.Intervals {
			ivSec := int64(iv / time.Second)
			grid := make([]int64, d.Cfg.CellsX*d.Cfg.CellsY)
			for _, rec := range d.perSec.GetList(key, item.ID) {
				if rec.Second < nowSec-ivSec {
					break // newest-first: everything further back is older
				}
				for cell, n := range rec.Cells {
					grid[cell] += n
				}
			}
			out = append(out, d.statElement(e, item, strconv.FormatInt(ivSec, 10)+"s", grid))
		}
	}
	return out
}

func (d *HeatmapDetector) statElement(trigger *types.Element, item StatItem, interval string, grid []int64) *types.Element {
	return deriveFor(trigger, StreamHeatmapStatistics, []string{item.ID}, []string{item.TeamID},
		map[string]types.Value{
			"itemId":   types.StringValue(item.ID),
			"isTeam":   types.BoolValue(item.IsTeam),
			"interval": types.StringValue(interval),
			"cellsX":   types.LongValue(int64(d.Cfg.CellsX)),
			"cellsY":   types.LongValue(int64(d.Cfg.CellsY)),
			"cells":    {Kind: types.KindLongList, LongList: grid},
		})
}

var _ graph.Operator = (*HeatmapDetector)(nil)
