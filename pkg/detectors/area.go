package detectors

import (
	"streamteam/pkg/geometry"
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// Named areas of the pitch. x runs along the field length (left goal at
// -length/2), y along the width, z is height.
const (
	AreaField             = "field"
	AreaLeftPenaltyBox    = "leftPenaltyBox"
	AreaRightPenaltyBox   = "rightPenaltyBox"
	AreaLeftTopCorner     = "leftTopCorner"
	AreaLeftBottomCorner  = "leftBottomCorner"
	AreaRightTopCorner    = "rightTopCorner"
	AreaRightBottomCorner = "rightBottomCorner"

	AreaLeftGoal       = "leftGoal"
	AreaAboveLeftGoal  = "aboveLeftGoal"
	AreaBelowLeftGoal  = "belowLeftGoal"
	AreaRightGoal      = "rightGoal"
	AreaAboveRightGoal = "aboveRightGoal"
	AreaBelowRightGoal = "belowRightGoal"
)

// FieldModel resolves positions to named areas of the pitch.
type FieldModel struct {
	HalfLength   float64
	HalfWidth    float64
	PenaltyBoxX  float64 // depth of the penalty box, from the goal line
	PenaltyBoxY  float64 // half-width of the penalty box
	CornerRadius float64
	GoalHalfY    float64 // half the goal mouth width
	GoalHeight   float64
}

// NewFieldModel derives the model from configuration, with standard
// pitch geometry as the fallback for unset values.
func NewFieldModel(cfg types.FieldConfig) FieldModel {
	m := FieldModel{
		HalfLength:   cfg.LengthM / 2,
		HalfWidth:    cfg.WidthM / 2,
		PenaltyBoxX:  cfg.PenaltyBoxX,
		PenaltyBoxY:  cfg.PenaltyBoxY,
		CornerRadius: cfg.CornerRadius,
		GoalHalfY:    cfg.GoalWidthM / 2,
		GoalHeight:   cfg.GoalHeight,
	}
	if m.HalfLength == 0 {
		m.HalfLength = 52.5
	}
	if m.HalfWidth == 0 {
		m.HalfWidth = 34
	}
	if m.PenaltyBoxX == 0 {
		m.PenaltyBoxX = 16.5
	}
	if m.PenaltyBoxY == 0 {
		m.PenaltyBoxY = 20.16
	}
	if m.CornerRadius == 0 {
		m.CornerRadius = 3
	}
	if m.GoalHalfY == 0 {
		m.GoalHalfY = 3.66
	}
	if m.GoalHeight == 0 {
		m.GoalHeight = 2.44
	}
	return m
}

// InField reports whether the x-y position is inside the field of play.
func (m FieldModel) InField(p geometry.Vector3) bool {
	return p.X >= -m.HalfLength && p.X <= m.HalfLength &&
		p.Y >= -m.HalfWidth && p.Y <= m.HalfWidth
}

// AreaOf classifies an in-field position into the most specific named
// area: a penalty box, a corner region, or the open field.
func (m FieldModel) AreaOf(p geometry.Vector3) string {
	if !m.InField(p) {
		return ""
	}
	switch {
	case p.X <= -m.HalfLength+m.PenaltyBoxX && p.Y >= -m.PenaltyBoxY && p.Y <= m.PenaltyBoxY:
		return AreaLeftPenaltyBox
	case p.X >= m.HalfLength-m.PenaltyBoxX && p.Y >= -m.PenaltyBoxY && p.Y <= m.PenaltyBoxY:
		return AreaRightPenaltyBox
	}
	r := m.CornerRadius
	corners := []struct {
		x, y float64
		name string
	}{
		{-m.HalfLength, m.HalfWidth, AreaLeftTopCorner},
		{-m.HalfLength, -m.HalfWidth, AreaLeftBottomCorner},
		{m.HalfLength, m.HalfWidth, AreaRightTopCorner},
		{m.HalfLength, -m.HalfWidth, AreaRightBottomCorner},
	}
	for _, c := range corners {
		if geometry.Dist2D(p, geometry.Vector3{X: c.x, Y: c.y}) <= r {
			return c.name
		}
	}
	return AreaField
}

// GoalLineArea names the goal-line third the ball crossed when it left
// the field over a goal line, judged by where it crossed in y. Returns
// "" when the position is still inside the field or left over a side
// line.
func (m FieldModel) GoalLineArea(p geometry.Vector3) string {
	var left bool
	switch {
	case p.X < -m.HalfLength:
		left = true
	case p.X > m.HalfLength:
		left = false
	default:
		return ""
	}
	switch {
	case p.Y > m.GoalHalfY:
		if left {
			return AreaAboveLeftGoal
		}
		return AreaAboveRightGoal
	case p.Y < -m.GoalHalfY:
		if left {
			return AreaBelowLeftGoal
		}
		return AreaBelowRightGoal
	default:
		if left {
			return AreaLeftGoal
		}
		return AreaRightGoal
	}
}

// AreaDetector turns ball samples into areaEvent transitions: one event
// whenever the ball enters or leaves a named area. The pass-and-shot
// detector consumes these to recognise goals, shots wide and clearances.
type AreaDetector struct {
	Field FieldModel
	// last holds the previously-reported area per key under innerKey "":
	// the in-field area, or the crossed goal-line third once the ball is out.
	last *store.SingleValueStore
}

// NewAreaDetector builds the detector with its state in reg.
func NewAreaDetector(field FieldModel, reg *store.Registry) *AreaDetector {
	return &AreaDetector{Field: field, last: reg.NewSingleValue()}
}

func (d *AreaDetector) Process(e *types.Element) ([]*types.Element, error) {
	if len(e.Positions) == 0 {
		return nil, nil
	}
	pos := e.Positions[0]

	cur := d.Field.AreaOf(pos)
	if !d.Field.InField(pos) {
		cur = d.Field.GoalLineArea(pos) // "" when the ball left over a side line
	}

	prevVal, seen := d.last.Get(e.Key, "")
	prev := prevVal.String
	if seen && prev == cur {
		return nil, nil
	}
	d.last.Put(e.Key, "", types.StringValue(cur))

	var out []*types.Element
	if seen && prev != "" {
		payload := map[string]types.Value{
			"areaId": types.StringValue(prev),
			"inArea": types.BoolValue(false),
			"z":      types.DoubleValue(pos.Z),
		}
		if !d.Field.InField(pos) {
			// Name the boundary the ball left through, so consumers can
			// tell a clearance over a side line from a shot.
			exit := d.Field.GoalLineArea(pos)
			if exit == "" {
				exit = "side"
			}
			payload["exitArea"] = types.StringValue(exit)
		}
		out = append(out, derive(e, StreamAreaEvent, payload))
	}
	if cur != "" {
		out = append(out, derive(e, StreamAreaEvent, map[string]types.Value{
			"areaId": types.StringValue(cur),
			"inArea": types.BoolValue(true),
			"z":      types.DoubleValue(pos.Z),
		}))
	}
	return out, nil
}

var _ graph.Operator = (*AreaDetector)(nil)
