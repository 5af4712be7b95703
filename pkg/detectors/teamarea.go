package detectors

import (
	"streamteam/pkg/geometry"
	"streamteam/pkg/graph"
	"streamteam/pkg/store"
	"streamteam/pkg/types"
)

// TeamAreaDetector tracks the minimum bounding rectangle and planar
// convex hull of each team's players, emitting a state element whenever
// either occupied area changes.
type TeamAreaDetector struct {
	Roster    *Roster
	Positions *Positions

	last *store.SingleValueStore // (key, team|slot) -> last emitted areas
}

// NewTeamAreaDetector builds the detector with its state in reg.
func NewTeamAreaDetector(roster *Roster, positions *Positions, reg *store.Registry) *TeamAreaDetector {
	return &TeamAreaDetector{Roster: roster, Positions: positions, last: reg.NewSingleValue()}
}

func (d *TeamAreaDetector) Process(e *types.Element) ([]*types.Element, error) {
	if len(e.ObjectIdentifiers) == 0 {
		return nil, nil
	}
	team := d.Roster.TeamOf(e.ObjectIdentifiers[0])
	if team == "" {
		return nil, nil
	}
	key := e.Key

	var pts []geometry.Vector3
	for _, p := range d.Roster.Players {
		if d.Roster.TeamOf(p) != team {
			continue
		}
		if pos, ok := d.Positions.Of(key, p); ok {
			pts = append(pts, pos)
		}
	}
	if len(pts) < 3 {
		return nil, nil
	}

	mbrArea := geometry.BoundingRect(pts).Area()
	hull := geometry.ConvexHull(pts)
	hullArea := geometry.PolygonArea(hull)

	prevMBR, _ := d.last.GetDouble(key, team+"|mbr")
	prevHull, _ := d.last.GetDouble(key, team+"|hull")
	seen, _ := d.last.GetBoolean(key, team+"|seen")
	if seen && mbrArea == prevMBR && hullArea == prevHull {
		return nil, nil
	}

	d.last.Put(key, team+"|mbr", types.DoubleValue(mbrArea))
	d.last.Put(key, team+"|hull", types.DoubleValue(hullArea))
	d.last.Put(key, team+"|seen", types.BoolValue(true))

	out := deriveFor(e, StreamTeamAreaState, nil, []string{team}, map[string]types.Value{
		"teamId":   types.StringValue(team),
		"mbrArea":  types.DoubleValue(mbrArea),
		"hullArea": types.DoubleValue(hullArea),
	})
	out.Positions = hull
	return []*types.Element{out}, nil
}

var _ graph.Operator = (*TeamAreaDetector)(nil)
