package spatial

import (
	"math"
	"sort"
)

// visibilityEpsilon is the small angular offset cast just before and after
// each candidate corner, so occluder edges are revealed rather than grazed.
// Too small and floating point equality swallows the trick; too large and
// light leaks around corners.
const visibilityEpsilon = 1e-4

func matchesTag(e *entity, tagFilter *string) bool {
	if tagFilter == nil {
		return true
	}
	return e.tagHash == TagHash(*tagFilter)
}

// candidateIDs collects the deduplicated set of entity ids whose cells
// overlap [minX,minY]-[maxX,maxY].
func (idx *Index) candidateIDs(minX, minY, maxX, maxY float32) map[uint64]struct{} {
	minC := idx.cellOf(minX, minY)
	maxC := idx.cellOf(maxX, maxY)

	out := make(map[uint64]struct{})
	for cx := minC.X; cx <= maxC.X; cx++ {
		for cy := minC.Y; cy <= maxC.Y; cy++ {
			for _, id := range idx.grid[Cell{cx, cy}] {
				out[id] = struct{}{}
			}
		}
	}
	return out
}

// QueryRect returns ids of entities whose AABB overlaps [minX,minY]-[maxX,maxY].
// tagFilter, when non-nil, restricts to entities whose tag hash matches.
func (idx *Index) QueryRect(minX, minY, maxX, maxY float32, tagFilter *string) []uint64 {
	var result []uint64
	for id := range idx.candidateIDs(minX, minY, maxX, maxY) {
		e, ok := idx.entities[id]
		if !ok || !matchesTag(e, tagFilter) {
			continue
		}
		eMinX, eMinY, eMaxX, eMaxY := e.aabb()
		if eMaxX >= minX && eMinX <= maxX && eMaxY >= minY && eMinY <= maxY {
			result = append(result, id)
		}
	}
	return result
}

// QueryRange returns ids of entities within range r of (x,y). Circles use
// center-distance minus radius; segments use clamped point-to-segment
// distance. Zero-length segments degenerate to a point test at their
// shared endpoint.
func (idx *Index) QueryRange(x, y, r float32, tagFilter *string) []uint64 {
	var result []uint64
	for id := range idx.candidateIDs(x-r, y-r, x+r, y+r) {
		e, ok := idx.entities[id]
		if !ok || !matchesTag(e, tagFilter) {
			continue
		}
		if idx.withinRange(e, x, y, r) {
			result = append(result, id)
		}
	}
	return result
}

func (idx *Index) withinRange(e *entity, x, y, r float32) bool {
	switch e.kind {
	case KindCircle:
		dx := x - e.x
		dy := y - e.y
		d2 := dx*dx + dy*dy
		rSum := r + e.radius
		return d2 <= rSum*rSum
	default: // KindSegment
		segLen2 := (e.x2-e.x)*(e.x2-e.x) + (e.y2-e.y)*(e.y2-e.y)
		var t float32
		if segLen2 > 0 {
			t = ((x-e.x)*(e.x2-e.x) + (y-e.y)*(e.y2-e.y)) / segLen2
			t = clamp01(t)
		}
		closestX := e.x + t*(e.x2-e.x)
		closestY := e.y + t*(e.y2-e.y)
		dx := x - closestX
		dy := y - closestY
		return dx*dx+dy*dy <= r*r
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RayHit is the result of a successful CastRay: the entity id, the hit
// point, and Fraction = hit_distance / maxDist, normalized to [0,1] for
// both circle and segment hits (see the doc comment on CastRay).
type RayHit struct {
	ID       uint64
	Fraction float32
	X, Y     float32
}

// CastRay fires a ray from (x1,y1) at angleDeg (degrees, 0 = +X axis,
// increasing counter-clockwise in world coordinates) out to maxDist. It
// returns the closest intersected entity, or ok=false if none or if
// maxDist <= 0.
//
// Fraction convention: the original engine normalized circle hits to
// [0,1] via t/maxDist but returned segment hits as the raw line-intersection
// parameter against a synthetic endpoint at maxDist, which is already in
// [0,1] but represents a different quantity under the hood. This
// implementation applies one convention to both: Fraction is always
// hit_distance / maxDist.
func (idx *Index) CastRay(x1, y1, angleDeg, maxDist float32, tagFilter *string) (RayHit, bool) {
	if maxDist <= 0 {
		return RayHit{}, false
	}

	rad := float64(angleDeg) * math.Pi / 180
	dx := float32(math.Cos(rad))
	dy := float32(math.Sin(rad))
	x2 := x1 + dx*maxDist
	y2 := y1 + dy*maxDist

	candidates := idx.rayCandidates(x1, y1, dx, dy, maxDist)

	var best RayHit
	found := false

	for id := range candidates {
		e, ok := idx.entities[id]
		if !ok || !matchesTag(e, tagFilter) {
			continue
		}

		switch e.kind {
		case KindCircle:
			fx := x1 - e.x
			fy := y1 - e.y
			a := dx*dx + dy*dy
			b := 2 * (fx*dx + fy*dy)
			c := fx*fx + fy*fy - e.radius*e.radius
			disc := b*b - 4*a*c
			if disc < 0 {
				continue
			}
			t := (-b - float32(math.Sqrt(float64(disc)))) / (2 * a)
			if t < 0 || t > maxDist {
				continue
			}
			frac := t / maxDist
			if !found || frac < best.Fraction {
				best = RayHit{ID: id, Fraction: frac, X: x1 + dx*t, Y: y1 + dy*t}
				found = true
			}

		default: // KindSegment
			den := (x1-x2)*(e.y-e.y2) - (y1-y2)*(e.x-e.x2)
			if den == 0 {
				continue
			}
			t := ((x1-e.x)*(e.y-e.y2) - (y1-e.y)*(e.x-e.x2)) / den
			u := -((x1-x2)*(y1-e.y) - (y1-y2)*(x1-e.x)) / den
			if t < 0 || t > 1 || u < 0 || u > 1 {
				continue
			}
			frac := t // t is already the fraction of the ray out to maxDist
			if !found || frac < best.Fraction {
				best = RayHit{ID: id, Fraction: frac, X: x1 + t*(x2-x1), Y: y1 + t*(y2-y1)}
				found = true
			}
		}
	}

	return best, found
}

// rayCandidates samples cells along the ray at cell-size stride with a 3x3
// neighborhood per sample, to tolerate grazing hits near cell boundaries.
func (idx *Index) rayCandidates(x1, y1, dx, dy, maxDist float32) map[uint64]struct{} {
	steps := int(math.Ceil(float64(maxDist / idx.cellSize)))
	stepX := dx * idx.cellSize
	stepY := dy * idx.cellSize

	candidates := make(map[uint64]struct{})
	for i := 0; i <= steps; i++ {
		cx := x1 + stepX*float32(i)
		cy := y1 + stepY*float32(i)
		cell := idx.cellOf(cx, cy)
		for ox := int32(-1); ox <= 1; ox++ {
			for oy := int32(-1); oy <= 1; oy++ {
				for _, id := range idx.grid[Cell{cell.X + ox, cell.Y + oy}] {
					candidates[id] = struct{}{}
				}
			}
		}
	}
	return candidates
}

// Visibility computes the boundary of a visibility polygon fanned around
// (originX, originY) out to radius, occluded by segment entities (optionally
// tag-filtered). The returned points are ordered by ascending angle from the
// origin and form the vertex ring of a fan polygon.
func (idx *Index) Visibility(originX, originY, radius float32, tagFilter *string) []struct{ X, Y float32 } {
	candidateIDs := idx.QueryRect(originX-radius, originY-radius, originX+radius, originY+radius, tagFilter)

	type segment struct{ x1, y1, x2, y2 float32 }
	var segments []segment
	type point struct{ x, y float32 }
	var points []point

	for _, id := range candidateIDs {
		e, ok := idx.entities[id]
		if !ok || e.kind != KindSegment {
			continue
		}
		segments = append(segments, segment{e.x, e.y, e.x2, e.y2})
		points = append(points, point{e.x, e.y}, point{e.x2, e.y2})
	}

	// Bounding-box corners as anchor points so the polygon is bounded even
	// with no occluders in view.
	points = append(points,
		point{originX - radius, originY - radius},
		point{originX + radius, originY - radius},
		point{originX + radius, originY + radius},
		point{originX - radius, originY + radius},
	)

	var angles []float64
	for _, p := range points {
		a := math.Atan2(float64(p.y-originY), float64(p.x-originX))
		angles = append(angles, a, a-visibilityEpsilon, a+visibilityEpsilon)
	}
	sort.Float64s(angles)

	polygon := make([]struct{ X, Y float32 }, 0, len(angles))
	for _, angle := range angles {
		dx := float32(math.Cos(angle))
		dy := float32(math.Sin(angle))

		minT := radius
		hitX := originX + dx*radius
		hitY := originY + dy*radius

		for _, s := range segments {
			sdx := s.x2 - s.x1
			sdy := s.y2 - s.y1
			det := dx*sdy - dy*sdx
			if det > -1e-5 && det < 1e-5 {
				continue
			}
			qpx := s.x1 - originX
			qpy := s.y1 - originY

			t := (qpx*sdy - qpy*sdx) / det
			u := (qpx*dy - qpy*dx) / det

			if t > 0 && t <= minT && u >= 0 && u <= 1 {
				minT = t
				hitX = originX + t*dx
				hitY = originY + t*dy
			}
		}

		polygon = append(polygon, struct{ X, Y float32 }{hitX, hitY})
	}

	return polygon
}
