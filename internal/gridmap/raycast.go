package gridmap

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// CastRay walks the grid from origin along direction until it reaches an
// occupied cell. It returns the centre of the last visited cell and true
// on a hit.
//
// An unknown cell stops the walk with false unless ignoreUnknown is set,
// in which case it is treated as free. The walk also stops with false when
// the distance to the current cell exceeds a positive maxRange, when the
// next step would leave the envelope, or when it leaves an enabled
// bounding box. An origin inside an occupied cell is an immediate hit.
func (g *Grid) CastRay(origin, direction Point, ignoreUnknown bool, maxRange float64) (Point, bool) {
	current, ok := g.PointToKeyChecked(origin)
	if !ok {
		opsf("cast ray: origin [%.4f %.4f] is out of grid bounds", origin.X, origin.Y)
		return Point{}, false
	}

	if n := g.Search(current); n != nil {
		if g.IsNodeOccupied(n) {
			return g.KeyToPoint(current), true
		}
	} else if !ignoreUnknown {
		return g.KeyToPoint(current), false
	}

	norm := r2.Norm(direction)
	if norm == 0 {
		opsf("cast ray: direction has zero length")
		return g.KeyToPoint(current), false
	}
	dir := [2]float64{direction.X / norm, direction.Y / norm}
	orig := [2]float64{origin.X, origin.Y}

	var (
		step   [2]int
		tMax   [2]float64
		tDelta [2]float64
	)
	for i := 0; i < 2; i++ {
		switch {
		case dir[i] > 0:
			step[i] = 1
		case dir[i] < 0:
			step[i] = -1
		}
		if step[i] != 0 {
			border := g.KeyToCoord(current[i]) + float64(step[i])*g.resolution*0.5
			tMax[i] = (border - orig[i]) / dir[i]
			tDelta[i] = g.resolution / math.Abs(dir[i])
		} else {
			tMax[i] = math.MaxFloat64
			tDelta[i] = math.MaxFloat64
		}
	}

	maxRangeSq := maxRange * maxRange
	upper := uint16(2*g.gridMaxVal - 1)
	for {
		dim := 1
		if tMax[0] < tMax[1] {
			dim = 0
		}

		if (step[dim] < 0 && current[dim] == 0) || (step[dim] > 0 && current[dim] == upper) {
			opsf("cast ray: reached the grid boundary at key %v", current)
			return g.KeyToPoint(current), false
		}

		current[dim] = uint16(int(current[dim]) + step[dim])
		tMax[dim] += tDelta[dim]
		end := g.KeyToPoint(current)

		if maxRange > 0 && r2.Norm2(r2.Sub(end, origin)) > maxRangeSq {
			return end, false
		}
		if g.useBBXLimit && !g.InBBXKey(current) {
			return end, false
		}

		n := g.Search(current)
		if n == nil {
			if !ignoreUnknown {
				return end, false
			}
			continue
		}
		if g.IsNodeOccupied(n) {
			return end, true
		}
	}
}

// rayIntersectionEpsilon absorbs rounding when checking that a face hit
// lies on the voxel.
const rayIntersectionEpsilon = 1e-6

// RayIntersection returns the point where the ray from origin along
// direction enters the cell centred at center, typically the end point of
// a CastRay hit. The result is moved delta metres back along the ray, so a
// positive delta lands just outside the cell and a negative one inside.
// It returns false when the ray misses the cell, the cell lies behind the
// origin, or direction is zero. An origin inside the cell is returned
// unchanged with true, ignoring delta.
func (g *Grid) RayIntersection(origin, direction, center Point, delta float64) (Point, bool) {
	norm := r2.Norm(direction)
	if norm == 0 {
		return Point{}, false
	}
	dir := r2.Scale(1/norm, direction)
	half := g.resolution / 2

	if math.Abs(origin.X-center.X) <= half && math.Abs(origin.Y-center.Y) <= half {
		return origin, true
	}

	best := math.MaxFloat64
	found := false
	consider := func(d, other, otherCenter float64) {
		if other >= otherCenter-half-rayIntersectionEpsilon &&
			other <= otherCenter+half+rayIntersectionEpsilon && d >= 0 && d < best {
			best = d
			found = true
		}
	}
	if dir.X != 0 {
		for _, face := range [2]float64{center.X - half, center.X + half} {
			d := (face - origin.X) / dir.X
			consider(d, origin.Y+d*dir.Y, center.Y)
		}
	}
	if dir.Y != 0 {
		for _, face := range [2]float64{center.Y - half, center.Y + half} {
			d := (face - origin.Y) / dir.Y
			consider(d, origin.X+d*dir.X, center.X)
		}
	}
	if !found {
		return Point{}, false
	}
	return r2.Add(origin, r2.Scale(best-delta, dir)), true
}
