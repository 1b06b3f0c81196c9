package gridmap

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ComputeRayKeys fills ray with the keys of every cell traversed on the
// segment from origin to end, starting with the origin cell and excluding
// the end cell. It returns false, leaving ray empty, when either endpoint
// lies outside the envelope. Both endpoints in the same cell yields an
// empty ray and true.
//
// Traversal follows Amanatides & Woo: step into whichever axis reaches its
// next cell boundary first until the end cell or the segment length is
// reached.
func (g *Grid) ComputeRayKeys(origin, end Point, ray *KeyRay) bool {
	ray.Reset()

	keyOrigin, okOrigin := g.PointToKeyChecked(origin)
	keyEnd, okEnd := g.PointToKeyChecked(end)
	if !okOrigin || !okEnd {
		opsf("compute ray keys: coordinates ( [%.4f %.4f] -> [%.4f %.4f] ) out of bounds",
			origin.X, origin.Y, end.X, end.Y)
		return false
	}
	if keyOrigin == keyEnd {
		return true
	}

	ray.AddKey(keyOrigin)

	direction := r2.Sub(end, origin)
	length := r2.Norm(direction)
	direction = r2.Scale(1/length, direction)
	dir := [2]float64{direction.X, direction.Y}
	orig := [2]float64{origin.X, origin.Y}

	var (
		current = [2]int{int(keyOrigin[0]), int(keyOrigin[1])}
		step    [2]int
		tMax    [2]float64
		tDelta  [2]float64
	)
	for i := 0; i < 2; i++ {
		switch {
		case dir[i] > 0:
			step[i] = 1
		case dir[i] < 0:
			step[i] = -1
		}
		if step[i] != 0 {
			border := g.KeyToCoord(uint16(current[i])) + float64(step[i])*g.resolution*0.5
			tMax[i] = (border - orig[i]) / dir[i]
			tDelta[i] = g.resolution / math.Abs(dir[i])
		} else {
			tMax[i] = math.MaxFloat64
			tDelta[i] = math.MaxFloat64
		}
	}

	limit := 2 * g.gridMaxVal
	for {
		dim := 1
		if tMax[0] < tMax[1] {
			dim = 0
		}
		current[dim] += step[dim]
		tMax[dim] += tDelta[dim]

		if current[dim] < 0 || current[dim] >= limit {
			opsf("compute ray keys: traversal left the envelope at axis %d key %d", dim, current[dim])
			break
		}
		key := Key{uint16(current[0]), uint16(current[1])}
		if key == keyEnd {
			break
		}
		if math.Min(tMax[0], tMax[1]) > length {
			break
		}
		ray.AddKey(key)
	}

	if tracing() {
		tracef("ray [%.4f %.4f] -> [%.4f %.4f]: %d cells", origin.X, origin.Y, end.X, end.Y, ray.Len())
	}
	return true
}

// ComputeRay returns the centres of the cells traversed from origin to end,
// in traversal order. It uses the first lane's key ray and so must not run
// concurrently with InsertPointCloudRays.
func (g *Grid) ComputeRay(origin, end Point) ([]Point, bool) {
	ray := g.keyrays[0]
	if !g.ComputeRayKeys(origin, end, ray) {
		return nil, false
	}
	points := make([]Point, 0, ray.Len())
	for _, k := range ray.Keys() {
		points = append(points, g.KeyToPoint(k))
	}
	return points, true
}
