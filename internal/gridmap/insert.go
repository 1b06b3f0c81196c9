package gridmap

import (
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"
)

// clipToRange pulls end back along the ray to maxRange from origin. It
// reports whether the end was moved. A non-positive maxRange disables
// clipping.
func clipToRange(origin, end Point, maxRange float64) (Point, bool) {
	if maxRange <= 0 {
		return end, false
	}
	direction := r2.Sub(end, origin)
	length := r2.Norm(direction)
	if length <= maxRange {
		return end, false
	}
	return r2.Add(origin, r2.Scale(maxRange/length, direction)), true
}

// InsertRay integrates a single measurement: every cell between origin and
// end becomes a miss and the end cell becomes a hit. When maxRange is
// positive and the ray is longer, the ray is truncated at maxRange and no
// hit is recorded. Cells outside an enabled bounding box are skipped.
// It returns false when either endpoint is outside the envelope.
func (g *Grid) InsertRay(origin, end Point, maxRange float64) bool {
	end, truncated := clipToRange(origin, end, maxRange)
	if !g.integrateMissOnRay(origin, end) {
		return false
	}
	if truncated {
		return true
	}
	if key, ok := g.PointToKeyChecked(end); ok && g.inBBXLimit(key) {
		g.UpdateNodeOccupancy(key, true)
	}
	return true
}

// integrateMissOnRay marks every traversed cell except the end cell as a
// miss.
func (g *Grid) integrateMissOnRay(origin, end Point) bool {
	ray := g.keyrays[0]
	if !g.ComputeRayKeys(origin, end, ray) {
		return false
	}
	for _, key := range ray.Keys() {
		if g.inBBXLimit(key) {
			g.UpdateNodeOccupancy(key, false)
		}
	}
	return true
}

// InsertPointCloudRays traces a ray from origin to every point in cloud and
// marks the traversed cells as misses. Endpoints are not marked as hits.
// Points beyond a positive maxRange are clipped to it first.
//
// Points are split into contiguous chunks, one per lane. Each lane computes
// keys into its own KeyRay and applies them to the store under the grid
// mutex, so the result does not depend on lane scheduling.
func (g *Grid) InsertPointCloudRays(cloud Pointcloud, origin Point, maxRange float64) {
	if len(cloud) == 0 {
		return
	}
	lanes := min(len(g.keyrays), len(cloud))
	chunk := (len(cloud) + lanes - 1) / lanes

	var eg errgroup.Group
	for lane := 0; lane < lanes; lane++ {
		start := lane * chunk
		if start >= len(cloud) {
			break
		}
		points := cloud[start:min(start+chunk, len(cloud))]
		ray := g.keyrays[lane]
		eg.Go(func() error {
			for _, p := range points {
				end, _ := clipToRange(origin, p, maxRange)
				if !g.ComputeRayKeys(origin, end, ray) {
					continue
				}
				g.mu.Lock()
				for _, key := range ray.Keys() {
					if g.inBBXLimit(key) {
						g.UpdateNodeOccupancy(key, false)
					}
				}
				g.mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()

	diagf("inserted %d rays from [%.4f %.4f] over %d lanes, %d cells stored",
		len(cloud), origin.X, origin.Y, lanes, len(g.cells))
}
