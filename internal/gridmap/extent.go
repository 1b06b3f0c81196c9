package gridmap

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// scanExtent computes the metric bounds of all stored cells. An empty store
// yields zero bounds.
func (g *Grid) scanExtent() (lo, hi [2]float64) {
	if len(g.cells) == 0 {
		return lo, hi
	}
	lo = [2]float64{math.MaxFloat64, math.MaxFloat64}
	hi = [2]float64{-math.MaxFloat64, -math.MaxFloat64}
	half := g.resolution / 2
	for k := range g.cells {
		for i := 0; i < 2; i++ {
			c := g.KeyToCoord(k[i])
			if v := c - half; v < lo[i] {
				lo[i] = v
			}
			if v := c + half; v > hi[i] {
				hi[i] = v
			}
		}
	}
	return lo, hi
}

// calcMinMax refreshes the cached extent when the cell set has changed.
func (g *Grid) calcMinMax() {
	if !g.sizeChanged {
		return
	}
	g.minValue, g.maxValue = g.scanExtent()
	g.sizeChanged = false
}

// extentReadOnly returns the extent without touching the cache.
func (g *Grid) extentReadOnly() (lo, hi [2]float64) {
	if g.sizeChanged {
		return g.scanExtent()
	}
	return g.minValue, g.maxValue
}

// MetricMin returns the lower corner of the occupied extent.
func (g *Grid) MetricMin() Point {
	g.calcMinMax()
	return Point{X: g.minValue[0], Y: g.minValue[1]}
}

// MetricMax returns the upper corner of the occupied extent.
func (g *Grid) MetricMax() Point {
	g.calcMinMax()
	return Point{X: g.maxValue[0], Y: g.maxValue[1]}
}

// MetricSize returns the width and height of the occupied extent.
func (g *Grid) MetricSize() Point {
	g.calcMinMax()
	return Point{X: g.maxValue[0] - g.minValue[0], Y: g.maxValue[1] - g.minValue[1]}
}

// MetricVolume returns the area of the occupied extent.
func (g *Grid) MetricVolume() float64 {
	s := g.MetricSize()
	return s.X * s.Y
}

// MetricBounds returns the occupied extent as a box.
func (g *Grid) MetricBounds() r2.Box {
	g.calcMinMax()
	return r2.Box{
		Min: Point{X: g.minValue[0], Y: g.minValue[1]},
		Max: Point{X: g.maxValue[0], Y: g.maxValue[1]},
	}
}

// MetricMinReadOnly is MetricMin without updating the cache, for callers
// holding only a read lock.
func (g *Grid) MetricMinReadOnly() Point {
	lo, _ := g.extentReadOnly()
	return Point{X: lo[0], Y: lo[1]}
}

// MetricMaxReadOnly is MetricMax without updating the cache.
func (g *Grid) MetricMaxReadOnly() Point {
	_, hi := g.extentReadOnly()
	return Point{X: hi[0], Y: hi[1]}
}

// MetricSizeReadOnly is MetricSize without updating the cache.
func (g *Grid) MetricSizeReadOnly() Point {
	lo, hi := g.extentReadOnly()
	return Point{X: hi[0] - lo[0], Y: hi[1] - lo[1]}
}

// MetricVolumeReadOnly is MetricVolume without updating the cache.
func (g *Grid) MetricVolumeReadOnly() float64 {
	s := g.MetricSizeReadOnly()
	return s.X * s.Y
}

// MetricBoundsReadOnly is MetricBounds without updating the cache.
func (g *Grid) MetricBoundsReadOnly() r2.Box {
	lo, hi := g.extentReadOnly()
	return r2.Box{Min: Point{X: lo[0], Y: lo[1]}, Max: Point{X: hi[0], Y: hi[1]}}
}
