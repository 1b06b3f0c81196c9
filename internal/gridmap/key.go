package gridmap

import "math"

// CoordToKey quantises a coordinate without an envelope check.
// The result is undefined for coordinates outside the envelope.
func (g *Grid) CoordToKey(c float64) uint16 {
	return uint16(int(math.Floor(g.resolutionFactor*c)) + g.gridMaxVal)
}

// CoordToKeyChecked quantises a coordinate and reports whether it lies in
// [0, 2*gridMaxVal).
func (g *Grid) CoordToKeyChecked(c float64) (uint16, bool) {
	scaled := math.Floor(g.resolutionFactor*c) + float64(g.gridMaxVal)
	if !(scaled >= 0 && scaled < float64(2*g.gridMaxVal)) {
		return 0, false
	}
	return uint16(scaled), true
}

// PointToKey quantises p without an envelope check.
func (g *Grid) PointToKey(p Point) Key {
	return Key{g.CoordToKey(p.X), g.CoordToKey(p.Y)}
}

// PointToKeyChecked quantises p and reports whether both axes lie inside
// the envelope.
func (g *Grid) PointToKeyChecked(p Point) (Key, bool) {
	x, ok := g.CoordToKeyChecked(p.X)
	if !ok {
		return Key{}, false
	}
	y, ok := g.CoordToKeyChecked(p.Y)
	if !ok {
		return Key{}, false
	}
	return Key{x, y}, true
}

// XYToKeyChecked is PointToKeyChecked for separate coordinates.
func (g *Grid) XYToKeyChecked(x, y float64) (Key, bool) {
	return g.PointToKeyChecked(Point{X: x, Y: y})
}

// KeyToCoord returns the metric centre of the cell along one axis.
func (g *Grid) KeyToCoord(k uint16) float64 {
	return (float64(int(k)-g.gridMaxVal) + 0.5) * g.resolution
}

// KeyToPoint returns the metric centre of the cell.
func (g *Grid) KeyToPoint(k Key) Point {
	return Point{X: g.KeyToCoord(k[0]), Y: g.KeyToCoord(k[1])}
}
