package gridmap

// UseBBXLimit enables or disables bounding box clipping for insertion and
// ray casting.
func (g *Grid) UseBBXLimit(enable bool) { g.useBBXLimit = enable }

// BBXSet reports whether bounding box clipping is enabled.
func (g *Grid) BBXSet() bool { return g.useBBXLimit }

// SetBBXMin sets the lower corner of the bounding box. The cached key is
// left unchanged when p is outside the envelope.
func (g *Grid) SetBBXMin(p Point) {
	g.bbxMin = p
	key, ok := g.PointToKeyChecked(p)
	if !ok {
		opsf("set bbx min: [%.4f %.4f] is out of grid bounds", p.X, p.Y)
		return
	}
	g.bbxMinKey = key
}

// SetBBXMax sets the upper corner of the bounding box.
func (g *Grid) SetBBXMax(p Point) {
	g.bbxMax = p
	key, ok := g.PointToKeyChecked(p)
	if !ok {
		opsf("set bbx max: [%.4f %.4f] is out of grid bounds", p.X, p.Y)
		return
	}
	g.bbxMaxKey = key
}

func (g *Grid) BBXMin() Point { return g.bbxMin }

func (g *Grid) BBXMax() Point { return g.bbxMax }

// BBXBounds returns the half-extent of the bounding box on each axis.
func (g *Grid) BBXBounds() Point {
	return Point{X: (g.bbxMax.X - g.bbxMin.X) / 2, Y: (g.bbxMax.Y - g.bbxMin.Y) / 2}
}

// BBXCenter returns the centre of the bounding box.
func (g *Grid) BBXCenter() Point {
	b := g.BBXBounds()
	return Point{X: g.bbxMin.X + b.X, Y: g.bbxMin.Y + b.Y}
}

// InBBX reports whether p lies inside the bounding box, inclusive.
func (g *Grid) InBBX(p Point) bool {
	return p.X >= g.bbxMin.X && p.Y >= g.bbxMin.Y &&
		p.X <= g.bbxMax.X && p.Y <= g.bbxMax.Y
}

// InBBXKey reports whether key lies inside the cached bounding box keys,
// inclusive.
func (g *Grid) InBBXKey(key Key) bool {
	return key[0] >= g.bbxMinKey[0] && key[1] >= g.bbxMinKey[1] &&
		key[0] <= g.bbxMaxKey[0] && key[1] <= g.bbxMaxKey[1]
}

// inBBXLimit reports whether key may be written, which is always the case
// while clipping is disabled.
func (g *Grid) inBBXLimit(key Key) bool {
	return !g.useBBXLimit || g.InBBXKey(key)
}
