package gridmap

// findOrCreate returns the node at key, creating an empty one if absent.
func (g *Grid) findOrCreate(key Key) Node {
	if n, ok := g.cells[key]; ok {
		return n
	}
	n := g.newNode(g.model)
	g.cells[key] = n
	g.sizeChanged = true
	return n
}

// SetNodeValue sets the log-odds value of the cell at key, creating it if
// needed, and returns the node.
func (g *Grid) SetNodeValue(key Key, logOdds float32) Node {
	n := g.findOrCreate(key)
	n.SetValue(logOdds)
	g.markChanged(key)
	return n
}

// SetNodeValueAt is SetNodeValue for the cell containing p. It returns nil
// without touching the store when p is outside the envelope.
func (g *Grid) SetNodeValueAt(p Point, logOdds float32) Node {
	key, ok := g.PointToKeyChecked(p)
	if !ok {
		opsf("set node value: [%.4f %.4f] is out of grid bounds", p.X, p.Y)
		return nil
	}
	return g.SetNodeValue(key, logOdds)
}

// SetNodeValueXY is SetNodeValueAt for separate coordinates.
func (g *Grid) SetNodeValueXY(x, y float64, logOdds float32) Node {
	return g.SetNodeValueAt(Point{X: x, Y: y}, logOdds)
}

// UpdateNode adds a log-odds delta to the cell at key, creating it if
// needed, and returns the node.
func (g *Grid) UpdateNode(key Key, delta float32) Node {
	n := g.findOrCreate(key)
	g.UpdateNodeLogOdds(n, delta)
	g.markChanged(key)
	return n
}

// UpdateNodeAt is UpdateNode for the cell containing p.
func (g *Grid) UpdateNodeAt(p Point, delta float32) Node {
	key, ok := g.PointToKeyChecked(p)
	if !ok {
		opsf("update node: [%.4f %.4f] is out of grid bounds", p.X, p.Y)
		return nil
	}
	return g.UpdateNode(key, delta)
}

// UpdateNodeXY is UpdateNodeAt for separate coordinates.
func (g *Grid) UpdateNodeXY(x, y float64, delta float32) Node {
	return g.UpdateNodeAt(Point{X: x, Y: y}, delta)
}

// UpdateNodeOccupancy integrates a hit (occupied) or miss measurement into
// the cell at key.
func (g *Grid) UpdateNodeOccupancy(key Key, occupied bool) Node {
	n := g.findOrCreate(key)
	if occupied {
		g.IntegrateHit(n)
	} else {
		g.IntegrateMiss(n)
	}
	g.markChanged(key)
	return n
}

// UpdateNodeOccupancyAt is UpdateNodeOccupancy for the cell containing p.
func (g *Grid) UpdateNodeOccupancyAt(p Point, occupied bool) Node {
	key, ok := g.PointToKeyChecked(p)
	if !ok {
		opsf("update node occupancy: [%.4f %.4f] is out of grid bounds", p.X, p.Y)
		return nil
	}
	return g.UpdateNodeOccupancy(key, occupied)
}

// UpdateNodeOccupancyXY is UpdateNodeOccupancyAt for separate coordinates.
func (g *Grid) UpdateNodeOccupancyXY(x, y float64, occupied bool) Node {
	return g.UpdateNodeOccupancyAt(Point{X: x, Y: y}, occupied)
}

// IntegrateHit adds the sensor model's hit increment to n.
func (g *Grid) IntegrateHit(n Node) {
	g.UpdateNodeLogOdds(n, g.model.HitLogOdds)
}

// IntegrateMiss adds the sensor model's miss increment to n.
func (g *Grid) IntegrateMiss(n Node) {
	g.UpdateNodeLogOdds(n, g.model.MissLogOdds)
}

// UpdateNodeLogOdds adds update to n. The node applies clamping.
func (g *Grid) UpdateNodeLogOdds(n Node, update float32) {
	n.AddValue(update)
}

// NodeToMaxLikelihood collapses n to its maximum-likelihood value.
func (g *Grid) NodeToMaxLikelihood(n Node) {
	n.ToMaxLikelihood()
}

// ToMaxLikelihood collapses every stored cell to its maximum-likelihood
// value.
func (g *Grid) ToMaxLikelihood() {
	for _, n := range g.cells {
		n.ToMaxLikelihood()
	}
}

// IsNodeOccupied reports whether n is at or above the occupancy threshold.
func (g *Grid) IsNodeOccupied(n Node) bool {
	return g.model.IsOccupied(n.Value())
}

// OccupancyProbability returns the occupancy probability of n.
func (g *Grid) OccupancyProbability(n Node) float64 {
	return Probability(float64(n.Value()))
}
