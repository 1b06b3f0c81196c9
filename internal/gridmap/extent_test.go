package gridmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricExtent_Empty(t *testing.T) {
	t.Parallel()
	g := New(0.1)

	assert.Equal(t, Point{}, g.MetricMin())
	assert.Equal(t, Point{}, g.MetricMax())
	assert.Equal(t, Point{}, g.MetricSize())
	assert.Equal(t, Point{}, g.MetricMinReadOnly())
	assert.Equal(t, 0.0, g.MetricVolumeReadOnly())
}

func TestMetricExtent_CoversAllCells(t *testing.T) {
	t.Parallel()
	g := NewWithMaxVal(0.5, 64)
	g.UpdateNodeOccupancyXY(1.1, -2.2, true)
	g.UpdateNodeOccupancyXY(-3.3, 4.4, false)

	assert.Equal(t, Point{X: -3.5, Y: -2.5}, g.MetricMin())
	assert.Equal(t, Point{X: 1.5, Y: 4.5}, g.MetricMax())
	assert.Equal(t, Point{X: 5, Y: 7}, g.MetricSize())
	assert.Equal(t, 35.0, g.MetricVolume())
}

func TestMetricExtent_ReadOnlyMatchesCached(t *testing.T) {
	t.Parallel()
	g := NewWithMaxVal(0.5, 64)
	g.UpdateNodeOccupancyXY(1.1, -2.2, true)
	g.UpdateNodeOccupancyXY(-3.3, 4.4, false)

	roMin, roMax := g.MetricMinReadOnly(), g.MetricMaxReadOnly()
	assert.True(t, g.sizeChanged, "read-only accessors must not clear the dirty flag")

	assert.Equal(t, g.MetricMin(), roMin)
	assert.Equal(t, g.MetricMax(), roMax)
	assert.False(t, g.sizeChanged)

	assert.Equal(t, g.MetricSize(), g.MetricSizeReadOnly())
	assert.Equal(t, g.MetricVolume(), g.MetricVolumeReadOnly())
	assert.Equal(t, g.MetricBounds(), g.MetricBoundsReadOnly())
}

func TestMetricExtent_ShrinksAfterDelete(t *testing.T) {
	t.Parallel()
	g := NewWithMaxVal(1.0, 16)
	g.UpdateNodeOccupancyXY(0.5, 0.5, true)
	g.UpdateNodeOccupancyXY(5.5, 0.5, true)
	assert.Equal(t, Point{X: 6, Y: 1}, g.MetricMax())

	g.DeleteNodeXY(5.5, 0.5)
	assert.Equal(t, Point{X: 1, Y: 1}, g.MetricMaxReadOnly())
	assert.Equal(t, Point{X: 1, Y: 1}, g.MetricMax())

	g.DeleteNodeXY(0.5, 0.5)
	assert.Equal(t, Point{}, g.MetricMax(), "store emptied by deletes reports zero extent")
}
