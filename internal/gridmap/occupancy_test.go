package gridmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetNodeValue_SetsDirectly(t *testing.T) {
	t.Parallel()
	g := NewWithMaxVal(1.0, 16)

	n := g.SetNodeValueXY(0.5, 0.5, 1.25)
	require.NotNil(t, n)
	assert.Equal(t, float32(1.25), n.Value())

	g.SetNodeValueXY(0.5, 0.5, -0.5)
	assert.Equal(t, float32(-0.5), g.SearchXY(0.5, 0.5).Value())
	assert.Equal(t, 1, g.Size())
}

func TestUpdateNode_AddsDelta(t *testing.T) {
	t.Parallel()
	g := NewWithMaxVal(1.0, 16)

	g.UpdateNodeXY(0.5, 0.5, 0.5)
	n := g.UpdateNodeXY(0.5, 0.5, 0.25)
	assert.Equal(t, float32(0.75), n.Value())
	assert.True(t, g.IsNodeOccupied(n))

	key, _ := g.XYToKeyChecked(0.5, 0.5)
	g.UpdateNode(key, -1)
	assert.False(t, g.IsNodeOccupied(g.Search(key)))
}

func TestSensorFusion_OrderIndependent(t *testing.T) {
	t.Parallel()
	g := NewWithMaxVal(1.0, 16)

	a, _ := g.XYToKeyChecked(0.5, 0.5)
	b, _ := g.XYToKeyChecked(1.5, 0.5)
	for _, occupied := range []bool{true, true, false, false, true} {
		g.UpdateNodeOccupancy(a, occupied)
	}
	for _, occupied := range []bool{false, true, false, true, true} {
		g.UpdateNodeOccupancy(b, occupied)
	}

	want := 3*g.Model().HitLogOdds + 2*g.Model().MissLogOdds
	assert.InDelta(t, float64(want), float64(g.Search(a).Value()), 1e-5)
	assert.InDelta(t, float64(g.Search(a).Value()), float64(g.Search(b).Value()), 1e-5)
}

func TestToMaxLikelihood_CollapsesAll(t *testing.T) {
	t.Parallel()
	g := NewWithMaxVal(1.0, 16)
	g.UpdateNodeOccupancyXY(0.5, 0.5, true)
	g.UpdateNodeOccupancyXY(1.5, 0.5, false)

	g.ToMaxLikelihood()

	m := g.Model()
	assert.Equal(t, m.ClampMax, g.SearchXY(0.5, 0.5).Value())
	assert.Equal(t, m.ClampMin, g.SearchXY(1.5, 0.5).Value())

	n := g.SetNodeValueXY(2.5, 0.5, 0.1)
	g.NodeToMaxLikelihood(n)
	assert.Equal(t, m.ClampMax, n.Value())
}

func TestOccupancyProbability(t *testing.T) {
	t.Parallel()
	g := NewWithMaxVal(1.0, 16)
	n := g.UpdateNodeOccupancyXY(0.5, 0.5, true)
	assert.InDelta(t, DefaultProbHit, g.OccupancyProbability(n), 1e-6)
}

// countingNode is a custom payload that records how often it is updated.
type countingNode struct {
	value   float32
	updates int
}

func (n *countingNode) Value() float32     { return n.value }
func (n *countingNode) SetValue(v float32) { n.value = v }
func (n *countingNode) ToMaxLikelihood()   {}

func (n *countingNode) AddValue(d float32) {
	n.value += d
	n.updates++
}

func (n *countingNode) Clone() Node {
	c := *n
	return &c
}

func TestWithNodeFactory_CustomPayload(t *testing.T) {
	t.Parallel()
	g := NewWithMaxVal(1.0, 16, WithNodeFactory(func(*SensorModel) Node { return &countingNode{} }))

	for i := 0; i < 3; i++ {
		g.UpdateNodeOccupancyXY(0.5, 0.5, false)
	}
	n, ok := g.SearchXY(0.5, 0.5).(*countingNode)
	require.True(t, ok)
	assert.Equal(t, 3, n.updates)
	assert.Greater(t, g.MemoryUsageNode(), 0)
}

func TestWithSensorModel(t *testing.T) {
	t.Parallel()
	m, err := NewSensorModel(0.9, 0.2, 0.05, 0.99, 0.6)
	require.NoError(t, err)
	g := NewWithMaxVal(1.0, 16, WithSensorModel(m))

	n := g.UpdateNodeOccupancyXY(0.5, 0.5, true)
	assert.Equal(t, Logodds(0.9), n.Value())
	assert.Same(t, m, g.Model())
}
