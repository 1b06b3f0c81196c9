package gridmap

import (
	"fmt"
	"iter"
	"math"
	"reflect"
	"runtime"
	"sync"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
)

// DefaultGridMaxVal is the default half-width of the key space. It is also
// the largest value accepted, so that every key fits in a uint16.
const DefaultGridMaxVal = 32768

// Grid is a sparse 2D occupancy grid keyed by quantised cell coordinates.
type Grid struct {
	resolution       float64
	resolutionFactor float64
	gridMaxVal       int
	gridCenter       Point

	cells map[Key]Node

	model   *SensorModel
	newNode NodeFactory

	// Extent cache, recomputed lazily when sizeChanged is set.
	sizeChanged bool
	minValue    [2]float64
	maxValue    [2]float64

	// One reusable key ray per insertion lane.
	lanes   int
	keyrays []*KeyRay
	mu      sync.Mutex

	useBBXLimit bool
	bbxMin      Point
	bbxMax      Point
	bbxMinKey   Key
	bbxMaxKey   Key

	useChangeDetection bool
	changedKeys        *roaring.Bitmap
}

// Option configures a Grid at construction time.
type Option func(*Grid)

// WithLanes sets the number of parallel lanes used by InsertPointCloudRays.
// Values below one are ignored.
func WithLanes(n int) Option {
	return func(g *Grid) {
		if n > 0 {
			g.lanes = n
		}
	}
}

// WithSensorModel replaces the default sensor model.
func WithSensorModel(m *SensorModel) Option {
	return func(g *Grid) {
		if m != nil {
			g.model = m
		}
	}
}

// WithNodeFactory replaces the default OccupancyNode payload.
func WithNodeFactory(f NodeFactory) Option {
	return func(g *Grid) {
		if f != nil {
			g.newNode = f
		}
	}
}

// New creates an empty grid with the given cell edge length in metres and
// the default key space.
func New(resolution float64, opts ...Option) *Grid {
	return NewWithMaxVal(resolution, DefaultGridMaxVal, opts...)
}

// NewWithMaxVal creates an empty grid with a custom key space half-width.
// It panics if resolution is not a positive finite number or gridMaxVal is
// outside [1, DefaultGridMaxVal].
func NewWithMaxVal(resolution float64, gridMaxVal int, opts ...Option) *Grid {
	if gridMaxVal < 1 || gridMaxVal > DefaultGridMaxVal {
		panic(fmt.Sprintf("gridmap: grid max value %d outside [1, %d]", gridMaxVal, DefaultGridMaxVal))
	}
	g := &Grid{
		gridMaxVal:  gridMaxVal,
		cells:       make(map[Key]Node),
		model:       DefaultSensorModel(),
		newNode:     NewOccupancyNode,
		lanes:       runtime.GOMAXPROCS(0),
		changedKeys: roaring.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.SetResolution(resolution)

	g.keyrays = make([]*KeyRay, g.lanes)
	for i := range g.keyrays {
		g.keyrays[i] = NewKeyRay(g.keyRayCapacity())
	}
	diagf("new grid: resolution=%.4f grid_max_val=%d lanes=%d", resolution, gridMaxVal, g.lanes)
	return g
}

// keyRayCapacity bounds the cells visited by any ray inside the envelope:
// at most one step per key on each axis plus the origin.
func (g *Grid) keyRayCapacity() int {
	return 4 * g.gridMaxVal
}

// SetResolution changes the cell edge length. Existing keys are kept and
// reinterpreted at the new resolution.
func (g *Grid) SetResolution(r float64) {
	if !(r > 0) || math.IsInf(r, 1) {
		panic(fmt.Sprintf("gridmap: resolution must be positive and finite, got %v", r))
	}
	g.resolution = r
	g.resolutionFactor = 1.0 / r
	c := float64(g.gridMaxVal) / g.resolutionFactor
	g.gridCenter = Point{X: c, Y: c}
	g.sizeChanged = true
	if g.useBBXLimit {
		g.SetBBXMin(g.bbxMin)
		g.SetBBXMax(g.bbxMax)
	}
}

// Resolution returns the cell edge length in metres.
func (g *Grid) Resolution() float64 { return g.resolution }

// GridMaxVal returns the key space half-width.
func (g *Grid) GridMaxVal() int { return g.gridMaxVal }

// GridCenter returns the metric offset of the key space origin.
func (g *Grid) GridCenter() Point { return g.gridCenter }

// Lanes returns the number of parallel insertion lanes.
func (g *Grid) Lanes() int { return g.lanes }

// Model returns the sensor model used for fusion.
func (g *Grid) Model() *SensorModel { return g.model }

// Size returns the number of stored cells.
func (g *Grid) Size() int { return len(g.cells) }

// Search returns the node stored at key, or nil when the cell is unknown.
func (g *Grid) Search(key Key) Node {
	return g.cells[key]
}

// SearchAt returns the node containing p, or nil when the cell is unknown
// or p lies outside the envelope.
func (g *Grid) SearchAt(p Point) Node {
	key, ok := g.PointToKeyChecked(p)
	if !ok {
		opsf("search: [%.4f %.4f] is out of grid bounds", p.X, p.Y)
		return nil
	}
	return g.Search(key)
}

// SearchXY is SearchAt for separate coordinates.
func (g *Grid) SearchXY(x, y float64) Node {
	return g.SearchAt(Point{X: x, Y: y})
}

// DeleteNode removes the cell at key. It reports true when the cell was
// removed or the store is empty, and false when the cell was absent.
func (g *Grid) DeleteNode(key Key) bool {
	if len(g.cells) == 0 {
		return true
	}
	if _, ok := g.cells[key]; !ok {
		return false
	}
	delete(g.cells, key)
	g.sizeChanged = true
	return true
}

// DeleteNodeAt removes the cell containing p.
func (g *Grid) DeleteNodeAt(p Point) bool {
	key, ok := g.PointToKeyChecked(p)
	if !ok {
		opsf("delete: [%.4f %.4f] is out of grid bounds", p.X, p.Y)
		return false
	}
	return g.DeleteNode(key)
}

// DeleteNodeXY is DeleteNodeAt for separate coordinates.
func (g *Grid) DeleteNodeXY(x, y float64) bool {
	return g.DeleteNodeAt(Point{X: x, Y: y})
}

// Clear removes every cell.
func (g *Grid) Clear() {
	g.cells = make(map[Key]Node)
	g.sizeChanged = true
}

// Clone returns a deep copy of the grid, including its bounding box and
// change detection state.
func (g *Grid) Clone() *Grid {
	c := NewWithMaxVal(g.resolution, g.gridMaxVal,
		WithLanes(g.lanes), WithSensorModel(g.model), WithNodeFactory(g.newNode))
	c.cells = make(map[Key]Node, len(g.cells))
	for k, n := range g.cells {
		c.cells[k] = n.Clone()
	}
	c.useBBXLimit = g.useBBXLimit
	c.bbxMin, c.bbxMax = g.bbxMin, g.bbxMax
	c.bbxMinKey, c.bbxMaxKey = g.bbxMinKey, g.bbxMaxKey
	c.useChangeDetection = g.useChangeDetection
	c.changedKeys = g.changedKeys.Clone()
	return c
}

// Swap exchanges the cell stores of g and other. Both extent caches are
// invalidated. Resolution and sensor settings stay with their grids.
func (g *Grid) Swap(other *Grid) {
	g.cells, other.cells = other.cells, g.cells
	g.sizeChanged = true
	other.sizeChanged = true
}

// Cells iterates over every stored cell in unspecified order.
// The grid must not be modified during iteration.
func (g *Grid) Cells() iter.Seq2[Key, Node] {
	return func(yield func(Key, Node) bool) {
		for k, n := range g.cells {
			if !yield(k, n) {
				return
			}
		}
	}
}

// MemoryUsageNode estimates the bytes used by one stored cell: its key,
// the interface header and the payload behind it.
func (g *Grid) MemoryUsageNode() int {
	probe := g.newNode(g.model)
	size := unsafe.Sizeof(Key{}) + unsafe.Sizeof(probe)
	if t := reflect.TypeOf(probe); t.Kind() == reflect.Pointer {
		size += t.Elem().Size()
	}
	return int(size)
}

// MemoryUsage estimates the bytes used by the grid and its cells.
func (g *Grid) MemoryUsage() int {
	return int(unsafe.Sizeof(*g)) + g.MemoryUsageNode()*len(g.cells)
}
