// Package mapper runs a mapping session: it owns one occupancy grid, merges
// scans into it and exposes thread-safe read views and persistence.
package mapper

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/gridmap2d/internal/config"
	"github.com/banshee-data/gridmap2d/internal/gridmap"
	"github.com/banshee-data/gridmap2d/internal/monitoring"
	"github.com/google/uuid"
)

// ScanRecord matches the schema map_scan table structure.
type ScanRecord struct {
	ScanID         *int64  // will be set by database after insert
	MapID          string  // matches map_id TEXT NOT NULL
	SensorID       string  // matches sensor_id TEXT NOT NULL
	TakenUnixNanos int64   // matches taken_unix_nanos INTEGER NOT NULL
	OriginX        float64 // matches origin_x REAL NOT NULL
	OriginY        float64 // matches origin_y REAL NOT NULL
	PointCount     int     // matches point_count INTEGER NOT NULL
	RaysInserted   int     // matches rays_inserted INTEGER NOT NULL
	CellsAdded     int     // matches cells_added INTEGER NOT NULL
	InsertMode     string  // matches insert_mode TEXT NOT NULL
	DurationNanos  int64   // matches duration_nanos INTEGER NOT NULL
}

// ScanStore is an optional store for per-scan bookkeeping. Implemented by
// mapdb.MapDB.
type ScanStore interface {
	InsertScanRecord(r *ScanRecord) (int64, error)
}

// ScanResult summarises one ProcessScan call.
type ScanResult struct {
	Points       int           `json:"points"`
	RaysInserted int           `json:"rays_inserted"`
	CellsAdded   int           `json:"cells_added"`
	Cells        int           `json:"cells"`
	Duration     time.Duration `json:"duration_ns"`
}

// Status is a point-in-time summary of the session.
type Status struct {
	MapID             string     `json:"map_id"`
	SensorID          string     `json:"sensor_id"`
	Resolution        float64    `json:"resolution"`
	GridMaxVal        int        `json:"grid_max_val"`
	Lanes             int        `json:"lanes"`
	InsertMode        string     `json:"insert_mode"`
	Cells             int        `json:"cells"`
	OccupiedCells     int        `json:"occupied_cells"`
	FreeCells         int        `json:"free_cells"`
	ChangedCells      int        `json:"changed_cells"`
	MemoryBytes       int        `json:"memory_bytes"`
	Min               [2]float64 `json:"min"`
	Max               [2]float64 `json:"max"`
	ScansProcessed    int64      `json:"scans_processed"`
	PointsProcessed   int64      `json:"points_processed"`
	LastScanUnixNanos int64      `json:"last_scan_unix_nanos,omitempty"`
	LastSnapshotID    int64      `json:"last_snapshot_id,omitempty"`
}

// CellView is the read-only form of one cell served to consumers.
type CellView struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	LogOdds     float32 `json:"log_odds"`
	Probability float64 `json:"probability"`
	Occupied    bool    `json:"occupied"`
}

// CellFilter selects which cells CellsView returns.
type CellFilter int

const (
	AllCells CellFilter = iota
	OccupiedCells
	FreeCells
)

// ParseCellFilter maps "", "all", "occupied" and "free" to a CellFilter.
func ParseCellFilter(s string) (CellFilter, error) {
	switch s {
	case "", "all":
		return AllCells, nil
	case "occupied":
		return OccupiedCells, nil
	case "free":
		return FreeCells, nil
	}
	return AllCells, fmt.Errorf("unknown cell filter %q", s)
}

// Coord is a JSON-friendly metric coordinate.
type Coord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func coordOf(p gridmap.Point) Coord { return Coord{X: p.X, Y: p.Y} }

// RaycastResult is the answer to a CastRay query.
type RaycastResult struct {
	Hit          bool    `json:"hit"`
	End          Coord   `json:"end"`
	Distance     float64 `json:"distance"`
	Intersection *Coord  `json:"intersection,omitempty"`
}

// Manager owns the grid for one mapping session. All methods are safe for
// concurrent use.
type Manager struct {
	MapID    string
	SensorID string

	mu            sync.RWMutex
	grid          *gridmap.Grid
	insertMode    string
	maxRange      float64
	ignoreUnknown bool
	scanStore     ScanStore

	scansProcessed     int64
	pointsProcessed    int64
	lastScan           time.Time
	scansSinceSnapshot int
	lastSnapshotID     int64
}

// NewManager builds a grid from cfg and starts a session with a fresh map ID.
func NewManager(sensorID string, cfg *config.GridConfig) (*Manager, error) {
	if cfg == nil {
		cfg = config.DefaultGridConfig()
	}
	g, err := cfg.NewGrid()
	if err != nil {
		return nil, fmt.Errorf("failed to create grid: %w", err)
	}
	m := &Manager{
		MapID:         uuid.NewString(),
		SensorID:      sensorID,
		grid:          g,
		insertMode:    cfg.GetInsertMode(),
		maxRange:      cfg.GetMaxRange(),
		ignoreUnknown: cfg.GetIgnoreUnknown(),
	}
	monitoring.Logf("mapper: map %s started for sensor %s (resolution=%.3f, mode=%s, lanes=%d)",
		m.MapID, sensorID, g.Resolution(), m.insertMode, g.Lanes())
	return m, nil
}

// SetScanStore enables per-scan bookkeeping. Pass nil to disable.
func (m *Manager) SetScanStore(s ScanStore) {
	m.mu.Lock()
	m.scanStore = s
	m.mu.Unlock()
}

// ProcessScan merges one scan taken from origin. In "rays" mode every point
// only clears the cells in front of it; in "ray_endpoints" mode each point
// is also recorded as a hit.
func (m *Manager) ProcessScan(origin gridmap.Point, cloud gridmap.Pointcloud) (ScanResult, error) {
	start := time.Now()

	m.mu.Lock()
	if _, ok := m.grid.PointToKeyChecked(origin); !ok {
		m.mu.Unlock()
		return ScanResult{}, fmt.Errorf("scan origin [%.3f %.3f] is outside the grid envelope", origin.X, origin.Y)
	}

	before := m.grid.Size()
	rays := 0
	switch m.insertMode {
	case config.InsertModeRayEndpoints:
		for _, p := range cloud {
			if m.grid.InsertRay(origin, p, m.maxRange) {
				rays++
			}
		}
	default:
		m.grid.InsertPointCloudRays(cloud, origin, m.maxRange)
		rays = len(cloud)
	}

	res := ScanResult{
		Points:       len(cloud),
		RaysInserted: rays,
		CellsAdded:   m.grid.Size() - before,
		Cells:        m.grid.Size(),
		Duration:     time.Since(start),
	}
	m.scansProcessed++
	m.pointsProcessed += int64(len(cloud))
	m.scansSinceSnapshot++
	m.lastScan = start
	changed := m.grid.NumChangesDetected()
	store := m.scanStore
	mode := m.insertMode
	m.mu.Unlock()

	instrumentScan(m.MapID, mode, len(cloud), res.Duration.Seconds())
	instrumentGridSize(m.MapID, res.Cells, changed)

	if store != nil {
		rec := &ScanRecord{
			MapID:          m.MapID,
			SensorID:       m.SensorID,
			TakenUnixNanos: start.UnixNano(),
			OriginX:        origin.X,
			OriginY:        origin.Y,
			PointCount:     res.Points,
			RaysInserted:   res.RaysInserted,
			CellsAdded:     res.CellsAdded,
			InsertMode:     mode,
			DurationNanos:  res.Duration.Nanoseconds(),
		}
		if _, err := store.InsertScanRecord(rec); err != nil {
			monitoring.Logf("mapper: failed to record scan for map %s: %v", m.MapID, err)
		}
	}
	return res, nil
}

// CastRay walks the grid from origin along direction. A nil ignoreUnknown
// uses the session default. On a hit the entry point on the hit cell's
// boundary is included.
func (m *Manager) CastRay(origin, direction gridmap.Point, ignoreUnknown *bool, maxRange float64) RaycastResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ignore := m.ignoreUnknown
	if ignoreUnknown != nil {
		ignore = *ignoreUnknown
	}
	end, hit := m.grid.CastRay(origin, direction, ignore, maxRange)
	res := RaycastResult{
		Hit:      hit,
		End:      coordOf(end),
		Distance: math.Hypot(end.X-origin.X, end.Y-origin.Y),
	}
	if hit {
		if p, ok := m.grid.RayIntersection(origin, direction, end, 0); ok {
			c := coordOf(p)
			res.Intersection = &c
		}
	}
	return res
}

// Status summarises the session without modifying the grid.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	occupied := 0
	for _, n := range m.grid.Cells() {
		if m.grid.IsNodeOccupied(n) {
			occupied++
		}
	}
	b := m.grid.MetricBoundsReadOnly()
	s := Status{
		MapID:           m.MapID,
		SensorID:        m.SensorID,
		Resolution:      m.grid.Resolution(),
		GridMaxVal:      m.grid.GridMaxVal(),
		Lanes:           m.grid.Lanes(),
		InsertMode:      m.insertMode,
		Cells:           m.grid.Size(),
		OccupiedCells:   occupied,
		FreeCells:       m.grid.Size() - occupied,
		ChangedCells:    m.grid.NumChangesDetected(),
		MemoryBytes:     m.grid.MemoryUsage(),
		Min:             [2]float64{b.Min.X, b.Min.Y},
		Max:             [2]float64{b.Max.X, b.Max.Y},
		ScansProcessed:  m.scansProcessed,
		PointsProcessed: m.pointsProcessed,
		LastSnapshotID:  m.lastSnapshotID,
	}
	if !m.lastScan.IsZero() {
		s.LastScanUnixNanos = m.lastScan.UnixNano()
	}
	return s
}

// CellsView returns the cells matching filter, sorted by key.
func (m *Manager) CellsView(filter CellFilter) []CellView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	model := m.grid.Model()
	records := m.grid.CellRecords()
	out := make([]CellView, 0, len(records))
	for _, r := range records {
		occupied := model.IsOccupied(r.LogOdds)
		if (filter == OccupiedCells && !occupied) || (filter == FreeCells && occupied) {
			continue
		}
		out = append(out, CellView{
			X:           r.X,
			Y:           r.Y,
			LogOdds:     r.LogOdds,
			Probability: gridmap.Probability(float64(r.LogOdds)),
			Occupied:    occupied,
		})
	}
	return out
}

// Resolution returns the grid cell size in metres.
func (m *Manager) Resolution() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grid.Resolution()
}

// PendingScans returns the number of scans merged since the last snapshot.
func (m *Manager) PendingScans() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scansSinceSnapshot
}

// Persist writes a snapshot of the grid through store and starts a new
// change window on success.
func (m *Manager) Persist(store gridmap.SnapshotStore, reason string) error {
	if m == nil || store == nil {
		return nil
	}
	m.mu.Lock()
	id, err := m.grid.Persist(store, m.MapID, reason)
	if err == nil {
		m.lastSnapshotID = id
		m.scansSinceSnapshot = 0
		m.grid.ResetChangeDetection()
	}
	cells := m.grid.Size()
	m.mu.Unlock()

	instrumentSnapshot(m.MapID, err)
	if err != nil {
		return err
	}
	instrumentGridSize(m.MapID, cells, 0)
	monitoring.Logf("mapper: snapshot %d persisted for map %s (%d cells, reason=%s)", id, m.MapID, cells, reason)
	return nil
}

// ResetChanges returns the keys changed since the last reset and clears
// the change set.
func (m *Manager) ResetChanges() []gridmap.Key {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]gridmap.Key, 0, m.grid.NumChangesDetected())
	for k := range m.grid.ChangedKeys() {
		keys = append(keys, k)
	}
	m.grid.ResetChangeDetection()
	return keys
}
