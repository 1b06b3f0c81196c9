package gridmap

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Snapshot matches the schema map_snapshot table structure.
type Snapshot struct {
	SnapshotID        *int64  // will be set by database after insert
	MapID             string  // matches map_id TEXT NOT NULL
	TakenUnixNanos    int64   // matches taken_unix_nanos INTEGER NOT NULL
	Resolution        float64 // matches resolution REAL NOT NULL
	GridMaxVal        int     // matches grid_max_val INTEGER NOT NULL
	CellCount         int     // matches cell_count INTEGER NOT NULL
	OccupiedCount     int     // matches occupied_count INTEGER NOT NULL
	ChangedCellsCount int     // matches changed_cells_count INTEGER
	MinX, MinY        float64 // matches min_x, min_y REAL
	MaxX, MaxY        float64 // matches max_x, max_y REAL
	ParamsJSON        string  // matches params_json TEXT NOT NULL (sensor model)
	CellsBlob         []byte  // matches cells_blob BLOB NOT NULL (compressed CellRecord data)
	SnapshotReason    string  // matches snapshot_reason TEXT ('periodic', 'manual', 'shutdown')
}

// SnapshotStore persists Snapshot records. Implemented by mapdb.MapDB.
type SnapshotStore interface {
	InsertMapSnapshot(s *Snapshot) (int64, error)
}

// CellRecord is the exported form of one stored cell.
type CellRecord struct {
	Key     Key
	X, Y    float64
	LogOdds float32
}

// CellRecords returns every stored cell sorted by key.
func (g *Grid) CellRecords() []CellRecord {
	records := make([]CellRecord, 0, len(g.cells))
	for k, n := range g.cells {
		c := g.KeyToPoint(k)
		records = append(records, CellRecord{Key: k, X: c.X, Y: c.Y, LogOdds: n.Value()})
	}
	slices.SortFunc(records, func(a, b CellRecord) int {
		return int(a.Key.packed()) - int(b.Key.packed())
	})
	return records
}

var (
	cellEncoder, _ = zstd.NewWriter(nil)
	cellDecoder, _ = zstd.NewReader(nil)
)

// EncodeCells serialises cell records with gob and compresses them with
// zstd.
func EncodeCells(cells []CellRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cells); err != nil {
		return nil, fmt.Errorf("failed to encode cells: %w", err)
	}
	return cellEncoder.EncodeAll(buf.Bytes(), nil), nil
}

// DecodeCells reverses EncodeCells.
func DecodeCells(blob []byte) ([]CellRecord, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty cells blob")
	}
	raw, err := cellDecoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress cells: %w", err)
	}
	var cells []CellRecord
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&cells); err != nil {
		return nil, fmt.Errorf("failed to decode cells: %w", err)
	}
	return cells, nil
}

// Snapshot captures the grid into a Snapshot record. It does not modify
// the grid, so callers holding a read lock may use it.
func (g *Grid) Snapshot(mapID, reason string) (*Snapshot, error) {
	records := g.CellRecords()
	blob, err := EncodeCells(records)
	if err != nil {
		return nil, err
	}
	params, err := json.Marshal(g.model)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sensor model: %w", err)
	}

	occupied := 0
	for _, r := range records {
		if g.model.IsOccupied(r.LogOdds) {
			occupied++
		}
	}
	bounds := g.MetricBoundsReadOnly()

	return &Snapshot{
		MapID:             mapID,
		TakenUnixNanos:    time.Now().UnixNano(),
		Resolution:        g.resolution,
		GridMaxVal:        g.gridMaxVal,
		CellCount:         len(records),
		OccupiedCount:     occupied,
		ChangedCellsCount: g.NumChangesDetected(),
		MinX:              bounds.Min.X,
		MinY:              bounds.Min.Y,
		MaxX:              bounds.Max.X,
		MaxY:              bounds.Max.Y,
		ParamsJSON:        string(params),
		CellsBlob:         blob,
		SnapshotReason:    reason,
	}, nil
}

// Persist captures the grid and writes it through store, returning the
// assigned snapshot ID.
func (g *Grid) Persist(store SnapshotStore, mapID, reason string) (int64, error) {
	if store == nil {
		return 0, fmt.Errorf("no snapshot store configured")
	}
	snap, err := g.Snapshot(mapID, reason)
	if err != nil {
		return 0, err
	}
	id, err := store.InsertMapSnapshot(snap)
	if err != nil {
		return 0, fmt.Errorf("failed to insert map snapshot: %w", err)
	}
	diagf("persisted snapshot %d for map %s: %d cells, reason=%s", id, mapID, snap.CellCount, reason)
	return id, nil
}
