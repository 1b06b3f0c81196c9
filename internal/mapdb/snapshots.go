package mapdb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/banshee-data/gridmap2d/internal/gridmap"
	"github.com/banshee-data/gridmap2d/internal/mapper"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const snapshotColumns = `snapshot_id, map_id, taken_unix_nanos, resolution, grid_max_val,
	cell_count, occupied_count, changed_cells_count, min_x, min_y, max_x, max_y,
	params_json, snapshot_reason`

// InsertMapSnapshot persists a grid snapshot into the map_snapshot table
// and returns the new snapshot_id.
func (db *MapDB) InsertMapSnapshot(s *gridmap.Snapshot) (int64, error) {
	if s == nil {
		return 0, nil
	}
	stmt := `INSERT INTO map_snapshot (map_id, taken_unix_nanos, resolution, grid_max_val, cell_count,
			 occupied_count, changed_cells_count, min_x, min_y, max_x, max_y, params_json, cells_blob, snapshot_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := db.Exec(stmt, s.MapID, s.TakenUnixNanos, s.Resolution, s.GridMaxVal, s.CellCount,
		s.OccupiedCount, s.ChangedCellsCount, s.MinX, s.MinY, s.MaxX, s.MaxY, s.ParamsJSON, s.CellsBlob, s.SnapshotReason)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.SnapshotID = &id
	return id, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(r rowScanner, withBlob bool) (*gridmap.Snapshot, error) {
	var (
		s       gridmap.Snapshot
		id      int64
		changed sql.NullInt64
		minX    sql.NullFloat64
		minY    sql.NullFloat64
		maxX    sql.NullFloat64
		maxY    sql.NullFloat64
		reason  sql.NullString
	)
	dest := []any{&id, &s.MapID, &s.TakenUnixNanos, &s.Resolution, &s.GridMaxVal,
		&s.CellCount, &s.OccupiedCount, &changed, &minX, &minY, &maxX, &maxY,
		&s.ParamsJSON, &reason}
	if withBlob {
		dest = append(dest, &s.CellsBlob)
	}
	if err := r.Scan(dest...); err != nil {
		return nil, err
	}
	s.SnapshotID = &id
	s.ChangedCellsCount = int(changed.Int64)
	s.MinX, s.MinY, s.MaxX, s.MaxY = minX.Float64, minY.Float64, maxX.Float64, maxY.Float64
	s.SnapshotReason = reason.String
	return &s, nil
}

// GetMapSnapshot returns the snapshot with the given id, including its
// cells blob.
func (db *MapDB) GetMapSnapshot(id int64) (*gridmap.Snapshot, error) {
	row := db.QueryRow(`SELECT `+snapshotColumns+`, cells_blob FROM map_snapshot WHERE snapshot_id = ?`, id)
	s, err := scanSnapshot(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %d: %w", id, err)
	}
	return s, nil
}

// LatestMapSnapshot returns the most recent snapshot for mapID, including
// its cells blob.
func (db *MapDB) LatestMapSnapshot(mapID string) (*gridmap.Snapshot, error) {
	row := db.QueryRow(`SELECT `+snapshotColumns+`, cells_blob FROM map_snapshot
		WHERE map_id = ? ORDER BY taken_unix_nanos DESC, snapshot_id DESC LIMIT 1`, mapID)
	s, err := scanSnapshot(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot for map %s: %w", mapID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest snapshot for map %s: %w", mapID, err)
	}
	return s, nil
}

// ListMapSnapshots returns snapshot metadata, newest first, without cell
// blobs. An empty mapID lists every map; limit <= 0 means no limit.
func (db *MapDB) ListMapSnapshots(mapID string, limit int) ([]*gridmap.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM map_snapshot`
	var args []any
	if mapID != "" {
		query += ` WHERE map_id = ?`
		args = append(args, mapID)
	}
	query += ` ORDER BY taken_unix_nanos DESC, snapshot_id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*gridmap.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneMapSnapshots deletes all but the newest keep snapshots of mapID and
// returns the number of rows removed.
func (db *MapDB) PruneMapSnapshots(mapID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := db.Exec(`DELETE FROM map_snapshot WHERE map_id = ? AND snapshot_id NOT IN (
			SELECT snapshot_id FROM map_snapshot WHERE map_id = ?
			ORDER BY taken_unix_nanos DESC, snapshot_id DESC LIMIT ?)`, mapID, mapID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots for map %s: %w", mapID, err)
	}
	return res.RowsAffected()
}

// InsertScanRecord stores one scan's bookkeeping row and returns its scan_id.
func (db *MapDB) InsertScanRecord(r *mapper.ScanRecord) (int64, error) {
	if r == nil {
		return 0, nil
	}
	stmt := `INSERT INTO map_scan (map_id, sensor_id, taken_unix_nanos, origin_x, origin_y, point_count,
			 rays_inserted, cells_added, insert_mode, duration_nanos)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := db.Exec(stmt, r.MapID, r.SensorID, r.TakenUnixNanos, r.OriginX, r.OriginY, r.PointCount,
		r.RaysInserted, r.CellsAdded, r.InsertMode, r.DurationNanos)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	r.ScanID = &id
	return id, nil
}

// ListScanRecords returns the scans merged into mapID in the order they
// were taken.
func (db *MapDB) ListScanRecords(mapID string) ([]*mapper.ScanRecord, error) {
	rows, err := db.Query(`SELECT scan_id, map_id, sensor_id, taken_unix_nanos, origin_x, origin_y,
			point_count, rays_inserted, cells_added, insert_mode, duration_nanos
			FROM map_scan WHERE map_id = ? ORDER BY taken_unix_nanos, scan_id`, mapID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var out []*mapper.ScanRecord
	for rows.Next() {
		var (
			r  mapper.ScanRecord
			id int64
		)
		if err := rows.Scan(&id, &r.MapID, &r.SensorID, &r.TakenUnixNanos, &r.OriginX, &r.OriginY,
			&r.PointCount, &r.RaysInserted, &r.CellsAdded, &r.InsertMode, &r.DurationNanos); err != nil {
			return nil, fmt.Errorf("failed to scan map_scan row: %w", err)
		}
		r.ScanID = &id
		out = append(out, &r)
	}
	return out, rows.Err()
}
