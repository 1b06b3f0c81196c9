// Package monitor serves the HTTP view of a mapping session: JSON status and
// cells, ray-cast queries, snapshot listings and debug charts.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/gridmap2d/internal/gridmap"
	"github.com/banshee-data/gridmap2d/internal/mapper"
	"github.com/banshee-data/gridmap2d/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MapSession is the part of mapper.Manager the web server reads from.
type MapSession interface {
	Status() mapper.Status
	CellsView(filter mapper.CellFilter) []mapper.CellView
	CastRay(origin, direction gridmap.Point, ignoreUnknown *bool, maxRange float64) mapper.RaycastResult
	Resolution() float64
	Persist(store gridmap.SnapshotStore, reason string) error
}

// SnapshotDB stores and lists grid snapshots. Implemented by mapdb.MapDB.
type SnapshotDB interface {
	gridmap.SnapshotStore
	ListMapSnapshots(mapID string, limit int) ([]*gridmap.Snapshot, error)
}

// AdminRouter mounts debug routes on a mux. Implemented by mapdb.MapDB.
type AdminRouter interface {
	AttachAdminRoutes(mux *http.ServeMux) error
}

// WebServer handles the HTTP interface for a mapping session.
type WebServer struct {
	address string
	session MapSession
	db      SnapshotDB
	admin   AdminRouter
	server  *http.Server
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address string
	Session MapSession
	DB      SnapshotDB  // optional; enables snapshot listing and persist
	Admin   AdminRouter // optional; mounts /debug/ admin routes
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		session: config.Session,
		db:      config.DB,
		admin:   config.Admin,
	}

	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return ws
}

// Handler returns the HTTP handler serving every route.
func (ws *WebServer) Handler() http.Handler { return ws.server.Handler }

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("monitor: failed to encode response: %v", err)
	}
}

// Start serves until ctx is cancelled, then shuts the server down.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}

	monitoring.Logf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/map/status", ws.handleStatus)
	mux.HandleFunc("/api/map/cells", ws.handleCells)
	mux.HandleFunc("/api/map/raycast", ws.handleRaycast)
	mux.HandleFunc("/api/map/snapshots", ws.handleSnapshots)
	mux.HandleFunc("/api/map/persist", ws.handlePersist)
	mux.HandleFunc("/debug/map/scatter", ws.handleScatter)
	mux.HandleFunc("/debug/map/heatmap.png", ws.handleHeatmapPNG)
	mux.Handle("/metrics", promhttp.Handler())

	if ws.admin != nil {
		if err := ws.admin.AttachAdminRoutes(mux); err != nil {
			monitoring.Logf("monitor: admin routes disabled: %v", err)
		}
	}
	return mux
}

// handleHealth handles the health check endpoint
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "gridmap", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ws.writeJSON(w, ws.session.Status())
}

// cellsResponse is the body of /api/map/cells.
type cellsResponse struct {
	Resolution float64           `json:"resolution"`
	Filter     string            `json:"filter"`
	Count      int               `json:"count"`
	Cells      []mapper.CellView `json:"cells"`
}

// handleCells lists stored cells.
// Query params:
//
//	filter (optional: all, occupied, free; default all)
func (ws *WebServer) handleCells(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	filterName := r.URL.Query().Get("filter")
	filter, err := mapper.ParseCellFilter(filterName)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filterName == "" {
		filterName = "all"
	}
	cells := ws.session.CellsView(filter)
	ws.writeJSON(w, cellsResponse{
		Resolution: ws.session.Resolution(),
		Filter:     filterName,
		Count:      len(cells),
		Cells:      cells,
	})
}

// handleRaycast casts a ray through the grid.
// Query params:
//
//	ox, oy, dx, dy (required) origin and direction in metres
//	ignore_unknown (optional bool; session default when absent)
//	max_range (optional; <= 0 means unlimited)
func (ws *WebServer) handleRaycast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	q := r.URL.Query()
	var vals [4]float64
	for i, name := range []string{"ox", "oy", "dx", "dy"} {
		raw := q.Get(name)
		if raw == "" {
			ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("missing '%s' parameter", name))
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid '%s' parameter: %v", name, err))
			return
		}
		vals[i] = v
	}

	var ignoreUnknown *bool
	if raw := q.Get("ignore_unknown"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid 'ignore_unknown' parameter: %v", err))
			return
		}
		ignoreUnknown = &v
	}
	maxRange := -1.0
	if raw := q.Get("max_range"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid 'max_range' parameter: %v", err))
			return
		}
		maxRange = v
	}

	origin := gridmap.Point{X: vals[0], Y: vals[1]}
	direction := gridmap.Point{X: vals[2], Y: vals[3]}
	ws.writeJSON(w, ws.session.CastRay(origin, direction, ignoreUnknown, maxRange))
}

// snapshotSummary is one entry of /api/map/snapshots.
type snapshotSummary struct {
	SnapshotID        interface{} `json:"snapshot_id"`
	MapID             string      `json:"map_id"`
	Taken             string      `json:"taken"`
	Resolution        float64     `json:"resolution"`
	CellCount         int         `json:"cell_count"`
	OccupiedCount     int         `json:"occupied_count"`
	ChangedCellsCount int         `json:"changed_cells_count"`
	SnapshotReason    string      `json:"snapshot_reason"`
}

// handleSnapshots returns the last N snapshots of the current map.
// Query params:
//
//	map_id (optional; defaults to the current session)
//	limit (optional, default 10)
func (ws *WebServer) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no database configured for snapshot lookup")
		return
	}
	mapID := r.URL.Query().Get("map_id")
	if mapID == "" {
		mapID = ws.session.Status().MapID
	}
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	snaps, err := ws.db.ListMapSnapshots(mapID, limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list snapshots: %v", err))
		return
	}
	summaries := make([]snapshotSummary, 0, len(snaps))
	for _, snap := range snaps {
		var id interface{}
		if snap.SnapshotID != nil {
			id = *snap.SnapshotID
		}
		summaries = append(summaries, snapshotSummary{
			SnapshotID:        id,
			MapID:             snap.MapID,
			Taken:             time.Unix(0, snap.TakenUnixNanos).UTC().Format(time.RFC3339Nano),
			Resolution:        snap.Resolution,
			CellCount:         snap.CellCount,
			OccupiedCount:     snap.OccupiedCount,
			ChangedCellsCount: snap.ChangedCellsCount,
			SnapshotReason:    snap.SnapshotReason,
		})
	}
	ws.writeJSON(w, summaries)
}

// handlePersist writes a manual snapshot of the grid.
func (ws *WebServer) handlePersist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no database configured for persistence")
		return
	}
	if err := ws.session.Persist(ws.db, "manual"); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("persist failed: %v", err))
		return
	}
	ws.writeJSON(w, map[string]interface{}{
		"status":           "ok",
		"last_snapshot_id": ws.session.Status().LastSnapshotID,
	})
}
