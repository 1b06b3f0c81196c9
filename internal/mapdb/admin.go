package mapdb

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/gridmap2d/internal/monitoring"
	"github.com/klauspost/compress/gzip"
	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// TableCount is the row count of one map table.
type TableCount struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// TableStats returns the row counts of the map tables.
func (db *MapDB) TableStats() ([]TableCount, error) {
	var out []TableCount
	for _, name := range []string{"map_snapshot", "map_scan"} {
		var n int64
		if err := db.QueryRow("SELECT COUNT(*) FROM " + name).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		out = append(out, TableCount{Name: name, Rows: n})
	}
	return out, nil
}

// AttachAdminRoutes mounts tailsql, table stats and a gzip backup download
// on the tsweb debug handler of mux.
func (db *MapDB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Map DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("map-db-stats", "Row counts of the map tables", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.TableStats()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			monitoring.Logf("mapdb: failed to encode table stats: %v", err)
		}
	}))

	debug.Handle("backup", "Create and download a backup of the map database now", http.HandlerFunc(db.handleBackup))
	return nil
}

func (db *MapDB) handleBackup(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("gridmap-backup-%d.db", time.Now().Unix())
	backupPath := filepath.Join(os.TempDir(), name)
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		backupFile.Close()
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("mapdb: failed to remove backup file: %v", err)
		}
	}()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
	w.Header().Set("Content-Type", "application/octet-stream")

	gzipWriter := gzip.NewWriter(w)
	defer gzipWriter.Close()
	if _, err := io.Copy(gzipWriter, backupFile); err != nil {
		monitoring.Logf("mapdb: failed to stream backup: %v", err)
	}
}
