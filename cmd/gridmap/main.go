package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/banshee-data/gridmap2d/internal/config"
	"github.com/banshee-data/gridmap2d/internal/gridmap"
	"github.com/banshee-data/gridmap2d/internal/mapdb"
	"github.com/banshee-data/gridmap2d/internal/mapper"
	"github.com/banshee-data/gridmap2d/internal/monitor"
	"github.com/banshee-data/gridmap2d/internal/monitoring"
	"github.com/banshee-data/gridmap2d/internal/scanio"
	"github.com/banshee-data/gridmap2d/internal/version"
	"gonum.org/v1/plot/vg"
)

// scanArg is one -scan argument: an ASC file and the sensor origin it was
// taken from.
type scanArg struct {
	Path   string
	Origin gridmap.Point
	// HasOrigin is false when the argument omitted "@ox,oy".
	HasOrigin bool
}

// scanList collects repeated -scan flags.
type scanList []scanArg

func (l *scanList) String() string {
	parts := make([]string, len(*l))
	for i, s := range *l {
		parts[i] = s.Path
	}
	return strings.Join(parts, ",")
}

func (l *scanList) Set(v string) error {
	s, err := parseScanArg(v)
	if err != nil {
		return err
	}
	*l = append(*l, s)
	return nil
}

var (
	configFile  = flag.String("config", "", "Path to a JSON grid config (defaults are used when empty)")
	dbFile      = flag.String("db", "gridmap.db", "Path to the SQLite database file (empty disables persistence)")
	originFlag  = flag.String("origin", "0,0", "Default sensor origin x,y for -scan entries without @ox,oy")
	pngFile     = flag.String("png", "", "Write a heat map PNG of the grid to this path after ingest")
	listen      = flag.String("listen", "", "Serve the monitor HTTP interface on this address (e.g. :8082)")
	sensorID    = flag.String("sensor", "cli", "Sensor identifier recorded with scans")
	quiet       = flag.Bool("quiet", false, "Mute grid diagnostic output")
	showVersion = flag.Bool("version", false, "Print version information and exit")
	scans       scanList
)

func init() {
	flag.Var(&scans, "scan", "ASC scan to insert as path[@ox,oy] (repeatable)")
}

// parsePoint parses "x,y".
func parsePoint(s string) (gridmap.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return gridmap.Point{}, fmt.Errorf("invalid point %q, expected x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return gridmap.Point{}, fmt.Errorf("invalid x in %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return gridmap.Point{}, fmt.Errorf("invalid y in %q: %w", s, err)
	}
	return gridmap.Point{X: x, Y: y}, nil
}

// parseScanArg parses "path" or "path@ox,oy". The last '@' separates the
// origin so paths may contain '@'.
func parseScanArg(v string) (scanArg, error) {
	if v == "" {
		return scanArg{}, errors.New("empty scan argument")
	}
	i := strings.LastIndex(v, "@")
	if i < 0 {
		return scanArg{Path: v}, nil
	}
	path := v[:i]
	if path == "" {
		return scanArg{}, fmt.Errorf("missing path in %q", v)
	}
	origin, err := parsePoint(v[i+1:])
	if err != nil {
		return scanArg{}, err
	}
	return scanArg{Path: path, Origin: origin, HasOrigin: true}, nil
}

func loadConfig(path string) (*config.GridConfig, error) {
	if path == "" {
		return config.DefaultGridConfig(), nil
	}
	return config.LoadGridConfig(path)
}

// ingest inserts every scan in order and returns the number of points merged.
func ingest(m *mapper.Manager, list scanList, defaultOrigin gridmap.Point) (int, error) {
	total := 0
	for _, s := range list {
		cloud, err := scanio.ReadASCFile(s.Path)
		if err != nil {
			return total, err
		}
		origin := defaultOrigin
		if s.HasOrigin {
			origin = s.Origin
		}
		res, err := m.ProcessScan(origin, cloud)
		if err != nil {
			return total, fmt.Errorf("scan %s: %w", s.Path, err)
		}
		log.Printf("inserted %s: points=%d rays=%d cells_added=%d cells=%d in %v",
			s.Path, res.Points, res.RaysInserted, res.CellsAdded, res.Cells, res.Duration)
		total += res.Points
	}
	return total, nil
}

func writeHeatmap(m *mapper.Manager, path string) error {
	cells := m.CellsView(mapper.AllCells)
	if len(cells) == 0 {
		return errors.New("grid is empty, nothing to render")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := monitor.RenderHeatmapPNG(f, cells, m.Resolution(), "map "+m.MapID, 20*vg.Centimeter); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if flag.NArg() > 0 && flag.Arg(0) == "migrate" {
		if *dbFile == "" {
			log.Fatal("migrate requires -db")
		}
		if err := mapdb.RunMigrateCommand(flag.Args()[1:], *dbFile, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}
	if flag.NArg() > 0 {
		log.Fatalf("unknown command %q", flag.Arg(0))
	}

	if *quiet {
		gridmap.SetLogWriters(os.Stderr, nil, nil)
	} else {
		gridmap.SetLogWriters(os.Stderr, os.Stderr, nil)
	}
	monitoring.SetOutput(os.Stderr, "[gridmap] ")

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	defaultOrigin, err := parsePoint(*originFlag)
	if err != nil {
		log.Fatalf("invalid -origin: %v", err)
	}

	manager, err := mapper.NewManager(*sensorID, cfg)
	if err != nil {
		log.Fatalf("failed to create grid: %v", err)
	}

	var db *mapdb.MapDB
	if *dbFile != "" {
		db, err = mapdb.Open(*dbFile)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		manager.SetScanStore(db)
	}

	if _, err := ingest(manager, scans, defaultOrigin); err != nil {
		log.Fatalf("ingest failed: %v", err)
	}

	if *pngFile != "" {
		if err := writeHeatmap(manager, *pngFile); err != nil {
			log.Printf("failed to write heat map: %v", err)
		} else {
			log.Printf("wrote heat map to %s", *pngFile)
		}
	}

	if *listen == "" {
		if db != nil && len(scans) > 0 {
			if err := manager.Persist(db, "shutdown"); err != nil {
				log.Fatalf("failed to persist grid: %v", err)
			}
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wsConfig := monitor.WebServerConfig{
		Address: *listen,
		Session: manager,
	}
	if db != nil {
		wsConfig.DB = db
		wsConfig.Admin = db
	}
	ws := monitor.NewWebServer(wsConfig)

	var wg sync.WaitGroup
	flushing := db != nil && cfg.GetFlushInterval() > 0
	if flushing {
		flusher := mapper.NewSnapshotFlusher(mapper.SnapshotFlusherConfig{
			Manager:  manager,
			Store:    db,
			Interval: cfg.GetFlushInterval(),
			Reason:   cfg.GetSnapshotReason(),
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := flusher.Run(ctx); err != nil {
				log.Printf("snapshot flusher error: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ws.Start(ctx); err != nil {
			log.Printf("monitor server error: %v", err)
			stop()
		}
		log.Print("monitor server terminated")
	}()

	wg.Wait()
	// The flusher writes its own final snapshot.
	if db != nil && !flushing {
		if err := manager.Persist(db, "shutdown"); err != nil {
			log.Printf("failed to persist grid: %v", err)
		}
	}
	log.Printf("graceful shutdown complete")
}
