package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/gridmap2d/internal/gridmap"
)

// DefaultConfigPath is the path to the canonical grid defaults file.
// This is the single source of truth for all default grid values.
const DefaultConfigPath = "config/gridmap.defaults.json"

// Insert modes accepted by insert_mode.
const (
	InsertModeRays         = "rays"
	InsertModeRayEndpoints = "ray_endpoints"
)

// GridConfig represents the root configuration for a mapping session.
// Every field is optional; the Get* accessors supply defaults.
type GridConfig struct {
	// Grid geometry
	Resolution *float64 `json:"resolution,omitempty"`
	GridMaxVal *int     `json:"grid_max_val,omitempty"`
	Lanes      *int     `json:"lanes,omitempty"` // 0 means GOMAXPROCS

	// Sensor model, as probabilities
	ProbHit          *float64 `json:"prob_hit,omitempty"`
	ProbMiss         *float64 `json:"prob_miss,omitempty"`
	ClampingThresMin *float64 `json:"clamping_thres_min,omitempty"`
	ClampingThresMax *float64 `json:"clamping_thres_max,omitempty"`
	OccupancyThres   *float64 `json:"occupancy_thres,omitempty"`

	// Insertion and ray casting
	MaxRange        *float64    `json:"max_range,omitempty"` // <= 0 disables truncation
	IgnoreUnknown   *bool       `json:"ignore_unknown,omitempty"`
	InsertMode      *string     `json:"insert_mode,omitempty"` // "rays" or "ray_endpoints"
	ChangeDetection *bool       `json:"change_detection,omitempty"`
	BBXMin          *[2]float64 `json:"bbx_min,omitempty"`
	BBXMax          *[2]float64 `json:"bbx_max,omitempty"`

	// Snapshot params
	FlushInterval  *string `json:"flush_interval,omitempty"` // duration string like "60s"
	SnapshotReason *string `json:"snapshot_reason,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyGridConfig returns a GridConfig with all fields set to nil.
// Use LoadGridConfig to load actual values from the defaults file.
func EmptyGridConfig() *GridConfig {
	return &GridConfig{}
}

// DefaultGridConfig returns a GridConfig with every field set to its
// default value.
func DefaultGridConfig() *GridConfig {
	return &GridConfig{
		Resolution:       ptrFloat64(0.1),
		GridMaxVal:       ptrInt(gridmap.DefaultGridMaxVal),
		Lanes:            ptrInt(0),
		ProbHit:          ptrFloat64(gridmap.DefaultProbHit),
		ProbMiss:         ptrFloat64(gridmap.DefaultProbMiss),
		ClampingThresMin: ptrFloat64(gridmap.DefaultClampingThresMin),
		ClampingThresMax: ptrFloat64(gridmap.DefaultClampingThresMax),
		OccupancyThres:   ptrFloat64(gridmap.DefaultOccupancyThres),
		MaxRange:         ptrFloat64(-1),
		IgnoreUnknown:    ptrBool(false),
		InsertMode:       ptrString(InsertModeRays),
		ChangeDetection:  ptrBool(true),
		FlushInterval:    ptrString("60s"),
		SnapshotReason:   ptrString("periodic"),
	}
}

// LoadGridConfig loads a GridConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file fall back to the Get* defaults, so
// partial configs are safe.
func LoadGridConfig(path string) (*GridConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyGridConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical grid defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *GridConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from cmd/
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadGridConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *GridConfig) Validate() error {
	if c.Resolution != nil {
		if r := *c.Resolution; !(r > 0) || math.IsInf(r, 1) {
			return fmt.Errorf("resolution must be positive, got %v", r)
		}
	}

	if c.GridMaxVal != nil {
		if v := *c.GridMaxVal; v < 1 || v > gridmap.DefaultGridMaxVal {
			return fmt.Errorf("grid_max_val must be between 1 and %d, got %d", gridmap.DefaultGridMaxVal, v)
		}
	}

	if c.Lanes != nil && *c.Lanes < 0 {
		return fmt.Errorf("lanes must be non-negative, got %d", *c.Lanes)
	}

	if _, err := c.SensorModel(); err != nil {
		return err
	}

	if c.InsertMode != nil {
		switch *c.InsertMode {
		case InsertModeRays, InsertModeRayEndpoints:
		default:
			return fmt.Errorf("insert_mode must be %q or %q, got %q", InsertModeRays, InsertModeRayEndpoints, *c.InsertMode)
		}
	}

	if (c.BBXMin == nil) != (c.BBXMax == nil) {
		return fmt.Errorf("bbx_min and bbx_max must be set together")
	}
	if c.BBXMin != nil && (c.BBXMin[0] > c.BBXMax[0] || c.BBXMin[1] > c.BBXMax[1]) {
		return fmt.Errorf("bbx_min %v must not exceed bbx_max %v", *c.BBXMin, *c.BBXMax)
	}

	if c.FlushInterval != nil && *c.FlushInterval != "" {
		if _, err := time.ParseDuration(*c.FlushInterval); err != nil {
			return fmt.Errorf("invalid flush_interval '%s': %w", *c.FlushInterval, err)
		}
	}

	return nil
}

// GetResolution returns the resolution value or the default.
func (c *GridConfig) GetResolution() float64 {
	if c.Resolution == nil {
		return 0.1 // default
	}
	return *c.Resolution
}

// GetGridMaxVal returns the grid_max_val value or the default.
func (c *GridConfig) GetGridMaxVal() int {
	if c.GridMaxVal == nil {
		return gridmap.DefaultGridMaxVal
	}
	return *c.GridMaxVal
}

// GetLanes returns the lanes value or the default (0, meaning GOMAXPROCS).
func (c *GridConfig) GetLanes() int {
	if c.Lanes == nil {
		return 0
	}
	return *c.Lanes
}

// GetProbHit returns the prob_hit value or the default.
func (c *GridConfig) GetProbHit() float64 {
	if c.ProbHit == nil {
		return gridmap.DefaultProbHit
	}
	return *c.ProbHit
}

// GetProbMiss returns the prob_miss value or the default.
func (c *GridConfig) GetProbMiss() float64 {
	if c.ProbMiss == nil {
		return gridmap.DefaultProbMiss
	}
	return *c.ProbMiss
}

// GetClampingThresMin returns the clamping_thres_min value or the default.
func (c *GridConfig) GetClampingThresMin() float64 {
	if c.ClampingThresMin == nil {
		return gridmap.DefaultClampingThresMin
	}
	return *c.ClampingThresMin
}

// GetClampingThresMax returns the clamping_thres_max value or the default.
func (c *GridConfig) GetClampingThresMax() float64 {
	if c.ClampingThresMax == nil {
		return gridmap.DefaultClampingThresMax
	}
	return *c.ClampingThresMax
}

// GetOccupancyThres returns the occupancy_thres value or the default.
func (c *GridConfig) GetOccupancyThres() float64 {
	if c.OccupancyThres == nil {
		return gridmap.DefaultOccupancyThres
	}
	return *c.OccupancyThres
}

// GetMaxRange returns the max_range value or the default (-1, unlimited).
func (c *GridConfig) GetMaxRange() float64 {
	if c.MaxRange == nil {
		return -1
	}
	return *c.MaxRange
}

// GetIgnoreUnknown returns the ignore_unknown value or the default.
func (c *GridConfig) GetIgnoreUnknown() bool {
	if c.IgnoreUnknown == nil {
		return false
	}
	return *c.IgnoreUnknown
}

// GetInsertMode returns the insert_mode value or the default.
func (c *GridConfig) GetInsertMode() string {
	if c.InsertMode == nil || *c.InsertMode == "" {
		return InsertModeRays
	}
	return *c.InsertMode
}

// GetChangeDetection returns the change_detection value or the default.
func (c *GridConfig) GetChangeDetection() bool {
	if c.ChangeDetection == nil {
		return true
	}
	return *c.ChangeDetection
}

// GetFlushInterval parses and returns the FlushInterval as a time.Duration.
func (c *GridConfig) GetFlushInterval() time.Duration {
	if c.FlushInterval == nil || *c.FlushInterval == "" {
		return 60 * time.Second // default
	}
	d, err := time.ParseDuration(*c.FlushInterval)
	if err != nil {
		return 60 * time.Second // default on parse error
	}
	return d
}

// GetSnapshotReason returns the snapshot_reason value or the default.
func (c *GridConfig) GetSnapshotReason() string {
	if c.SnapshotReason == nil || *c.SnapshotReason == "" {
		return "periodic"
	}
	return *c.SnapshotReason
}

// SensorModel builds the log-odds sensor model from the probability fields.
func (c *GridConfig) SensorModel() (*gridmap.SensorModel, error) {
	return gridmap.NewSensorModel(c.GetProbHit(), c.GetProbMiss(),
		c.GetClampingThresMin(), c.GetClampingThresMax(), c.GetOccupancyThres())
}

// GridOptions returns the construction options described by the config.
func (c *GridConfig) GridOptions() ([]gridmap.Option, error) {
	model, err := c.SensorModel()
	if err != nil {
		return nil, err
	}
	opts := []gridmap.Option{gridmap.WithSensorModel(model)}
	if lanes := c.GetLanes(); lanes > 0 {
		opts = append(opts, gridmap.WithLanes(lanes))
	}
	return opts, nil
}

// NewGrid validates the config and builds a grid with its bounding box and
// change detection settings applied.
func (c *GridConfig) NewGrid() (*gridmap.Grid, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	opts, err := c.GridOptions()
	if err != nil {
		return nil, err
	}
	g := gridmap.NewWithMaxVal(c.GetResolution(), c.GetGridMaxVal(), opts...)
	if c.BBXMin != nil && c.BBXMax != nil {
		g.SetBBXMin(gridmap.Point{X: c.BBXMin[0], Y: c.BBXMin[1]})
		g.SetBBXMax(gridmap.Point{X: c.BBXMax[0], Y: c.BBXMax[1]})
		g.UseBBXLimit(true)
	}
	g.EnableChangeDetection(c.GetChangeDetection())
	return g, nil
}
