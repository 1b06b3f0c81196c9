package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/gridmap2d/internal/gridmap"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultGridConfig(t *testing.T) {
	cfg := DefaultGridConfig()

	if cfg.Resolution == nil || *cfg.Resolution != 0.1 {
		t.Errorf("Expected Resolution 0.1, got %v", cfg.Resolution)
	}
	if cfg.InsertMode == nil || *cfg.InsertMode != InsertModeRays {
		t.Errorf("Expected InsertMode %q, got %v", InsertModeRays, cfg.InsertMode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.GetFlushInterval() != time.Minute {
		t.Errorf("GetFlushInterval() = %v, want 1m", cfg.GetFlushInterval())
	}
}

func TestEmptyGridConfig_GettersFallBack(t *testing.T) {
	cfg := EmptyGridConfig()

	if cfg.GetResolution() != 0.1 {
		t.Errorf("GetResolution() = %v, want 0.1", cfg.GetResolution())
	}
	if cfg.GetGridMaxVal() != gridmap.DefaultGridMaxVal {
		t.Errorf("GetGridMaxVal() = %d", cfg.GetGridMaxVal())
	}
	if cfg.GetMaxRange() != -1 {
		t.Errorf("GetMaxRange() = %v, want -1", cfg.GetMaxRange())
	}
	if cfg.GetInsertMode() != InsertModeRays {
		t.Errorf("GetInsertMode() = %q", cfg.GetInsertMode())
	}
	if cfg.GetSnapshotReason() != "periodic" {
		t.Errorf("GetSnapshotReason() = %q", cfg.GetSnapshotReason())
	}
	if cfg.GetIgnoreUnknown() {
		t.Error("GetIgnoreUnknown() should default to false")
	}
	if !cfg.GetChangeDetection() {
		t.Error("GetChangeDetection() should default to true")
	}
	if cfg.GetProbHit() != gridmap.DefaultProbHit || cfg.GetProbMiss() != gridmap.DefaultProbMiss {
		t.Error("sensor probabilities should fall back to gridmap defaults")
	}
}

func TestLoadGridConfig(t *testing.T) {
	path := writeConfig(t, "grid.json", `{
  "resolution": 0.25,
  "grid_max_val": 1024,
  "lanes": 3,
  "prob_hit": 0.8,
  "max_range": 30,
  "insert_mode": "ray_endpoints",
  "change_detection": true,
  "bbx_min": [-10, -5],
  "bbx_max": [10, 5],
  "flush_interval": "5s"
}`)

	cfg, err := LoadGridConfig(path)
	if err != nil {
		t.Fatalf("LoadGridConfig failed: %v", err)
	}
	if cfg.GetResolution() != 0.25 {
		t.Errorf("GetResolution() = %v, want 0.25", cfg.GetResolution())
	}
	if cfg.GetLanes() != 3 {
		t.Errorf("GetLanes() = %d, want 3", cfg.GetLanes())
	}
	if cfg.GetInsertMode() != InsertModeRayEndpoints {
		t.Errorf("GetInsertMode() = %q", cfg.GetInsertMode())
	}
	if cfg.GetFlushInterval() != 5*time.Second {
		t.Errorf("GetFlushInterval() = %v", cfg.GetFlushInterval())
	}
	// Unset fields keep their defaults.
	if cfg.GetProbMiss() != gridmap.DefaultProbMiss {
		t.Errorf("GetProbMiss() = %v", cfg.GetProbMiss())
	}

	g, err := cfg.NewGrid()
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	if g.Resolution() != 0.25 || g.GridMaxVal() != 1024 || g.Lanes() != 3 {
		t.Errorf("grid = res %v max %d lanes %d", g.Resolution(), g.GridMaxVal(), g.Lanes())
	}
	if !g.BBXSet() || g.BBXMax() != (gridmap.Point{X: 10, Y: 5}) {
		t.Errorf("bbx not applied: set=%v max=%v", g.BBXSet(), g.BBXMax())
	}
	if !g.IsChangeDetectionEnabled() {
		t.Error("change detection should be enabled")
	}
	if g.Model().HitLogOdds != gridmap.Logodds(0.8) {
		t.Errorf("HitLogOdds = %v, want %v", g.Model().HitLogOdds, gridmap.Logodds(0.8))
	}
}

func TestLoadGridConfig_PartialKeepsChangeDetection(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"resolution": 0.5}`)

	cfg, err := LoadGridConfig(path)
	if err != nil {
		t.Fatalf("LoadGridConfig failed: %v", err)
	}
	if cfg.GetChangeDetection() != *DefaultGridConfig().ChangeDetection {
		t.Errorf("GetChangeDetection() = %v, want the DefaultGridConfig value", cfg.GetChangeDetection())
	}

	g, err := cfg.NewGrid()
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	if !g.IsChangeDetectionEnabled() {
		t.Fatal("change detection should be enabled when the file omits change_detection")
	}
	g.UpdateNodeOccupancyXY(1.25, 1.25, true)
	if g.NumChangesDetected() != 1 {
		t.Errorf("NumChangesDetected() = %d, want 1", g.NumChangesDetected())
	}

	off := writeConfig(t, "off.json", `{"change_detection": false}`)
	cfg, err = LoadGridConfig(off)
	if err != nil {
		t.Fatalf("LoadGridConfig failed: %v", err)
	}
	if cfg.GetChangeDetection() {
		t.Error("explicit change_detection=false should be honoured")
	}
}

func TestLoadGridConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "grid.yaml", `{}`, ".json extension"},
		{"bad json", "grid.json", `{`, "failed to parse config JSON"},
		{"negative resolution", "grid.json", `{"resolution": -0.1}`, "resolution must be positive"},
		{"max val too large", "grid.json", `{"grid_max_val": 70000}`, "grid_max_val"},
		{"negative lanes", "grid.json", `{"lanes": -2}`, "lanes must be non-negative"},
		{"bad probability", "grid.json", `{"prob_hit": 1.5}`, "prob_hit"},
		{"inverted clamp", "grid.json", `{"clamping_thres_min": 0.9, "clamping_thres_max": 0.2}`, "clamping_thres_min"},
		{"bad insert mode", "grid.json", `{"insert_mode": "points"}`, "insert_mode"},
		{"half bbx", "grid.json", `{"bbx_min": [0, 0]}`, "set together"},
		{"inverted bbx", "grid.json", `{"bbx_min": [1, 0], "bbx_max": [0, 1]}`, "must not exceed"},
		{"bad flush interval", "grid.json", `{"flush_interval": "soon"}`, "invalid flush_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadGridConfig(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadGridConfig_MissingFile(t *testing.T) {
	_, err := LoadGridConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil || !strings.Contains(err.Error(), "failed to stat config file") {
		t.Errorf("expected stat error, got %v", err)
	}
}

func TestLoadGridConfig_TooLarge(t *testing.T) {
	path := writeConfig(t, "big.json", `{"snapshot_reason": "`+strings.Repeat("x", 1024*1024)+`"}`)
	_, err := LoadGridConfig(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetResolution() <= 0 {
		t.Errorf("default resolution = %v", cfg.GetResolution())
	}
	if _, err := cfg.NewGrid(); err != nil {
		t.Errorf("default config should build a grid: %v", err)
	}
}
