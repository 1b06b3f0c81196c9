package mapper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	mapIDLabel = "map_id"
	modeLabel  = "insert_mode"
)

var (
	gridmapScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridmap_scans_total",
		Help: "The total number of scans merged into the grid.",
	}, []string{mapIDLabel, modeLabel})

	gridmapPointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridmap_points_total",
		Help: "The total number of scan points traced into the grid.",
	}, []string{mapIDLabel})

	gridmapCells = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gridmap_cells",
		Help: "The number of known cells in the grid.",
	}, []string{mapIDLabel})

	gridmapChangedCells = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gridmap_changed_cells",
		Help: "The number of cells changed since the last snapshot.",
	}, []string{mapIDLabel})

	gridmapScanSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridmap_scan_duration_seconds",
		Help:    "Time spent merging one scan into the grid.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{mapIDLabel})

	gridmapSnapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridmap_snapshots_total",
		Help: "The total number of snapshot attempts by result.",
	}, []string{mapIDLabel, "result"})
)

func instrumentScan(mapID, mode string, points int, seconds float64) {
	gridmapScansTotal.
		With(prometheus.Labels{mapIDLabel: mapID, modeLabel: mode}).
		Inc()
	gridmapPointsTotal.
		With(prometheus.Labels{mapIDLabel: mapID}).
		Add(float64(points))
	gridmapScanSeconds.
		With(prometheus.Labels{mapIDLabel: mapID}).
		Observe(seconds)
}

func instrumentGridSize(mapID string, cells, changed int) {
	gridmapCells.
		With(prometheus.Labels{mapIDLabel: mapID}).
		Set(float64(cells))
	gridmapChangedCells.
		With(prometheus.Labels{mapIDLabel: mapID}).
		Set(float64(changed))
}

func instrumentSnapshot(mapID string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	gridmapSnapshotsTotal.
		With(prometheus.Labels{mapIDLabel: mapID, "result": result}).
		Inc()
}
