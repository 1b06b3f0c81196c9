package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/banshee-data/gridmap2d/internal/mapper"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// occupancyColors runs from free (blue) to occupied (red).
var occupancyColors = []string{"#313695", "#4575b4", "#74add1", "#abd9e9", "#e0f3f8", "#fee090", "#fdae61", "#f46d43", "#d73027", "#a50026"}

// handleScatter renders the stored cells as an HTML scatter coloured by
// occupancy probability. This is a debugging-only endpoint.
// Query params:
//   - filter (optional; all, occupied, free)
//   - max_points (optional; default 20000) to reduce payload size
func (ws *WebServer) handleScatter(w http.ResponseWriter, r *http.Request) {
	filter, err := mapper.ParseCellFilter(r.URL.Query().Get("filter"))
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	maxPoints := 20000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 200000 {
			maxPoints = v
		}
	}

	cells := ws.session.CellsView(filter)
	if len(cells) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no cells available")
		return
	}

	var buf bytes.Buffer
	if err := renderScatter(&buf, cells, ws.session.Status().MapID, maxPoints); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// renderScatter writes a square go-echarts scatter of cells, downsampled by
// stride to at most maxPoints.
func renderScatter(buf *bytes.Buffer, cells []mapper.CellView, mapID string, maxPoints int) error {
	stride := 1
	if len(cells) > maxPoints {
		stride = int(math.Ceil(float64(len(cells)) / float64(maxPoints)))
	}

	data := make([]opts.ScatterData, 0, len(cells)/stride+1)
	lo := [2]float64{math.MaxFloat64, math.MaxFloat64}
	hi := [2]float64{-math.MaxFloat64, -math.MaxFloat64}
	for i := 0; i < len(cells); i += stride {
		c := cells[i]
		lo[0], hi[0] = math.Min(lo[0], c.X), math.Max(hi[0], c.X)
		lo[1], hi[1] = math.Min(lo[1], c.Y), math.Max(hi[1], c.Y)
		data = append(data, opts.ScatterData{Value: []interface{}{c.X, c.Y, c.Probability}})
	}

	// Square plot with a small pad so edge cells stay visible.
	cx, cy := (lo[0]+hi[0])/2, (lo[1]+hi[1])/2
	half := math.Max(hi[0]-lo[0], hi[1]-lo[1])/2*1.05 + 0.5
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Occupancy Grid", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Occupancy Grid", Subtitle: fmt.Sprintf("map=%s points=%d stride=%d", mapID, len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: cx - half, Max: cx + half, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: cy - half, Max: cy + half, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: occupancyColors},
		}),
	)
	scatter.AddSeries("cells", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	return scatter.Render(buf)
}
