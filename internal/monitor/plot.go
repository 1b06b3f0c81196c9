package monitor

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"net/http"

	"github.com/banshee-data/gridmap2d/internal/mapper"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// maxHeatmapCells bounds the dense raster built for a heat map.
const maxHeatmapCells = 4 << 20

// cellGrid adapts sparse cells to plotter.GridXYZ. Unknown cells are NaN.
type cellGrid struct {
	res        float64
	x0, y0     float64
	cols, rows int
	z          []float64
}

func newCellGrid(cells []mapper.CellView, res float64) (*cellGrid, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("no cells to plot")
	}
	if res <= 0 {
		return nil, fmt.Errorf("invalid resolution %v", res)
	}
	lo := [2]float64{math.MaxFloat64, math.MaxFloat64}
	hi := [2]float64{-math.MaxFloat64, -math.MaxFloat64}
	for _, c := range cells {
		lo[0], hi[0] = math.Min(lo[0], c.X), math.Max(hi[0], c.X)
		lo[1], hi[1] = math.Min(lo[1], c.Y), math.Max(hi[1], c.Y)
	}
	cols := int(math.Round((hi[0]-lo[0])/res)) + 1
	rows := int(math.Round((hi[1]-lo[1])/res)) + 1
	if cols*rows > maxHeatmapCells {
		return nil, fmt.Errorf("grid extent %dx%d exceeds %d cells", cols, rows, maxHeatmapCells)
	}

	g := &cellGrid{res: res, x0: lo[0], y0: lo[1], cols: cols, rows: rows, z: make([]float64, cols*rows)}
	for i := range g.z {
		g.z[i] = math.NaN()
	}
	for _, c := range cells {
		col := int(math.Round((c.X - g.x0) / res))
		row := int(math.Round((c.Y - g.y0) / res))
		g.z[row*cols+col] = c.Probability
	}
	return g, nil
}

func (g *cellGrid) Dims() (c, r int)   { return g.cols, g.rows }
func (g *cellGrid) Z(c, r int) float64 { return g.z[r*g.cols+c] }
func (g *cellGrid) X(c int) float64    { return g.x0 + float64(c)*g.res }
func (g *cellGrid) Y(r int) float64    { return g.y0 + float64(r)*g.res }

// RenderHeatmapPNG draws cells as an occupancy probability heat map and
// writes it to w as a square PNG with sides of the given length.
func RenderHeatmapPNG(w io.Writer, cells []mapper.CellView, res float64, title string, size vg.Length) error {
	grid, err := newCellGrid(cells, res)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	hm := plotter.NewHeatMap(grid, palette.Heat(16, 1))
	hm.Min, hm.Max = 0, 1
	hm.NaN = color.Transparent
	p.Add(hm)

	wt, err := p.WriterTo(size, size, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// handleHeatmapPNG renders the grid as a PNG heat map.
// Query params:
//   - filter (optional; all, occupied, free)
func (ws *WebServer) handleHeatmapPNG(w http.ResponseWriter, r *http.Request) {
	filter, err := mapper.ParseCellFilter(r.URL.Query().Get("filter"))
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	cells := ws.session.CellsView(filter)
	if len(cells) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no cells available")
		return
	}

	var buf bytes.Buffer
	title := fmt.Sprintf("map %s", ws.session.Status().MapID)
	if err := RenderHeatmapPNG(&buf, cells, ws.session.Resolution(), title, 20*vg.Centimeter); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render heat map: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
