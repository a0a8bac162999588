package charts

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/chrissnell/sensordash/internal/views"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	heatmapCell   = 72
	heatmapLeft   = 110
	heatmapTop    = 50
	heatmapBottom = 90
	heatmapRight  = 20
)

var (
	coolColor    = drawing.Color{R: 59, G: 76, B: 192, A: 255}
	neutralColor = drawing.Color{R: 221, G: 221, B: 221, A: 255}
	warmColor    = drawing.Color{R: 180, G: 4, B: 38, A: 255}
	missingColor = drawing.Color{R: 245, G: 245, B: 245, A: 255}
)

// coolwarm maps a coefficient in [-1, 1] onto a diverging blue-red ramp
func coolwarm(v float64) drawing.Color {
	v = math.Max(-1, math.Min(1, v))
	if v < 0 {
		return blend(neutralColor, coolColor, -v)
	}
	return blend(neutralColor, warmColor, v)
}

func blend(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// Heatmap draws a correlation matrix as a grid of annotated cells
func Heatmap(w io.Writer, m views.CorrelationMatrix) error {
	n := len(m.Columns)
	if n == 0 || len(m.Values) != n {
		return ErrNothingToRender
	}

	width := heatmapLeft + n*heatmapCell + heatmapRight
	height := heatmapTop + n*heatmapCell + heatmapBottom

	r, err := chart.PNG(width, height)
	if err != nil {
		return fmt.Errorf("error creating renderer: %w", err)
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("error loading font: %w", err)
	}
	r.SetFont(font)

	fillRect(r, 0, 0, width, height, drawing.ColorWhite)

	r.SetFontColor(drawing.ColorBlack)
	r.SetFontSize(14)
	tb := r.MeasureText(m.Title)
	r.Text(m.Title, (width-tb.Width())/2, heatmapTop/2+tb.Height()/2)

	r.SetFontSize(10)
	for i := 0; i < n; i++ {
		y0 := heatmapTop + i*heatmapCell
		for j := 0; j < n; j++ {
			x0 := heatmapLeft + j*heatmapCell
			v := m.Values[i][j]

			cell := missingColor
			label := "NaN"
			if v != nil {
				cell = coolwarm(*v)
				label = strconv.FormatFloat(*v, 'f', 2, 64)
			}
			fillRect(r, x0, y0, x0+heatmapCell, y0+heatmapCell, cell)

			r.SetFontColor(drawing.ColorBlack)
			if v != nil && math.Abs(*v) > 0.6 {
				r.SetFontColor(drawing.ColorWhite)
			}
			lb := r.MeasureText(label)
			r.Text(label, x0+(heatmapCell-lb.Width())/2, y0+(heatmapCell+lb.Height())/2)
		}

		r.SetFontColor(drawing.ColorBlack)
		rb := r.MeasureText(m.Columns[i])
		r.Text(m.Columns[i], heatmapLeft-rb.Width()-8, y0+(heatmapCell+rb.Height())/2)
	}

	// Column names run diagonally under the grid.
	r.SetTextRotation(-math.Pi / 4)
	for j, name := range m.Columns {
		x := heatmapLeft + j*heatmapCell + heatmapCell/2
		r.Text(name, x, heatmapTop+n*heatmapCell+14)
	}
	r.ClearTextRotation()

	if err := r.Save(w); err != nil {
		return fmt.Errorf("error encoding heatmap: %w", err)
	}
	return nil
}

func fillRect(r chart.Renderer, x0, y0, x1, y1 int, c drawing.Color) {
	r.SetFillColor(c)
	r.SetStrokeColor(c)
	r.SetStrokeWidth(0)
	r.MoveTo(x0, y0)
	r.LineTo(x1, y0)
	r.LineTo(x1, y1)
	r.LineTo(x0, y1)
	r.Close()
	r.Fill()
}
