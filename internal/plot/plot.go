// Package plot renders the diagnostic input figure: five stacked panels of the
// series that feeds the snow model.
package plot

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

var (
	blue   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	orange = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// Plotter implements smet.Plotter as a PNG writer.
type Plotter struct {
	Width  vg.Length
	Height vg.Length
}

// New returns a 10x12 inch Plotter.
func New() *Plotter {
	return &Plotter{Width: 10 * vg.Inch, Height: 12 * vg.Inch}
}

type curve struct {
	label string
	field smet.Field
	scale float64
	color color.Color
}

type panel struct {
	ylabel string
	curves []curve
}

func panels() []panel {
	return []panel{
		{"Wind Speed (m/s)", []curve{{"", smet.FieldVW, 1, blue}}},
		{"Solar Radiation (W/m^2)", []curve{{"", smet.FieldISWR, 1, blue}}},
		{"Temperatures (K)", []curve{
			{"Surface Temp", smet.FieldTSS, 1, blue},
			{"Air Temp", smet.FieldTA, 1, orange},
		}},
		{"RH (%)", []curve{{"", smet.FieldRH, 100, blue}}},
		{"Snow Depth (m)", []curve{{"", smet.FieldHS, 1, blue}}},
	}
}

// Plot writes the figure for s to path.
func (p *Plotter) Plot(st smet.Station, s *smet.Series, path string) error {
	layout := panels()
	rows := make([][]*plot.Plot, len(layout))

	for i, pn := range layout {
		pl := plot.New()
		if i == 0 {
			pl.Title.Text = fmt.Sprintf("%s SNOWPACK data", st.Name)
		}
		pl.X.Label.Text = "UTC"
		pl.Y.Label.Text = pn.ylabel
		pl.X.Tick.Marker = plot.TimeTicks{Format: "01/02"}
		pl.Add(plotter.NewGrid())

		for _, c := range pn.curves {
			pts := points(s, c.field, c.scale)
			if len(pts) == 0 {
				continue
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return fmt.Errorf("plot %s: %w", c.field, err)
			}
			line.Color = c.color
			pl.Add(line)
			if c.label != "" {
				pl.Legend.Add(c.label, line)
			}
		}
		rows[i] = []*plot.Plot{pl}
	}

	img := vgimg.New(p.Width, p.Height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(rows),
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: 4 * vg.Millimeter,
	}
	canvases := plot.Align(rows, tiles, dc)
	for i := range rows {
		rows[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// points drops NoData samples; the line bridges the gap.
func points(s *smet.Series, f smet.Field, scale float64) plotter.XYs {
	col := s.Columns[f]
	pts := make(plotter.XYs, 0, len(col))
	for i, v := range col {
		if v == smet.NoData || i >= len(s.Timestamps) {
			continue
		}
		pts = append(pts, plotter.XY{
			X: float64(s.Timestamps[i].Unix()),
			Y: v * scale,
		})
	}
	return pts
}
