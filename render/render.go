package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/bitmark-inc/autonomy-rt/schema"
)

const (
	DefaultWidth  = 24 * vg.Inch
	DefaultHeight = 16 * vg.Inch
	DefaultDPI    = 72

	rollingDays = 7
)

// tableau colorblind palette
var (
	blue   = color.RGBA{R: 0x00, G: 0x6b, B: 0xa4, A: 0xff}
	orange = color.RGBA{R: 0xff, G: 0x80, B: 0x0e, A: 0xff}
	grey   = color.RGBA{R: 0x59, G: 0x59, B: 0x59, A: 0xff}
	band   = color.RGBA{R: 0x5f, G: 0x9e, B: 0xd1, A: 0x60}
	light  = color.RGBA{R: 0xab, G: 0xab, B: 0xab, A: 0xff}
)

var ErrEmptySeries = fmt.Errorf("empty series")

// Renderer draws the four panel report of one unit. Every call draws on a
// canvas of its own.
type Renderer struct {
	Width  vg.Length
	Height vg.Length
	DPI    int
	// Title names a unit in panel titles, the key string when nil.
	Title func(schema.RegionKey) string
}

func New() *Renderer {
	return &Renderer{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		DPI:    DefaultDPI,
	}
}

type figure struct {
	canvas *vgimg.Canvas
}

// WriteTo encodes the figure as PNG.
func (f figure) WriteTo(w io.Writer) (int64, error) {
	return vgimg.PngCanvas{Canvas: f.canvas}.WriteTo(w)
}

// Render draws daily cases, daily deaths, the reproduction number estimate
// and the week over week change on a shared date axis.
func (r *Renderer) Render(s schema.Series, result schema.AnalysisResult) (io.WriterTo, error) {
	if s.Len() == 0 {
		return nil, schema.NewError(schema.KindRenderFailure, result.Key.String(), ErrEmptySeries)
	}

	title := result.Key.String()
	if r.Title != nil {
		title = r.Title(result.Key)
	}

	cases, err := r.dailyPanel(s, schema.ColumnCases, title+" - daily cases", blue)
	if nil != err {
		return nil, schema.NewError(schema.KindRenderFailure, "cases panel", err)
	}
	deaths, err := r.dailyPanel(s, schema.ColumnDeaths, title+" - daily deaths", orange)
	if nil != err {
		return nil, schema.NewError(schema.KindRenderFailure, "deaths panel", err)
	}
	rt, err := r.reproductionPanel(result, title+" - R(t)")
	if nil != err {
		return nil, schema.NewError(schema.KindRenderFailure, "R(t) panel", err)
	}
	weekly, err := r.weeklyPanel(s, title+" - week over week change (%)")
	if nil != err {
		return nil, schema.NewError(schema.KindRenderFailure, "weekly panel", err)
	}

	first, last := unix(s.Points[0].Date), unix(s.Points[s.Len()-1].Date)
	plots := [][]*plot.Plot{
		{cases, deaths},
		{rt, weekly},
	}
	for _, row := range plots {
		for _, p := range row {
			p.X.Min, p.X.Max = first, last
			p.X.Tick.Marker = plot.TimeTicks{Format: "02/01"}
		}
	}

	width, height := r.Width, r.Height
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	dpi := r.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	img := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      2,
		PadX:      vg.Inch / 2,
		PadY:      vg.Inch / 2,
		PadTop:    vg.Inch / 4,
		PadBottom: vg.Inch / 4,
		PadLeft:   vg.Inch / 4,
		PadRight:  vg.Inch / 4,
	}

	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}

	return figure{canvas: img}, nil
}

func (r *Renderer) dailyPanel(s schema.Series, column, title string, c color.Color) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Min = 0

	values, ok := s.Column(column)
	if !ok {
		values = make([]float64, s.Len())
	}

	daily, err := plotter.NewLine(points(s.Dates(), values))
	if nil != err {
		return nil, err
	}
	daily.LineStyle.Color = light
	daily.LineStyle.Width = vg.Points(1)

	mean, err := plotter.NewLine(points(s.Dates(), RollingMean(values, rollingDays)))
	if nil != err {
		return nil, err
	}
	mean.LineStyle.Color = c
	mean.LineStyle.Width = vg.Points(2)

	p.Add(daily, mean)
	p.Legend.Add("daily", daily)
	p.Legend.Add(fmt.Sprintf("%d day mean", rollingDays), mean)
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

func (r *Renderer) reproductionPanel(result schema.AnalysisResult, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Min = 0

	if len(result.Windows) == 0 {
		return p, nil
	}

	n := len(result.Windows)
	mean := make(plotter.XYs, n)
	area := make(plotter.XYs, 0, 2*n)
	for i, w := range result.Windows {
		mean[i] = plotter.XY{X: unix(w.End), Y: w.Mean}
		area = append(area, plotter.XY{X: unix(w.End), Y: w.Upper})
	}
	for i := n - 1; i >= 0; i-- {
		w := result.Windows[i]
		area = append(area, plotter.XY{X: unix(w.End), Y: w.Lower})
	}

	ci, err := plotter.NewPolygon(area)
	if nil != err {
		return nil, err
	}
	ci.Color = band
	ci.LineStyle.Width = 0

	line, err := plotter.NewLine(mean)
	if nil != err {
		return nil, err
	}
	line.LineStyle.Color = blue
	line.LineStyle.Width = vg.Points(2)

	threshold, err := plotter.NewLine(plotter.XYs{
		{X: unix(result.Windows[0].Start), Y: 1},
		{X: unix(result.Windows[n-1].End), Y: 1},
	})
	if nil != err {
		return nil, err
	}
	threshold.LineStyle.Color = grey
	threshold.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(ci, line, threshold)
	p.Legend.Add("R(t) mean", line)
	p.Legend.Add("95% interval", ci)
	p.Legend.Top = true
	return p, nil
}

func (r *Renderer) weeklyPanel(s schema.Series, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title

	values, _ := s.Column(schema.ColumnCases)
	change := WeeklyChange(values)
	dates := s.Dates()

	xys := make(plotter.XYs, 0, len(change))
	for i, v := range change {
		if math.IsNaN(v) {
			continue
		}
		xys = append(xys, plotter.XY{X: unix(dates[i]), Y: v})
	}

	p.Add(plotter.NewGrid())
	if len(xys) == 0 {
		return p, nil
	}

	line, err := plotter.NewLine(xys)
	if nil != err {
		return nil, err
	}
	line.LineStyle.Color = orange
	line.LineStyle.Width = vg.Points(2)
	p.Add(line)
	return p, nil
}

// RollingMean averages each value with up to days-1 previous values.
func RollingMean(values []float64, days int) []float64 {
	means := make([]float64, len(values))
	for i := range values {
		start := i - days + 1
		if start < 0 {
			start = 0
		}
		m, err := stats.Mean(values[start : i+1])
		if err != nil {
			m = 0
		}
		means[i] = m
	}
	return means
}

// WeeklyChange is the percent change of each trailing 7 day sum against
// the previous 7 days. Days without two full weeks of history or with an
// empty previous week are NaN.
func WeeklyChange(values []float64) []float64 {
	change := make([]float64, len(values))
	for i := range values {
		change[i] = math.NaN()
		if i < 2*rollingDays-1 {
			continue
		}

		current, _ := stats.Sum(values[i-rollingDays+1 : i+1])
		previous, _ := stats.Sum(values[i-2*rollingDays+1 : i-rollingDays+1])
		if previous == 0 {
			continue
		}
		change[i] = (current - previous) / previous * 100
	}
	return change
}

func points(dates []time.Time, values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(dates))
	for i, d := range dates {
		xys[i] = plotter.XY{X: unix(d), Y: values[i]}
	}
	return xys
}

func unix(t time.Time) float64 {
	return float64(t.Unix())
}
