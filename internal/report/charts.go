package report

import (
	"fmt"
	"image/color"

	"github.com/antijam/mimo-controller/internal/rollout"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	sinrColor   = color.RGBA{R: 70, G: 130, B: 180, A: 255} // steelblue
	berColor    = color.RGBA{R: 255, G: 165, A: 255}        // orange
	rewardColor = color.RGBA{R: 46, G: 139, B: 87, A: 255}  // seagreen

	plotShapes = []draw.GlyphDrawer{draw.CircleGlyph{}, draw.SquareGlyph{}, draw.CrossGlyph{}}
)

// #region evaluation-curve
// EvaluationCurve plots per-episode SINR, BER and total reward. The image
// format follows the file extension (.png, .svg, .pdf).
func EvaluationCurve(path, title string, results []rollout.EpisodeResult) error {
	if len(results) == 0 {
		return ErrNoData
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Episode"
	p.Add(plotter.NewGrid())

	sinr := make(plotter.XYs, len(results))
	ber := make(plotter.XYs, len(results))
	reward := make(plotter.XYs, len(results))
	for i, r := range results {
		x := float64(r.Episode)
		sinr[i] = plotter.XY{X: x, Y: r.AvgSINR}
		ber[i] = plotter.XY{X: x, Y: r.AvgBER}
		reward[i] = plotter.XY{X: x, Y: r.TotalReward}
	}

	series := []struct {
		label string
		pts   plotter.XYs
		color color.Color
	}{
		{"Avg SINR (dB)", sinr, sinrColor},
		{"Avg BER", ber, berColor},
		{"Total Reward", reward, rewardColor},
	}
	for i, s := range series {
		line, points, err := plotter.NewLinePoints(s.pts)
		if err != nil {
			return fmt.Errorf("line %s: %w", s.label, err)
		}
		line.Color = s.color
		points.Color = s.color
		points.Shape = plotShapes[i%len(plotShapes)]
		p.Add(line, points)
		p.Legend.Add(s.label, line, points)
	}
	p.Legend.Top = true

	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

// #endregion evaluation-curve

// #region comparison-bars
// ComparisonBars draws grouped SINR/BER/reward bars, one group per policy.
func ComparisonBars(path, title string, summaries []rollout.Summary) error {
	if len(summaries) == 0 {
		return ErrNoData
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Value"
	p.Add(plotter.NewGrid())

	sinr := make(plotter.Values, len(summaries))
	ber := make(plotter.Values, len(summaries))
	reward := make(plotter.Values, len(summaries))
	names := make([]string, len(summaries))
	for i, s := range summaries {
		sinr[i], ber[i], reward[i] = s.AvgSINR, s.AvgBER, s.AvgReward
		names[i] = s.Policy
	}

	width := vg.Points(20)
	groups := []struct {
		label  string
		values plotter.Values
		color  color.Color
		offset vg.Length
	}{
		{"SINR (dB)", sinr, sinrColor, -width},
		{"BER", ber, berColor, 0},
		{"Reward", reward, rewardColor, width},
	}
	for _, g := range groups {
		bars, err := plotter.NewBarChart(g.values, width)
		if err != nil {
			return fmt.Errorf("bars %s: %w", g.label, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = g.color
		bars.Offset = g.offset
		p.Add(bars)
		p.Legend.Add(g.label, bars)
	}
	p.Legend.Top = true
	p.NominalX(names...)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

// #endregion comparison-bars
