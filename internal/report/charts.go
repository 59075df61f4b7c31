package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// ROCChart saves the curve with the chance diagonal as an image; the format follows the extension.
func ROCChart(path string, c stats.Curve, auc, ks float64) error {
	if len(c.FPR) == 0 {
		return fmt.Errorf("roc chart: empty curve")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("ROC (AUC %.3f, KS %.3f)", auc, ks)
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, len(c.FPR))
	for i := range c.FPR {
		pts[i].X = c.FPR[i]
		pts[i].Y = c.TPR[i]
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("roc line: %w", err)
	}
	l.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	l.LineStyle.Width = vg.Points(2)
	p.Add(l)

	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return fmt.Errorf("diagonal: %w", err)
	}
	diag.Color = color.Gray{Y: 150}
	diag.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diag)

	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save roc chart: %w", err)
	}
	return nil
}

// IVChart saves a bar chart of information values, one bar per variable.
func IVChart(path string, names []string, iv []float64) error {
	if len(names) == 0 || len(names) != len(iv) {
		return fmt.Errorf("iv chart: need matching names and values")
	}
	p := plot.New()
	p.Title.Text = "Information value"
	p.Y.Label.Text = "IV"

	bars, err := plotter.NewBarChart(plotter.Values(iv), vg.Points(14))
	if err != nil {
		return fmt.Errorf("iv bars: %w", err)
	}
	bars.Color = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 1.2
	p.X.Tick.Label.XAlign = -1

	width := vg.Length(len(names))*20 + 2*vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save iv chart: %w", err)
	}
	return nil
}
