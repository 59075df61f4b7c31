package build

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
)

// deriver adds columns to a frame, skipping any column whose inputs are absent.
type deriver struct {
	f       *frame.Frame
	log     *slog.Logger
	rng     *rand.Rand
	asOf    time.Time
	stage   string
	added   int
	skipped []string
}

func in(names ...string) []string { return names }

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func floorDiv(v, d float64) float64 { return math.Floor(v / d) }

func (d *deriver) rows() int { return d.f.Rows() }

func (d *deriver) skip(name string, inputs []string) {
	d.skipped = append(d.skipped, name)
	d.log.Debug("derived column skipped", "stage", d.stage, "column", name, "inputs", inputs)
}

func (d *deriver) set(c *frame.Column) {
	if !d.f.Has(c.Name) {
		d.added++
	}
	d.f.Set(c)
}

func (d *deriver) cols(names []string) ([][]float64, bool) {
	out := make([][]float64, len(names))
	for i, n := range names {
		x, ok := d.f.Num(n)
		if !ok {
			return nil, false
		}
		out[i] = x
	}
	return out, true
}

func (d *deriver) apply(inputs []string, fn func(row []float64, i int)) bool {
	cols, ok := d.cols(inputs)
	if !ok {
		return false
	}
	row := make([]float64, len(cols))
	for i := 0; i < d.rows(); i++ {
		for j, c := range cols {
			row[j] = c[i]
		}
		fn(row, i)
	}
	return true
}

// num sets name to fn of the row values of the numeric inputs.
func (d *deriver) num(name string, inputs []string, fn func(v []float64) float64) {
	out := make([]float64, d.rows())
	if !d.apply(inputs, func(row []float64, i int) { out[i] = fn(row) }) {
		d.skip(name, inputs)
		return
	}
	d.set(frame.NumericColumn(name, out))
}

// str sets name to the label fn gives the row values of the numeric inputs.
// Rows with a NaN input get no label.
func (d *deriver) str(name string, inputs []string, fn func(v []float64) string) {
	out := make([]string, d.rows())
	ok := d.apply(inputs, func(row []float64, i int) {
		for _, v := range row {
			if math.IsNaN(v) {
				return
			}
		}
		out[i] = fn(row)
	})
	if !ok {
		d.skip(name, inputs)
		return
	}
	d.set(frame.StringColumn(name, out))
}

// fromText sets name to fn of the text of column src.
func (d *deriver) fromText(name, src string, fn func(s string) float64) {
	c, err := d.f.Column(src)
	if err != nil {
		d.skip(name, in(src))
		return
	}
	out := make([]float64, d.rows())
	for i := range out {
		out[i] = fn(c.Text(i))
	}
	d.set(frame.NumericColumn(name, out))
}

func (d *deriver) textFromText(name, src string, fn func(s string) string) {
	c, err := d.f.Column(src)
	if err != nil {
		d.skip(name, in(src))
		return
	}
	out := make([]string, d.rows())
	for i := range out {
		out[i] = fn(c.Text(i))
	}
	d.set(frame.StringColumn(name, out))
}

// alias copies src under a second name.
func (d *deriver) alias(name, src string) {
	c, err := d.f.Column(src)
	if err != nil {
		d.skip(name, in(src))
		return
	}
	if c.Kind == frame.Numeric {
		d.set(frame.NumericColumn(name, append([]float64(nil), c.Num...)))
		return
	}
	d.set(frame.StringColumn(name, append([]string(nil), c.Str...)))
}

// fill adds a constant numeric column unless it already exists.
func (d *deriver) fill(name string, v float64) {
	if d.f.Has(name) {
		return
	}
	out := make([]float64, d.rows())
	for i := range out {
		out[i] = v
	}
	d.set(frame.NumericColumn(name, out))
}

func (d *deriver) label(name, v string) {
	out := make([]string, d.rows())
	for i := range out {
		out[i] = v
	}
	d.set(frame.StringColumn(name, out))
}

// random adds a column drawn from gen unless it already exists.
func (d *deriver) random(name string, gen func() float64) {
	if d.f.Has(name) {
		return
	}
	out := make([]float64, d.rows())
	for i := range out {
		out[i] = gen()
	}
	d.set(frame.NumericColumn(name, out))
}

// days sets name to the whole days from the date column from to the date
// column to; NaN when either date is unreadable.
func (d *deriver) days(name, from, to string) {
	a, aOK, hasA := d.f.Dates(from)
	b, bOK, hasB := d.f.Dates(to)
	if !hasA || !hasB {
		d.skip(name, in(from, to))
		return
	}
	out := make([]float64, d.rows())
	for i := range out {
		out[i] = math.NaN()
		if aOK[i] && bOK[i] {
			out[i] = math.Floor(b[i].Sub(a[i]).Hours() / 24)
		}
	}
	d.set(frame.NumericColumn(name, out))
}

// sinceAsOf sets name to whole days from the date column src to the as-of date.
func (d *deriver) sinceAsOf(name, src string) {
	ts, ok, found := d.f.Dates(src)
	if !found {
		d.skip(name, in(src))
		return
	}
	out := make([]float64, d.rows())
	for i := range out {
		out[i] = math.NaN()
		if ok[i] {
			out[i] = math.Floor(d.asOf.Sub(ts[i]).Hours() / 24)
		}
	}
	d.set(frame.NumericColumn(name, out))
}

// dateField extracts a calendar field from the date column src.
func (d *deriver) dateField(name, src string, fn func(t time.Time) float64) {
	ts, ok, found := d.f.Dates(src)
	if !found {
		d.skip(name, in(src))
		return
	}
	out := make([]float64, d.rows())
	for i := range out {
		out[i] = math.NaN()
		if ok[i] {
			out[i] = fn(ts[i])
		}
	}
	d.set(frame.NumericColumn(name, out))
}
