package collinear

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/scoreloom-cli/internal/frame"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// ErrTooFewFeatures is returned when VIF needs at least two features.
var ErrTooFewFeatures = errors.New("vif needs at least two features")

// VIFRow is the variance inflation factor of one variable.
type VIFRow struct {
	Variable string
	VIF      float64
}

// rcond is the relative singular value cutoff for the least-squares rank.
const rcond = 1e-10

// VIF regresses each candidate on the others plus a constant, with missing
// values replaced by the column mean, and returns 1/(1-R²) sorted descending.
// Columns with no observations are left out. A perfect fit yields +Inf.
func VIF(ctx context.Context, f *frame.Frame, opt Options) ([]VIFRow, error) {
	var vars []string
	var cols [][]float64
	for _, v := range candidates(f, opt) {
		x, _ := f.Num(v)
		m := stats.Mean(x)
		if math.IsNaN(m) {
			continue
		}
		filled := make([]float64, len(x))
		for i, xv := range x {
			if math.IsNaN(xv) {
				xv = m
			}
			filled[i] = xv
		}
		vars = append(vars, v)
		cols = append(cols, filled)
	}
	if len(vars) < 2 {
		return nil, ErrTooFewFeatures
	}
	n := f.Rows()
	if n <= len(vars) {
		return nil, fmt.Errorf("vif: %d rows for %d features", n, len(vars))
	}

	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	rows := make([]VIFRow, len(vars))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range vars {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := inflation(cols, i)
			if err != nil {
				return fmt.Errorf("vif %s: %w", vars[i], err)
			}
			rows[i] = VIFRow{Variable: vars[i], VIF: v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].VIF > rows[b].VIF })
	return rows, nil
}

// inflation computes 1/(1-R²) of column target regressed on the rest.
func inflation(cols [][]float64, target int) (float64, error) {
	n := len(cols[target])
	k := len(cols)
	a := mat.NewDense(n, k, nil)
	for r := 0; r < n; r++ {
		a.Set(r, 0, 1)
		c := 1
		for j := range cols {
			if j == target {
				continue
			}
			a.Set(r, c, cols[j][r])
			c++
		}
	}
	y := mat.NewVecDense(n, append([]float64(nil), cols[target]...))

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return 0, errors.New("svd factorization failed")
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return 0, errors.New("design matrix has rank zero")
	}
	var beta mat.VecDense
	svd.SolveVecTo(&beta, y, rank)

	var fitted mat.VecDense
	fitted.MulVec(a, &beta)
	mean := stats.Mean(cols[target])
	var ssr, sst float64
	for r := 0; r < n; r++ {
		d := y.AtVec(r) - fitted.AtVec(r)
		ssr += d * d
		c := y.AtVec(r) - mean
		sst += c * c
	}
	if sst == 0 {
		return math.NaN(), nil
	}
	r2 := 1 - ssr/sst
	if r2 >= 1 {
		return math.Inf(1), nil
	}
	return 1 / (1 - r2), nil
}

// VIFFrame is the variable, VIF table.
func VIFFrame(rows []VIFRow) *frame.Frame {
	names := make([]string, len(rows))
	v := make([]float64, len(rows))
	for i, r := range rows {
		names[i], v[i] = r.Variable, r.VIF
	}
	return frame.MustFromColumns(frame.StringColumn("variable", names), frame.NumericColumn("VIF", v))
}
