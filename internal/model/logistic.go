package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingleClass is returned when the training target holds one class only.
var ErrSingleClass = errors.New("target has a single class")

// FitOptions controls the Newton solver.
type FitOptions struct {
	// C is the inverse L2 penalty; the intercept is not penalised.
	C       float64
	MaxIter int
	Tol     float64
}

// Logistic is a fitted binary logistic regression.
type Logistic struct {
	Features  []string
	Intercept float64
	Coef      []float64
	Iter      int
	Converged bool
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// log1pexp is log(1+e^z) without overflow.
func log1pexp(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func design(cols [][]float64, n int) *mat.Dense {
	a := mat.NewDense(n, len(cols)+1, nil)
	for r := 0; r < n; r++ {
		a.Set(r, 0, 1)
		for j, c := range cols {
			v := c[r]
			if math.IsNaN(v) {
				v = 0
			}
			a.Set(r, j+1, v)
		}
	}
	return a
}

// Fit estimates the model by iteratively reweighted least squares with step
// halving. cols holds one slice per feature; missing values count as zero.
func Fit(names []string, cols [][]float64, y []float64, opt FitOptions) (*Logistic, error) {
	if len(cols) == 0 {
		return nil, errors.New("no features to fit")
	}
	if opt.C <= 0 {
		return nil, fmt.Errorf("inverse penalty must be positive, got %g", opt.C)
	}
	if opt.MaxIter <= 0 {
		opt.MaxIter = 100
	}
	if opt.Tol <= 0 {
		opt.Tol = 1e-8
	}
	n := len(y)
	var pos int
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	if pos == 0 || pos == n {
		return nil, ErrSingleClass
	}

	a := design(cols, n)
	k := len(cols) + 1
	beta := mat.NewVecDense(k, nil)
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	objective := func(b *mat.VecDense) float64 {
		var eta mat.VecDense
		eta.MulVec(a, b)
		var loss float64
		for i := 0; i < n; i++ {
			z := eta.AtVec(i)
			loss += log1pexp(z) - y[i]*z
		}
		for j := 1; j < k; j++ {
			loss += b.AtVec(j) * b.AtVec(j) / (2 * opt.C)
		}
		return loss
	}

	m := &Logistic{Features: append([]string(nil), names...)}
	current := objective(beta)
	for m.Iter = 1; m.Iter <= opt.MaxIter; m.Iter++ {
		var eta mat.VecDense
		eta.MulVec(a, beta)
		p := mat.NewVecDense(n, nil)
		aw := mat.NewDense(n, k, nil)
		for i := 0; i < n; i++ {
			pi := sigmoid(eta.AtVec(i))
			p.SetVec(i, pi)
			w := math.Max(pi*(1-pi), 1e-10)
			for j := 0; j < k; j++ {
				aw.Set(i, j, a.At(i, j)*w)
			}
		}

		var resid, grad mat.VecDense
		resid.SubVec(p, yv)
		grad.MulVec(a.T(), &resid)
		var h mat.Dense
		h.Mul(a.T(), aw)
		for j := 1; j < k; j++ {
			grad.SetVec(j, grad.AtVec(j)+beta.AtVec(j)/opt.C)
			h.Set(j, j, h.At(j, j)+1/opt.C)
		}

		step, err := newtonStep(&h, &grad)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", m.Iter, err)
		}

		scale := 1.0
		var next mat.VecDense
		for {
			next.AddScaledVec(beta, -scale, step)
			if obj := objective(&next); obj <= current || scale < 1e-10 {
				current = obj
				break
			}
			scale /= 2
		}
		var delta float64
		for j := 0; j < k; j++ {
			delta = math.Max(delta, math.Abs(next.AtVec(j)-beta.AtVec(j)))
		}
		beta.CopyVec(&next)
		if delta < opt.Tol {
			m.Converged = true
			break
		}
	}
	if m.Iter > opt.MaxIter {
		m.Iter = opt.MaxIter
	}

	m.Intercept = beta.AtVec(0)
	m.Coef = make([]float64, k-1)
	for j := range m.Coef {
		m.Coef[j] = beta.AtVec(j + 1)
	}
	return m, nil
}

func newtonStep(h *mat.Dense, g *mat.VecDense) (*mat.VecDense, error) {
	k, _ := h.Dims()
	sym := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			sym.SetSym(i, j, (h.At(i, j)+h.At(j, i))/2)
		}
	}
	var step mat.VecDense
	var chol mat.Cholesky
	if chol.Factorize(sym) {
		if err := chol.SolveVecTo(&step, g); err == nil {
			return &step, nil
		}
	}
	if err := step.SolveVec(h, g); err != nil {
		return nil, fmt.Errorf("solve newton system: %w", err)
	}
	return &step, nil
}

// Predict returns the event probability for each row of cols, which must be
// ordered like m.Features.
func (m *Logistic) Predict(cols [][]float64) []float64 {
	if len(cols) == 0 {
		return nil
	}
	n := len(cols[0])
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		z := m.Intercept
		for j, c := range cols {
			if v := c[i]; !math.IsNaN(v) {
				z += m.Coef[j] * v
			}
		}
		out[i] = sigmoid(z)
	}
	return out
}
