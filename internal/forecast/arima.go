package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// period is the seasonal cycle of a daily series: one week.
const period = 7

// order is a seasonal ARIMA(p,d,q)(P,D,Q)[7] specification.
type order struct {
	p, d, q    int
	sp, sd, sq int
}

func (o order) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)(%d,%d,%d)[%d]", o.p, o.d, o.q, o.sp, o.sd, o.sq, period)
}

func (o order) arLag() int { return o.p + period*o.sp }

func (o order) params(intercept bool) int {
	n := o.p + o.q + o.sp + o.sq
	if intercept {
		n++
	}
	return n
}

// errTooShort marks an order the series cannot support. It is not a fit
// failure: the search simply skips the candidate.
var errTooShort = errors.New("series too short for order")

// model is a fitted ARMA on the differenced series w.
//
// w[t] = mu + sum_i ar[i]*(w[t-i]-mu) + e[t] + sum_j ma[j]*e[t-j]
//
// ar and ma hold the expanded products of the non-seasonal and seasonal
// polynomials; index 0 is unused.
type model struct {
	order     order
	intercept bool
	ar, ma    []float64
	mu        float64
	sigma2    float64
	aic       float64
	w         []float64
	resid     []float64
	levels    [][]float64
	lags      []int
}

// pacfToCoef maps unconstrained values to the coefficients of a stationary
// AR polynomial through partial autocorrelations in (-1, 1).
func pacfToCoef(x []float64) []float64 {
	phi := make([]float64, len(x))
	prev := make([]float64, len(x))
	for k := range x {
		r := math.Tanh(x[k])
		copy(prev, phi)
		phi[k] = r
		for j := 0; j < k; j++ {
			phi[j] = prev[j] - r*prev[k-1-j]
		}
	}
	return phi
}

// lagPoly builds 1 + sign*sum c[i] B^((i+1)*step).
func lagPoly(c []float64, step int, sign float64) []float64 {
	p := make([]float64, len(c)*step+1)
	p[0] = 1
	for i, v := range c {
		p[(i+1)*step] = sign * v
	}
	return p
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// unpack turns an optimizer vector into expanded AR/MA polynomials and mean.
func unpack(x []float64, o order, intercept bool) (arPoly, maPoly []float64, mu float64) {
	k := 0
	take := func(n int) []float64 {
		v := x[k : k+n]
		k += n
		return v
	}
	phi := pacfToCoef(take(o.p))
	theta := pacfToCoef(take(o.q))
	sphi := pacfToCoef(take(o.sp))
	stheta := pacfToCoef(take(o.sq))
	if intercept {
		mu = x[k]
	}
	// invertible MA: 1 + sum theta B^j with theta = -phi of a stationary AR
	arPoly = polyMul(lagPoly(phi, 1, -1), lagPoly(sphi, period, -1))
	maPoly = polyMul(lagPoly(theta, 1, -1), lagPoly(stheta, period, -1))
	return arPoly, maPoly, mu
}

// cssResiduals runs the conditional-sum-of-squares recursion starting at the
// maximum AR lag. It returns the residuals and the sum of squares.
func cssResiduals(w []float64, arPoly, maPoly []float64, mu float64) ([]float64, float64) {
	start := len(arPoly) - 1
	e := make([]float64, len(w))
	var sse float64
	for t := start; t < len(w); t++ {
		v := w[t] - mu
		for i := 1; i < len(arPoly); i++ {
			v += arPoly[i] * (w[t-i] - mu)
		}
		for j := 1; j < len(maPoly) && t-j >= 0; j++ {
			v -= maPoly[j] * e[t-j]
		}
		e[t] = v
		sse += v * v
	}
	return e, sse
}

const maxEvaluations = 3000

func fit(w []float64, o order, intercept bool) (*model, error) {
	n := len(w) - o.arLag()
	k := o.params(intercept)
	if n < k+3 {
		return nil, errTooShort
	}

	scale := stat.StdDev(w, nil)
	if scale == 0 || math.IsNaN(scale) {
		scale = math.Max(math.Abs(stat.Mean(w, nil)), 1)
	}
	ws := make([]float64, len(w))
	floats.ScaleTo(ws, 1/scale, w)

	objective := func(x []float64) float64 {
		arPoly, maPoly, mu := unpack(x, o, intercept)
		_, sse := cssResiduals(ws, arPoly, maPoly, mu)
		v := math.Log(sse/float64(n) + 1e-12)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 1e10
		}
		return v
	}

	x := make([]float64, k)
	if intercept {
		x[k-1] = stat.Mean(ws, nil)
	}
	if k > 0 {
		res, err := optimize.Minimize(optimize.Problem{Func: objective}, x, &optimize.Settings{
			FuncEvaluations: maxEvaluations,
		}, &optimize.NelderMead{})
		// hitting the evaluation limit still leaves a usable location
		if res == nil {
			if err == nil {
				err = errors.New("optimizer returned no result")
			}
			return nil, &FitError{Model: o.String(), Err: err}
		}
		if !floats.HasNaN(res.X) && !math.IsInf(res.F, 0) {
			x = res.X
		}
	}

	arPoly, maPoly, mu := unpack(x, o, intercept)
	e, sse := cssResiduals(ws, arPoly, maPoly, mu)
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return nil, &FitError{Model: o.String(), Err: errors.New("non-finite residuals")}
	}
	floats.Scale(scale, e)
	sigma2 := sse * scale * scale / float64(n)
	if floor := 1e-10 * scale * scale; sigma2 < floor {
		sigma2 = floor
	}
	loglik := -0.5 * float64(n) * (math.Log(2*math.Pi*sigma2) + 1)

	ar := make([]float64, len(arPoly))
	for i := 1; i < len(arPoly); i++ {
		ar[i] = -arPoly[i]
	}
	return &model{
		order:     o,
		intercept: intercept,
		ar:        ar,
		ma:        maPoly,
		mu:        mu * scale,
		sigma2:    sigma2,
		aic:       -2*loglik + 2*float64(k+1),
		w:         w,
		resid:     e,
	}, nil
}

// predict returns h point forecasts on the original scale together with
// their standard errors.
func (m *model) predict(h int) (mean, se []float64) {
	n := len(m.w)
	ext := make([]float64, n+h)
	copy(ext, m.w)
	e := make([]float64, n+h)
	copy(e, m.resid)
	for t := n; t < n+h; t++ {
		v := m.mu
		for i := 1; i < len(m.ar) && t-i >= 0; i++ {
			v += m.ar[i] * (ext[t-i] - m.mu)
		}
		for j := 1; j < len(m.ma) && t-j >= 0; j++ {
			v += m.ma[j] * e[t-j]
		}
		ext[t] = v
	}
	mean = ext[n:]
	for k := len(m.levels) - 1; k >= 1; k-- {
		mean = integrate(m.levels[k-1], mean, m.lags[k-1])
	}

	psi := m.psiWeights(h)
	se = make([]float64, h)
	var acc float64
	for i := 0; i < h; i++ {
		acc += psi[i] * psi[i]
		se[i] = math.Sqrt(m.sigma2 * acc)
	}
	return mean, se
}

// psiWeights of the full model, differencing included.
func (m *model) psiWeights(h int) []float64 {
	full := make([]float64, len(m.ar))
	full[0] = 1
	for i := 1; i < len(m.ar); i++ {
		full[i] = -m.ar[i]
	}
	for _, lag := range m.lags {
		full = polyMul(full, lagPoly([]float64{1}, lag, -1))
	}
	psi := make([]float64, h)
	psi[0] = 1
	for j := 1; j < h; j++ {
		var v float64
		if j < len(m.ma) {
			v = m.ma[j]
		}
		for i := 1; i < len(full) && i <= j; i++ {
			v -= full[i] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

func diff(x []float64, lag int) []float64 {
	if len(x) <= lag {
		return nil
	}
	out := make([]float64, len(x)-lag)
	for i := range out {
		out[i] = x[i+lag] - x[i]
	}
	return out
}

// integrate undoes one differencing step of the given lag.
func integrate(history, fc []float64, lag int) []float64 {
	ext := make([]float64, len(history), len(history)+len(fc))
	copy(ext, history)
	for _, f := range fc {
		ext = append(ext, f+ext[len(ext)-lag])
	}
	return ext[len(history):]
}

// difference applies d regular then D seasonal differences. levels[0] is the
// input and the last level is the series the ARMA part is fitted on.
func difference(y []float64, d, sd int) ([][]float64, []int) {
	levels := [][]float64{y}
	var lags []int
	for i := 0; i < d; i++ {
		levels = append(levels, diff(levels[len(levels)-1], 1))
		lags = append(lags, 1)
	}
	for i := 0; i < sd; i++ {
		levels = append(levels, diff(levels[len(levels)-1], period))
		lags = append(lags, period)
	}
	return levels, lags
}
