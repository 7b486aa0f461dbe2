package forecast

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	maxP, maxQ      = 3, 3
	maxSP, maxSQ    = 2, 2
	maxD            = 2
	maxModels       = 94
	kpssCritical    = 0.463 // 5% level, level stationarity
	seasonalTrigger = 0.64
)

// kpssRejects reports whether the KPSS test rejects level stationarity.
func kpssRejects(x []float64) bool {
	n := len(x)
	if n < 3 {
		return false
	}
	mean := stat.Mean(x, nil)
	e := make([]float64, n)
	for i, v := range x {
		e[i] = v - mean
	}
	var s, eta float64
	for _, v := range e {
		s += v
		eta += s * s
	}
	eta /= float64(n) * float64(n)

	lags := int(3 * math.Sqrt(float64(n)) / 13)
	var lrv float64
	for _, v := range e {
		lrv += v * v
	}
	for k := 1; k <= lags; k++ {
		var c float64
		for t := k; t < n; t++ {
			c += e[t] * e[t-k]
		}
		lrv += 2 * (1 - float64(k)/float64(lags+1)) * c
	}
	lrv /= float64(n)
	if lrv <= 0 {
		return false
	}
	return eta/lrv > kpssCritical
}

// seasonalStrength measures how much of the detrended variance a fixed
// weekly profile explains, using a classical moving-average decomposition.
func seasonalStrength(y []float64) float64 {
	n := len(y)
	half := period / 2
	detrended := make([]float64, 0, n)
	pos := make([]int, 0, n)
	for t := half; t < n-half; t++ {
		trend := stat.Mean(y[t-half:t+half+1], nil)
		detrended = append(detrended, y[t]-trend)
		pos = append(pos, t%period)
	}
	var idx [period]float64
	var cnt [period]float64
	for i, v := range detrended {
		idx[pos[i]] += v
		cnt[pos[i]]++
	}
	var centre float64
	for i := range idx {
		if cnt[i] > 0 {
			idx[i] /= cnt[i]
		}
		centre += idx[i]
	}
	centre /= period

	rem := make([]float64, len(detrended))
	for i, v := range detrended {
		rem[i] = v - (idx[pos[i]] - centre)
	}
	total := stat.Variance(detrended, nil)
	if total == 0 || math.IsNaN(total) {
		return 0
	}
	return math.Max(0, 1-stat.Variance(rem, nil)/total)
}

// differencingOrders picks D from the seasonal strength test (needs three
// full weeks) and then d from repeated KPSS tests, keeping d+D <= 2.
func differencingOrders(y []float64) (d, sd int) {
	if len(y) >= 3*period && seasonalStrength(y) > seasonalTrigger {
		sd = 1
	}
	x := y
	if sd == 1 {
		x = diff(y, period)
	}
	for d < maxD-sd && len(x) > 3 && kpssRejects(x) {
		x = diff(x, 1)
		d++
	}
	return d, sd
}

// autoARIMA runs a stepwise AIC search over seasonal ARIMA orders on y.
func autoARIMA(y []float64) (*model, error) {
	d, sd := differencingOrders(y)
	levels, lags := difference(y, d, sd)
	w := levels[len(levels)-1]
	intercept := d+sd <= 1

	var (
		best    *model
		lastErr error
		fitted  = map[order]bool{}
	)
	try := func(o order) bool {
		if o.p < 0 || o.q < 0 || o.sp < 0 || o.sq < 0 ||
			o.p > maxP || o.q > maxQ || o.sp > maxSP || o.sq > maxSQ {
			return false
		}
		if fitted[o] || len(fitted) >= maxModels {
			return false
		}
		fitted[o] = true
		m, err := fit(w, o, intercept)
		if err != nil {
			if !errors.Is(err, errTooShort) {
				lastErr = err
			}
			return false
		}
		if best == nil || m.aic < best.aic {
			best = m
			return true
		}
		return false
	}

	base := order{d: d, sd: sd}
	with := func(p, q, sp, sq int) order {
		o := base
		o.p, o.q, o.sp, o.sq = p, q, sp, sq
		return o
	}
	try(with(2, 2, 1, 1))
	try(with(0, 0, 0, 0))
	try(with(1, 0, 1, 0))
	try(with(0, 1, 0, 1))

	for improved := best != nil; improved; {
		improved = false
		c := best.order
		for _, step := range [][4]int{
			{-1, 0, 0, 0}, {1, 0, 0, 0},
			{0, -1, 0, 0}, {0, 1, 0, 0},
			{-1, -1, 0, 0}, {1, 1, 0, 0},
			{0, 0, -1, 0}, {0, 0, 1, 0},
			{0, 0, 0, -1}, {0, 0, 0, 1},
			{0, 0, -1, -1}, {0, 0, 1, 1},
		} {
			if try(with(c.p+step[0], c.q+step[1], c.sp+step[2], c.sq+step[3])) {
				improved = true
				break
			}
		}
	}

	if best == nil {
		if lastErr == nil {
			lastErr = errTooShort
		}
		return nil, &FitError{Model: base.String(), Err: lastErr}
	}
	best.levels, best.lags = levels, lags
	return best, nil
}
