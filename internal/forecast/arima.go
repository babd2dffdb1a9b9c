package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrDegenerateSearch means no candidate order could be estimated from
	// the series, typically because differencing left too few points.
	ErrDegenerateSearch = errors.New("degenerate order search")

	// ErrNonConvergence means every admissible candidate failed to converge.
	ErrNonConvergence = errors.New("model fit did not converge")

	// ErrInsufficientFit means neither the primary search nor the fallback
	// produced a model.
	ErrInsufficientFit = errors.New("insufficient data for a model fit")
)

const (
	maxP     = 2
	maxQ     = 2
	maxD     = 1
	minVar   = 1e-8
	penalty  = 1e12
	kpssCrit = 0.463 // 5% critical value, level stationarity
)

// Order is an ARIMA (p, d, q) order.
type Order struct {
	P, D, Q int
}

func (o Order) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
}

// Model is a fitted non-seasonal ARIMA model with a constant term.
type Model struct {
	Order  Order
	Const  float64
	AR     []float64
	MA     []float64
	Sigma2 float64
	AIC    float64

	last  float64   // last observation of the undifferenced series
	w     []float64 // differenced series
	resid []float64
}

// Prediction is a one-step forecast with its confidence interval.
type Prediction struct {
	Mean  float64
	Lower float64
	Upper float64
}

// Predict forecasts one step ahead with a two-sided interval at level.
func (m *Model) Predict(level float64) Prediction {
	n := len(m.w)
	next := m.Const
	for i, phi := range m.AR {
		next += phi * m.w[n-1-i]
	}
	for j, theta := range m.MA {
		next += theta * m.resid[n-1-j]
	}
	if m.Order.D == 1 {
		next += m.last
	}

	z := distuv.UnitNormal.Quantile(0.5 + level/2)
	half := z * math.Sqrt(m.Sigma2)
	return Prediction{Mean: next, Lower: next - half, Upper: next + half}
}

// searchFunc is an order search over y with differencing order d, where a
// negative d means automatic.
type searchFunc func(y []float64, d int) (*Model, error)

// Fit runs the automatic order search on y, retrying once with d pinned to
// zero when the primary search is degenerate.
func Fit(y []float64) (*Model, error) {
	return fitWith(AutoARIMA, y)
}

func fitWith(search searchFunc, y []float64) (*Model, error) {
	m, err := search(y, -1)
	if errors.Is(err, ErrDegenerateSearch) {
		m, err = search(y, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInsufficientFit, err)
	}
	return m, nil
}

// AutoARIMA selects the order with the lowest AIC over p, q in 0..2. A
// negative d lets a KPSS test choose the differencing order.
func AutoARIMA(y []float64, d int) (*Model, error) {
	if len(y) < 2 {
		return nil, ErrDegenerateSearch
	}
	if d < 0 {
		d = NDiffs(y, maxD)
	}

	w := y
	if d == 1 {
		w = diff(y)
	}

	var (
		best       *Model
		candidates int
		lastErr    error
	)
	for p := 0; p <= maxP; p++ {
		for q := 0; q <= maxQ; q++ {
			if len(w)-p <= p+q+1 {
				continue
			}
			candidates++

			m, err := fitCSS(w, Order{P: p, D: d, Q: q})
			if err != nil {
				lastErr = err
				continue
			}
			if best == nil || m.AIC < best.AIC {
				best = m
			}
		}
	}

	switch {
	case candidates == 0:
		return nil, fmt.Errorf("%w: %d observations after differencing", ErrDegenerateSearch, len(w))
	case best == nil:
		return nil, fmt.Errorf("%w: %v", ErrNonConvergence, lastErr)
	}

	best.last = y[len(y)-1]
	return best, nil
}

// fitCSS estimates one order by conditional sum of squares.
func fitCSS(w []float64, order Order) (*Model, error) {
	p, q := order.P, order.Q
	mean := 0.0
	for _, v := range w {
		mean += v
	}
	mean /= float64(len(w))

	var params []float64
	if p == 0 && q == 0 {
		params = []float64{mean}
	} else {
		x0 := make([]float64, 1+p+q)
		x0[0] = mean
		problem := optimize.Problem{
			Func: func(x []float64) float64 {
				if !admissible(x[1:1+p]) || !admissible(x[1+p:]) {
					return penalty
				}
				sse, _ := css(w, x, p, q)
				return sse
			},
		}
		res, err := optimize.Minimize(problem, x0, &optimize.Settings{FuncEvaluations: 5000}, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", order, err)
		}
		if math.IsNaN(res.F) || res.F >= penalty {
			return nil, fmt.Errorf("%s: no admissible solution", order)
		}
		params = res.X
	}

	sse, resid := css(w, params, p, q)
	m := len(w) - p
	sigma2 := math.Max(sse/float64(m), minVar)
	k := float64(p + q + 2)

	return &Model{
		Order:  order,
		Const:  params[0],
		AR:     append([]float64(nil), params[1:1+p]...),
		MA:     append([]float64(nil), params[1+p:]...),
		Sigma2: sigma2,
		AIC:    float64(m)*math.Log(sigma2) + 2*k,
		w:      w,
		resid:  resid,
	}, nil
}

// css returns the conditional sum of squares and the residual series for
// parameters x = [c, phi..., theta...]. Residuals before index p are zero.
func css(w, x []float64, p, q int) (float64, []float64) {
	c, phi, theta := x[0], x[1:1+p], x[1+p:1+p+q]
	resid := make([]float64, len(w))
	sse := 0.0
	for t := p; t < len(w); t++ {
		e := w[t] - c
		for i := 0; i < p; i++ {
			e -= phi[i] * w[t-1-i]
		}
		for j := 0; j < q; j++ {
			if t-1-j >= 0 {
				e -= theta[j] * resid[t-1-j]
			}
		}
		resid[t] = e
		sse += e * e
	}
	return sse, resid
}

// admissible rejects coefficient sets outside a conservative stationarity
// and invertibility region.
func admissible(coef []float64) bool {
	sum := 0.0
	for _, c := range coef {
		sum += math.Abs(c)
	}
	return sum < 1
}

// NDiffs returns the number of differences, up to limit, after which a KPSS
// level-stationarity test no longer rejects.
func NDiffs(y []float64, limit int) int {
	d := 0
	for d < limit && len(y) >= 4 && KPSS(y) > kpssCrit {
		y = diff(y)
		d++
	}
	return d
}

// KPSS returns the level-stationarity KPSS statistic of y with the
// Schwert lag truncation 4*(n/100)^0.25.
func KPSS(y []float64) float64 {
	n := len(y)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	e := make([]float64, n)
	var partial, eta, s2 float64
	for i, v := range y {
		e[i] = v - mean
		partial += e[i]
		eta += partial * partial
		s2 += e[i] * e[i]
	}
	s2 /= float64(n)

	lags := int(4 * math.Pow(float64(n)/100, 0.25))
	if lags > n-1 {
		lags = n - 1
	}
	for s := 1; s <= lags; s++ {
		cov := 0.0
		for t := s; t < n; t++ {
			cov += e[t] * e[t-s]
		}
		s2 += 2 * (1 - float64(s)/float64(lags+1)) * cov / float64(n)
	}
	if s2 <= 0 {
		return 0
	}
	return eta / (float64(n) * float64(n) * s2)
}

func diff(y []float64) []float64 {
	if len(y) < 2 {
		return nil
	}
	out := make([]float64, len(y)-1)
	for i := 1; i < len(y); i++ {
		out[i-1] = y[i] - y[i-1]
	}
	return out
}
