package forecast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linear(n int, start, step float64) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = start + step*float64(i)
	}
	return y
}

func alternating(n int) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = 1
		if i%2 == 1 {
			y[i] = -1
		}
	}
	return y
}

func TestKPSS(t *testing.T) {
	assert.InDelta(t, 0.7709, KPSS(linear(20, 1, 1)), 1e-3)
	assert.InDelta(t, 0.075, KPSS(alternating(20)), 1e-6)
	assert.Zero(t, KPSS([]float64{3, 3, 3, 3}))
}

func TestNDiffs(t *testing.T) {
	assert.Equal(t, 1, NDiffs(linear(20, 1, 1), 1))
	assert.Equal(t, 0, NDiffs(alternating(20), 1))
	assert.Equal(t, 0, NDiffs(linear(3, 1, 1), 1), "too short to test")
	assert.Equal(t, 0, NDiffs(linear(20, 1, 1), 0))
}

func TestAutoARIMA_Trend(t *testing.T) {
	y := linear(20, 40, -0.5)

	m, err := AutoARIMA(y, -1)
	require.NoError(t, err)
	assert.Equal(t, Order{P: 0, D: 1, Q: 0}, m.Order)

	p := m.Predict(Confidence)
	assert.InDelta(t, 30.0, p.Mean, 1e-6)
	assert.LessOrEqual(t, p.Lower, p.Mean)
	assert.GreaterOrEqual(t, p.Upper, p.Mean)
}

func TestAutoARIMA_TwoObservations(t *testing.T) {
	m, err := AutoARIMA([]float64{80, 110}, -1)
	require.NoError(t, err)
	assert.Equal(t, Order{}, m.Order)
	assert.InDelta(t, 95.0, m.Const, 1e-9)
	assert.InDelta(t, 225.0, m.Sigma2, 1e-9)

	p := m.Predict(Confidence)
	assert.InDelta(t, 95.0, p.Mean, 1e-9)
	assert.InDelta(t, 95.0-1.959964*15, p.Lower, 1e-4)
	assert.InDelta(t, 95.0+1.959964*15, p.Upper, 1e-4)
}

func TestAutoARIMA_Noisy(t *testing.T) {
	y := []float64{30, 31, 29, 30.5, 29.5, 30.2, 30.1, 29.8, 30.4, 29.9}

	m, err := AutoARIMA(y, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Order.D)
	for _, c := range append(append([]float64{}, m.AR...), m.MA...) {
		assert.Less(t, c*c, 1.0)
	}

	p := m.Predict(Confidence)
	assert.InDelta(t, 30, p.Mean, 2)
	assert.Less(t, p.Lower, p.Mean)
	assert.Greater(t, p.Upper, p.Mean)
}

func TestFit_Degenerate(t *testing.T) {
	_, err := AutoARIMA([]float64{42}, -1)
	assert.ErrorIs(t, err, ErrDegenerateSearch)

	_, err = Fit([]float64{42})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientFit))
	assert.True(t, errors.Is(err, ErrDegenerateSearch))
}

func TestOrder_String(t *testing.T) {
	assert.Equal(t, "ARIMA(1,0,2)", Order{P: 1, Q: 2}.String())
}

func TestFit_RetriesWithoutDifferencing(t *testing.T) {
	var calls []int
	search := func(y []float64, d int) (*Model, error) {
		calls = append(calls, d)
		if d < 0 {
			return nil, ErrDegenerateSearch
		}
		return AutoARIMA(y, d)
	}

	m, err := fitWith(search, []float64{90, 100, 95, 105})
	require.NoError(t, err)
	assert.Equal(t, []int{-1, 0}, calls)
	assert.Equal(t, 0, m.Order.D)
}

func TestFit_NoRetryOnNonConvergence(t *testing.T) {
	var calls []int
	search := func(y []float64, d int) (*Model, error) {
		calls = append(calls, d)
		return nil, ErrNonConvergence
	}

	_, err := fitWith(search, []float64{90, 100, 95, 105})
	assert.ErrorIs(t, err, ErrInsufficientFit)
	assert.ErrorIs(t, err, ErrNonConvergence)
	assert.Equal(t, []int{-1}, calls)
}

func TestFit_RetryFailsToo(t *testing.T) {
	search := func(y []float64, d int) (*Model, error) {
		return nil, ErrDegenerateSearch
	}

	_, err := fitWith(search, []float64{90, 100})
	assert.ErrorIs(t, err, ErrInsufficientFit)
	assert.ErrorIs(t, err, ErrDegenerateSearch)
}
