package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rcsgugs/gugs-db/internal/distance"
	"github.com/rcsgugs/gugs-db/internal/logger"
	"github.com/rcsgugs/gugs-db/internal/metrics"
	"github.com/rcsgugs/gugs-db/internal/result"
)

// ErrEmptyQuery is returned for a blank runner name.
var ErrEmptyQuery = errors.New("runner name must not be empty")

// Confidence is the interval level of every forecast.
const Confidence = 0.95

// Outcome is the forecast result for one distance category.
type Outcome struct {
	Category     string
	Observations int
	Distances    []int // distance_km of each timed result
	Model        *Model
	Prediction   *Prediction
	Err          error
}

// Message renders the outcome for display.
func (o Outcome) Message() string {
	switch {
	case o.Err != nil:
		return fmt.Sprintf("Could not fit a model for category %s: %v", o.Category, o.Err)
	case o.Prediction == nil:
		return fmt.Sprintf("There was only %d race(s) in category %s. Not enough for estimation", o.Observations, o.Category)
	}
	p := o.Prediction
	return fmt.Sprintf("The prediction for the next race in category %s is %s with 95 %% confidence interval [%s, %s]",
		o.Category, FormatMinutes(p.Mean), FormatMinutes(p.Lower), FormatMinutes(p.Upper))
}

// Report is the forecast for one name query.
type Report struct {
	Query    string
	Matched  []string // distinct runner names, in order of first result
	Outcomes []Outcome
}

// Notice returns the disambiguation warning when several runners matched.
func (r *Report) Notice() string {
	if len(r.Matched) < 2 {
		return ""
	}
	names := strings.Join(r.Matched[:len(r.Matched)-1], ", ") + ", and " + r.Matched[len(r.Matched)-1]
	return fmt.Sprintf("Runners %s have been included in the prediction. If this is incorrect, try using a full name search.", names)
}

// Messages returns the notice, if any, followed by one message per category.
func (r *Report) Messages() []string {
	msgs := make([]string, 0, len(r.Outcomes)+1)
	if n := r.Notice(); n != "" {
		msgs = append(msgs, n)
	}
	for _, o := range r.Outcomes {
		msgs = append(msgs, o.Message())
	}
	return msgs
}

// Forecaster produces per-category forecasts.
type Forecaster struct {
	log     *logger.Logger
	metrics *metrics.Recorder
}

// Option configures a Forecaster.
type Option func(*Forecaster)

// WithMetrics counts forecast outcomes on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(f *Forecaster) { f.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(f *Forecaster) { f.log = l }
}

// New creates a Forecaster.
func New(opts ...Option) *Forecaster {
	f := &Forecaster{}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.Named("forecast")
	}
	return f
}

// Forecast matches query against rows and forecasts each distance category
// the matched runners have raced in. Rows are ordered by race year, event
// month and race before grouping, so each series runs oldest first.
// Categories are reported shortest distance first.
func (f *Forecaster) Forecast(query string, rows []*result.Row) *Report {
	report := &Report{Query: query}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return report
	}

	matched := make([]*result.Row, 0)
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.RaceYear != b.RaceYear {
			return a.RaceYear < b.RaceYear
		}
		if a.RaceMonth != b.RaceMonth {
			return a.RaceMonth < b.RaceMonth
		}
		return a.Race < b.Race
	})

	seen := make(map[string]bool)
	groups := make(map[string][]*result.Row)
	var order []string
	for _, r := range matched {
		if !seen[r.Name] {
			seen[r.Name] = true
			report.Matched = append(report.Matched, r.Name)
		}
		if _, ok := groups[r.DistanceCat]; !ok {
			order = append(order, r.DistanceCat)
		}
		groups[r.DistanceCat] = append(groups[r.DistanceCat], r)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return categoryLess(order[i], order[j])
	})
	for _, cat := range order {
		out := f.forecastGroup(cat, groups[cat])
		report.Outcomes = append(report.Outcomes, out)
	}

	f.log.Info("Forecast complete", logger.Fields{
		"query":      query,
		"runners":    len(report.Matched),
		"categories": len(report.Outcomes),
	})
	return report
}

// categoryLess orders known categories by distance and any others by label
// after them.
func categoryLess(a, b string) bool {
	ia, ib := distance.CategoryIndex(a), distance.CategoryIndex(b)
	switch {
	case ia >= 0 && ib >= 0:
		return ia < ib
	case ia >= 0:
		return true
	case ib >= 0:
		return false
	default:
		return a < b
	}
}

func (f *Forecaster) forecastGroup(cat string, rows []*result.Row) Outcome {
	out := Outcome{Category: cat}
	minutes := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.Time == nil {
			continue
		}
		minutes = append(minutes, r.Time.Minutes())
		out.Distances = append(out.Distances, r.DistanceKM)
	}
	out.Observations = len(minutes)

	if len(minutes) <= 1 {
		f.metrics.ForecastOutcome("insufficient")
		return out
	}

	model, err := Fit(minutes)
	if err != nil {
		out.Err = err
		f.metrics.ForecastOutcome("failed")
		f.log.Warn("Model fit failed", logger.Fields{"category": cat, "observations": len(minutes), "error": err.Error()})
		return out
	}

	p := model.Predict(Confidence)
	out.Model = model
	out.Prediction = &p
	f.metrics.ForecastOutcome("fitted")
	f.log.Debug("Model fitted", logger.Fields{
		"category":     cat,
		"order":        model.Order.String(),
		"observations": len(minutes),
		"distances":    out.Distances,
	})
	return out
}

// Predict returns the forecast messages for name over rows.
func Predict(name string, rows []*result.Row) ([]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyQuery
	}
	return New().Forecast(name, rows).Messages(), nil
}

// FormatMinutes renders minutes as H:MM:SS, dropping sub-second precision.
// Negative values clamp to zero; a day or more is prefixed "N day(s), ".
func FormatMinutes(minutes float64) string {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes < 0 {
		minutes = 0
	}
	secs := int64(math.Floor(minutes * 60))
	days := secs / 86400
	secs %= 86400

	clock := fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
	switch {
	case days == 1:
		return "1 day, " + clock
	case days > 1:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
	return clock
}
