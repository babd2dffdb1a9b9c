package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rcsgugs/gugs-db/internal/classify"
	"github.com/rcsgugs/gugs-db/internal/distance"
	"github.com/rcsgugs/gugs-db/internal/duration"
	"github.com/rcsgugs/gugs-db/internal/logger"
	"github.com/rcsgugs/gugs-db/internal/metrics"
	"github.com/rcsgugs/gugs-db/internal/result"
	"github.com/rcsgugs/gugs-db/internal/unify"
	"github.com/rcsgugs/gugs-db/internal/workbook"
)

// ErrNullName means a unified row has no runner name. The source format is
// not handled and the table must not be persisted.
var ErrNullName = errors.New("result row without a name")

// Builder turns a directory of workbooks into a result table.
type Builder struct {
	classifier *classify.Classifier
	unifier    *unify.Unifier
	resolver   *distance.Resolver
	metrics    *metrics.Recorder
	log        *logger.Logger
	now        func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithClassifier sets the sheet classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(b *Builder) { b.classifier = c }
}

// WithUnifier sets the column unifier.
func WithUnifier(u *unify.Unifier) Option {
	return func(b *Builder) { b.unifier = u }
}

// WithResolver sets the distance resolver.
func WithResolver(r *distance.Resolver) Option {
	return func(b *Builder) { b.resolver = r }
}

// WithMetrics records ingestion metrics on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// WithClock overrides the time source used for table metadata.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New creates a Builder. Components not supplied as options use their
// defaults.
func New(opts ...Option) (*Builder, error) {
	b := &Builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}

	if b.log == nil {
		b.log = logger.Named("builder")
	}
	if b.classifier == nil {
		b.classifier = classify.New()
	}
	if b.unifier == nil {
		u, err := unify.New(unify.DefaultRules())
		if err != nil {
			return nil, err
		}
		b.unifier = u
	}
	if b.resolver == nil {
		r, err := distance.NewResolver(nil)
		if err != nil {
			return nil, fmt.Errorf("loading distance corrections: %w", err)
		}
		b.resolver = r
	}
	return b, nil
}

// Build assembles the table for year from the workbooks under root. When
// root/<year> exists it is used as the year folder, otherwise root itself.
func (b *Builder) Build(ctx context.Context, year int, root string) (*result.Table, error) {
	start := b.now()
	dir := YearDir(root, year)

	events, err := eventDirs(dir)
	if err != nil {
		return nil, err
	}

	table := result.NewTable(year)
	table.RunID = uuid.NewString()

	b.log.Info("Building result table", logger.Fields{
		"year":   year,
		"dir":    dir,
		"events": len(events),
		"marker": b.classifier.Marker().String(),
		"run_id": table.RunID,
	})

	var batches []batch
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if converted, err := workbook.ConvertDir(event); err != nil {
			b.log.Warn("CSV conversion failed", logger.Fields{"dir": event, "error": err.Error()})
		} else if len(converted) > 0 {
			b.log.Debug("Converted CSV files", logger.Fields{"dir": event, "files": len(converted)})
		}

		paths, err := workbook.List(event)
		if err != nil {
			return nil, err
		}
		month := 0
		if event != dir {
			month = EventMonth(filepath.Base(event))
		}
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			src, results, ok := b.readWorkbook(path, dir)
			if !ok {
				continue
			}
			table.Sources = append(table.Sources, src)
			batches = append(batches, batch{month: month, records: unify.Concat(results)})
		}
	}

	rows, err := b.clean(batches, year)
	if err != nil {
		return nil, err
	}
	table.Rows = rows
	table.BuiltAt = b.now().UTC()

	nulls := 0
	for _, r := range rows {
		if r.Time == nil {
			nulls++
		}
	}
	b.metrics.RowsIngested(len(rows), nulls)
	b.metrics.ObserveBuild(b.now().Sub(start))

	b.log.Info("Built result table", logger.Fields{
		"year":       year,
		"workbooks":  len(table.Sources),
		"rows":       len(rows),
		"null_times": nulls,
	})
	return table, nil
}

// readWorkbook opens one workbook and unifies its usable sheets. ok is false
// when the workbook could not be read.
func (b *Builder) readWorkbook(path, base string) (result.Source, []*unify.Result, bool) {
	src := result.Source{Path: path}
	if rel, err := filepath.Rel(base, path); err == nil {
		src.Path = rel
	}

	sum, err := checksum(path)
	if err != nil {
		b.log.Warn("Skipping unreadable workbook", logger.Fields{"path": path, "error": err.Error()})
		b.metrics.WorkbookStatus("failed")
		return src, nil, false
	}
	src.Checksum = sum

	sheets, err := workbook.Open(path)
	if err != nil {
		b.log.Warn("Skipping unreadable workbook", logger.Fields{"path": path, "error": err.Error()})
		b.metrics.WorkbookStatus("failed")
		return src, nil, false
	}
	b.metrics.WorkbookStatus("opened")
	src.Sheets = len(sheets)

	results := make([]*unify.Result, 0, len(sheets))
	for _, sheet := range sheets {
		cls := b.classifier.Classify(sheet)
		if !cls.Accepted {
			b.metrics.SheetOutcome(string(cls.Reason))
			b.log.Debug("Sheet rejected", logger.Fields{
				"workbook": sheet.Workbook,
				"sheet":    sheet.Name,
				"reason":   string(cls.Reason),
			})
			continue
		}

		res := b.unifier.Unify(cls.Sheet)
		if res.Skip != nil {
			b.metrics.SheetOutcome("skipped")
			continue
		}
		b.metrics.SheetOutcome("accepted")
		src.Accepted++
		results = append(results, res)
	}
	return src, results, true
}

// batch holds the unified records of one workbook and the month of its
// event folder.
type batch struct {
	month   int
	records []unify.Record
}

// clean converts unified records into canonical rows.
func (b *Builder) clean(batches []batch, year int) ([]*result.Row, error) {
	rows := make([]*result.Row, 0)
	var nameless []string

	for _, bt := range batches {
		for _, rec := range bt.records {
			row, ok, err := b.cleanRecord(rec, year, bt.month)
			if err != nil {
				return nil, err
			}
			if !ok {
				nameless = append(nameless, row.Race)
				continue
			}
			rows = append(rows, row)
		}
	}

	if len(nameless) > 0 {
		return nil, fmt.Errorf("%w: %d rows, first in race %q", ErrNullName, len(nameless), nameless[0])
	}
	return rows, nil
}

// cleanRecord builds one row. ok is false when the record has no name.
func (b *Builder) cleanRecord(rec unify.Record, year, month int) (*result.Row, bool, error) {
	row := &result.Row{
		Pos:       parsePos(rec.Pos),
		Name:      normalizeString(rec.Name),
		Race:      normalizeString(rec.Race),
		Sex:       normalizeSex(rec.Sex),
		Age:       normalizeString(rec.Age),
		Cat:       normalizeString(rec.Cat),
		LicNo:     normalizeString(rec.LicNo),
		RaceYear:  year,
		RaceMonth: month,
	}
	if row.Name == "" {
		return row, false, nil
	}

	if c, ok := duration.Parse(rec.Time); ok {
		row.Time = &c
	}

	km, cat, err := b.resolver.Resolve(row.Race, row.Name)
	if err != nil {
		return nil, false, err
	}
	row.DistanceKM = km
	row.DistanceCat = cat
	row.ID = result.GenerateID(row.Race, row.Name, row.Pos, row.Time)
	return row, true, nil
}

// YearDir returns the folder holding the events of year.
func YearDir(root string, year int) string {
	candidate := filepath.Join(root, strconv.Itoa(year))
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate
	}
	return root
}

// EventMonth returns the month named by an event folder ("Mar", "march" or
// "3"), or 0 when the name is not a month.
func EventMonth(name string) int {
	name = strings.TrimSpace(name)
	if n, err := strconv.Atoi(name); err == nil {
		if n >= 1 && n <= 12 {
			return n
		}
		return 0
	}
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(name, m.String()) || strings.EqualFold(name, m.String()[:3]) {
			return int(m)
		}
	}
	return 0
}

// eventDirs returns dir followed by its subdirectories: month folders in
// calendar order, then any others by name.
func eventDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}

	dirs := []string{dir}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		mi, mj := monthKey(names[i]), monthKey(names[j])
		if mi != mj {
			return mi < mj
		}
		return names[i] < names[j]
	})
	for _, n := range names {
		dirs = append(dirs, filepath.Join(dir, n))
	}
	return dirs, nil
}

func monthKey(name string) int {
	if m := EventMonth(name); m > 0 {
		return m
	}
	return 13
}

func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}

func normalizeString(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// parsePos accepts "12" and spreadsheet floats such as "12.0".
func parsePos(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) || f < 0 {
		return nil
	}
	n := int(f)
	return &n
}

func normalizeSex(s string) string {
	switch normalizeString(s) {
	case "m", "male", "man":
		return "male"
	case "f", "female", "woman", "l", "lady":
		return "female"
	}
	return ""
}
