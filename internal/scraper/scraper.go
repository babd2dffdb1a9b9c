package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rcsgugs/gugs-db/internal/logger"
	"github.com/rcsgugs/gugs-db/internal/workbook"
)

const (
	CalendarURL  = "http://www.wpa.org.za/calendar/dynamicevents.aspx"
	DefaultTheme = "Road"
	UserAgent    = "gugs-db/1.0 (github.com/rcsgugs/gugs-db)"
	Timeout      = 30 * time.Second
)

// ErrFutureMonth is returned when asked to scrape a month that has not
// started yet.
var ErrFutureMonth = errors.New("month is in the future")

// Scraper fetches calendar listings and downloads result files.
type Scraper struct {
	client      *http.Client
	url         string
	theme       string
	maxAttempts int
	wait        time.Duration
	now         func() time.Time
	log         *logger.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithURL sets the calendar page URL.
func WithURL(u string) Option {
	return func(s *Scraper) { s.url = u }
}

// WithTheme sets the event theme filter.
func WithTheme(theme string) Option {
	return func(s *Scraper) { s.theme = theme }
}

// WithRetry sets the download attempt limit and the wait between attempts.
func WithRetry(attempts int, wait time.Duration) Option {
	return func(s *Scraper) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
		s.wait = wait
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

// WithClock overrides the current time used to skip future months.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// New creates a new Scraper instance
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client:      &http.Client{Timeout: Timeout},
		url:         CalendarURL,
		theme:       DefaultTheme,
		maxAttempts: 5,
		wait:        2 * time.Second,
		now:         time.Now,
		log:         logger.Named("scraper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchLinks returns the result file links listed for month and year.
func (s *Scraper) FetchLinks(ctx context.Context, year int, month time.Month) ([]string, error) {
	base, err := url.Parse(s.url)
	if err != nil {
		return nil, fmt.Errorf("parsing calendar URL: %w", err)
	}
	q := base.Query()
	q.Set("month", strconv.Itoa(int(month)))
	q.Set("year", strconv.Itoa(year))
	if s.theme != "" {
		q.Set("theme", s.theme)
	}
	base.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return parseLinks(resp.Body, base)
}

// parseLinks extracts result file links from the calendar HTML, resolved
// against base and deduplicated in page order.
func parseLinks(r io.Reader, base *url.URL) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	seen := make(map[string]bool)
	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if !isResultFile(href) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	})
	return links, nil
}

func isResultFile(href string) bool {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	ext := strings.ToLower(path.Ext(href))
	for _, e := range workbook.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Download saves link into dir, retrying failed attempts. It returns the
// written path.
func (s *Scraper) Download(ctx context.Context, link, dir string) (string, error) {
	name, err := fileName(link)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(dir, name)

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.wait):
			}
		}

		lastErr = s.fetchTo(ctx, link, dest)
		if lastErr == nil {
			return dest, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.log.Warn("Download attempt failed", logger.Fields{
			"url":     link,
			"attempt": attempt,
			"error":   lastErr.Error(),
		})
	}
	return "", fmt.Errorf("downloading %s after %d attempts: %w", link, s.maxAttempts, lastErr)
}

func (s *Scraper) fetchTo(ctx context.Context, link, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

func fileName(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parsing link: %w", err)
	}
	name, err := url.PathUnescape(path.Base(u.Path))
	if err != nil {
		name = path.Base(u.Path)
	}
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("link has no file name: %s", link)
	}
	return filepath.Base(name), nil
}

// MonthDir returns the download folder for one month.
func MonthDir(root string, year int, month time.Month) string {
	return filepath.Join(root, strconv.Itoa(year), month.String()[:3])
}

// ScrapeMonth downloads every result file listed for month into its month
// folder under root. A file that fails all attempts is logged and skipped.
func (s *Scraper) ScrapeMonth(ctx context.Context, root string, year int, month time.Month) ([]string, error) {
	now := s.now()
	if year > now.Year() || (year == now.Year() && month > now.Month()) {
		return nil, fmt.Errorf("%w: %s %d", ErrFutureMonth, month, year)
	}

	links, err := s.FetchLinks(ctx, year, month)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		s.log.Info("No result files listed", logger.Fields{"year": year, "month": month.String()})
		return nil, nil
	}

	dir := MonthDir(root, year, month)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	saved := make([]string, 0, len(links))
	for _, link := range links {
		dest, err := s.Download(ctx, link, dir)
		if err != nil {
			if ctx.Err() != nil {
				return saved, ctx.Err()
			}
			s.log.Error("Skipping result file", logger.Fields{"url": link}, err)
			continue
		}
		saved = append(saved, dest)
	}

	s.log.Info("Downloaded result files", logger.Fields{
		"year":  year,
		"month": month.String(),
		"files": len(saved),
		"dir":   dir,
	})
	return saved, nil
}

// ScrapeYear scrapes every month of year up to the current one.
func (s *Scraper) ScrapeYear(ctx context.Context, root string, year int) ([]string, error) {
	var saved []string
	for m := time.January; m <= time.December; m++ {
		files, err := s.ScrapeMonth(ctx, root, year, m)
		if errors.Is(err, ErrFutureMonth) {
			break
		}
		if err != nil {
			return saved, fmt.Errorf("scraping %s %d: %w", m, year, err)
		}
		saved = append(saved, files...)
	}
	return saved, nil
}
