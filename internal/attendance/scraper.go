// Package attendance signs in to the attendance portal and extracts per-day
// clock-in and clock-out pairs from the rendered monthly work record page.
//
// The portal has no API. Records are recovered by scanning the page text for a
// day number followed by a time range, which is best effort: days whose layout
// differs simply yield no record.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultLoginURL = "https://accounts.secure.freee.co.jp/login/hr"
	DefaultBaseURL  = "https://p.secure.freee.co.jp"

	DefaultNavigationTimeout = 30 * time.Second
	DefaultReadyTimeout      = 15 * time.Second
	DefaultSettleDelay       = 5 * time.Second
)

// ErrMissingCredentials is returned before any browser is started when the
// email, password or employee identifier is absent.
var ErrMissingCredentials = errors.New("attendance: email, password and employee id are required")

// AuthError reports that signing in to the portal did not complete.
type AuthError struct {
	State State
	Err   error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("attendance: login failed while %s: %v", e.State, e.Err)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Record is one day of scraped attendance. Empty strings mean the value was
// not found on the page.
type Record struct {
	Date       string
	ClockIn    string
	ClockOut   string
	BreakStart string
	BreakEnd   string
}

// Complete reports whether both clock-in and clock-out are present.
func (r Record) Complete() bool {
	return r.ClockIn != "" && r.ClockOut != ""
}

// Credentials identifies the portal account and the employee whose records
// are read.
type Credentials struct {
	Email      string
	Password   string
	EmployeeID string
}

// Complete reports whether every field is set.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.Email) != "" &&
		strings.TrimSpace(c.Password) != "" &&
		strings.TrimSpace(c.EmployeeID) != ""
}

// State is a step of a single scrape.
type State int

const (
	StateLoggedOut State = iota
	StateLoggingIn
	StateLoggedIn
	StatePageLoaded
	StateExtracted
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateLoggingIn:
		return "logging_in"
	case StateLoggedIn:
		return "logged_in"
	case StatePageLoaded:
		return "page_loaded"
	case StateExtracted:
		return "extracted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Browser starts headless browser sessions.
type Browser interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one browser tab. Implementations must make Close safe to call
// after any failure.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitForLoginForm(ctx context.Context) error
	SubmitLogin(ctx context.Context, email, password string) error
	// WaitForNavigation blocks until the page has left fromURL and finished loading.
	WaitForNavigation(ctx context.Context, fromURL string) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Options tunes portal locations and timeouts.
type Options struct {
	LoginURL          string
	BaseURL           string
	NavigationTimeout time.Duration
	ReadyTimeout      time.Duration
	SettleDelay       time.Duration
}

func (o Options) withDefaults() Options {
	if o.LoginURL == "" {
		o.LoginURL = DefaultLoginURL
	}
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = DefaultReadyTimeout
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	return o
}

// PortalScraper walks LoggedOut -> LoggingIn -> LoggedIn -> PageLoaded ->
// Extracted once per Scrape call with a fresh browser session.
type PortalScraper struct {
	browser     Browser
	credentials Credentials
	opts        Options
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *slog.Logger
}

// NewPortalScraper constructs a scraper. A zero SettleDelay in opts is kept as
// is; use DefaultSettleDelay for the portal's rendering time.
func NewPortalScraper(browser Browser, credentials Credentials, opts Options, logger *slog.Logger) *PortalScraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortalScraper{
		browser:     browser,
		credentials: credentials,
		opts:        opts.withDefaults(),
		sleep:       sleepContext,
		logger:      logger.With("component", "attendance"),
	}
}

// PayMonth returns the payroll month in which work done in (year, month) is
// paid: the following month, rolling December into January.
func PayMonth(year, month int) (int, int) {
	month++
	if month > 12 {
		return year + 1, month - 12
	}
	return year, month
}

// WorkRecordsURL returns the portal page listing the work records paid in the
// pay month of (year, month).
func (s *PortalScraper) WorkRecordsURL(year, month int) string {
	payYear, payMonth := PayMonth(year, month)
	return fmt.Sprintf("%s/#work_records/%d/%d/employees/%s", s.opts.BaseURL, payYear, payMonth, s.credentials.EmployeeID)
}

// Scrape signs in and returns the attendance records of the worked month.
func (s *PortalScraper) Scrape(ctx context.Context, year, month int) (records []Record, err error) {
	if !s.credentials.Complete() {
		return nil, ErrMissingCredentials
	}
	if s.browser == nil {
		return nil, errors.New("attendance: browser not configured")
	}

	logger := s.logger.With("year", year, "month", month)
	state := StateLoggedOut
	advance := func(next State) {
		logger.DebugContext(ctx, "attendance scrape state changed", "from", state.String(), "to", next.String())
		state = next
	}

	session, err := s.browser.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("attendance: starting browser: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.WarnContext(ctx, "failed to close browser session", "error", cerr)
		}
	}()

	if err := s.withTimeout(ctx, s.opts.NavigationTimeout, func(ctx context.Context) error {
		return session.Navigate(ctx, s.opts.LoginURL)
	}); err != nil {
		return nil, &AuthError{State: state, Err: fmt.Errorf("opening login page: %w", err)}
	}
	if err := s.withTimeout(ctx, s.opts.ReadyTimeout, session.WaitForLoginForm); err != nil {
		return nil, &AuthError{State: state, Err: fmt.Errorf("waiting for login form: %w", err)}
	}
	if err := session.SubmitLogin(ctx, s.credentials.Email, s.credentials.Password); err != nil {
		return nil, &AuthError{State: state, Err: fmt.Errorf("submitting credentials: %w", err)}
	}
	advance(StateLoggingIn)

	if err := s.withTimeout(ctx, s.opts.NavigationTimeout, func(ctx context.Context) error {
		return session.WaitForNavigation(ctx, s.opts.LoginURL)
	}); err != nil {
		return nil, &AuthError{State: state, Err: err}
	}
	advance(StateLoggedIn)

	pageURL := s.WorkRecordsURL(year, month)
	logger.InfoContext(ctx, "opening work records page", "url", pageURL)
	if err := s.withTimeout(ctx, s.opts.NavigationTimeout, func(ctx context.Context) error {
		return session.Navigate(ctx, pageURL)
	}); err != nil {
		return nil, fmt.Errorf("attendance: opening work records page: %w", err)
	}
	if err := s.sleep(ctx, s.opts.SettleDelay); err != nil {
		return nil, err
	}
	advance(StatePageLoaded)

	page, err := session.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("attendance: reading work records page: %w", err)
	}
	records, err = ParseHTML(strings.NewReader(page), year, month)
	if err != nil {
		return nil, err
	}
	advance(StateExtracted)

	logger.InfoContext(ctx, "attendance records extracted", "count", len(records))
	return records, nil
}

func (s *PortalScraper) withTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(stepCtx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
