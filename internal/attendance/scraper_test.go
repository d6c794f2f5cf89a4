package attendance

import (
	"context"
	"errors"
	"testing"
	"time"
)

type browserStub struct {
	session *sessionStub
	openErr error
	opened  int
}

func (b *browserStub) Open(ctx context.Context) (Session, error) {
	b.opened++
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.session, nil
}

type sessionStub struct {
	page          string
	loginFormErr  error
	navigationErr error
	navigated     []string
	submitted     [2]string
	closed        int
	deadlines     []time.Duration
}

func (s *sessionStub) Navigate(ctx context.Context, url string) error {
	s.recordDeadline(ctx)
	s.navigated = append(s.navigated, url)
	return nil
}

func (s *sessionStub) WaitForLoginForm(ctx context.Context) error {
	s.recordDeadline(ctx)
	return s.loginFormErr
}

func (s *sessionStub) SubmitLogin(ctx context.Context, email, password string) error {
	s.submitted = [2]string{email, password}
	return nil
}

func (s *sessionStub) WaitForNavigation(ctx context.Context, fromURL string) error {
	s.recordDeadline(ctx)
	return s.navigationErr
}

func (s *sessionStub) HTML(ctx context.Context) (string, error) {
	return s.page, nil
}

func (s *sessionStub) Close() error {
	s.closed++
	return nil
}

func (s *sessionStub) recordDeadline(ctx context.Context) {
	if deadline, ok := ctx.Deadline(); ok {
		s.deadlines = append(s.deadlines, time.Until(deadline))
	}
}

var testCredentials = Credentials{Email: "worker@example.com", Password: "pw", EmployeeID: "12345"}

func newTestScraper(browser Browser, creds Credentials) *PortalScraper {
	scraper := NewPortalScraper(browser, creds, Options{BaseURL: "https://portal.example/"}, nil)
	scraper.sleep = func(context.Context, time.Duration) error { return nil }
	return scraper
}

func TestPortalScraper_Scrape(t *testing.T) {
	t.Parallel()

	session := &sessionStub{page: `<body><div>5</div><div>10:00 〜 14:00</div><div>6</div><div>未打刻</div></body>`}
	browser := &browserStub{session: session}
	scraper := newTestScraper(browser, testCredentials)

	records, err := scraper.Scrape(context.Background(), 2024, 12)
	if err != nil {
		t.Fatalf("Scrape returned error: %v", err)
	}

	if len(records) != 1 || records[0].Date != "2024-12-05" || records[0].ClockIn != "10:00" || records[0].ClockOut != "14:00" {
		t.Fatalf("unexpected records %+v", records)
	}
	if session.submitted != [2]string{"worker@example.com", "pw"} {
		t.Fatalf("unexpected credentials submitted: %v", session.submitted)
	}
	if len(session.navigated) != 2 {
		t.Fatalf("expected login and work records navigation, got %v", session.navigated)
	}
	if session.navigated[0] != DefaultLoginURL {
		t.Fatalf("expected login URL first, got %q", session.navigated[0])
	}
	if want := "https://portal.example/#work_records/2025/1/employees/12345"; session.navigated[1] != want {
		t.Fatalf("expected %q, got %q", want, session.navigated[1])
	}
	if session.closed != 1 {
		t.Fatalf("expected session to be closed once, got %d", session.closed)
	}
	for _, remaining := range session.deadlines {
		if remaining <= 0 || remaining > DefaultNavigationTimeout {
			t.Fatalf("unexpected step deadline %s", remaining)
		}
	}
}

func TestPortalScraper_MissingCredentials(t *testing.T) {
	t.Parallel()

	browser := &browserStub{session: &sessionStub{}}
	scraper := newTestScraper(browser, Credentials{Email: "worker@example.com"})

	if _, err := scraper.Scrape(context.Background(), 2024, 5); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if browser.opened != 0 {
		t.Fatal("expected no browser to be started without credentials")
	}
}

func TestPortalScraper_AuthFailureClosesSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		session *sessionStub
		state   State
	}{
		{
			name:    "login form never appears",
			session: &sessionStub{loginFormErr: context.DeadlineExceeded},
			state:   StateLoggedOut,
		},
		{
			name:    "still on login page",
			session: &sessionStub{navigationErr: context.DeadlineExceeded},
			state:   StateLoggingIn,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			scraper := newTestScraper(&browserStub{session: tc.session}, testCredentials)
			_, err := scraper.Scrape(context.Background(), 2024, 5)

			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("expected AuthError, got %v", err)
			}
			if authErr.State != tc.state {
				t.Fatalf("expected failure in state %s, got %s", tc.state, authErr.State)
			}
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("expected wrapped deadline error, got %v", err)
			}
			if tc.session.closed != 1 {
				t.Fatalf("expected session to be closed after failure, got %d", tc.session.closed)
			}
		})
	}
}

func TestPortalScraper_BrowserStartFailure(t *testing.T) {
	t.Parallel()

	scraper := newTestScraper(&browserStub{openErr: errors.New("chrome not found")}, testCredentials)
	_, err := scraper.Scrape(context.Background(), 2024, 5)
	if err == nil {
		t.Fatal("expected error when the browser cannot start")
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		t.Fatalf("expected plain error, got AuthError %v", err)
	}
}

func TestPayMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		year, month         int
		wantYear, wantMonth int
	}{
		{2024, 1, 2024, 2},
		{2024, 11, 2024, 12},
		{2024, 12, 2025, 1},
	}
	for _, tc := range tests {
		gotYear, gotMonth := PayMonth(tc.year, tc.month)
		if gotYear != tc.wantYear || gotMonth != tc.wantMonth {
			t.Fatalf("PayMonth(%d, %d): expected %d/%d, got %d/%d", tc.year, tc.month, tc.wantYear, tc.wantMonth, gotYear, gotMonth)
		}
	}
}

func TestCredentialsComplete(t *testing.T) {
	t.Parallel()

	if !testCredentials.Complete() {
		t.Fatal("expected test credentials to be complete")
	}
	if (Credentials{Email: "a", Password: " ", EmployeeID: "1"}).Complete() {
		t.Fatal("expected blank password to be incomplete")
	}
}
