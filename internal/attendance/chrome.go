package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	loginIDSelector  = "#loginIdField"
	passwordSelector = "#passwordField"
)

// ChromeOptions configures the headless Chrome launcher.
type ChromeOptions struct {
	// ExecPath points at the browser binary. chromedp searches the usual
	// install locations when empty.
	ExecPath string
	// Headful shows the browser window. Useful only for local debugging.
	Headful bool
}

// ChromeBrowser launches one headless Chrome process per session.
type ChromeBrowser struct {
	opts ChromeOptions
}

// NewChromeBrowser returns a Browser backed by chromedp.
func NewChromeBrowser(opts ChromeOptions) *ChromeBrowser {
	return &ChromeBrowser{opts: opts}
}

// Open starts a browser process and a single tab.
func (b *ChromeBrowser) Open(ctx context.Context) (Session, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.DisableGPU,
		chromedp.WindowSize(1280, 800),
	)
	if b.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ExecPath))
	}
	if b.opts.Headful {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	// The browser must outlive the per-step contexts, so it is bound to a
	// context that only Close cancels.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	session := &chromeSession{tabCtx: tabCtx, cancel: func() {
		cancelTab()
		cancelAlloc()
	}}
	if err := session.run(ctx); err != nil {
		session.Close()
		return nil, fmt.Errorf("launching chrome: %w", err)
	}
	return session, nil
}

type chromeSession struct {
	tabCtx context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// run executes actions on the tab while honouring ctx's deadline and
// cancellation.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if len(actions) == 0 {
		return chromedp.Run(s.tabCtx)
	}
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitForLoginForm(ctx context.Context) error {
	return s.run(ctx,
		chromedp.WaitVisible(loginIDSelector, chromedp.ByQuery),
		chromedp.WaitVisible(passwordSelector, chromedp.ByQuery),
	)
}

func (s *chromeSession) SubmitLogin(ctx context.Context, email, password string) error {
	return s.run(ctx,
		chromedp.SendKeys(loginIDSelector, email, chromedp.ByQuery),
		chromedp.SendKeys(passwordSelector, password+kb.Enter, chromedp.ByQuery),
	)
}

func (s *chromeSession) WaitForNavigation(ctx context.Context, fromURL string) error {
	quoted, err := json.Marshal(fromURL)
	if err != nil {
		return err
	}
	expression := fmt.Sprintf(`!location.href.startsWith(%s) && document.readyState === "complete"`, quoted)
	var done bool
	return s.run(ctx, chromedp.Poll(expression, &done))
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var page string
	if err := s.run(ctx, chromedp.OuterHTML("html", &page, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return page, nil
}

func (s *chromeSession) Close() error {
	s.once.Do(s.cancel)
	return nil
}
