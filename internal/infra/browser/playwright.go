package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	pw "github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const (
	defaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124 Safari/537.36"
	defaultStepTimeout = 30 * time.Second
)

type PlaywrightConfig struct {
	ExecutablePath string
	// Install downloads the driver (and Chromium unless ExecutablePath is set)
	// before the first launch.
	Install     bool
	UserAgent   string
	StepTimeout time.Duration
}

// PlaywrightLauncher shares one driver process and starts a new headless
// Chromium for every Launch.
type PlaywrightLauncher struct {
	cfg PlaywrightConfig
	log *zap.Logger

	mu sync.Mutex
	pw *pw.Playwright
}

func NewPlaywrightLauncher(cfg PlaywrightConfig, log *zap.Logger) *PlaywrightLauncher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = defaultStepTimeout
	}
	return &PlaywrightLauncher{cfg: cfg, log: log}
}

func (l *PlaywrightLauncher) driver() (*pw.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pw != nil {
		return l.pw, nil
	}

	if l.cfg.Install {
		l.log.Info("installing playwright driver")
		err := pw.Install(&pw.RunOptions{
			SkipInstallBrowsers: l.cfg.ExecutablePath != "",
			Verbose:             false,
		})
		if err != nil {
			l.log.Warn("playwright install", zap.Error(err))
		}
	}

	p, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	l.pw = p
	return p, nil
}

func (l *PlaywrightLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := l.driver()
	if err != nil {
		return nil, err
	}

	opts := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(true),
		Args:     []string{"--no-sandbox", "--disable-gpu"},
	}
	if l.cfg.ExecutablePath != "" {
		opts.ExecutablePath = pw.String(l.cfg.ExecutablePath)
	}

	b, err := p.Chromium.Launch(opts)
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	bctx, err := b.NewContext(pw.BrowserNewContextOptions{
		UserAgent: pw.String(l.cfg.UserAgent),
	})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("new context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(millis(l.cfg.StepTimeout))

	s := &playwrightSession{
		browser: b,
		page:    &playwrightPage{page: page, stepTimeout: l.cfg.StepTimeout},
	}
	// Closing the browser aborts whatever call is in flight.
	s.mu.Lock()
	s.stop = CloseOnCancel(ctx, func() { _ = s.Close() })
	s.mu.Unlock()

	return s, nil
}

// Close stops the shared driver process.
func (l *PlaywrightLauncher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	return err
}

type playwrightSession struct {
	browser pw.Browser
	page    *playwrightPage

	mu   sync.Mutex
	stop func() bool
	once sync.Once
	err  error
}

func (s *playwrightSession) Page() Page {
	return s.page
}

func (s *playwrightSession) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		stop := s.stop
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		s.err = s.browser.Close()
	})
	return s.err
}

type playwrightPage struct {
	page        pw.Page
	stepTimeout time.Duration
}

func (p *playwrightPage) timeout(ctx context.Context) *float64 {
	return pw.Float(millis(StepTimeout(ctx, p.stepTimeout)))
}

func (p *playwrightPage) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateDomcontentloaded,
		Timeout:   p.timeout(ctx),
	})
	return mapErr(err)
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) WaitForURL(ctx context.Context, pattern *regexp.Regexp, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.WaitForURL(pattern, pw.PageWaitForURLOptions{
		Timeout: pw.Float(millis(StepTimeout(ctx, timeout))),
	})
	return mapErr(err)
}

func (p *playwrightPage) locator(q Query) (pw.Locator, error) {
	switch q.Kind {
	case ByLabel:
		return p.page.GetByLabel(q.Pattern), nil
	case ByPlaceholder:
		return p.page.GetByPlaceholder(q.Pattern), nil
	case ByRole:
		return p.page.GetByRole(pw.AriaRole(q.Role), pw.PageGetByRoleOptions{Name: q.Pattern}), nil
	case BySelector:
		return p.page.Locator(q.Selector), nil
	default:
		return nil, fmt.Errorf("unsupported query kind %d", q.Kind)
	}
}

func (p *playwrightPage) Query(ctx context.Context, q Query) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc, err := p.locator(q)
	if err != nil {
		return nil, err
	}
	all, err := loc.All()
	if err != nil {
		return nil, mapErr(err)
	}

	out := make([]Element, 0, len(all))
	for _, l := range all {
		out = append(out, &playwrightElement{loc: l, page: p})
	}
	return out, nil
}

func (p *playwrightPage) TextVisible(ctx context.Context, pattern *regexp.Regexp) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	visible, err := p.page.GetByText(pattern).First().IsVisible()
	if err != nil {
		return false, mapErr(err)
	}
	return visible, nil
}

func (p *playwrightPage) Screenshot(ctx context.Context, path string) error {
	_, err := p.page.Screenshot(pw.PageScreenshotOptions{
		Path:     pw.String(path),
		FullPage: pw.Bool(true),
		Timeout:  p.timeout(ctx),
	})
	return mapErr(err)
}

type playwrightElement struct {
	loc  pw.Locator
	page *playwrightPage
}

func (e *playwrightElement) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	visible, err := e.loc.IsVisible()
	return visible, mapErr(err)
}

func (e *playwrightElement) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapErr(e.loc.Fill(value, pw.LocatorFillOptions{Timeout: e.page.timeout(ctx)}))
}

func (e *playwrightElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapErr(e.loc.Click(pw.LocatorClickOptions{Timeout: e.page.timeout(ctx)}))
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pw.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func millis(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}
