package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fardannozami/nanomid-pair-gateway/internal/domain/pairing"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/browser"
	"go.uber.org/zap"
)

type Credentials struct {
	Email    string
	Password string
}

type Options struct {
	LoginURL         string
	DevicesURL       string
	DashboardTimeout time.Duration
	SettleDelay      time.Duration
	// ScreenshotPath receives a full-page capture when a run fails after
	// launch. Empty disables it.
	ScreenshotPath string
}

// Pairer signs into the target account and pairs one device per call.
type Pairer struct {
	launcher browser.Launcher
	creds    Credentials
	opts     Options
	log      *zap.Logger
}

func NewPairer(launcher browser.Launcher, creds Credentials, opts Options, log *zap.Logger) *Pairer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pairer{launcher: launcher, creds: creds, opts: opts, log: log}
}

// Pair runs the whole login, devices page, fill, submit and confirm flow in a
// fresh browser session. It never returns an error: every failure, panics
// included, comes back as a Result with OK false.
func (p *Pairer) Pair(ctx context.Context, req pairing.Request) pairing.Result {
	if p.creds.Email == "" || p.creds.Password == "" {
		return pairing.Failed(pairing.NewError(pairing.KindConfiguration, "set NANOMID_EMAIL and NANOMID_PASSWORD", nil))
	}

	sess, err := p.launcher.Launch(ctx)
	if err != nil {
		return pairing.Failed(classify(ctx, fmt.Errorf("launch browser: %w", err)))
	}
	defer func() {
		if err := sess.Close(); err != nil {
			p.log.Warn("close browser session", zap.Error(err))
		}
	}()

	err = p.run(ctx, sess.Page(), req)
	if err != nil {
		err = classify(ctx, err)
		p.log.Info("pairing failed", zap.String("label", req.Label), zap.Error(err))
		if !errors.Is(err, pairing.ErrCanceled) {
			p.screenshot(sess.Page())
		}
		return pairing.Failed(err)
	}

	p.log.Info("pairing confirmed", zap.String("label", req.Label))
	return pairing.Succeeded()
}

func (p *Pairer) run(ctx context.Context, page browser.Page, req pairing.Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pairing.NewError(pairing.KindUnexpected, fmt.Sprint(r), nil)
		}
	}()

	if err := p.login(ctx, page); err != nil {
		return err
	}

	if err := page.Goto(ctx, p.opts.DevicesURL); err != nil {
		return fmt.Errorf("open devices page: %w", err)
	}

	if _, err := Fill(ctx, page, otpField, req.OTP); err != nil {
		return err
	}
	if _, err := Fill(ctx, page, labelField, req.Label); err != nil {
		return err
	}
	if _, err := Click(ctx, page, syncControl); err != nil {
		return err
	}

	return p.confirm(ctx, page)
}

func (p *Pairer) login(ctx context.Context, page browser.Page) error {
	if err := page.Goto(ctx, p.opts.LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if _, err := Fill(ctx, page, emailField, p.creds.Email); err != nil {
		return err
	}
	if _, err := Fill(ctx, page, passwordField, p.creds.Password); err != nil {
		return err
	}
	if _, err := Click(ctx, page, loginControl); err != nil {
		return err
	}

	if err := page.WaitForURL(ctx, dashboardURL, p.opts.DashboardTimeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return pairing.NewError(pairing.KindNavigation, "dashboard not reached after login", err)
		}
		return fmt.Errorf("wait for dashboard: %w", err)
	}
	return nil
}

func (p *Pairer) confirm(ctx context.Context, page browser.Page) error {
	if err := sleep(ctx, p.opts.SettleDelay); err != nil {
		return err
	}

	confirmed, err := page.TextVisible(ctx, confirmedMarker)
	if err != nil {
		confirmed = false
	}
	rejected, err := page.TextVisible(ctx, rejectedMarker)
	if err != nil {
		rejected = false
	}

	if confirmed && !rejected {
		return nil
	}
	return pairing.NewError(pairing.KindNotConfirmed, "pairing not confirmed in the UI", nil)
}

// screenshot is best effort. It runs on a fresh context so a passed
// workflow deadline does not cut it short. Cancelled runs skip it since their
// session is being torn down.
func (p *Pairer) screenshot(page browser.Page) {
	if p.opts.ScreenshotPath == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := page.Screenshot(ctx, p.opts.ScreenshotPath); err != nil {
		p.log.Debug("failure screenshot", zap.Error(err))
	}
}

// classify makes sure every failure carries a kind. A cancelled request
// context wins over whatever error the aborted step reported.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return pairing.NewError(pairing.KindCanceled, "request cancelled", err)
	}
	var pe *pairing.Error
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, browser.ErrTimeout) {
		return pairing.NewError(pairing.KindNavigation, "pairing deadline exceeded", err)
	}
	return pairing.NewError(pairing.KindUnexpected, "", err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
