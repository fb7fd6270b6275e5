// Package browser is the small slice of a headless browser the pairing
// workflow needs: one isolated session per launch, a page, and element
// lookups by label, placeholder, role or CSS selector.
package browser

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// ErrTimeout is returned when a wait runs out of time.
var ErrTimeout = errors.New("browser: timeout")

type Launcher interface {
	// Launch opens a fresh, isolated browser session. The caller owns it
	// and must Close it.
	Launch(ctx context.Context) (Session, error)
}

type Session interface {
	Page() Page
	// Close releases the session. Safe to call more than once.
	Close() error
}

type Page interface {
	Goto(ctx context.Context, url string) error
	URL() string
	WaitForURL(ctx context.Context, pattern *regexp.Regexp, timeout time.Duration) error
	Query(ctx context.Context, q Query) ([]Element, error)
	TextVisible(ctx context.Context, pattern *regexp.Regexp) (bool, error)
	Screenshot(ctx context.Context, path string) error
}

type Element interface {
	Visible(ctx context.Context) (bool, error)
	Fill(ctx context.Context, value string) error
	Click(ctx context.Context) error
}

type QueryKind int

const (
	ByLabel QueryKind = iota
	ByPlaceholder
	ByRole
	BySelector
)

func (k QueryKind) String() string {
	switch k {
	case ByLabel:
		return "label"
	case ByPlaceholder:
		return "placeholder"
	case ByRole:
		return "role"
	case BySelector:
		return "selector"
	default:
		return "unknown"
	}
}

// Query describes one element lookup. Pattern is used for label,
// placeholder and role name matching; Selector for raw CSS.
type Query struct {
	Kind     QueryKind
	Pattern  *regexp.Regexp
	Role     string
	Selector string
}

func (q Query) String() string {
	switch q.Kind {
	case BySelector:
		return "selector " + q.Selector
	case ByRole:
		return "role " + q.Role + " " + patternString(q.Pattern)
	default:
		return q.Kind.String() + " " + patternString(q.Pattern)
	}
}

func patternString(re *regexp.Regexp) string {
	if re == nil {
		return "<nil>"
	}
	return "/" + re.String() + "/"
}

// CloseOnCancel runs closeFn once ctx is cancelled by the caller. A passed
// deadline does not close the session: step timeouts are already capped by it
// and the page stays usable for a failure screenshot.
func CloseOnCancel(ctx context.Context, closeFn func()) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		if errors.Is(ctx.Err(), context.Canceled) {
			closeFn()
		}
	})
}

// StepTimeout caps a per-step timeout by whatever is left of ctx's deadline.
func StepTimeout(ctx context.Context, want time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return want
	}
	left := time.Until(deadline)
	if left <= 0 {
		return time.Millisecond
	}
	if want <= 0 || left < want {
		return left
	}
	return want
}
