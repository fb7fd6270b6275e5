// Package browsertest provides a scriptable in-memory browser for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/browser"
)

// Element is a scripted DOM element. Only the fields a query can match on
// are modelled.
type Element struct {
	Label       string
	Placeholder string
	Role        string
	Name        string
	Selectors   []string
	Hidden      bool

	FillErr  error
	ClickErr error
	// OnClick runs against the page the element lives on.
	OnClick func(p *Page)

	mu    sync.Mutex
	value string
	fills int
}

func (e *Element) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

func (e *Element) Fills() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fills
}

func (e *Element) matches(q browser.Query) bool {
	switch q.Kind {
	case browser.ByLabel:
		return e.Label != "" && q.Pattern.MatchString(e.Label)
	case browser.ByPlaceholder:
		return e.Placeholder != "" && q.Pattern.MatchString(e.Placeholder)
	case browser.ByRole:
		return e.Role == q.Role && q.Pattern.MatchString(e.Name)
	case browser.BySelector:
		return slices.Contains(e.Selectors, q.Selector)
	}
	return false
}

// Document is what a URL renders.
type Document struct {
	Elements []*Element
	Texts    []string
}

// Site maps URLs to documents and records session lifecycle.
type Site struct {
	mu        sync.Mutex
	docs      map[string]*Document
	LaunchErr error
	GotoErr   map[string]error

	launched int
	closed   int
	sessions []*Session
}

func NewSite() *Site {
	return &Site{docs: make(map[string]*Document), GotoErr: make(map[string]error)}
}

func (s *Site) Handle(url string, doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[url] = doc
}

func (s *Site) doc(url string) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[url]; ok {
		return d
	}
	return &Document{}
}

func (s *Site) Launch(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.LaunchErr != nil {
		return nil, s.LaunchErr
	}
	s.launched++
	sess := &Session{site: s}
	sess.page = &Page{site: s}
	sess.mu.Lock()
	sess.stop = browser.CloseOnCancel(ctx, func() { _ = sess.Close() })
	sess.mu.Unlock()
	s.sessions = append(s.sessions, sess)
	return sess, nil
}

func (s *Site) Launched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launched
}

func (s *Site) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Sessions returns every session launched so far.
func (s *Site) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sessions)
}

type Session struct {
	site   *Site
	page   *Page
	stop   func() bool
	closes int
	mu     sync.Mutex
}

func (s *Session) Page() browser.Page {
	return s.page
}

// FakePage exposes the concrete page for assertions.
func (s *Session) FakePage() *Page {
	return s.page
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closes++
	first := s.closes == 1
	stop := s.stop
	s.mu.Unlock()

	if first {
		if stop != nil {
			stop()
		}
		s.page.markClosed()
		s.site.mu.Lock()
		s.site.closed++
		s.site.mu.Unlock()
	}
	return nil
}

// Closes counts Close calls, including redundant ones.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type Page struct {
	site *Site

	mu          sync.Mutex
	closed      bool
	url         string
	doc         *Document
	extra       []string
	visited     []string
	screenshots []string
}

func (p *Page) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.site.mu.Lock()
	err := p.site.GotoErr[url]
	p.site.mu.Unlock()
	if err != nil {
		return err
	}
	p.Navigate(url)
	return nil
}

// Navigate swaps the rendered document without going through Goto, the way
// a form submit would.
func (p *Page) Navigate(url string) {
	doc := p.site.doc(url)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.doc = doc
	p.extra = nil
	p.visited = append(p.visited, url)
}

// ShowText adds transient text, like a toast.
func (p *Page) ShowText(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extra = append(p.extra, text)
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.visited)
}

func (p *Page) Screenshots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.screenshots)
}

// WaitForURL does not wait: the fake has no background navigation, so an
// unmatched URL is an immediate timeout.
func (p *Page) WaitForURL(ctx context.Context, pattern *regexp.Regexp, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pattern.MatchString(p.URL()) {
		return nil
	}
	return fmt.Errorf("%w: waiting for %s after %s", browser.ErrTimeout, pattern, timeout)
}

func (p *Page) Query(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	doc := p.doc
	p.mu.Unlock()
	if doc == nil {
		return nil, nil
	}

	var out []browser.Element
	for _, el := range doc.Elements {
		if el.matches(q) {
			out = append(out, &handle{el: el, page: p})
		}
	}
	return out, nil
}

func (p *Page) TextVisible(ctx context.Context, pattern *regexp.Regexp) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var texts []string
	if p.doc != nil {
		texts = append(texts, p.doc.Texts...)
	}
	texts = append(texts, p.extra...)
	for _, t := range texts {
		if pattern.MatchString(t) {
			return true, nil
		}
	}
	return false, nil
}

func (p *Page) markClosed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *Page) Screenshot(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("target page, context or browser has been closed")
	}
	if path == "" {
		return errors.New("empty screenshot path")
	}
	p.screenshots = append(p.screenshots, path)
	return nil
}

type handle struct {
	el   *Element
	page *Page
}

// ElementOf returns the scripted element behind a handle produced by Query.
func ElementOf(e browser.Element) (*Element, bool) {
	h, ok := e.(*handle)
	if !ok {
		return nil, false
	}
	return h.el, true
}

func (h *handle) Visible(ctx context.Context) (bool, error) {
	return !h.el.Hidden, ctx.Err()
}

func (h *handle) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.el.FillErr != nil {
		return h.el.FillErr
	}
	h.el.mu.Lock()
	h.el.value = value
	h.el.fills++
	h.el.mu.Unlock()
	return nil
}

func (h *handle) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.el.ClickErr != nil {
		return h.el.ClickErr
	}
	if h.el.OnClick != nil {
		h.el.OnClick(h.page)
	}
	return nil
}
