package automation

import (
	"context"
	"fmt"
	"regexp"

	"github.com/fardannozami/nanomid-pair-gateway/internal/domain/pairing"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/browser"
)

// Strategy is one tier of a selector-fallback cascade.
type Strategy interface {
	Name() string
	// Candidates returns matching elements, in pattern order.
	Candidates(ctx context.Context, page browser.Page) ([]browser.Element, error)
}

type queryStrategy struct {
	name    string
	queries []browser.Query
}

func (s queryStrategy) Name() string { return s.name }

func (s queryStrategy) Candidates(ctx context.Context, page browser.Page) ([]browser.Element, error) {
	var out []browser.Element
	for _, q := range s.queries {
		found, err := page.Query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q, err)
		}
		out = append(out, found...)
	}
	return out, nil
}

func ByLabel(patterns ...*regexp.Regexp) Strategy {
	return patternStrategy("label", browser.ByLabel, "", patterns)
}

func ByPlaceholder(patterns ...*regexp.Regexp) Strategy {
	return patternStrategy("placeholder", browser.ByPlaceholder, "", patterns)
}

func ByRole(role string, names ...*regexp.Regexp) Strategy {
	return patternStrategy("role "+role, browser.ByRole, role, names)
}

func BySelector(selectors ...string) Strategy {
	qs := make([]browser.Query, 0, len(selectors))
	for _, sel := range selectors {
		qs = append(qs, browser.Query{Kind: browser.BySelector, Selector: sel})
	}
	return queryStrategy{name: "selector", queries: qs}
}

func patternStrategy(name string, kind browser.QueryKind, role string, patterns []*regexp.Regexp) Strategy {
	qs := make([]browser.Query, 0, len(patterns))
	for _, p := range patterns {
		qs = append(qs, browser.Query{Kind: kind, Pattern: p, Role: role})
	}
	return queryStrategy{name: name, queries: qs}
}

// Resolve walks strategies in order and returns the first visible candidate
// of the first tier that has one, plus that tier's name. A nil element means
// no tier matched.
func Resolve(ctx context.Context, page browser.Page, strategies []Strategy) (browser.Element, string, error) {
	for _, s := range strategies {
		candidates, err := s.Candidates(ctx, page)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", s.Name(), err)
		}
		for _, el := range candidates {
			visible, err := el.Visible(ctx)
			if err != nil {
				return nil, "", fmt.Errorf("%s: visibility: %w", s.Name(), err)
			}
			if visible {
				return el, s.Name(), nil
			}
		}
	}
	return nil, "", nil
}

// Field is an input located through a cascade.
type Field struct {
	Name       string
	Strategies []Strategy
}

// Control is a clickable element located through a cascade.
type Control struct {
	Name       string
	Strategies []Strategy
}

// Fill resolves f and types value into it. It returns the tier used.
func Fill(ctx context.Context, page browser.Page, f Field, value string) (string, error) {
	el, tier, err := Resolve(ctx, page, f.Strategies)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", f.Name, err)
	}
	if el == nil {
		return "", pairing.NewError(pairing.KindFieldNotFound, f.Name+" field not found", nil)
	}
	if err := el.Fill(ctx, value); err != nil {
		return tier, fmt.Errorf("fill %s: %w", f.Name, err)
	}
	return tier, nil
}

// Click resolves c and clicks it. It returns the tier used.
func Click(ctx context.Context, page browser.Page, c Control) (string, error) {
	el, tier, err := Resolve(ctx, page, c.Strategies)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", c.Name, err)
	}
	if el == nil {
		return "", pairing.NewError(pairing.KindControlNotFound, c.Name+" control not found", nil)
	}
	if err := el.Click(ctx); err != nil {
		return tier, fmt.Errorf("click %s: %w", c.Name, err)
	}
	return tier, nil
}
