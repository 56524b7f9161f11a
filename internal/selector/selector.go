// Package selector resolves logical fields against rendered markup that
// exists in two generations: the current structured-attribute layout and
// the legacy class-based one. Callers hand the engine an ordered strategy
// list, newest markup first, and get back the first valid hit.
package selector

import (
	"strings"
)

// Engine names the query language a strategy is written in.
type Engine string

const (
	// EngineCSS queries with a CSS selector.
	EngineCSS Engine = "css"
	// EngineText queries by visible text content.
	EngineText Engine = "text"
)

// Strategy is one (query-language, query-string) candidate for locating a
// field. MinLength is the validity threshold for the extracted text; zero
// means any non-empty text passes.
type Strategy struct {
	Engine    Engine
	Query     string
	MinLength int
}

// CSS builds a CSS strategy.
func CSS(query string) Strategy {
	return Strategy{Engine: EngineCSS, Query: query}
}

// CSSMin builds a CSS strategy with a minimum text length.
func CSSMin(query string, minLen int) Strategy {
	return Strategy{Engine: EngineCSS, Query: query, MinLength: minLen}
}

// Text builds a visible-text strategy.
func Text(query string) Strategy {
	return Strategy{Engine: EngineText, Query: query}
}

// Match is a located element. Implementations wrap whatever element handle
// the automation layer produced.
type Match interface {
	// Text returns the element's visible text.
	Text() (string, error)
	// Attr returns an attribute value and whether it was present.
	Attr(name string) (string, bool)
}

// Context is a queryable element scope: either a full page or a card
// subtree. Find applies one strategy within the adapter's bounded wait and
// reports whether anything was located. Querying has no side effects.
type Context interface {
	Find(s Strategy) (Match, bool)
}

// Resolve evaluates strategies in order and returns the text of the first
// one that locates an element whose trimmed text passes the strategy's
// validity predicate. Later strategies are not evaluated after a hit.
// Exhausting the list is an absence, not an error.
func Resolve(ctx Context, strategies []Strategy) (string, bool) {
	for _, s := range strategies {
		m, ok := ctx.Find(s)
		if !ok {
			continue
		}
		text, err := m.Text()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if valid(text, s.MinLength) {
			return text, true
		}
	}
	return "", false
}

// ResolveAttr evaluates strategies in order and returns the first
// non-empty value among the preferred attribute names of the first located
// element that carries any of them.
func ResolveAttr(ctx Context, strategies []Strategy, attrs ...string) (string, bool) {
	for _, s := range strategies {
		m, ok := ctx.Find(s)
		if !ok {
			continue
		}
		for _, name := range attrs {
			if v, present := m.Attr(name); present && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
	}
	return "", false
}

func valid(text string, minLen int) bool {
	if text == "" {
		return false
	}
	if minLen > 0 && len(text) < minLen {
		return false
	}
	return true
}
