package crawler

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/fuelrx/costco-inventory-scraper/internal/selector"
)

// PlaywrightPage adapts a playwright page to the navigable-page
// capability. Page-level lookups wait up to readyTimeout; card-local
// lookups inside elements wait up to cardTimeout.
type PlaywrightPage struct {
	page         playwright.Page
	navTimeout   time.Duration
	readyTimeout time.Duration
	cardTimeout  time.Duration
}

func NewPlaywrightPage(page playwright.Page, navTimeout, readyTimeout, cardTimeout time.Duration) *PlaywrightPage {
	if navTimeout == 0 {
		navTimeout = 30 * time.Second
	}
	if readyTimeout == 0 {
		readyTimeout = 10 * time.Second
	}
	if cardTimeout == 0 {
		cardTimeout = time.Second
	}
	return &PlaywrightPage{
		page:         page,
		navTimeout:   navTimeout,
		readyTimeout: readyTimeout,
		cardTimeout:  cardTimeout,
	}
}

func (p *PlaywrightPage) Navigate(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(p.navTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *PlaywrightPage) Content() (string, error) {
	return p.page.Content()
}

func (p *PlaywrightPage) ScrollBy(pixels int) error {
	_, err := p.page.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", pixels))
	return err
}

func (p *PlaywrightPage) ScrollTop() error {
	_, err := p.page.Evaluate("window.scrollTo(0, 0)")
	return err
}

// Find locates the first match for a strategy within the page-level wait
// budget. Misses report absence, never an error.
func (p *PlaywrightPage) Find(s selector.Strategy) (selector.Match, bool) {
	loc := p.locator(s).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(p.readyTimeout.Milliseconds())),
	})
	if err != nil {
		return nil, false
	}
	return &playwrightElement{loc: loc, timeout: p.cardTimeout}, true
}

func (p *PlaywrightPage) QueryAll(s selector.Strategy) ([]Element, error) {
	loc := p.locator(s)
	count, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count matches for %q: %w", s.Query, err)
	}

	elements := make([]Element, 0, count)
	for i := 0; i < count; i++ {
		elements = append(elements, &playwrightElement{
			loc:     loc.Nth(i),
			timeout: p.cardTimeout,
		})
	}
	return elements, nil
}

func (p *PlaywrightPage) locator(s selector.Strategy) playwright.Locator {
	return p.page.Locator(translateStrategy(s))
}

// playwrightElement is the subtree-scoped adapter.
type playwrightElement struct {
	loc     playwright.Locator
	timeout time.Duration
}

func (e *playwrightElement) Find(s selector.Strategy) (selector.Match, bool) {
	loc := e.loc.Locator(translateStrategy(s)).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(e.timeout.Milliseconds())),
	})
	if err != nil {
		return nil, false
	}
	return &playwrightElement{loc: loc, timeout: e.timeout}, true
}

func (e *playwrightElement) Text() (string, error) {
	text, err := e.loc.TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(float64(e.timeout.Milliseconds())),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return text, nil
}

func (e *playwrightElement) Attr(name string) (string, bool) {
	value, err := e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(float64(e.timeout.Milliseconds())),
	})
	if err != nil || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

func (e *playwrightElement) Ancestor(levels int) (Element, bool) {
	if levels < 1 {
		return nil, false
	}
	loc := e.loc.Locator(fmt.Sprintf("xpath=ancestor::*[%d]", levels))
	count, err := loc.Count()
	if err != nil || count == 0 {
		return nil, false
	}
	return &playwrightElement{loc: loc.First(), timeout: e.timeout}, true
}

func (e *playwrightElement) Click() error {
	return e.loc.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(e.timeout.Milliseconds())),
	})
}

func (e *playwrightElement) Fill(value string) error {
	return e.loc.Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(float64(e.timeout.Milliseconds())),
	})
}

// translateStrategy maps a query strategy onto playwright's selector
// syntax.
func translateStrategy(s selector.Strategy) string {
	if s.Engine == selector.EngineText {
		return "text=" + s.Query
	}
	return s.Query
}
