package crawler

import (
	"github.com/fuelrx/costco-inventory-scraper/internal/selector"
)

// Page is the navigable-page capability the controller drives. The
// playwright adapter implements it for real runs; tests use a fake.
// A Page is also a page-scoped selector context.
type Page interface {
	selector.Context

	// Navigate loads a resource and blocks until the DOM is available.
	Navigate(url string) error
	// Content returns the full rendered page markup.
	Content() (string, error)
	// ScrollBy scrolls the viewport down by the given pixel count.
	ScrollBy(pixels int) error
	// ScrollTop resets the scroll position.
	ScrollTop() error
	// QueryAll returns every element matched by one strategy.
	QueryAll(s selector.Strategy) ([]Element, error)
}

// Element is a subtree-scoped handle: a selector context for card-local
// resolution plus the direct operations the crawl needs.
type Element interface {
	selector.Context

	Text() (string, error)
	Attr(name string) (string, bool)
	// Ancestor walks up the given number of levels, used to recover an
	// item container from a discovered detail link.
	Ancestor(levels int) (Element, bool)
	Click() error
	Fill(value string) error
}
