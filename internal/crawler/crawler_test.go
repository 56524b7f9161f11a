package crawler

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelrx/costco-inventory-scraper/internal/models"
	"github.com/fuelrx/costco-inventory-scraper/internal/selector"
)

type fakeElement struct {
	children map[string]*fakeElement
	text     string
	attrs    map[string]string
	ancestor *fakeElement
}

func (e *fakeElement) Find(s selector.Strategy) (selector.Match, bool) {
	c, ok := e.children[s.Query]
	if !ok {
		return nil, false
	}
	return c, true
}

func (e *fakeElement) Text() (string, error) { return e.text, nil }

func (e *fakeElement) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func (e *fakeElement) Ancestor(levels int) (Element, bool) {
	if e.ancestor == nil {
		return nil, false
	}
	return e.ancestor, true
}

func (e *fakeElement) Click() error           { return nil }
func (e *fakeElement) Fill(value string) error { return nil }

type fakePage struct {
	contents     map[string]string
	contentQueue []string
	finds        map[string]*fakeElement
	queryResults map[string][]Element

	currentURL  string
	navigations []string
	scrolls     int
	scrollTops  int
}

func newFakePage() *fakePage {
	return &fakePage{
		contents:     make(map[string]string),
		finds:        make(map[string]*fakeElement),
		queryResults: make(map[string][]Element),
	}
}

func (p *fakePage) Navigate(url string) error {
	p.navigations = append(p.navigations, url)
	p.currentURL = url
	return nil
}

func (p *fakePage) Content() (string, error) {
	if len(p.contentQueue) > 0 {
		next := p.contentQueue[0]
		p.contentQueue = p.contentQueue[1:]
		return next, nil
	}
	return p.contents[p.currentURL], nil
}

func (p *fakePage) ScrollBy(pixels int) error { p.scrolls++; return nil }
func (p *fakePage) ScrollTop() error          { p.scrollTops++; return nil }

func (p *fakePage) Find(s selector.Strategy) (selector.Match, bool) {
	m, ok := p.finds[s.Query]
	if !ok {
		return nil, false
	}
	return m, true
}

func (p *fakePage) QueryAll(s selector.Strategy) ([]Element, error) {
	return p.queryResults[s.Query], nil
}

func newTestController(opts Options) *Controller {
	c := NewController(opts, nil, slog.Default())
	c.sleep = func(context.Context, time.Duration) {}
	return c
}

func productCard(name, price, href, img string) *fakeElement {
	return &fakeElement{children: map[string]*fakeElement{
		`[automation-id="productName"]`:  {text: name},
		`[automation-id="productPrice"]`: {text: price},
		`a[href*=".product."]`:           {attrs: map[string]string{"href": href}},
		"img":                            {attrs: map[string]string{"src": img}},
	}}
}

func TestCrawlCategoryExtractsRecords(t *testing.T) {
	page := newFakePage()
	page.contents[""] = "<html><body>catalog</body></html>"
	page.queryResults[containerStrategies[0].Query] = []Element{
		productCard("Wild Caught Salmon 3 lbs", "$29.99", "/salmon.product.100.html", "https://cdn/salmon.jpg"),
		// Container with no resolvable name is skipped, not fatal.
		&fakeElement{children: map[string]*fakeElement{".price": {text: "$9.99"}}},
		productCard("Prime Beef Short Ribs", "$54.49", "/ribs.product.200.html", ""),
	}

	c := newTestController(Options{ScrollSteps: 3, ScrollStepPixels: 500})
	page.currentURL = ""
	records, err := c.CrawlCategory(context.Background(), page,
		models.CategoryMeatSeafood, "https://www.costco.com/meat.html", "Sandy, UT")

	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Wild Caught Salmon 3 lbs", first.Name)
	assert.Equal(t, models.CategoryMeatSeafood, first.Category)
	assert.Equal(t, "Sandy, UT", first.WarehouseLocation)
	require.NotNil(t, first.Price)
	assert.InDelta(t, 29.99, *first.Price, 0.001)
	assert.Equal(t, "https://www.costco.com/salmon.product.100.html", first.ProductURL)
	assert.Equal(t, "100", first.SourceID)
	assert.Equal(t, "https://cdn/salmon.jpg", first.ImageURL)
	assert.True(t, first.Persistable())

	assert.Equal(t, "200", records[1].SourceID)
	assert.False(t, first.ScrapedAt.IsZero())
}

func TestCrawlCategoryScrollBudget(t *testing.T) {
	page := newFakePage()
	c := newTestController(Options{ScrollSteps: 5, ScrollStepPixels: 1000})

	_, err := c.CrawlCategory(context.Background(), page,
		models.CategoryPantry, "https://www.costco.com/pantry.html", "Sandy, UT")

	require.NoError(t, err)
	assert.Equal(t, 5, page.scrolls)
	assert.Equal(t, 1, page.scrollTops)
}

func TestContainerDiscoveryLinkFallback(t *testing.T) {
	page := newFakePage()

	cards := make([]*fakeElement, 5)
	links := make([]Element, 0, 6)
	hrefs := []string{
		"/a.product.1.html", "/b.product.2.html", "/c.product.3.html",
		"/d.product.4.html", "/e.product.5.html",
	}
	for i, href := range hrefs {
		cards[i] = &fakeElement{children: map[string]*fakeElement{
			".description": {text: "Legacy Item Number " + href},
		}}
		links = append(links, &fakeElement{
			attrs:    map[string]string{"href": href},
			ancestor: cards[i],
		})
	}
	// Duplicate link to the first item must be deduplicated by target.
	links = append(links, &fakeElement{
		attrs:    map[string]string{"href": hrefs[0]},
		ancestor: cards[0],
	})
	page.queryResults[`a[href*=".product."]`] = links

	c := newTestController(Options{})
	records, err := c.CrawlCategory(context.Background(), page,
		models.CategoryDeli, "https://www.costco.com/deli.html", "Sandy, UT")

	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestCrawlCategoryNoContainersYieldsZero(t *testing.T) {
	page := newFakePage()
	c := newTestController(Options{})

	records, err := c.CrawlCategory(context.Background(), page,
		models.CategorySnacks, "https://www.costco.com/snacks.html", "Sandy, UT")

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestChallengeClearedAfterSingleRetry(t *testing.T) {
	page := newFakePage()
	page.contentQueue = []string{
		"<html>Pardon Our Interruption - verify you are human</html>",
		"<html>catalog page</html>",
	}
	page.queryResults[containerStrategies[0].Query] = []Element{
		productCard("Organic Tortilla Chips 40 oz", "$6.99", "/chips.product.300.html", ""),
	}

	c := newTestController(Options{ChallengeCooldown: time.Minute})
	records, err := c.CrawlCategory(context.Background(), page,
		models.CategorySnacks, "https://www.costco.com/snacks.html", "Sandy, UT")

	require.NoError(t, err)
	assert.Len(t, records, 1)
	// Exactly one reload: initial navigation plus the single retry.
	assert.Equal(t, []string{
		"https://www.costco.com/snacks.html",
		"https://www.costco.com/snacks.html",
	}, page.navigations)
}

func TestPersistentChallengeSkipsWhenConfigured(t *testing.T) {
	page := newFakePage()
	challenged := "<html>verify you are human</html>"
	page.contentQueue = []string{challenged, challenged}

	c := newTestController(Options{SkipOnRepeatChallenge: true})
	records, err := c.CrawlCategory(context.Background(), page,
		models.CategoryOrganic, "https://www.costco.com/organic-groceries.html", "Sandy, UT")

	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Len(t, page.navigations, 2)
}

func TestPersistentChallengeProceedsDegradedByDefault(t *testing.T) {
	page := newFakePage()
	challenged := "<html>verify you are human</html>"
	page.contentQueue = []string{challenged, challenged}
	page.queryResults[containerStrategies[0].Query] = []Element{
		productCard("Still Rendered Item", "$1.99", "/item.product.9.html", ""),
	}

	c := newTestController(Options{})
	records, err := c.CrawlCategory(context.Background(), page,
		models.CategoryOrganic, "https://www.costco.com/organic-groceries.html", "Sandy, UT")

	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDetailEnrichment(t *testing.T) {
	page := newFakePage()
	detailURL := "https://www.costco.com/chicken.product.400.html"
	page.contents["https://www.costco.com/deli.html"] = "<html>catalog</html>"
	page.contents[detailURL] = `<html><body>
		<div automation-id="productDetailsOutput">Sliced oven-roasted chicken breast.</div>
		<div automation-id="productDetailsTab">
			Serving Size: 2 oz. Calories: 60. Protein: 12g. Sodium: 330mg.
			Ingredients: Chicken breast, water, sea salt, turbinado sugar.
		</div>
		<div automation-id="specificationsTab">Net Wt. 1.5 lbs. $0.62 per oz</div>
	</body></html>`

	page.queryResults[containerStrategies[0].Query] = []Element{
		productCard("Oven Roasted Chicken Breast", "$9.99", "/chicken.product.400.html", ""),
	}

	c := newTestController(Options{FetchDetailPages: true})
	records, err := c.CrawlCategory(context.Background(), page,
		models.CategoryDeli, "https://www.costco.com/deli.html", "Sandy, UT")

	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "Sliced oven-roasted chicken breast.", r.Description)
	require.NotNil(t, r.Nutrition.Calories)
	assert.Equal(t, 60, *r.Nutrition.Calories)
	require.NotNil(t, r.Nutrition.Protein)
	assert.Equal(t, 12, *r.Nutrition.Protein)
	require.NotNil(t, r.Nutrition.Sodium)
	assert.Equal(t, 330, *r.Nutrition.Sodium)
	assert.Equal(t, "2 oz", r.ServingSize)
	assert.Contains(t, r.Ingredients, "sea salt")
	assert.Equal(t, "1.5 lbs", r.PackageSize)
	assert.Equal(t, "$0.62 per oz", r.UnitPriceText)
	assert.Nil(t, r.Nutrition.Fat)
}

func TestDetailFetchFailureKeepsCardFidelity(t *testing.T) {
	page := newFakePage()
	page.contents["https://www.costco.com/deli.html"] = "<html>catalog</html>"
	// Detail URL renders nothing useful; the record stays card-level.
	page.queryResults[containerStrategies[0].Query] = []Element{
		productCard("Plain Card Item", "$3.49", "/plain.product.5.html", ""),
	}

	c := newTestController(Options{FetchDetailPages: true})
	records, err := c.CrawlCategory(context.Background(), page,
		models.CategoryDeli, "https://www.costco.com/deli.html", "Sandy, UT")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Plain Card Item", records[0].Name)
	assert.Nil(t, records[0].Nutrition.Calories)
	assert.Empty(t, records[0].Ingredients)
}

func TestAbsolutize(t *testing.T) {
	assert.Equal(t, "https://www.costco.com/a.product.1.html", absolutize("/a.product.1.html"))
	assert.Equal(t, "https://other.example.com/x", absolutize("https://other.example.com/x"))
	assert.Equal(t, "", absolutize(""))
}
