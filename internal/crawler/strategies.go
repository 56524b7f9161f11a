package crawler

import (
	"github.com/fuelrx/costco-inventory-scraper/internal/selector"
)

// Strategy lists for the two markup generations the catalog serves:
// the current structured-attribute layout first, legacy classes after.
// Order is correctness-relevant; the resolution engine stops at the
// first valid hit.

var contentReadyStrategies = []selector.Strategy{
	selector.CSS(`[automation-id="productList"]`),
	selector.CSS(`[data-testid="product-grid"]`),
	selector.CSS(".product-tile"),
	selector.CSS(".product-list"),
}

var containerStrategies = []selector.Strategy{
	selector.CSS(`[automation-id="productList"] [automation-id^="product_"]`),
	selector.CSS(`[data-testid^="ProductTile"]`),
	selector.CSS(".product-tile"),
	selector.CSS(".product-item"),
	selector.CSS(".product"),
}

var itemLinkStrategies = []selector.Strategy{
	selector.CSS(`a[href*=".product."]`),
	selector.CSS(`a[href*="/product"]`),
}

var nameStrategies = []selector.Strategy{
	selector.CSSMin(`[automation-id="productName"]`, 4),
	selector.CSSMin(".description", 4),
	selector.CSSMin(".product-title", 4),
	selector.CSSMin("h3", 4),
	selector.CSSMin("a.product-link", 4),
}

var priceStrategies = []selector.Strategy{
	selector.CSS(`[automation-id="productPrice"]`),
	selector.CSS(".price"),
	selector.CSS(".product-price"),
	selector.CSS(`[class*="price"]`),
}

var imageStrategies = []selector.Strategy{
	selector.CSS("img"),
}

var linkStrategies = []selector.Strategy{
	selector.CSS(`a[href*=".product."]`),
	selector.CSS(`a[href*="/product"]`),
	selector.CSS("a.product-link"),
}

var brandStrategies = []selector.Strategy{
	selector.CSS(`[automation-id="productBrand"]`),
	selector.CSS(".brand"),
	selector.CSS(`[class*="brand"]`),
}

// Warehouse selection flow.
var warehouseButtonStrategies = []selector.Strategy{
	selector.Text("Set Your Warehouse"),
	selector.Text("Change Warehouse"),
	selector.Text("Warehouse"),
}

var zipInputStrategies = []selector.Strategy{
	selector.CSS(`input[placeholder*="ZIP" i]`),
	selector.CSS(`input[name*="zip" i]`),
	selector.CSS(`input[id*="zip" i]`),
}

var zipSubmitStrategies = []selector.Strategy{
	selector.Text("Search"),
	selector.Text("Find"),
	selector.CSS(`button[type="submit"]`),
}

// challengeMarkers are rendered-text signals that a bot-detection
// challenge intercepted the navigation.
var challengeMarkers = []string{
	"verify you are human",
	"are you a robot",
	"pardon our interruption",
	"unusual activity",
	"access denied",
	"please complete the security check",
	"challenge-form",
}
