// Package crawler drives one category page through the extraction state
// machine: navigate, challenge check, content wait, scroll expansion,
// container discovery, per-card extraction and optional detail
// enrichment. One browser session is owned exclusively by one controller;
// everything runs sequentially.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/fuelrx/costco-inventory-scraper/internal/metrics"
	"github.com/fuelrx/costco-inventory-scraper/internal/models"
	"github.com/fuelrx/costco-inventory-scraper/internal/normalize"
	"github.com/fuelrx/costco-inventory-scraper/internal/parser"
	"github.com/fuelrx/costco-inventory-scraper/internal/selector"
)

const catalogBaseURL = "https://www.costco.com"

// sourceIDFromURL matches the catalog-internal item id embedded in
// canonical product URLs.
var sourceIDFromURL = regexp.MustCompile(`\.product\.(\d+)\.html`)

// Options are the tuning knobs of the crawl state machine. Each delay is
// named so it can be tuned and faked independently.
type Options struct {
	FetchDetailPages bool
	// SkipOnRepeatChallenge skips the category when a challenge survives
	// the single cooldown-retry. Default is to proceed degraded.
	SkipOnRepeatChallenge bool

	SettleDelay       time.Duration
	ChallengeCooldown time.Duration
	ContentGraceDelay time.Duration
	ScrollSteps       int
	ScrollStepPixels  int
	ScrollPause       time.Duration
	DetailDelayMin    time.Duration
	DetailDelayMax    time.Duration
}

func DefaultOptions() Options {
	return Options{
		FetchDetailPages:  true,
		SettleDelay:       3 * time.Second,
		ChallengeCooldown: 30 * time.Second,
		ContentGraceDelay: 5 * time.Second,
		ScrollSteps:       5,
		ScrollStepPixels:  1000,
		ScrollPause:       time.Second,
		DetailDelayMin:    time.Second,
		DetailDelayMax:    3 * time.Second,
	}
}

// Controller runs the per-category crawl.
type Controller struct {
	opts    Options
	parser  *parser.CostcoParser
	metrics *metrics.Metrics
	logger  *slog.Logger

	// sleep is injectable so tests run against a fake clock.
	sleep func(ctx context.Context, d time.Duration)
}

func NewController(opts Options, m *metrics.Metrics, logger *slog.Logger) *Controller {
	return &Controller{
		opts:    opts,
		parser:  parser.NewCostcoParser(),
		metrics: m,
		logger:  logger.With("component", "crawler"),
		sleep:   sleepCtx,
	}
}

// CrawlCategory extracts every resolvable product record from one
// category page. A category that yields nothing is not an error; only
// failures of the automation layer itself propagate.
func (c *Controller) CrawlCategory(ctx context.Context, page Page, category models.Category, url, warehouse string) ([]*models.ProductRecord, error) {
	logger := c.logger.With("category", category)
	logger.Info("crawling category", "url", url)
	started := time.Now()

	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("failed to navigate to category: %w", err)
	}
	c.sleep(ctx, c.opts.SettleDelay)

	proceed, err := c.checkChallenge(ctx, page, url, logger)
	if err != nil {
		return nil, err
	}
	if !proceed {
		logger.Warn("challenge persisted after retry, skipping category")
		return nil, nil
	}

	c.waitForContent(ctx, page, logger)
	c.scrollExpand(ctx, page)

	containers, err := c.discoverContainers(page, logger)
	if err != nil {
		return nil, err
	}
	if len(containers) == 0 {
		c.snapshotCandidates(page, logger)
		logger.Warn("no product containers found")
		return nil, nil
	}
	logger.Info("found product containers", "count", len(containers))

	records := make([]*models.ProductRecord, 0, len(containers))
	for i, container := range containers {
		record := c.extractCard(container, category, warehouse)
		if record == nil {
			logger.Debug("skipped container without resolvable name", "index", i)
			continue
		}
		records = append(records, record)
	}

	if c.opts.FetchDetailPages {
		c.fetchDetails(ctx, page, records, logger)
	}

	c.metrics.ObserveCategoryDuration(time.Since(started))
	logger.Info("category crawl done", "extracted", len(records))
	return records, nil
}

// checkChallenge inspects rendered content for bot-detection markers and
// applies the single cooldown-retry policy. The second return is false
// when the configured policy says to skip the category.
func (c *Controller) checkChallenge(ctx context.Context, page Page, url string, logger *slog.Logger) (bool, error) {
	challenged, err := c.isChallenged(page)
	if err != nil {
		return false, err
	}
	if !challenged {
		return true, nil
	}

	c.metrics.IncChallenge()
	logger.Warn("bot challenge detected, cooling down before retry",
		"cooldown", c.opts.ChallengeCooldown)
	c.sleep(ctx, c.opts.ChallengeCooldown)

	if err := page.Navigate(url); err != nil {
		return false, fmt.Errorf("failed to reload after challenge: %w", err)
	}
	c.sleep(ctx, c.opts.SettleDelay)

	challenged, err = c.isChallenged(page)
	if err != nil {
		return false, err
	}
	if !challenged {
		logger.Info("challenge cleared after retry")
		return true, nil
	}

	c.metrics.IncChallenge()
	if c.opts.SkipOnRepeatChallenge {
		return false, nil
	}
	// Accepted as a degraded-yield outcome: extraction proceeds against
	// whatever rendered.
	logger.Warn("challenge persisted, proceeding with degraded yield")
	return true, nil
}

func (c *Controller) isChallenged(page Page) (bool, error) {
	content, err := page.Content()
	if err != nil {
		return false, fmt.Errorf("failed to read page content: %w", err)
	}
	lowered := strings.ToLower(content)
	for _, marker := range challengeMarkers {
		if strings.Contains(lowered, marker) {
			return true, nil
		}
	}
	return false, nil
}

// waitForContent polls the readiness strategies. Readiness is advisory: a
// miss only buys the page an extra grace delay.
func (c *Controller) waitForContent(ctx context.Context, page Page, logger *slog.Logger) {
	if _, ok := selector.Resolve(page, contentReadyStrategies); ok {
		return
	}
	logger.Debug("content readiness signal missing, applying grace delay")
	c.sleep(ctx, c.opts.ContentGraceDelay)
}

// scrollExpand triggers lazy rendering with a fixed scroll budget. Items
// beyond the budget are missed by design.
func (c *Controller) scrollExpand(ctx context.Context, page Page) {
	for i := 0; i < c.opts.ScrollSteps; i++ {
		if err := page.ScrollBy(c.opts.ScrollStepPixels); err != nil {
			c.logger.Debug("scroll step failed", "step", i, "error", err)
			return
		}
		c.sleep(ctx, c.opts.ScrollPause)
	}
	if err := page.ScrollTop(); err != nil {
		c.logger.Debug("scroll reset failed", "error", err)
	}
}

// discoverContainers applies container strategies in order, then falls
// back to locating item links and walking up to their card ancestors,
// deduplicated by link target.
func (c *Controller) discoverContainers(page Page, logger *slog.Logger) ([]Element, error) {
	for _, s := range containerStrategies {
		containers, err := page.QueryAll(s)
		if err != nil {
			return nil, fmt.Errorf("container query failed: %w", err)
		}
		if len(containers) > 0 {
			logger.Debug("containers matched", "strategy", s.Query, "count", len(containers))
			return containers, nil
		}
	}

	logger.Debug("no container strategy matched, trying link traversal")
	seen := make(map[string]bool)
	var containers []Element
	for _, s := range itemLinkStrategies {
		links, err := page.QueryAll(s)
		if err != nil {
			return nil, fmt.Errorf("link query failed: %w", err)
		}
		for _, link := range links {
			href, ok := link.Attr("href")
			if !ok {
				continue
			}
			href = absolutize(href)
			if seen[href] {
				continue
			}
			seen[href] = true

			// Two levels reaches the card wrapper in both markup
			// generations; the bare link is still usable if not.
			container, ok := link.Ancestor(2)
			if !ok {
				container = link
			}
			containers = append(containers, container)
		}
	}
	return containers, nil
}

// snapshotCandidates logs a diagnostic survey of repeated elements for
// offline selector maintenance.
func (c *Controller) snapshotCandidates(page Page, logger *slog.Logger) {
	content, err := page.Content()
	if err != nil {
		return
	}
	for _, cand := range parser.SnapshotContainerCandidates(content, 5) {
		logger.Info("container candidate", "class", cand.Class, "count", cand.Count)
	}
}

// extractCard resolves card-level fields into a record. A card without a
// resolvable name yields nil and is skipped by the caller.
func (c *Controller) extractCard(container Element, category models.Category, warehouse string) *models.ProductRecord {
	name, ok := selector.Resolve(container, nameStrategies)
	if !ok {
		return nil
	}

	record := models.NewProductRecord(category, warehouse)
	record.Name = name

	if text, ok := selector.Resolve(container, priceStrategies); ok {
		record.Price = normalize.ParsePrice(text)
	}
	if src, ok := selector.ResolveAttr(container, imageStrategies, "src", "data-src"); ok {
		record.ImageURL = src
	}
	if href, ok := selector.ResolveAttr(container, linkStrategies, "href"); ok {
		record.ProductURL = absolutize(href)
	}
	if brand, ok := selector.Resolve(container, brandStrategies); ok {
		record.Brand = brand
	}
	record.SourceID = c.resolveSourceID(container, record.ProductURL)

	return record
}

// resolveSourceID reads the catalog-internal id from a container
// attribute, falling back to the id embedded in the item URL.
func (c *Controller) resolveSourceID(container Element, productURL string) string {
	for _, attr := range []string{"data-pid", "data-product-id", "automation-id"} {
		if v, ok := container.Attr(attr); ok && v != "" {
			return v
		}
	}
	if m := sourceIDFromURL.FindStringSubmatch(productURL); m != nil {
		return m[1]
	}
	return ""
}

// fetchDetails navigates to each record's detail page and enriches it
// with parsed nutrition and packaging fields. A failure on one item
// leaves that record at card-level fidelity.
func (c *Controller) fetchDetails(ctx context.Context, page Page, records []*models.ProductRecord, logger *slog.Logger) {
	for _, record := range records {
		if record.ProductURL == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.sleep(ctx, c.detailDelay())
		if err := c.enrichRecord(ctx, page, record); err != nil {
			logger.Warn("detail fetch failed, keeping card-level record",
				"product_url", record.ProductURL, "error", err)
		}
	}
}

func (c *Controller) enrichRecord(ctx context.Context, page Page, record *models.ProductRecord) error {
	if err := page.Navigate(record.ProductURL); err != nil {
		return fmt.Errorf("failed to navigate to detail page: %w", err)
	}
	c.sleep(ctx, c.opts.SettleDelay)

	content, err := page.Content()
	if err != nil {
		return fmt.Errorf("failed to read detail page: %w", err)
	}

	sections, err := c.parser.ExtractSections(content)
	if err != nil {
		return err
	}

	record.Description = sections.Description
	record.DetailsText = sections.Details
	record.SpecsText = sections.Specifications

	combined := sections.CombinedText()
	record.Nutrition = normalize.ParseNutrition(combined)
	record.ServingSize = normalize.ParseServingSize(combined)
	record.Ingredients = normalize.ParseIngredients(combined)
	record.Allergens = normalize.ParseAllergens(combined)
	record.PackageSize = normalize.ParsePackageSize(combined)
	record.UnitPriceText = normalize.ParseUnitPrice(combined)

	return nil
}

// detailDelay returns a randomized inter-item pacing delay to break up
// request-pattern regularity.
func (c *Controller) detailDelay() time.Duration {
	min, max := c.opts.DetailDelayMin, c.opts.DetailDelayMax
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// SetWarehouse points the session at the configured warehouse. Every step
// is best-effort: the crawl continues against the default locale when any
// part of the flow cannot be completed.
func (c *Controller) SetWarehouse(ctx context.Context, page Page, zipCode string) bool {
	logger := c.logger.With("zip", zipCode)

	if err := page.Navigate(catalogBaseURL); err != nil {
		logger.Warn("failed to open home page for warehouse selection", "error", err)
		return false
	}
	c.sleep(ctx, c.opts.SettleDelay)

	button, ok := firstElement(page, warehouseButtonStrategies)
	if !ok {
		logger.Warn("warehouse selector not found, continuing with default")
		return false
	}
	if err := button.Click(); err != nil {
		logger.Warn("failed to open warehouse selector", "error", err)
		return false
	}
	c.sleep(ctx, c.opts.ScrollPause)

	input, ok := firstElement(page, zipInputStrategies)
	if !ok {
		logger.Warn("zip input not found")
		return false
	}
	if err := input.Fill(zipCode); err != nil {
		logger.Warn("failed to fill zip code", "error", err)
		return false
	}

	submit, ok := firstElement(page, zipSubmitStrategies)
	if !ok {
		logger.Warn("warehouse search button not found")
		return false
	}
	if err := submit.Click(); err != nil {
		logger.Warn("failed to submit warehouse search", "error", err)
		return false
	}
	c.sleep(ctx, c.opts.SettleDelay)

	option, ok := firstElement(page, []selector.Strategy{selector.Text(zipCode)})
	if !ok {
		logger.Warn("warehouse option for zip not listed")
		return false
	}
	if err := option.Click(); err != nil {
		logger.Warn("failed to select warehouse", "error", err)
		return false
	}
	c.sleep(ctx, c.opts.ScrollPause)

	logger.Info("warehouse set")
	return true
}

func firstElement(page Page, strategies []selector.Strategy) (Element, bool) {
	for _, s := range strategies {
		elements, err := page.QueryAll(s)
		if err != nil || len(elements) == 0 {
			continue
		}
		return elements[0], true
	}
	return nil, false
}

func absolutize(href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		return catalogBaseURL + "/" + href
	}
	return catalogBaseURL + href
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
