package models

import (
	"time"
)

// Category identifies one of the catalog sections the scraper knows about.
type Category string

const (
	CategoryMeatSeafood   Category = "meat_seafood"
	CategoryDeli          Category = "deli"
	CategoryPreparedMeals Category = "prepared_meals"
	CategoryPantry        Category = "pantry"
	CategoryOrganic       Category = "organic"
	CategoryCheeseDairy   Category = "cheese_dairy"
	CategorySnacks        Category = "snacks"
	CategoryMixtPantry    Category = "mixt_pantry"
)

// AllCategories lists the known categories in crawl order.
func AllCategories() []Category {
	return []Category{
		CategoryMeatSeafood,
		CategoryDeli,
		CategoryPreparedMeals,
		CategoryPantry,
		CategoryOrganic,
		CategoryCheeseDairy,
		CategorySnacks,
		CategoryMixtPantry,
	}
}

// NutritionFacts holds the per-serving values parsed from a product's
// detail page. Fields stay nil when the page never mentions them.
type NutritionFacts struct {
	Calories *int `json:"calories,omitempty"`
	Protein  *int `json:"protein,omitempty"`
	Carbs    *int `json:"carbs,omitempty"`
	Fat      *int `json:"fat,omitempty"`
	Sodium   *int `json:"sodium,omitempty"`
	Fiber    *int `json:"fiber,omitempty"`
	Sugar    *int `json:"sugar,omitempty"`
}

// ProductRecord is the unit of extraction and persistence. ProductURL is
// the conflict key used for idempotent upserts; records without it are
// extracted but never persisted.
type ProductRecord struct {
	ProductURL string   `json:"product_url"`
	Name       string   `json:"name"`
	Price      *float64 `json:"price,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	Brand      string   `json:"brand,omitempty"`
	SourceID   string   `json:"source_id,omitempty"`

	Category          Category  `json:"category"`
	WarehouseLocation string    `json:"warehouse_location"`
	ScrapedAt         time.Time `json:"scraped_at"`

	// Detail-fetch enrichment. Raw blobs are kept alongside the parsed
	// fields so selector drift can be diagnosed from stored rows.
	Description    string         `json:"description,omitempty"`
	DetailsText    string         `json:"details_text,omitempty"`
	SpecsText      string         `json:"specs_text,omitempty"`
	Nutrition      NutritionFacts `json:"nutrition"`
	ServingSize    string         `json:"serving_size,omitempty"`
	Ingredients    string         `json:"ingredients,omitempty"`
	Allergens      string         `json:"allergens,omitempty"`
	PackageSize    string         `json:"package_size,omitempty"`
	UnitPriceText  string         `json:"unit_price,omitempty"`
}

// NewProductRecord creates a record for a fresh extraction pass.
func NewProductRecord(category Category, warehouse string) *ProductRecord {
	return &ProductRecord{
		Category:          category,
		WarehouseLocation: warehouse,
		ScrapedAt:         time.Now().UTC(),
	}
}

// Extractable reports whether the card yielded enough to keep the record.
func (p *ProductRecord) Extractable() bool {
	return p.Name != ""
}

// Persistable reports whether the record can be upserted.
func (p *ProductRecord) Persistable() bool {
	return p.Extractable() && p.ProductURL != ""
}

// CrawlSession accumulates per-run counters. It lives for one run and is
// never persisted; the store is the system of record.
type CrawlSession struct {
	RunID      string
	Categories []Category
	StartedAt  time.Time
	Extracted  int
	Saved      int
	Failed     []Category
}
