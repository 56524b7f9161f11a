package database

import (
	"context"
	"fmt"

	"github.com/fuelrx/costco-inventory-scraper/internal/models"
)

// ProductStore persists product records keyed by their canonical URL.
// Upsert is idempotent: re-running a crawl over previously saved data
// replaces the row in place.
type ProductStore struct {
	db *DB
}

func NewProductStore(db *DB) *ProductStore {
	return &ProductStore{db: db}
}

// Schema reference for the products table (managed by migrations outside
// this binary):
//
//	CREATE TABLE costco_products (
//	    product_url        TEXT PRIMARY KEY,
//	    name               TEXT NOT NULL,
//	    price              DOUBLE PRECISION,
//	    image_url          TEXT,
//	    brand              TEXT,
//	    source_id          TEXT,
//	    category           TEXT NOT NULL,
//	    warehouse_location TEXT NOT NULL,
//	    scraped_at         TIMESTAMPTZ NOT NULL,
//	    description        TEXT,
//	    details_text       TEXT,
//	    specs_text         TEXT,
//	    calories           INTEGER,
//	    protein            INTEGER,
//	    carbs              INTEGER,
//	    fat                INTEGER,
//	    sodium             INTEGER,
//	    fiber              INTEGER,
//	    sugar              INTEGER,
//	    serving_size       TEXT,
//	    ingredients        TEXT,
//	    allergens          TEXT,
//	    package_size       TEXT,
//	    unit_price         TEXT,
//	    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
//	);

// Upsert writes one record, replacing every field of an existing row that
// shares the same product_url.
func (s *ProductStore) Upsert(ctx context.Context, p *models.ProductRecord) error {
	query := `
		INSERT INTO costco_products (
			product_url, name, price, image_url, brand, source_id,
			category, warehouse_location, scraped_at,
			description, details_text, specs_text,
			calories, protein, carbs, fat, sodium, fiber, sugar,
			serving_size, ingredients, allergens, package_size, unit_price
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (product_url) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			image_url = EXCLUDED.image_url,
			brand = EXCLUDED.brand,
			source_id = EXCLUDED.source_id,
			category = EXCLUDED.category,
			warehouse_location = EXCLUDED.warehouse_location,
			scraped_at = EXCLUDED.scraped_at,
			description = EXCLUDED.description,
			details_text = EXCLUDED.details_text,
			specs_text = EXCLUDED.specs_text,
			calories = EXCLUDED.calories,
			protein = EXCLUDED.protein,
			carbs = EXCLUDED.carbs,
			fat = EXCLUDED.fat,
			sodium = EXCLUDED.sodium,
			fiber = EXCLUDED.fiber,
			sugar = EXCLUDED.sugar,
			serving_size = EXCLUDED.serving_size,
			ingredients = EXCLUDED.ingredients,
			allergens = EXCLUDED.allergens,
			package_size = EXCLUDED.package_size,
			unit_price = EXCLUDED.unit_price,
			updated_at = CURRENT_TIMESTAMP`

	_, err := s.db.pool.Exec(ctx, query,
		p.ProductURL, p.Name, p.Price, p.ImageURL, p.Brand, p.SourceID,
		string(p.Category), p.WarehouseLocation, p.ScrapedAt,
		p.Description, p.DetailsText, p.SpecsText,
		p.Nutrition.Calories, p.Nutrition.Protein, p.Nutrition.Carbs,
		p.Nutrition.Fat, p.Nutrition.Sodium, p.Nutrition.Fiber, p.Nutrition.Sugar,
		p.ServingSize, p.Ingredients, p.Allergens, p.PackageSize, p.UnitPriceText,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// CountByCategory returns persisted row counts per category, used by the
// ops stats endpoint.
func (s *ProductStore) CountByCategory(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT category, COUNT(*) AS count
		FROM costco_products
		GROUP BY category`

	rows, err := s.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[category] = count
	}

	return counts, rows.Err()
}
