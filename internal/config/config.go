package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fuelrx/costco-inventory-scraper/internal/models"
)

type Config struct {
	Warehouse WarehouseConfig
	Scraper   ScraperConfig
	Browser   BrowserConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Logging   LoggingConfig

	// Categories lists the category pages to crawl, in order.
	Categories []CategoryTarget
}

// CategoryTarget binds one enumerated category to its catalog resource.
type CategoryTarget struct {
	Name models.Category
	URL  string
}

type WarehouseConfig struct {
	ZipCode  string
	Location string
}

type ScraperConfig struct {
	FetchDetailPages      bool
	SkipOnRepeatChallenge bool

	SettleDelay        time.Duration
	ChallengeCooldown  time.Duration
	ContentGraceDelay  time.Duration
	ScrollSteps        int
	ScrollStepPixels   int
	ScrollPause        time.Duration
	DetailDelayMin     time.Duration
	DetailDelayMax     time.Duration
	InterCategoryDelay time.Duration
	FailureCooldown    time.Duration

	NavTimeout       time.Duration
	ReadyTimeout     time.Duration
	CardFieldTimeout time.Duration
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Enabled bool
	Addr    string
	Stream  string
}

type ServerConfig struct {
	Enabled bool
	Port    string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// defaultCategoryURLs mirrors the catalog sections the scraper targets.
var defaultCategoryURLs = map[models.Category]string{
	models.CategoryMeatSeafood:   "https://www.costco.com/meat.html",
	models.CategoryDeli:          "https://www.costco.com/deli.html",
	models.CategoryPreparedMeals: "https://www.costco.com/prepared-food.html",
	models.CategoryPantry:        "https://www.costco.com/pantry.html",
	models.CategoryOrganic:       "https://www.costco.com/organic-groceries.html",
	models.CategoryCheeseDairy:   "https://www.costco.com/dairy-eggs-cheese.html",
	models.CategorySnacks:        "https://www.costco.com/snacks.html",
	models.CategoryMixtPantry:    "https://costconext.com/brand/mixt-pantry/",
}

func Load() (*Config, error) {
	cfg := &Config{
		Warehouse: WarehouseConfig{
			ZipCode:  getEnvOrDefault("WAREHOUSE_ZIP", "84070"),
			Location: getEnvOrDefault("WAREHOUSE_LOCATION", "Sandy, UT"),
		},
		Scraper: ScraperConfig{
			FetchDetailPages:      getBoolOrDefault("SCRAPER_FETCH_DETAIL_PAGES", true),
			SkipOnRepeatChallenge: getBoolOrDefault("SCRAPER_SKIP_ON_REPEAT_CHALLENGE", false),
			SettleDelay:           getDurationOrDefault("SCRAPER_SETTLE_DELAY", 3*time.Second),
			ChallengeCooldown:     getDurationOrDefault("SCRAPER_CHALLENGE_COOLDOWN", 30*time.Second),
			ContentGraceDelay:     getDurationOrDefault("SCRAPER_CONTENT_GRACE_DELAY", 5*time.Second),
			ScrollSteps:           getIntOrDefault("SCRAPER_SCROLL_STEPS", 5),
			ScrollStepPixels:      getIntOrDefault("SCRAPER_SCROLL_STEP_PIXELS", 1000),
			ScrollPause:           getDurationOrDefault("SCRAPER_SCROLL_PAUSE", time.Second),
			DetailDelayMin:        getDurationOrDefault("SCRAPER_DETAIL_DELAY_MIN", time.Second),
			DetailDelayMax:        getDurationOrDefault("SCRAPER_DETAIL_DELAY_MAX", 3*time.Second),
			InterCategoryDelay:    getDurationOrDefault("SCRAPER_INTER_CATEGORY_DELAY", 2*time.Second),
			FailureCooldown:       getDurationOrDefault("SCRAPER_FAILURE_COOLDOWN", 10*time.Second),
			NavTimeout:            getDurationOrDefault("SCRAPER_NAV_TIMEOUT", 30*time.Second),
			ReadyTimeout:          getDurationOrDefault("SCRAPER_READY_TIMEOUT", 10*time.Second),
			CardFieldTimeout:      getDurationOrDefault("SCRAPER_CARD_FIELD_TIMEOUT", time.Second),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/Denver"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "costco_inventory"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled: getBoolOrDefault("REDIS_ENABLED", false),
			Addr:    getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Stream:  getEnvOrDefault("REDIS_STREAM", "stream:product_saved"),
		},
		Server: ServerConfig{
			Enabled: getBoolOrDefault("SERVER_ENABLED", true),
			Port:    getEnvOrDefault("SERVER_PORT", "8080"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	categories, err := loadCategories()
	if err != nil {
		return nil, err
	}
	cfg.Categories = categories

	return cfg, nil
}

// loadCategories returns the configured category subset (SCRAPER_CATEGORIES,
// comma-separated) or every known category, in fixed crawl order.
func loadCategories() ([]CategoryTarget, error) {
	wanted := models.AllCategories()
	if raw := os.Getenv("SCRAPER_CATEGORIES"); raw != "" {
		wanted = wanted[:0]
		for _, name := range strings.Split(raw, ",") {
			category := models.Category(strings.TrimSpace(name))
			if _, ok := defaultCategoryURLs[category]; !ok {
				return nil, fmt.Errorf("unknown category: %q", name)
			}
			wanted = append(wanted, category)
		}
	}

	targets := make([]CategoryTarget, 0, len(wanted))
	for _, category := range wanted {
		targets = append(targets, CategoryTarget{
			Name: category,
			URL:  defaultCategoryURLs[category],
		})
	}
	return targets, nil
}

func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	if c.Scraper.ScrollSteps < 0 {
		return fmt.Errorf("SCRAPER_SCROLL_STEPS cannot be negative")
	}
	if c.Scraper.DetailDelayMin > c.Scraper.DetailDelayMax {
		return fmt.Errorf("SCRAPER_DETAIL_DELAY_MIN cannot be greater than SCRAPER_DETAIL_DELAY_MAX")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
