// Package normalize turns raw captured page text into typed product fields.
// Every function is total: input that matches nothing yields nil or an
// empty string, never an error. Missing data is a data-quality outcome.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/fuelrx/costco-inventory-scraper/internal/models"
)

const (
	maxServingSizeLen = 100
	maxIngredientsLen = 2000
	maxAllergensLen   = 500

	// Shorter captures are usually a bare "Ingredients" label with no list.
	minIngredientsLen = 20
)

var priceRe = regexp.MustCompile(`\$?(\d+(?:\.\d+)?)`)

// ParsePrice extracts the first numeric run from a price string, with
// thousands separators stripped and any currency sign ignored.
func ParsePrice(text string) *float64 {
	if text == "" {
		return nil
	}
	m := priceRe.FindStringSubmatch(strings.ReplaceAll(text, ",", ""))
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// nutrientPatterns maps a nutrient to its ordered templates. Value-then-unit
// variants come first; the first match wins and later templates are never
// consulted for that nutrient.
var nutrientPatterns = map[string][]*regexp.Regexp{
	"calories": {
		regexp.MustCompile(`(?i)calories[:\s]+(\d[\d,]*)`),
		regexp.MustCompile(`(?i)(\d[\d,]*)\s*calories`),
	},
	"protein": {
		regexp.MustCompile(`(?i)protein[:\s]+(\d+(?:\.\d+)?)\s*g`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*g(?:rams)?\s+(?:of\s+)?protein`),
	},
	"carbs": {
		regexp.MustCompile(`(?i)(?:total\s+)?carb(?:ohydrate)?s?[:\s]+(\d+(?:\.\d+)?)\s*g`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*g(?:rams)?\s+(?:of\s+)?carb(?:ohydrate)?s?`),
	},
	"fat": {
		regexp.MustCompile(`(?i)total\s+fat[:\s]+(\d+(?:\.\d+)?)\s*g`),
		regexp.MustCompile(`(?i)\bfat[:\s]+(\d+(?:\.\d+)?)\s*g`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*g(?:rams)?\s+(?:of\s+)?(?:total\s+)?fat`),
	},
	"sodium": {
		regexp.MustCompile(`(?i)sodium[:\s]+(\d[\d,]*)\s*mg`),
		regexp.MustCompile(`(?i)(\d[\d,]*)\s*mg\s+(?:of\s+)?sodium`),
	},
	"fiber": {
		regexp.MustCompile(`(?i)(?:dietary\s+)?fib(?:er|re)[:\s]+(\d+(?:\.\d+)?)\s*g`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*g(?:rams)?\s+(?:of\s+)?(?:dietary\s+)?fib(?:er|re)`),
	},
	"sugar": {
		regexp.MustCompile(`(?i)(?:total\s+)?sugars?[:\s]+(\d+(?:\.\d+)?)\s*g`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*g(?:rams)?\s+(?:of\s+)?sugars?`),
	},
}

// ParseNutrient extracts one nutrient value from combined detail text.
// Unknown nutrient names yield nil.
func ParseNutrient(text, nutrient string) *int {
	if text == "" {
		return nil
	}
	for _, re := range nutrientPatterns[strings.ToLower(nutrient)] {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := strings.ReplaceAll(m[1], ",", "")
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		v := int(math.Round(f))
		return &v
	}
	return nil
}

// ParseNutrition evaluates every nutrient independently against the same
// combined text. A field set by an earlier template is never replaced.
func ParseNutrition(text string) models.NutritionFacts {
	n := models.NutritionFacts{}
	assign := func(dst **int, nutrient string) {
		if *dst == nil {
			*dst = ParseNutrient(text, nutrient)
		}
	}
	assign(&n.Calories, "calories")
	assign(&n.Protein, "protein")
	assign(&n.Carbs, "carbs")
	assign(&n.Fat, "fat")
	assign(&n.Sodium, "sodium")
	assign(&n.Fiber, "fiber")
	assign(&n.Sugar, "sugar")
	return n
}

var servingSizeRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)serving size[:\s]+([^\n\r.|]{1,100})`),
	regexp.MustCompile(`(?i)per serving[:\s]+([^\n\r.|]{1,100})`),
}

// ParseServingSize returns the serving size label, capped at 100 chars.
func ParseServingSize(text string) string {
	for _, re := range servingSizeRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return truncate(strings.TrimSpace(m[1]), maxServingSizeLen)
		}
	}
	return ""
}

var ingredientsRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ingredients?[:\s]+([^\n\r]+)`),
}

// ParseIngredients returns the ingredient list, capped at 2000 chars.
// Captures of 20 chars or fewer are rejected as spurious label matches.
func ParseIngredients(text string) string {
	for _, re := range ingredientsRes {
		if m := re.FindStringSubmatch(text); m != nil {
			got := strings.TrimSpace(m[1])
			if len(got) > minIngredientsLen {
				return truncate(got, maxIngredientsLen)
			}
		}
	}
	return ""
}

var allergensRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)allergens?[:\s]+([^\n\r]+)`),
	regexp.MustCompile(`(?i)contains[:\s]+([^\n\r.]+)`),
}

// ParseAllergens returns the allergen statement, capped at 500 chars.
func ParseAllergens(text string) string {
	for _, re := range allergensRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return truncate(strings.TrimSpace(m[1]), maxAllergensLen)
		}
	}
	return ""
}

var packageSizeRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?\s*(?:x|/)\s*\d+(?:\.\d+)?\s*(?:fl\.?\s*oz|oz|lbs?|ct|count|pack|pk)\b)`),
	regexp.MustCompile(`(?i)net\s+(?:wt|weight)[:\s.]*([\d.]+\s*\w+)`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?\s*(?:fl\.?\s*oz|oz|lbs?|pounds?|ct|count|pack|pk|gal(?:lon)?s?|ml|kg)\b)`),
}

// ParsePackageSize returns the package size phrase, e.g. "2 x 24 oz".
func ParsePackageSize(text string) string {
	for _, re := range packageSizeRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

var unitPriceRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\$\d+(?:\.\d+)?\s*(?:per|/)\s*(?:fl\.?\s*oz|oz|lb|ct|count|each|item|unit)\b\.?)`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?\s*(?:¢|cents?)\s*(?:per|/)\s*(?:fl\.?\s*oz|oz|lb|ct|count|each)\b\.?)`),
}

// ParseUnitPrice returns the unit-price phrase, e.g. "$0.35 per oz".
func ParseUnitPrice(text string) string {
	for _, re := range unitPriceRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
