package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DetailSections holds the raw text blocks lifted from a product detail
// page. CombinedText feeds the normalizer, which evaluates every field
// against the same blob.
type DetailSections struct {
	Description    string
	Details        string
	Specifications string
}

// CombinedText joins all captured sections into one normalization input.
func (d DetailSections) CombinedText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{d.Description, d.Details, d.Specifications} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// CostcoParser extracts detail sections from rendered product pages. The
// selector lists cover both markup generations, structured-attribute first.
type CostcoParser struct {
	descriptionSelectors []string
	detailsSelectors     []string
	specSelectors        []string
}

func NewCostcoParser() *CostcoParser {
	return &CostcoParser{
		descriptionSelectors: []string{
			`[automation-id="productDetailsOutput"]`,
			`.product-info-description`,
			`#product-details .pdp-description`,
			`.product-description`,
		},
		detailsSelectors: []string{
			`[automation-id="productDetailsTab"]`,
			`#product-details`,
			`.product-info-details`,
			`.pdp-details`,
		},
		specSelectors: []string{
			`[automation-id="specificationsTab"]`,
			`#specifications`,
			`.product-info-specs`,
			`.spec-table`,
		},
	}
}

// ExtractSections pulls description/details/specification text out of a
// detail page. A section whose selectors all miss stays empty; that is a
// data-quality outcome, not an error. The only error is unparseable HTML.
func (p *CostcoParser) ExtractSections(html string) (DetailSections, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return DetailSections{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return DetailSections{
		Description:    firstText(doc, p.descriptionSelectors),
		Details:        firstText(doc, p.detailsSelectors),
		Specifications: firstText(doc, p.specSelectors),
	}, nil
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return collapseWhitespace(text)
		}
	}
	return ""
}

// ContainerCandidate is one class observed on a repeated element during a
// diagnostic snapshot of a category page that matched no container strategy.
type ContainerCandidate struct {
	Class string
	Count int
}

// SnapshotContainerCandidates surveys a category page for repeated
// product-looking elements. Used for offline selector maintenance when
// container discovery comes up empty.
func SnapshotContainerCandidates(html string, limit int) []ContainerCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	counts := make(map[string]int)
	doc.Find(`div[class*="product"], div[class*="tile"], li[class*="item"], div[class*="card"]`).
		Each(func(_ int, s *goquery.Selection) {
			if class, ok := s.Attr("class"); ok {
				counts[class]++
			}
		})

	candidates := make([]ContainerCandidate, 0, len(counts))
	for class, n := range counts {
		candidates = append(candidates, ContainerCandidate{Class: class, Count: n})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Count != candidates[j].Count {
			return candidates[i].Count > candidates[j].Count
		}
		return candidates[i].Class < candidates[j].Class
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
