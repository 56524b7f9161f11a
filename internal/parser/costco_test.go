package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSectionsStructuredMarkup(t *testing.T) {
	p := NewCostcoParser()

	html := `<!DOCTYPE html>
<html>
<body>
	<div automation-id="productDetailsOutput">
		Fully cooked rotisserie-style chicken breast, ready to serve.
	</div>
	<div automation-id="productDetailsTab">
		Serving Size: 3 oz. Calories: 110. Protein: 23g. Sodium: 390mg.
	</div>
	<div automation-id="specificationsTab">
		Net Wt. 2.5 lbs. Keep refrigerated.
	</div>
</body>
</html>`

	sections, err := p.ExtractSections(html)
	require.NoError(t, err)
	assert.Equal(t, "Fully cooked rotisserie-style chicken breast, ready to serve.", sections.Description)
	assert.Contains(t, sections.Details, "Protein: 23g")
	assert.Contains(t, sections.Specifications, "2.5 lbs")

	combined := sections.CombinedText()
	assert.Contains(t, combined, "ready to serve")
	assert.Contains(t, combined, "Calories: 110")
	assert.Contains(t, combined, "Keep refrigerated")
}

func TestExtractSectionsLegacyFallback(t *testing.T) {
	p := NewCostcoParser()

	// No structured attributes present; legacy class selectors must win.
	html := `<html><body>
		<div class="product-info-description">Cold-pressed organic olive oil.</div>
		<div class="pdp-details">Ingredients: Organic extra virgin olive oil from Spain.</div>
		<div class="spec-table">2 x 1L bottles</div>
	</body></html>`

	sections, err := p.ExtractSections(html)
	require.NoError(t, err)
	assert.Equal(t, "Cold-pressed organic olive oil.", sections.Description)
	assert.Contains(t, sections.Details, "olive oil from Spain")
	assert.Equal(t, "2 x 1L bottles", sections.Specifications)
}

func TestExtractSectionsMissingSectionsStayEmpty(t *testing.T) {
	p := NewCostcoParser()

	sections, err := p.ExtractSections(`<html><body><p>marketing page</p></body></html>`)
	require.NoError(t, err)
	assert.Empty(t, sections.Description)
	assert.Empty(t, sections.Details)
	assert.Empty(t, sections.Specifications)
	assert.Empty(t, sections.CombinedText())
}

func TestSnapshotContainerCandidates(t *testing.T) {
	html := `<html><body>
		<div class="new-product-grid-tile">a</div>
		<div class="new-product-grid-tile">b</div>
		<div class="new-product-grid-tile">c</div>
		<div class="promo-card">x</div>
		<span class="product-irrelevant">y</span>
	</body></html>`

	candidates := SnapshotContainerCandidates(html, 5)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "new-product-grid-tile", candidates[0].Class)
	assert.Equal(t, 3, candidates[0].Count)
}

func TestSnapshotContainerCandidatesLimit(t *testing.T) {
	html := `<html><body>
		<div class="product-a">1</div>
		<div class="product-b">2</div>
		<div class="product-c">3</div>
	</body></html>`

	assert.Len(t, SnapshotContainerCandidates(html, 2), 2)
}
