package petzl

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkoehler/gearharvest/models"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func entryBase(t *testing.T) *url.URL {
	t.Helper()
	base, err := url.Parse(New().EntryURL())
	require.NoError(t, err)
	return base
}

func TestCategories(t *testing.T) {
	html := `<html><body>
	<div id="submenu_a2w200000011y8DAAQ"><ul>
		<li class="ib"><a href="/DE/de/Professional/Helme">Helme</a></li>
		<li class="ib"><a href="/DE/de/Professional/Seile">Seile und Verbindungsmittel</a></li>
		<li class="ib"><span>kein Link</span></li>
	</ul></div>
	</body></html>`

	cats := New().Categories(parseDoc(t, html), entryBase(t))

	require.Len(t, cats, 2)
	assert.Equal(t, "Helme", cats[0].Name)
	assert.Equal(t, "https://www.petzl.com/DE/de/Professional/Helme", cats[0].URL)
	assert.Equal(t, "Seile und Verbindungsmittel", cats[1].Name)
}

func TestCategoriesMissingContainer(t *testing.T) {
	html := `<html><body><div id="othermenu"></div></body></html>`
	assert.Nil(t, New().Categories(parseDoc(t, html), entryBase(t)))
}

func TestProductLinks(t *testing.T) {
	html := `<html><body>
	<div class="productContainer all">
		<div class="product"><a href="/DE/de/Professional/Helme/VERTEX">VERTEX</a></div>
		<div class="product"><a href="/DE/de/Professional/Helme/STRATO">STRATO</a></div>
		<div class="product"><span>ohne Link</span></div>
	</div>
	</body></html>`

	links := New().ProductLinks(parseDoc(t, html), entryBase(t))

	require.Len(t, links, 2)
	assert.Equal(t, "https://www.petzl.com/DE/de/Professional/Helme/VERTEX", links[0])
	assert.Equal(t, "https://www.petzl.com/DE/de/Professional/Helme/STRATO", links[1])
}

func TestFullListingURLAlwaysAbsent(t *testing.T) {
	cat := models.Category{Name: "Helme", URL: "https://www.petzl.com/DE/de/Professional/Helme"}
	_, ok := New().FullListingURL(nil, cat)
	assert.False(t, ok)
}

func productPage() string {
	return `<html><body>
	<h1 class="productTitle">VERTEX ®</h1>
	<p class="productSubtitle">Komfortabler Helm für Höhenarbeit</p>
	<div class="productCaracteristiques">Der VERTEX Helm ist dank seines  verstellbaren Kinnbands sehr komfortabel.</div>

	<div id="slideshow">
		<img class="zoomOnClick" data-zoom="https://cdn.petzl.com/vertex-1-zoom.jpg" src="https://cdn.petzl.com/vertex-1.jpg">
		<img class="zoomOnClick" data-zoom="https://cdn.petzl.com/vertex-2-zoom.jpg" src="https://cdn.petzl.com/vertex-2.jpg">
		<img class="zoomOnClick" data-zoom="https://cdn.petzl.com/vertex-1-zoom.jpg" src="https://cdn.petzl.com/vertex-1.jpg">
	</div>

	<div id="descriptif"><div class="list"><ul>
		<li>Sechs-Punkt-Textilinnenausstattung</li>
		<li>CENTERFIT Einstellsystem</li>
	</ul></div></div>

	<h3>Spezifikationen</h3>
	<div class="list"><ul>
		<li>Gewicht: 490 g</li>
		<li>Zertifizierung(en): CE</li>
		<li>Erfüllt die Anforderungen der Norm EN 397</li>
	</ul></div>

	<h3>Referenzen</h3>
	<table>
		<thead><tr><th></th><th>A010AA00</th><th>A010AA01</th></tr></thead>
		<tbody>
			<tr><td class="rowTitle">Farbe(n)</td><td>Gelb</td><td>Rot</td></tr>
			<tr><td class="rowTitle">Größe</td><td>53-63 cm</td><td>53-63 cm</td></tr>
			<tr><td class="rowTitle">GTIN</td><td>3342540815544</td><td>3342540815551</td></tr>
			<tr><td class="rowTitle">Preis</td><td>79,95 €</td><td>79,95 €</td></tr>
		</tbody>
	</table>

	<div id="solutions">
		<div class="titleLink"><a href="/files/vertex-notice.pdf">Technical notice VERTEX</a></div>
	</div>
	</body></html>`
}

func TestExtractCoreFields(t *testing.T) {
	fields := New().Extract(parseDoc(t, productPage()))

	assert.Equal(t, "VERTEX®", fields.Title)
	assert.Equal(t, "Komfortabler Helm für Höhenarbeit", fields.Subtitle)
	assert.Equal(t, "Der VERTEX Helm ist dank seines verstellbaren Kinnbands sehr komfortabel.", fields.Description)
}

func TestExtractGalleryDedupes(t *testing.T) {
	fields := New().Extract(parseDoc(t, productPage()))

	require.Len(t, fields.Gallery, 2)
	assert.Equal(t, "https://cdn.petzl.com/vertex-1-zoom.jpg", fields.Gallery[0])
	assert.Equal(t, "https://cdn.petzl.com/vertex-2-zoom.jpg", fields.Gallery[1])
}

func TestExtractGalleryThumbFallback(t *testing.T) {
	html := `<html><body><div id="slideshow"><ul>
	<li class="thumb" style="background-image: url('https://cdn.petzl.com/vertex-thumb.jpg')"></li>
	</ul></div></body></html>`

	fields := New().Extract(parseDoc(t, html))

	require.Len(t, fields.Gallery, 1)
	assert.Equal(t, "https://cdn.petzl.com/vertex-thumb.jpg", fields.Gallery[0])
}

func TestExtractFeatures(t *testing.T) {
	fields := New().Extract(parseDoc(t, productPage()))

	require.Len(t, fields.Features, 2)
	assert.Equal(t, "Sechs-Punkt-Textilinnenausstattung", fields.Features[0])
}

func TestExtractSpecifications(t *testing.T) {
	fields := New().Extract(parseDoc(t, productPage()))

	require.NotNil(t, fields.Specifications)
	assert.Equal(t, "490 g", fields.Specifications.Values["Gewicht"])
	assert.Equal(t, "CE", fields.Specifications.Values["Zertifizierung(en)"])
	require.Len(t, fields.Specifications.Notes, 1)
	assert.Equal(t, "Erfüllt die Anforderungen der Norm EN 397", fields.Specifications.Notes[0])
}

func TestExtractReferencesColumnTable(t *testing.T) {
	fields := New().Extract(parseDoc(t, productPage()))

	require.Len(t, fields.References, 2)

	first := fields.References[0]
	assert.Equal(t, "A010AA00", first.ArticleNumber)
	assert.Equal(t, "Gelb", first.Color)
	assert.Equal(t, "53-63 cm", first.Size)
	assert.Equal(t, "3342540815544", first.GTIN)
	require.NotNil(t, first.Price)
	assert.InDelta(t, 79.95, *first.Price, 1e-9)

	second := fields.References[1]
	assert.Equal(t, "A010AA01", second.ArticleNumber)
	assert.Equal(t, "Rot", second.Color)
}

func TestExtractDocuments(t *testing.T) {
	fields := New().Extract(parseDoc(t, productPage()))

	require.Len(t, fields.Documents, 1)
	assert.Equal(t, "Technical notice VERTEX", fields.Documents[0].Label)
	assert.Equal(t, "https://www.petzl.com/files/vertex-notice.pdf", fields.Documents[0].URL)
}

func TestExtractSparsePage(t *testing.T) {
	fields := New().Extract(parseDoc(t, "<html><body><p>Seite nicht gefunden</p></body></html>"))

	assert.Empty(t, fields.Title)
	assert.Empty(t, fields.Gallery)
	assert.Empty(t, fields.Features)
	assert.Nil(t, fields.Specifications)
	assert.Empty(t, fields.References)
	assert.Empty(t, fields.Documents)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{input: "79,95 €", expected: 79.95, ok: true},
		{input: "1 234,50 EUR", expected: 1234.50, ok: true},
		{input: "129.00", expected: 129.00, ok: true},
		{input: "auf Anfrage", ok: false},
	}
	for _, tt := range tests {
		got := parsePrice(tt.input)
		if tt.ok {
			require.NotNil(t, got, "parsePrice(%q)", tt.input)
			assert.InDelta(t, tt.expected, *got, 1e-9)
		} else {
			assert.Nil(t, got, "parsePrice(%q)", tt.input)
		}
	}
}
