// Package edelrid adapts the Edelrid professional catalog to the harvest
// pipeline. Listing pages only render a first batch of products; the complete
// set comes from an internal listing endpoint announced by the page itself.
package edelrid

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fkoehler/gearharvest/models"
	"github.com/fkoehler/gearharvest/sites"
)

const (
	baseURL  = "https://edelrid.com"
	entryURL = baseURL + "/de-de/professional"

	defaultDepartment = "professional"

	// Oversized page size so one call returns the whole category.
	fullListingLimit = 9999
)

// Adapter implements sites.Adapter for edelrid.com.
type Adapter struct{}

// New returns the edelrid adapter.
func New() *Adapter {
	return &Adapter{}
}

func (*Adapter) Name() string { return "edelrid" }

func (*Adapter) EntryURL() string { return entryURL }

// Headers marks requests as programmatic; the listing endpoint rejects plain
// page requests without it.
func (*Adapter) Headers() map[string]string {
	return map[string]string{"X-Requested-With": "XMLHttpRequest"}
}

// Categories reads the category grid inside the iframe brick.
func (*Adapter) Categories(doc *goquery.Document, base *url.URL) []models.Category {
	container := doc.Find("div.iframe-brick").First()
	if container.Length() == 0 {
		return nil
	}

	var cats []models.Category
	container.Find("div.ed-product-grid-item").Each(func(_ int, block *goquery.Selection) {
		name := cleanText(block.Find("div.h5").First().Text())
		href, ok := block.Find("a[href]").First().Attr("href")
		if name == "" || !ok {
			return
		}
		if u := sites.AbsoluteURL(base, href); u != "" {
			cats = append(cats, models.Category{Name: name, URL: u})
		}
	})
	return cats
}

// ProductLinks reads product grid items, skipping the highlight teasers that
// duplicate regular entries.
func (*Adapter) ProductLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find("div.ed-product-grid-item").Each(func(_ int, block *goquery.Selection) {
		if block.HasClass("ed-grid-item-highlights") {
			return
		}
		href, ok := block.Find("a.ed-product-grid-item-link[href]").First().Attr("href")
		if !ok {
			return
		}
		if u := sites.AbsoluteURL(base, href); u != "" {
			links = append(links, u)
		}
	})
	return links
}

// FullListingURL reads the article-loader controller block and computes the
// endpoint that renders the complete product grid for the category.
func (*Adapter) FullListingURL(doc *goquery.Document, cat models.Category) (string, bool) {
	loader := doc.Find(`div[data-controller="article-loader"]`).First()
	if loader.Length() == 0 {
		return "", false
	}
	categoryID, ok := loader.Attr("data-article-loader-category-id-value")
	if !ok || categoryID == "" {
		return "", false
	}
	department := defaultDepartment
	if dep, ok := loader.Attr("data-article-loader-department-value"); ok && dep != "" {
		department = dep
	}

	u := fmt.Sprintf(
		"%s/de-de/view/list/products/%s/%s?brick=contentSection:1.content&page=%s&render_template=category_page/_product-grid.html.twig&limit=%d",
		baseURL, categoryID, department, cat.URL, fullListingLimit,
	)
	return u, true
}

// Extract maps a product page to its field map. Sections are independent: a
// failure in one is logged and leaves the others intact.
func (*Adapter) Extract(doc *goquery.Document) models.Fields {
	var fields models.Fields

	if title := doc.Find(".ed-product-detail-banner-details-header h1").First(); title.Length() > 0 {
		fields.Title = cleanText(title.Text())
	}
	if subtitle := doc.Find(".ed-product-detail-banner-sub-headline").First(); subtitle.Length() > 0 {
		fields.Subtitle = cleanText(subtitle.Text())
	}
	if desc := doc.Find(".ed-product-detail-banner-details .ed-text-child-light-content").First(); desc.Length() > 0 {
		fields.Description = cleanText(desc.Text())
	}

	fields.Gallery = extractGallery(doc)
	fields.Features = extractAccordionList(doc, "a#features")
	fields.Documents = extractDownloads(doc)
	fields.Specifications = extractSpecifications(doc)
	fields.References = extractReferences(doc)

	return fields
}

// extractGallery reads the carousel of the active color variant and upsizes
// every image to the highest resolution the CDN serves.
func extractGallery(doc *goquery.Document) []string {
	carousel := doc.Find(".ed-product-detail-banner-container.ed-active").First()
	if carousel.Length() == 0 {
		return nil
	}

	var images []string
	carousel.Find("li.ed-product-detail-banner-image img[src]").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src == "" {
			return
		}
		src = strings.ReplaceAll(src, "/web-s", "/web-xl")
		src = strings.ReplaceAll(src, "/web-m", "/web-xl")
		images = append(images, src)
	})
	return dedupe(images)
}

// extractAccordionList reads the ul items behind an accordion anchor such as
// the features section.
func extractAccordionList(doc *goquery.Document, anchor string) []string {
	content := accordionContent(doc, anchor)
	if content == nil {
		return nil
	}
	var items []string
	content.Find("ul li").Each(func(_ int, item *goquery.Selection) {
		if text := cleanText(item.Text()); text != "" {
			items = append(items, text)
		}
	})
	return items
}

func extractDownloads(doc *goquery.Document) []models.DocumentLink {
	content := accordionContent(doc, "a#pdf-downloads")
	if content == nil {
		return nil
	}
	var docs []models.DocumentLink
	content.Find("a.ed-link-plain").Each(func(_ int, link *goquery.Selection) {
		label := cleanText(link.Text())
		href, _ := link.Attr("href")
		if label == "" || href == "" {
			return
		}
		docs = append(docs, models.DocumentLink{Label: label, URL: href})
	})
	return docs
}

// extractSpecifications walks the accordion items looking for the technical
// information section.
func extractSpecifications(doc *goquery.Document) *models.Specifications {
	var specs *models.Specifications
	doc.Find(".ed-product-page-details > div > ul > li").Each(func(_ int, item *goquery.Selection) {
		title := cleanText(item.Find("a.uk-accordion-title").First().Text())
		key := strings.ReplaceAll(strings.ReplaceAll(strings.ToLower(title), "&", "and"), " ", "_")
		if !strings.Contains(key, "technische_informationen") {
			return
		}
		content := item.Find("div.uk-accordion-content").First()
		if content.Length() == 0 {
			return
		}

		parsed := &models.Specifications{Values: make(map[string]string)}
		content.Find("ul li").Each(func(_ int, line *goquery.Selection) {
			text := cleanText(line.Text())
			if text == "" {
				return
			}
			if k, v, ok := strings.Cut(text, ":"); ok {
				parsed.Values[strings.TrimSpace(k)] = strings.TrimSpace(v)
			} else {
				parsed.Notes = append(parsed.Notes, text)
			}
		})
		if !parsed.Empty() {
			specs = parsed
		}
	})
	return specs
}

// variantPayload is the per-size detail object inside the variants attribute.
// Article numbers and GTINs show up as strings or bare numbers depending on
// the product, so both are decoded leniently.
type variantPayload struct {
	ArticleNumber json.RawMessage `json:"articleNumber"`
	GTIN          json.RawMessage `json:"gtin"`
	Price         *float64        `json:"price"`
	StockQty      *int            `json:"stockQty"`
}

// extractReferences decodes the nested variants payload (color → size →
// detail) from the description block, joins it with the color toggle tooltip
// names, and flattens to one row per (color, size) pair. Prices arrive in
// cents and are converted to euros; a missing price stays absent.
func extractReferences(doc *goquery.Document) []models.Variant {
	container := doc.Find("div[data-product-detail-description-variants-value]").First()
	if container.Length() == 0 {
		return nil
	}
	payload, _ := container.Attr("data-product-detail-description-variants-value")
	if payload == "" {
		return nil
	}

	colorNames := colorNameMap(doc)

	var outer [][]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &outer); err != nil {
		slog.Warn("parse product variants", slog.Any("error", err))
		return nil
	}

	var variants []models.Variant
	for _, pair := range outer {
		if len(pair) != 2 {
			continue
		}
		colorID := rawString(pair[0])
		colorName, ok := colorNames[colorID]
		if !ok {
			colorName = "N/A"
		}

		var sizes [][]json.RawMessage
		if err := json.Unmarshal(pair[1], &sizes); err != nil {
			slog.Warn("parse variant sizes", slog.String("color_id", colorID), slog.Any("error", err))
			continue
		}
		for _, sizePair := range sizes {
			if len(sizePair) != 2 {
				continue
			}
			var detail variantPayload
			if err := json.Unmarshal(sizePair[1], &detail); err != nil {
				slog.Warn("parse variant detail", slog.String("color_id", colorID), slog.Any("error", err))
				continue
			}

			variant := models.Variant{
				Color:         colorName,
				Size:          rawString(sizePair[0]),
				ArticleNumber: rawString(detail.ArticleNumber),
				GTIN:          rawString(detail.GTIN),
				Stock:         detail.StockQty,
			}
			if detail.Price != nil && *detail.Price != 0 {
				eur := *detail.Price / 100
				variant.Price = &eur
			}
			variants = append(variants, variant)
		}
	}
	return variants
}

// colorNameMap reads the color toggle buttons; the human-readable name hides
// inside the uk-tooltip attribute ("title: Night; pos: bottom").
func colorNameMap(doc *goquery.Document) map[string]string {
	names := make(map[string]string)
	doc.Find("button.ed-product-color-toggle[data-color-id]").Each(func(_ int, btn *goquery.Selection) {
		id, _ := btn.Attr("data-color-id")
		if id == "" {
			return
		}
		tooltip, _ := btn.Attr("uk-tooltip")
		name := tooltip
		if _, after, ok := strings.Cut(tooltip, "title: "); ok {
			name = after
		}
		name, _, _ = strings.Cut(name, ";")
		names[id] = strings.TrimSpace(name)
	})
	return names
}

func accordionContent(doc *goquery.Document, anchor string) *goquery.Selection {
	a := doc.Find(anchor).First()
	if a.Length() == 0 {
		return nil
	}
	content := a.NextAllFiltered("div.uk-accordion-content").First()
	if content.Length() == 0 {
		return nil
	}
	return content
}

// rawString decodes a JSON scalar as its string form.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

var _ sites.Adapter = (*Adapter)(nil)
