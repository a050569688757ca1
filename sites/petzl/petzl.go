// Package petzl adapts the Petzl professional catalog to the harvest
// pipeline. All selectors in here are vendor trivia pinned to the current
// page structure.
package petzl

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fkoehler/gearharvest/models"
	"github.com/fkoehler/gearharvest/sites"
)

const (
	baseURL  = "https://www.petzl.com"
	entryURL = baseURL + "/DE/de/Professional"

	// The professional submenu carries a CRM-generated id.
	categoryContainer = "div#submenu_a2w200000011y8DAAQ"
)

var (
	specsHeading = regexp.MustCompile(`Specifications|Spezifikationen`)
	refsHeading  = regexp.MustCompile(`References|Referenzen`)
	siteBase, _  = url.Parse(baseURL)
)

// Adapter implements sites.Adapter for petzl.com.
type Adapter struct{}

// New returns the petzl adapter.
func New() *Adapter {
	return &Adapter{}
}

func (*Adapter) Name() string { return "petzl" }

func (*Adapter) EntryURL() string { return entryURL }

func (*Adapter) Headers() map[string]string { return nil }

// Categories reads the professional submenu. An absent container yields nil,
// which discovery reports as a structure failure.
func (*Adapter) Categories(doc *goquery.Document, base *url.URL) []models.Category {
	container := doc.Find(categoryContainer)
	if container.Length() == 0 {
		return nil
	}

	var cats []models.Category
	container.Find("li.ib").Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		u := sites.AbsoluteURL(base, href)
		name := cleanText(link.Text())
		if name == "" || u == "" {
			return
		}
		cats = append(cats, models.Category{Name: name, URL: u})
	})
	return cats
}

// ProductLinks reads the category grid. Petzl listing pages carry the full
// product set up front, so there is no full-listing hook.
func (*Adapter) ProductLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find("div.productContainer.all div.product").Each(func(_ int, block *goquery.Selection) {
		href, ok := block.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		if u := sites.AbsoluteURL(base, href); u != "" {
			links = append(links, u)
		}
	})
	return links
}

func (*Adapter) FullListingURL(*goquery.Document, models.Category) (string, bool) {
	return "", false
}

// Extract maps a product page to its field map. Every section is optional; a
// page missing all of them yields empty fields, not an error.
func (*Adapter) Extract(doc *goquery.Document) models.Fields {
	var fields models.Fields

	if title := doc.Find("h1.productTitle").First(); title.Length() > 0 {
		fields.Title = strings.ReplaceAll(cleanText(title.Text()), " ®", "®")
	}
	if subtitle := doc.Find("p.productSubtitle").First(); subtitle.Length() > 0 {
		fields.Subtitle = cleanText(subtitle.Text())
	}
	if desc := doc.Find("div.productCaracteristiques").First(); desc.Length() > 0 {
		fields.Description = cleanText(desc.Text())
	}

	fields.Gallery = extractGallery(doc)
	fields.Features = extractFeatures(doc)
	fields.Specifications = extractSpecifications(doc)
	fields.References = extractReferences(doc)
	fields.Documents = extractDocuments(doc)

	return fields
}

// extractGallery returns the zoom-resolution slideshow images, falling back
// to the thumbnail backgrounds when no zoom variants exist. First occurrence
// wins on duplicates.
func extractGallery(doc *goquery.Document) []string {
	slideshow := doc.Find("div#slideshow").First()
	if slideshow.Length() == 0 {
		return nil
	}

	var images []string
	slideshow.Find("img.zoomOnClick[data-zoom]").Each(func(_ int, img *goquery.Selection) {
		if zoom, ok := img.Attr("data-zoom"); ok && zoom != "" {
			images = append(images, zoom)
		}
	})
	if len(images) == 0 {
		slideshow.Find("li.thumb[style]").Each(func(_ int, thumb *goquery.Selection) {
			style, _ := thumb.Attr("style")
			if u := styleBackgroundURL(style); u != "" {
				images = append(images, u)
			}
		})
	}
	return dedupe(images)
}

func extractFeatures(doc *goquery.Document) []string {
	var features []string
	doc.Find("div#descriptif div.list ul li").Each(func(_ int, item *goquery.Selection) {
		if text := cleanText(item.Text()); text != "" {
			features = append(features, text)
		}
	})
	return features
}

// extractSpecifications parses the list under the Specifications heading.
// Lines of the form "key: value" become entries; anything else lands in notes.
func extractSpecifications(doc *goquery.Document) *models.Specifications {
	heading := findHeading(doc, specsHeading)
	if heading == nil {
		return nil
	}
	list := heading.NextAllFiltered("div.list").First()
	if list.Length() == 0 {
		list = heading.Parent().Find("div.list").First()
	}
	if list.Length() == 0 {
		return nil
	}

	specs := &models.Specifications{Values: make(map[string]string)}
	list.Find("li").Each(func(_ int, item *goquery.Selection) {
		text := cleanText(item.Text())
		if text == "" {
			return
		}
		if key, value, ok := strings.Cut(text, ":"); ok {
			specs.Values[strings.TrimSpace(key)] = strings.TrimSpace(value)
		} else {
			specs.Notes = append(specs.Notes, text)
		}
	})
	if specs.Empty() {
		return nil
	}
	return specs
}

// extractReferences rebuilds the column-oriented references tables: the
// header row carries one article number per column and each body row carries
// one attribute across all columns.
func extractReferences(doc *goquery.Document) []models.Variant {
	heading := findHeading(doc, refsHeading)
	if heading == nil {
		return nil
	}

	var variants []models.Variant
	heading.NextAllFiltered("table").Each(func(_ int, table *goquery.Selection) {
		headerRow := table.Find("thead tr").First()
		if headerRow.Length() == 0 {
			headerRow = table.Find("tr").First()
		}
		if headerRow.Length() == 0 {
			return
		}

		var codes []string
		headerRow.Find("th").Each(func(i int, th *goquery.Selection) {
			if i == 0 {
				return
			}
			codes = append(codes, cleanText(th.Text()))
		})
		if len(codes) == 0 {
			return
		}

		columns := make([]models.Variant, len(codes))
		for i, code := range codes {
			columns[i].ArticleNumber = code
		}

		rows := table.Find("tbody tr")
		if rows.Length() == 0 {
			rows = table.Find("tr").Slice(1, goquery.ToEnd)
		}
		rows.Each(func(_ int, row *goquery.Selection) {
			titleCell := row.Find("td.rowTitle").First()
			if titleCell.Length() == 0 {
				return
			}
			rowTitle := strings.TrimSpace(strings.ReplaceAll(cleanText(titleCell.Text()), ")", ""))
			row.Find("td").Each(func(i int, cell *goquery.Selection) {
				if i == 0 || i-1 >= len(columns) {
					return
				}
				applyRowValue(&columns[i-1], rowTitle, cleanText(cell.Text()))
			})
		})

		variants = append(variants, columns...)
	})
	return variants
}

// applyRowValue routes a table row onto the variant field it describes.
// Unrecognized attribute rows are vendor noise and dropped.
func applyRowValue(v *models.Variant, rowTitle, value string) {
	if value == "" {
		return
	}
	switch {
	case strings.Contains(rowTitle, "Farbe"), strings.Contains(rowTitle, "Color"):
		v.Color = value
	case strings.Contains(rowTitle, "Reference"), strings.Contains(rowTitle, "Referenz"):
		v.ArticleNumber = value
	case strings.Contains(rowTitle, "Größe"), strings.Contains(rowTitle, "Size"):
		v.Size = value
	case strings.Contains(rowTitle, "GTIN"), strings.Contains(rowTitle, "EAN"):
		v.GTIN = value
	case strings.Contains(rowTitle, "Preis"), strings.Contains(rowTitle, "Price"):
		v.Price = parsePrice(value)
	}
}

func extractDocuments(doc *goquery.Document) []models.DocumentLink {
	section := doc.Find("div#solutions").First()
	if section.Length() == 0 {
		return nil
	}

	var docs []models.DocumentLink
	section.Find("div.titleLink").Each(func(_ int, block *goquery.Selection) {
		block.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			href, _ := link.Attr("href")
			u := sites.AbsoluteURL(siteBase, href)
			label := cleanText(link.Text())
			if u == "" || label == "" {
				return
			}
			docs = append(docs, models.DocumentLink{Label: label, URL: u})
		})
	})
	return docs
}

// findHeading returns the first h3 whose text matches pattern, or nil.
func findHeading(doc *goquery.Document, pattern *regexp.Regexp) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if pattern.MatchString(h.Text()) {
			found = h
			return false
		}
		return true
	})
	return found
}

// cleanText collapses runs of whitespace, approximating text extraction with
// a single-space separator.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func styleBackgroundURL(style string) string {
	_, rest, ok := strings.Cut(style, "url('")
	if !ok {
		return ""
	}
	u, _, ok := strings.Cut(rest, "')")
	if !ok {
		return ""
	}
	return u
}

func parsePrice(value string) *float64 {
	cleaned := strings.NewReplacer("€", "", "EUR", "", ",", ".", " ", "").Replace(value)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &f
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
