// Package sites defines the pluggable per-vendor adapter contract and the
// registry of known adapters. Adapters own all vendor selector trivia; the
// discovery and extraction stages see only this interface.
package sites

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fkoehler/gearharvest/models"
)

// Adapter maps one vendor site onto the harvest pipeline.
//
// All document methods must be tolerant: a section the adapter cannot locate
// contributes an empty value, never a panic. Adapters log their own
// section-level parse failures so one malformed section does not blank the
// whole record.
type Adapter interface {
	// Name is the selector used on the command line.
	Name() string
	// EntryURL is the catalog landing page discovery starts from.
	EntryURL() string
	// Headers returns extra headers attached to every request against the
	// site, on top of the configured user agent.
	Headers() map[string]string
	// Categories extracts the top-level categories from the entry page.
	// base is the URL the page was fetched from, for resolving links.
	Categories(doc *goquery.Document, base *url.URL) []models.Category
	// ProductLinks extracts product page URLs from a category listing page
	// or a full-listing response fragment.
	ProductLinks(doc *goquery.Document, base *url.URL) []string
	// FullListingURL inspects a listing page for the site's "load all
	// products" mechanism and returns the endpoint serving the complete
	// listing, or false when the initial batch is already final.
	FullListingURL(doc *goquery.Document, cat models.Category) (string, bool)
	// Extract maps a parsed product page to its field map.
	Extract(doc *goquery.Document) models.Fields
}

// Registry holds the adapters a binary ships with.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry indexes adapters by name.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if a != nil {
			r.adapters[a.Name()] = a
		}
	}
	return r
}

// Lookup resolves a site selector.
func (r *Registry) Lookup(name string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Names lists registered site selectors, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AbsoluteURL resolves href against the page it appeared on. Malformed or
// empty hrefs resolve to "".
func AbsoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
