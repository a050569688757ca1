// Package discovery walks a vendor's category tree to a de-duplicated set of
// product references. The walk is sequential by design: one category at a
// time, with a politeness delay between fetches.
package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fkoehler/gearharvest/config"
	"github.com/fkoehler/gearharvest/metrics"
	"github.com/fkoehler/gearharvest/models"
	"github.com/fkoehler/gearharvest/progress"
	"github.com/fkoehler/gearharvest/sites"
)

var errNoDocument = errors.New("no document in response")

// Site is the slice of the adapter contract discovery depends on.
type Site interface {
	Name() string
	EntryURL() string
	Headers() map[string]string
	Categories(doc *goquery.Document, base *url.URL) []models.Category
	ProductLinks(doc *goquery.Document, base *url.URL) []string
	FullListingURL(doc *goquery.Document, cat models.Category) (string, bool)
}

// Discoverer owns the sequential category walk for one site.
type Discoverer struct {
	cfg       *config.Config
	site      Site
	collector *colly.Collector
	seen      *lru.Cache[string, struct{}]
	metrics   *metrics.Metrics
	events    progress.Emitter
}

// NewDiscoverer builds a discoverer configured from cfg.
func NewDiscoverer(cfg *config.Config, site Site, m *metrics.Metrics, events progress.Emitter) (*Discoverer, error) {
	entry := cfg.EntryURL
	if entry == "" {
		entry = site.EntryURL()
	}
	parsed, err := url.Parse(entry)
	if err != nil {
		return nil, fmt.Errorf("parse entry url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("entry url must include a host")
	}

	seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("build dedupe cache: %w", err)
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(cfg.DiscoveryTimeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DiscoveryTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob: "*",
		Delay:      cfg.DiscoveryDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	return &Discoverer{
		cfg:       cfg,
		site:      site,
		collector: collector,
		seen:      seen,
		metrics:   m,
		events:    events,
	}, nil
}

// WithTransport swaps the HTTP transport. Used by tests to inject a mock.
func (d *Discoverer) WithTransport(rt http.RoundTripper) {
	d.collector.WithTransport(rt)
}

// Run walks the category tree and returns every discovered category together
// with the de-duplicated product reference set. It fails soft: a broken
// category contributes only what was collected before the failure, and a
// broken entry page yields an empty result, reported but not fatal. The error
// return is reserved for context cancellation.
func (d *Discoverer) Run(ctx context.Context) ([]models.Category, []models.ProductReference, error) {
	entry := d.cfg.EntryURL
	if entry == "" {
		entry = d.site.EntryURL()
	}
	d.emit(progress.Event{Stage: progress.StageDiscoveryStart, Site: d.site.Name(), URL: entry})

	doc, err := d.fetch(entry)
	if err != nil {
		slog.Error("fetch entry page", slog.String("url", entry), slog.Any("error", err))
		d.emit(progress.Event{Stage: progress.StageDiscoveryDone, Site: d.site.Name(), Note: "entry page unavailable"})
		return nil, nil, nil
	}

	base, _ := url.Parse(entry)
	categories := d.site.Categories(doc, base)
	if len(categories) == 0 {
		slog.Error("category container missing on entry page", slog.String("url", entry))
		d.emit(progress.Event{Stage: progress.StageDiscoveryDone, Site: d.site.Name(), Note: "no categories found"})
		return nil, nil, nil
	}
	for range categories {
		d.metrics.IncCategories()
	}

	var refs []models.ProductReference
	for _, cat := range categories {
		if ctx.Err() != nil {
			return categories, refs, ctx.Err()
		}

		added, err := d.collectCategory(cat, &refs)
		if err != nil {
			slog.Warn("category skipped",
				slog.String("category", cat.Name),
				slog.Any("error", err),
			)
			d.emit(progress.Event{
				Stage:    progress.StageCategorySkipped,
				Site:     d.site.Name(),
				Category: cat.Name,
				Count:    added,
				Note:     err.Error(),
			})
			continue
		}
		d.emit(progress.Event{
			Stage:    progress.StageCategoryDone,
			Site:     d.site.Name(),
			Category: cat.Name,
			Count:    added,
		})
	}

	d.metrics.AddReferences(len(refs))
	d.emit(progress.Event{Stage: progress.StageDiscoveryDone, Site: d.site.Name(), Count: len(refs)})
	return categories, refs, nil
}

// collectCategory gathers the category's product links, resolving the site's
// "load all" mechanism when the listing page exposes one. Links collected
// before an error survive it.
func (d *Discoverer) collectCategory(cat models.Category, refs *[]models.ProductReference) (int, error) {
	doc, err := d.fetch(cat.URL)
	if err != nil {
		return 0, fmt.Errorf("fetch listing: %w", err)
	}

	base, err := url.Parse(cat.URL)
	if err != nil {
		return 0, fmt.Errorf("parse listing url: %w", err)
	}

	added := 0
	for _, link := range d.site.ProductLinks(doc, base) {
		if d.add(cat.Name, link, refs) {
			added++
		}
	}

	fullURL, ok := d.site.FullListingURL(doc, cat)
	if !ok {
		return added, nil
	}

	fullDoc, err := d.fetch(fullURL)
	if err != nil {
		return added, fmt.Errorf("fetch full listing: %w", err)
	}
	for _, link := range d.site.ProductLinks(fullDoc, base) {
		if d.add(cat.Name, link, refs) {
			added++
		}
	}
	return added, nil
}

// add records one (category, url) pair unless it was already seen. Repeats
// within a category collapse; the same URL under another category is kept.
func (d *Discoverer) add(category, link string, refs *[]models.ProductReference) bool {
	if link == "" {
		return false
	}
	ref := models.ProductReference{Category: category, URL: link}
	if d.seen.Contains(ref.Key()) {
		return false
	}
	d.seen.Add(ref.Key(), struct{}{})
	*refs = append(*refs, ref)
	return true
}

// fetch retrieves one page through the collector and parses it. Each call
// clones the collector so response handling stays local to the call; clones
// share the HTTP backend, so the politeness limit applies across them.
func (d *Discoverer) fetch(pageURL string) (*goquery.Document, error) {
	c := d.collector.Clone()

	var doc *goquery.Document
	var fetchErr error

	headers := d.site.Headers()
	c.OnRequest(func(r *colly.Request) {
		for k, v := range headers {
			r.Headers.Set(k, v)
		}
	})
	c.OnResponse(func(r *colly.Response) {
		parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			fetchErr = fmt.Errorf("parse document: %w", err)
			return
		}
		doc = parsed
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	d.metrics.IncRequest(metrics.PhaseDiscovery)
	start := time.Now()
	if err := c.Visit(pageURL); err != nil {
		return nil, err
	}
	c.Wait()
	d.metrics.ObserveDuration(time.Since(start))

	if fetchErr != nil {
		return nil, fetchErr
	}
	if doc == nil {
		return nil, errNoDocument
	}
	return doc, nil
}

func (d *Discoverer) emit(evt progress.Event) {
	if d.events != nil {
		d.events.Emit(evt)
	}
}

var _ Site = (sites.Adapter)(nil)
