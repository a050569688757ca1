// Package extract implements the bounded concurrent extraction engine: one
// fetch+parse task per product reference, capped by an admission gate, with
// every failure contained to its own task.
package extract

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/semaphore"

	"github.com/fkoehler/gearharvest/config"
	"github.com/fkoehler/gearharvest/metrics"
	"github.com/fkoehler/gearharvest/models"
	"github.com/fkoehler/gearharvest/progress"
)

// Extractor is the slice of the site adapter the engine needs: request
// headers and the document-to-fields mapping.
type Extractor interface {
	Name() string
	Headers() map[string]string
	Extract(doc *goquery.Document) models.Fields
}

// Engine runs fetch+parse tasks under a fixed admission cap. The gate is owned
// by the engine instance, so concurrent runs against different sites hold
// independent caps.
type Engine struct {
	cfg     *config.Config
	client  *http.Client
	gate    *semaphore.Weighted
	metrics *metrics.Metrics
	events  progress.Emitter
}

// NewEngine builds an engine configured from cfg.
func NewEngine(cfg *config.Config, m *metrics.Metrics, events progress.Emitter) *Engine {
	client := &http.Client{
		Timeout: cfg.ExtractionTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.ExtractionTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
	return &Engine{
		cfg:     cfg,
		client:  client,
		gate:    semaphore.NewWeighted(int64(cfg.Concurrency)),
		metrics: m,
		events:  events,
	}
}

// WithTransport swaps the HTTP transport. Used by tests to inject a mock.
func (e *Engine) WithTransport(rt http.RoundTripper) {
	e.client.Transport = rt
}

// ExtractAll converts every reference into exactly one result, returned in
// input order so repeated runs over the same reference set produce identical
// artifacts. The call returns only after all tasks finish. A task failure
// becomes an ErrorRecord and never affects sibling tasks.
func (e *Engine) ExtractAll(ctx context.Context, site Extractor, refs []models.ProductReference) []models.Result {
	if len(refs) == 0 {
		return nil
	}

	results := make([]models.Result, len(refs))
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref models.ProductReference) {
			defer wg.Done()
			results[i] = e.extractOne(ctx, site, ref)
		}(i, ref)
	}
	wg.Wait()
	return results
}

func (e *Engine) extractOne(ctx context.Context, site Extractor, ref models.ProductReference) (res models.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = e.failure(site, ref, models.ErrorUnexpected, fmt.Sprintf("extractor panic: %v", r))
		}
	}()

	if err := e.gate.Acquire(ctx, 1); err != nil {
		return e.failure(site, ref, models.ErrorUnexpected, fmt.Sprintf("acquire slot: %v", err))
	}
	defer e.gate.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return e.failure(site, ref, models.ErrorUnexpected, err.Error())
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	for k, v := range site.Headers() {
		req.Header.Set(k, v)
	}

	start := time.Now()
	e.metrics.IncRequest(metrics.PhaseExtraction)
	resp, err := e.client.Do(req)
	if err != nil {
		return e.failure(site, ref, classify(err), err.Error())
	}
	defer resp.Body.Close()
	e.metrics.ObserveDuration(time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return e.failure(site, ref, models.ErrorHTTPStatus, fmt.Sprintf("HTTP status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return e.failure(site, ref, classify(err), err.Error())
	}

	fields := site.Extract(doc)
	e.metrics.IncRecords()
	return models.NewRecord(ref, fields)
}

func (e *Engine) failure(site Extractor, ref models.ProductReference, kind models.ErrorKind, detail string) models.Result {
	e.metrics.IncError(string(kind))
	if e.events == nil {
		return models.NewErrorRecord(ref, kind, detail)
	}
	e.events.Emit(progress.Event{
		Stage:    progress.StageReferenceFailed,
		Site:     site.Name(),
		Category: ref.Category,
		URL:      ref.URL,
		Note:     fmt.Sprintf("%s: %s", kind, detail),
	})
	return models.NewErrorRecord(ref, kind, detail)
}
