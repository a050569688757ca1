// Package pipeline wires discovery, extraction, and the snapshot writer into
// one harvest run. It is the control surface exposed to whatever shell drives
// the harvester; the shell blocks only on the context it supplies.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fkoehler/gearharvest/config"
	"github.com/fkoehler/gearharvest/discovery"
	"github.com/fkoehler/gearharvest/extract"
	"github.com/fkoehler/gearharvest/metrics"
	"github.com/fkoehler/gearharvest/models"
	"github.com/fkoehler/gearharvest/progress"
	"github.com/fkoehler/gearharvest/sites"
	"github.com/fkoehler/gearharvest/snapshot"
)

// Summary describes a completed run.
type Summary struct {
	ArtifactPath string
	Categories   int
	References   int
	Records      int
	Errors       int
	ErrorsByKind map[string]int
	Duration     time.Duration
}

// Runner executes one harvest run for one site.
type Runner struct {
	cfg       *config.Config
	site      sites.Adapter
	metrics   *metrics.Metrics
	events    progress.Emitter
	transport http.RoundTripper
}

// New builds a runner. metrics and events may be nil.
func New(cfg *config.Config, site sites.Adapter, m *metrics.Metrics, events progress.Emitter) *Runner {
	return &Runner{cfg: cfg, site: site, metrics: m, events: events}
}

// WithTransport injects an HTTP transport into both pipeline stages. Used by
// tests to serve fixtures.
func (r *Runner) WithTransport(rt http.RoundTripper) {
	r.transport = rt
}

// Run harvests the site into the configured artifact. Per-category and
// per-reference failures are contained inside the stages; the only fatal
// outcome besides cancellation is a snapshot write failure, which leaves any
// previous artifact untouched.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	r.emit(progress.Event{Stage: progress.StageRunStart, Site: r.site.Name()})

	disc, err := discovery.NewDiscoverer(r.cfg, r.site, r.metrics, r.events)
	if err != nil {
		r.fail(err)
		return nil, fmt.Errorf("initialise discovery: %w", err)
	}
	if r.transport != nil {
		disc.WithTransport(r.transport)
	}

	categories, refs, err := disc.Run(ctx)
	if err != nil {
		r.fail(err)
		return nil, fmt.Errorf("discovery: %w", err)
	}

	engine := extract.NewEngine(r.cfg, r.metrics, r.events)
	if r.transport != nil {
		engine.WithTransport(r.transport)
	}

	r.emit(progress.Event{Stage: progress.StageExtractionStart, Site: r.site.Name(), Count: len(refs)})
	results := engine.ExtractAll(ctx, r.site, refs)
	r.emit(progress.Event{Stage: progress.StageExtractionDone, Site: r.site.Name(), Count: len(results)})

	snap := snapshot.Aggregate(categories, results)
	if err := snapshot.Write(r.cfg.OutputFile, snap); err != nil {
		r.fail(err)
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	summary := summarize(r.cfg.OutputFile, categories, refs, results, time.Since(start))
	r.emit(progress.Event{
		Stage: progress.StageRunComplete,
		Site:  r.site.Name(),
		Count: summary.Records,
		Note:  summary.ArtifactPath,
	})
	return summary, nil
}

func summarize(path string, categories []models.Category, refs []models.ProductReference, results []models.Result, dur time.Duration) *Summary {
	summary := &Summary{
		ArtifactPath: path,
		Categories:   len(categories),
		References:   len(refs),
		ErrorsByKind: make(map[string]int),
		Duration:     dur,
	}
	for _, res := range results {
		if res.Err != nil {
			summary.Errors++
			summary.ErrorsByKind[string(res.Err.Kind)]++
			continue
		}
		summary.Records++
	}
	return summary
}

func (r *Runner) emit(evt progress.Event) {
	if r.events != nil {
		r.events.Emit(evt)
	}
}

func (r *Runner) fail(err error) {
	r.emit(progress.Event{Stage: progress.StageRunFailed, Site: r.site.Name(), Note: err.Error()})
}
