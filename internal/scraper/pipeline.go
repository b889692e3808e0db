package scraper

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"comment-scout/internal/logging"
	"comment-scout/pkg/models"
	"comment-scout/pkg/utils"
)

// Job is one crawl request
type Job struct {
	Keyword string
	// IntentKeywords are matched in order; the first hit is recorded
	IntentKeywords []string
	MaxItems       int
}

// Validate checks the job is runnable
func (j Job) Validate() error {
	if j.Keyword == "" {
		return errors.New("keyword is required")
	}
	if j.MaxItems <= 0 {
		return fmt.Errorf("max items must be positive, got %d", j.MaxItems)
	}
	return nil
}

// Pipeline runs discovery then per-item extraction, flushing each item's
// matches before moving on
type Pipeline struct {
	discoverer *Discoverer
	extractor  *Extractor
	store      Flusher
	workers    int
	progress   *Progress
	logger     logging.Logger
}

// NewPipeline wires the stages. workers above one extracts items
// concurrently, each on its own page.
func NewPipeline(discoverer *Discoverer, extractor *Extractor, store Flusher, workers int, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		discoverer: discoverer,
		extractor:  extractor,
		store:      store,
		workers:    workers,
		progress:   NewProgress(),
		logger:     logger.WithField("component", "pipeline"),
	}
}

// Progress exposes live run counters
func (p *Pipeline) Progress() *Progress {
	return p.progress
}

// Run executes job. Per-item failures are logged and counted; only
// cancellation or an invalid job ends the run with an error.
func (p *Pipeline) Run(ctx context.Context, job Job) (models.RunStats, error) {
	if err := job.Validate(); err != nil {
		return p.progress.Snapshot(), err
	}
	if len(job.IntentKeywords) == 0 {
		p.logger.Warn("No intent keywords configured, nothing can match", map[string]interface{}{})
	}

	runID := utils.GenerateRunID()
	logger := p.logger.WithField("run_id", runID)
	p.progress.begin(runID, job.Keyword)

	logger.Info("Starting crawl", map[string]interface{}{
		"keyword":   job.Keyword,
		"intents":   job.IntentKeywords,
		"max_items": job.MaxItems,
		"workers":   p.workers,
	})

	links, err := p.discoverer.Discover(ctx, job.Keyword, job.MaxItems)
	if err != nil {
		if ctx.Err() != nil {
			return p.abort(logger, ctx.Err())
		}
		logger.Warn("Discovery failed, no items to process", map[string]interface{}{
			"error": err.Error(),
		})
		links = nil
	}
	p.progress.update(func(s *models.RunStats) {
		s.LinksDiscovered = len(links)
		s.Phase = models.PhaseExtraction
	})

	if p.workers == 1 {
		for i, link := range links {
			if ctx.Err() != nil {
				break
			}
			p.processItem(ctx, logger, i, link, job.IntentKeywords)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for i, link := range links {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				p.processItem(gctx, logger, i, link, job.IntentKeywords)
				return nil
			})
		}
		_ = g.Wait()
	}

	if ctx.Err() != nil {
		return p.abort(logger, ctx.Err())
	}

	p.progress.finish(models.PhaseDone)
	stats := p.progress.Snapshot()
	logger.Info("Crawl finished", map[string]interface{}{
		"links":     stats.LinksDiscovered,
		"processed": stats.ItemsProcessed,
		"failed":    stats.ItemsFailed,
		"records":   stats.RecordsFlushed,
		"elapsed":   utils.FormatDuration(stats.Elapsed),
	})
	return stats, nil
}

func (p *Pipeline) processItem(ctx context.Context, logger logging.Logger, index int, link string, keywords []string) {
	records, err := p.extractor.Extract(ctx, link, keywords)
	failed := err != nil
	if failed && ctx.Err() == nil {
		fields := map[string]interface{}{
			"index": index,
			"url":   link,
			"error": err.Error(),
		}
		if utils.IsTransient(err) {
			logger.Warn("Extraction failed, skipping item", fields)
		} else {
			logger.Error("Extraction failed unexpectedly, skipping item", fields)
		}
	}

	p.progress.update(func(s *models.RunStats) {
		s.ItemsProcessed++
		if failed {
			s.ItemsFailed++
		}
		s.RecordsFound += len(records)
	})

	if len(records) == 0 {
		return
	}

	// records already extracted are kept even when the run is being cancelled
	if err := p.store.Flush(context.WithoutCancel(ctx), records); err != nil {
		logger.Error("Failed to persist item records", map[string]interface{}{
			"url":     link,
			"records": len(records),
			"error":   err.Error(),
		})
		p.progress.update(func(s *models.RunStats) { s.FlushFailures++ })
		return
	}
	p.progress.update(func(s *models.RunStats) { s.RecordsFlushed += len(records) })
}

func (p *Pipeline) abort(logger logging.Logger, err error) (models.RunStats, error) {
	p.progress.finish(models.PhaseFailed)
	logger.Warn("Crawl interrupted", map[string]interface{}{
		"error": err.Error(),
	})
	return p.progress.Snapshot(), err
}
