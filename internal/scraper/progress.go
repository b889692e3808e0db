package scraper

import (
	"sync"
	"time"

	"comment-scout/pkg/models"
)

// Progress holds live counters of the current run, safe for concurrent reads
type Progress struct {
	mu    sync.RWMutex
	stats models.RunStats
}

// NewProgress returns an idle tracker
func NewProgress() *Progress {
	return &Progress{stats: models.RunStats{Phase: models.PhaseIdle}}
}

// Snapshot returns a copy of the counters with Elapsed filled in
func (p *Progress) Snapshot() models.RunStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := p.stats
	switch {
	case stats.StartedAt.IsZero():
	case stats.FinishedAt != nil:
		stats.Elapsed = stats.FinishedAt.Sub(stats.StartedAt)
	default:
		stats.Elapsed = time.Since(stats.StartedAt)
	}
	return stats
}

// SetPhase records the current phase
func (p *Progress) SetPhase(phase models.RunPhase) {
	p.update(func(s *models.RunStats) { s.Phase = phase })
}

// SetEngine records the browser backend in use
func (p *Progress) SetEngine(engine string) {
	p.update(func(s *models.RunStats) { s.Engine = engine })
}

func (p *Progress) begin(runID, keyword string) {
	p.update(func(s *models.RunStats) {
		*s = models.RunStats{
			RunID:     runID,
			Keyword:   keyword,
			Engine:    s.Engine,
			Phase:     models.PhaseDiscovery,
			StartedAt: time.Now(),
		}
	})
}

func (p *Progress) finish(phase models.RunPhase) {
	p.update(func(s *models.RunStats) {
		now := time.Now()
		s.Phase = phase
		s.FinishedAt = &now
	})
}

func (p *Progress) update(fn func(*models.RunStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.stats)
}
