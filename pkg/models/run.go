package models

import "time"

// RunPhase describes where a crawl run currently is
type RunPhase string

const (
	PhaseIdle       RunPhase = "idle"
	PhaseLogin      RunPhase = "awaiting_login"
	PhaseDiscovery  RunPhase = "discovery"
	PhaseExtraction RunPhase = "extraction"
	PhaseDone       RunPhase = "done"
	PhaseFailed     RunPhase = "failed"
)

// RunStats is a point-in-time view of a crawl run
type RunStats struct {
	RunID           string        `json:"run_id"`
	Keyword         string        `json:"keyword"`
	Engine          string        `json:"engine"`
	Phase           RunPhase      `json:"phase"`
	LinksDiscovered int           `json:"links_discovered"`
	ItemsProcessed  int           `json:"items_processed"`
	ItemsFailed     int           `json:"items_failed"`
	RecordsFound    int           `json:"records_found"`
	RecordsFlushed  int           `json:"records_flushed"`
	FlushFailures   int           `json:"flush_failures"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
	Elapsed         time.Duration `json:"elapsed"`
}
