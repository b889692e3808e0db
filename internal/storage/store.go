package storage

import (
	"context"
	"errors"
	"sync"

	"comment-scout/internal/config"
	"comment-scout/internal/logging"
	"comment-scout/pkg/models"
)

// Sink mirrors flushed records to a secondary destination
type Sink interface {
	Name() string
	Publish(ctx context.Context, records []models.CommentRecord) error
	Close() error
}

// Store is the single writer for one CSV/JSON output pair. Flushes are
// serialized so concurrent extraction workers never interleave the JSON
// read-modify-write cycle.
type Store struct {
	csvPath  string
	jsonPath string
	sinks    []Sink
	logger   logging.Logger

	mu sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSinks adds mirror sinks, published to after each successful flush
func WithSinks(sinks ...Sink) Option {
	return func(s *Store) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// New creates a store writing to the given paths
func New(csvPath, jsonPath string, opts ...Option) *Store {
	s := &Store{
		csvPath:  csvPath,
		jsonPath: jsonPath,
		logger:   logging.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "storage")
	return s
}

// NewFromConfig creates a store for cfg.Output with every enabled mirror
// sink. A sink that cannot connect is logged and left out.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	var sinks []Sink
	add := func(name string, sink Sink, err error) {
		if err != nil {
			logger.Warn("Mirror sink unavailable, continuing without it", map[string]interface{}{
				"sink":  name,
				"error": err.Error(),
			})
			return
		}
		sinks = append(sinks, sink)
	}

	if rc := cfg.Sinks.Redis; rc.Enabled {
		sink, err := NewRedisSink(ctx, RedisOptions{
			URL:      rc.URL,
			Password: rc.Password,
			DB:       rc.DB,
			Key:      rc.Key,
			Timeout:  rc.Timeout,
		})
		add("redis", sink, err)
	}
	if nc := cfg.Sinks.NATS; nc.Enabled {
		sink, err := NewNATSSink(nc.URL, nc.Subject)
		add("nats", sink, err)
	}
	if sc := cfg.Sinks.SQLite; sc.Enabled {
		sink, err := NewSQLiteSink(ctx, sc.Path)
		add("sqlite", sink, err)
	}

	return New(cfg.Output.CSVPath, cfg.Output.JSONPath, WithLogger(logger), WithSinks(sinks...))
}

// CSVPath returns the CSV output path
func (s *Store) CSVPath() string { return s.csvPath }

// JSONPath returns the JSON output path
func (s *Store) JSONPath() string { return s.jsonPath }

// Flush persists records to both files, then mirrors them. Mirror failures
// are logged and do not fail the flush.
func (s *Store) Flush(ctx context.Context, records []models.CommentRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := flush(records, s.csvPath, s.jsonPath, s.logger); err != nil {
		return err
	}
	s.logger.Debug("Flushed records", map[string]interface{}{
		"records": len(records),
		"csv":     s.csvPath,
		"json":    s.jsonPath,
	})

	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, records); err != nil {
			s.logger.Warn("Mirror sink publish failed", map[string]interface{}{
				"sink":    sink.Name(),
				"records": len(records),
				"error":   err.Error(),
			})
		}
	}
	return nil
}

// Close releases every mirror sink
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.sinks = nil
	return errors.Join(errs...)
}
