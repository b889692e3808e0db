package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"comment-scout/internal/api"
	"comment-scout/internal/config"
	"comment-scout/internal/logging"
	"comment-scout/internal/scraper"
	"comment-scout/internal/session"
	"comment-scout/internal/storage"
	"comment-scout/pkg/models"
)

const shutdownTimeout = 5 * time.Second

var errHeadlessLogin = errors.New("manual login needs a visible browser, run without --headless")

// runCrawl wires store, session, status API and pipeline for one crawl.
// Every resource acquired here is released before it returns.
func runCrawl(ctx context.Context, cfg *config.Config, con *console, logger logging.Logger, opts ...session.Option) (models.RunStats, error) {
	job := scraper.Job{
		Keyword:        cfg.Job.Keyword,
		IntentKeywords: cfg.Job.IntentKeywords,
		MaxItems:       cfg.Discovery.MaxItems,
	}
	if err := job.Validate(); err != nil {
		return models.RunStats{}, err
	}

	store := storage.NewFromConfig(ctx, cfg, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close mirror sinks", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	sessOpts := session.OptionsFromConfig(cfg)
	sessOpts.IgnoreStoredState = cfg.Session.LoginPrompt == loginAlways
	sess := session.New(sessOpts, append([]session.Option{session.WithLogger(logger)}, opts...)...)
	// Stop logs its own failures
	defer func() { _ = sess.Stop() }()

	pacer := scraper.NewPacer(cfg.Scraper.NavigationsPerMinute)
	discoverer, err := scraper.NewDiscoverer(sess, scraper.DiscoveryOptionsFromConfig(cfg), pacer, logger)
	if err != nil {
		return models.RunStats{}, err
	}
	extractor := scraper.NewExtractor(sess, scraper.ExtractionOptionsFromConfig(cfg), pacer, logger)
	pipeline := scraper.NewPipeline(discoverer, extractor, store, cfg.Extraction.Workers, logger)
	progress := pipeline.Progress()

	if cfg.Status.Addr != "" {
		srv, err := api.NewServer(cfg.Status.Addr, progress, logger)
		if err != nil {
			return models.RunStats{}, fmt.Errorf("failed to start status API: %w", err)
		}
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Status API did not shut down cleanly", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	if err := sess.Start(ctx); err != nil {
		return progress.Snapshot(), err
	}
	progress.SetEngine(sess.Engine())

	if err := loginIfNeeded(ctx, cfg, sess, con, progress, logger); err != nil {
		return progress.Snapshot(), err
	}

	return pipeline.Run(ctx, job)
}

// loginIfNeeded runs the manual login phase when the prompt mode asks for it
func loginIfNeeded(ctx context.Context, cfg *config.Config, sess *session.Manager, con *console, progress *scraper.Progress, logger logging.Logger) error {
	mode := cfg.Session.LoginPrompt
	if cfg.Scraper.Headless && !sess.Authenticated() {
		if mode == loginAlways {
			return errHeadlessLogin
		}
		mode = loginNever
	}

	ok, err := needsLogin(con, mode, sess.Authenticated(), sess.HasStoredState())
	if err != nil {
		return fmt.Errorf("failed to read login answer: %w", err)
	}
	if !ok {
		if !sess.Authenticated() {
			logger.Info("Continuing without login, some results may be hidden", map[string]interface{}{})
		}
		return nil
	}

	progress.SetPhase(models.PhaseLogin)
	confirm := con.waitForEnter("Complete the login in the browser window, then press Enter here.")
	return sess.ManualLogin(ctx, confirm)
}

// runLogin replaces the stored authentication state through a manual login
func runLogin(ctx context.Context, cfg *config.Config, con *console, logger logging.Logger, opts ...session.Option) error {
	if cfg.Scraper.Headless {
		return errHeadlessLogin
	}

	sessOpts := session.OptionsFromConfig(cfg)
	sessOpts.IgnoreStoredState = true
	sess := session.New(sessOpts, append([]session.Option{session.WithLogger(logger)}, opts...)...)
	defer func() { _ = sess.Stop() }()

	if err := sess.Start(ctx); err != nil {
		return err
	}
	confirm := con.waitForEnter("Complete the login in the browser window, then press Enter here.")
	if err := sess.ManualLogin(ctx, confirm); err != nil {
		return err
	}

	fmt.Fprintf(con.out, "Login state saved to %s\n", cfg.Session.AuthStatePath)
	return nil
}
