package commands

import (
	"github.com/spf13/cobra"

	"comment-scout/internal/config"
	"comment-scout/internal/logging"
)

var runFlags struct {
	keyword    string
	intents    []string
	csvPath    string
	jsonPath   string
	maxItems   int
	workers    int
	headless   bool
	login      string
	statusAddr string
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.keyword, "keyword", "k", "", "Topic to search for.")
	f.StringSliceVarP(&runFlags.intents, "intent", "i", nil, "Intent keyword, in priority order. Repeat or comma-separate; replaces the configured list.")
	f.StringVar(&runFlags.csvPath, "csv", "", "CSV output path.")
	f.StringVar(&runFlags.jsonPath, "json", "", "JSON output path.")
	f.IntVarP(&runFlags.maxItems, "max-items", "n", 0, "Maximum number of videos to open.")
	f.IntVar(&runFlags.workers, "workers", 0, "Videos extracted concurrently.")
	f.BoolVar(&runFlags.headless, "headless", false, "Run the browser without a window.")
	f.StringVar(&runFlags.login, "login", "", "Manual login: auto (ask when no saved login), always or never.")
	f.StringVar(&runFlags.statusAddr, "status-addr", "", "Serve run status on this address, e.g. 127.0.0.1:8089.")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run --keyword <topic> [--intent <word>]...",
	Short: "Searches recent videos for a topic and saves comments showing purchase intent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap(func(cfg *config.Config) { applyRunFlags(cmd, cfg) })
		if err != nil {
			return err
		}

		stats, err := runCrawl(cmd.Context(), cfg, newConsole(cmd.InOrStdin(), cmd.OutOrStdout()), logging.GetGlobalLogger())
		if stats.RunID != "" {
			renderSummary(cmd.OutOrStdout(), stats, cfg.Output.CSVPath, cfg.Output.JSONPath)
		}
		return err
	},
}

// applyRunFlags copies explicitly set flags over the loaded config
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("keyword") {
		cfg.Job.Keyword = runFlags.keyword
	}
	if changed("intent") {
		cfg.Job.IntentKeywords = runFlags.intents
	}
	if changed("csv") {
		cfg.Output.CSVPath = runFlags.csvPath
	}
	if changed("json") {
		cfg.Output.JSONPath = runFlags.jsonPath
	}
	if changed("max-items") {
		cfg.Discovery.MaxItems = runFlags.maxItems
	}
	if changed("workers") {
		cfg.Extraction.Workers = runFlags.workers
	}
	if changed("headless") {
		cfg.Scraper.Headless = runFlags.headless
	}
	if changed("login") {
		cfg.Session.LoginPrompt = runFlags.login
	}
	if changed("status-addr") {
		cfg.Status.Addr = runFlags.statusAddr
	}
}
