package commands

import (
	"github.com/spf13/cobra"

	"comment-scout/internal/config"
	"comment-scout/internal/logging"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Opens a browser for manual login and saves the session for later runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap(func(cfg *config.Config) { cfg.Scraper.Headless = false })
		if err != nil {
			return err
		}
		return runLogin(cmd.Context(), cfg, newConsole(cmd.InOrStdin(), cmd.OutOrStdout()), logging.GetGlobalLogger())
	},
}
