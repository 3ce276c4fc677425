// Package cli wires the cobra command tree: serve runs the bot daemon,
// search queries the local catalog for diagnostics, version prints
// build info.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/shelfbot/shelfbot/internal/logger"
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "shelfbot",
	Short: "Telegram library bot",
	Long: `shelfbot indexes documents posted to a Telegram channel into a local
SQLite catalog and serves searches and downloads in group chats.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			logger.SetVerbose(true)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
