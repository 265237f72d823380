package cli

import (
	"github.com/spf13/cobra"
)

var jsonLogs bool

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "A LINE companion with moods, memories and a life of its own",
	Long: "Companion answers LINE messages as a persona whose mood, energy and affection " +
		"drift with every conversation, and who writes first at fixed moments of the day.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit structured JSON logs instead of console output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(moodsCmd)
	rootCmd.AddCommand(recoverCmd)
}
