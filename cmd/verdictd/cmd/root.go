package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "verdictd",
	Short: "Verdict evaluation server",
	Long:  `verdictd serves the Verdict HTTP API for scoring LLM outputs against configurable metrics.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
