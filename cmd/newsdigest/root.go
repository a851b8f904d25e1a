package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "newsdigest",
	Short: "Turn newsletter archives into AI-generated summaries",
	Long: "Newsdigest scrapes a newsletter archive, renders each issue to PDF,\n" +
		"recovers the text (with OCR fallback), and summarizes every issue\n" +
		"through an OpenAI-compatible model. Runs are resumable: completed\n" +
		"stages are never re-executed.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.Version = version
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
