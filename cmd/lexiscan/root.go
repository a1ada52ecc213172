package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/lexiscan/internal/bootstrap"
	"github.com/joseph-ayodele/lexiscan/internal/common"
)

var (
	cfgFile string
	verbose bool

	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lexiscan",
	Short: "OCR and AI analysis of Greek legal documents",
	Long: `lexiscan reads scanned legal documents (PDF, JPEG, PNG) with Google Vision and
Tesseract, keeps the better reading per page, and asks a language model for a
structured legal analysis that can then be questioned.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			if err := os.Setenv("LEXISCAN_CONFIG", cfgFile); err != nil {
				return err
			}
		}
		loaded, err := common.LoadConfig()
		if err != nil {
			return err
		}
		if verbose {
			loaded.Log.Level = "debug"
		}
		cfg = loaded
		logger = bootstrap.NewLogger(cfg.Log, os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file (overrides LEXISCAN_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
