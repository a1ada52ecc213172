package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askContext     string
	askContextFile string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about a document",
	Long: `Answers a question against --context, the text of --context-file, or the most
recently analysed document (shared through Redis when SLOT_BACKEND=redis).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askContext, "context", "", "context text")
	askCmd.Flags().StringVar(&askContextFile, "context-file", "", "read the context from a text file")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	docContext := askContext
	if askContextFile != "" {
		b, err := os.ReadFile(askContextFile)
		if err != nil {
			return err
		}
		docContext = string(b)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.RequestTimeout)
	defer cancel()

	c, err := buildService(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer c.Close(logger)

	answer, err := c.svc.Ask(ctx, strings.Join(args, " "), docContext)
	if err != nil {
		return userError(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}
