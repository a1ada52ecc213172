package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/lexiscan/constants"
	"github.com/joseph-ayodele/lexiscan/internal/common"
	"github.com/joseph-ayodele/lexiscan/internal/llm"
	"github.com/joseph-ayodele/lexiscan/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Analyse a document, or text read from stdin with \"-\"",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

type analyzeOutput struct {
	ExtractedText string              `json:"extractedText,omitempty"`
	Analysis      *llm.AnalysisResult `json:"analysis,omitempty"`
	Error         string              `json:"error,omitempty"`
	Pages         int                 `json:"pages,omitempty"`
	SkippedPages  int                 `json:"skippedPages,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.RequestTimeout)
	defer cancel()

	fromStdin := args[0] == "-"
	c, err := buildService(ctx, cfg, logger, !fromStdin)
	if err != nil {
		return err
	}
	defer c.Close(logger)

	var out analyzeOutput
	if fromStdin {
		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		res, err := c.svc.AnalyzeText(ctx, string(text))
		if err != nil {
			return userError(err)
		}
		out.Analysis = &res
	} else {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		res, err := c.svc.AnalyzeFile(ctx, pipeline.SourceFile{
			Name: filepath.Base(path),
			MIME: constants.MIMEForPath(path),
			Size: int64(len(data)),
			Data: data,
		})
		if err != nil {
			return userError(err)
		}
		out = analyzeOutput{
			ExtractedText: res.ExtractedText,
			Analysis:      res.Analysis,
			Error:         res.Error,
			Pages:         res.Pages,
			SkippedPages:  res.SkippedPages,
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

// userError keeps the client message and the cause for the terminal.
func userError(err error) error {
	return fmt.Errorf("%s (%w)", common.UserMessage(err, constants.MsgInternal), err)
}
