package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/lexiscan/internal/similarity"
)

var similarityCmd = &cobra.Command{
	Use:   "similarity <a> <b>",
	Short: "Print the normalised edit-distance similarity of two strings (0..1)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", similarity.Score(args[0], args[1]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(similarityCmd)
}
