package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wikipuff",
	Short: "wikipuff - demo search API over a managed vector/full-text store",
	Long: `wikipuff serves a demo search API backed by a turbopuffer namespace of
Wikipedia articles, supporting semantic, full-text (BM25), phrase
(token-containment) and hybrid (RRF-fused) search modes.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(uploadCmd)
}
