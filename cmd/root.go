package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "policyrag",
	Short: "Retrieval-augmented question answering over HR policy documents",
	Long: `policyrag ingests HR policy documents into a hybrid (dense + sparse)
vector store and serves a streaming question-answering gateway that
routes, retrieves, re-ranks, and generates grounded answers with
citations.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".policyrag.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
