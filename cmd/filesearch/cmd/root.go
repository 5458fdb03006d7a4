// Package cmd provides the CLI commands for filesearch.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kaipakiran/hybridsearch/pkg/version"
)

var indexDir string

// NewRootCmd creates the root command for the filesearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "filesearch",
		Short:   "Local hybrid file search: keyword, semantic, and image-by-text",
		Long:    `filesearch indexes a directory tree and answers queries using BM25 keyword search, dense semantic search, CLIP-style image-by-text search, and a fused hybrid of the first two. Everything runs offline.`,
		Version: version.Version,
	}

	cmd.PersistentFlags().StringVar(&indexDir, "index-dir", ".filesearch", "directory holding the on-disk index artifacts")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
