package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaipakiran/hybridsearch/pkg/filesearch"
)

func newIndexCmd() *cobra.Command {
	var (
		semantic bool
		prune    bool
	)

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory for searching",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			engine, err := filesearch.Open(indexDir)
			if err != nil {
				return err
			}
			defer engine.Close()

			result, err := engine.IndexDirectory(cmd.Context(), root, semantic, prune)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d, skipped %d, failed %d\n",
				result.Indexed, result.Skipped, result.Failed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&semantic, "semantic", true, "embed text and images during indexing")
	cmd.Flags().BoolVar(&prune, "prune", false, "remove index entries for files no longer on disk")
	return cmd
}
