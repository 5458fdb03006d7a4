package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaipakiran/hybridsearch/pkg/filesearch"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every indexed file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := filesearch.Open(indexDir)
			if err != nil {
				return err
			}
			defer engine.Close()

			recs, err := engine.ListAll(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range recs {
				fmt.Fprintf(out, "%-8d %-10s %s\n", r.FileID, r.FileType, r.Path)
			}
			return nil
		},
	}
}
