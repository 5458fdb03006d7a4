package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaipakiran/hybridsearch/pkg/filesearch"
)

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop all on-disk index artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := filesearch.Open(indexDir)
			if err != nil {
				return err
			}
			if err := engine.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared", indexDir)
			return nil
		},
	}
}
