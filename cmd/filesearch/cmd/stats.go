package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kaipakiran/hybridsearch/pkg/filesearch"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index size and composition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := filesearch.Open(indexDir)
			if err != nil {
				return err
			}
			defer engine.Close()

			st, err := engine.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "files:  %d\n", st.TotalFiles)
			fmt.Fprintf(out, "size:   %s\n", humanize.Bytes(uint64(st.BytesTotal)))
			for ft, n := range st.FilesByType {
				fmt.Fprintf(out, "  %-10s %d\n", ft, n)
			}
			for vt, n := range st.VectorsByType {
				fmt.Fprintf(out, "vectors[%s]: %d\n", vt, n)
			}
			return nil
		},
	}
}
