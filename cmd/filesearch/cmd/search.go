package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaipakiran/hybridsearch/internal/errs"
	"github.com/kaipakiran/hybridsearch/internal/search"
	"github.com/kaipakiran/hybridsearch/pkg/filesearch"
)

func newSearchCmd() *cobra.Command {
	var (
		limit  int
		mode   string
		weight float64
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]

			engine, err := filesearch.Open(indexDir)
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx := cmd.Context()
			var hits []search.Hit
			switch mode {
			case "keyword":
				hits, err = engine.Search.KeywordSearch(ctx, query, limit)
			case "semantic":
				hits, err = engine.Search.SemanticSearch(ctx, query, limit)
			case "image":
				hits, err = engine.Search.ImageSearch(ctx, query, limit)
			case "hybrid", "":
				hits, err = engine.Search.HybridSearch(ctx, query, weight, limit)
			default:
				return errs.InvalidInput(fmt.Sprintf("unknown search mode %q", mode))
			}
			if err != nil {
				return err
			}

			for i, h := range hits {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %-60s %.4f  [%s]\n", i+1, h.Path, h.Score, h.Source)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "k", 10, "number of results to return")
	cmd.Flags().StringVarP(&mode, "mode", "m", "hybrid", "search mode: keyword, semantic, image, hybrid")
	cmd.Flags().Float64VarP(&weight, "weight", "w", 0.5, "keyword weight in [0,1] for hybrid fusion")
	return cmd
}
