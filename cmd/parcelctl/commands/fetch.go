package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"parcelone/internal/core/model"
)

func fetchCmd() *cobra.Command {
	var (
		parcels string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "fetch <zone>",
		Short: "Fetch all parcel pages for a zone and report a summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := buildQuery(args, parcels)
			if err != nil {
				return err
			}

			var res model.FetchResult
			if workers > 1 {
				res = fetcher.FetchGMLParallel(cmd.Context(), q, workers)
			} else {
				res = fetcher.FetchGML(cmd.Context(), q)
			}
			if !res.OK {
				return fmt.Errorf("fetch failed: %s", res.Note)
			}

			total := 0
			for _, p := range res.Pages {
				total += len(p)
			}
			fmt.Printf("%s\n", res.Note)
			fmt.Printf("bytes: %d\n", total)
			if res.DetectedCRS != "" {
				fmt.Printf("crs: %s\n", res.DetectedCRS)
			}
			if verbose {
				fmt.Printf("first url: %s\n", res.FirstURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&parcels, "parcels", "p", "", "parcel labels, comma separated (e.g. 123/4,125)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "parallel page workers (needs numberMatched from the server)")
	return cmd
}

// buildQuery assembles a validated query from the zone argument and
// parcel flag, resolving zone names against the embedded table.
func buildQuery(args []string, parcels string) (model.Query, error) {
	var zone string
	if len(args) > 0 {
		code, cands := resolveZone(args[0])
		if code == "" && len(cands) == 0 && args[0] != "" {
			return model.Query{}, fmt.Errorf("unknown zone %q", args[0])
		}
		if len(cands) > 1 {
			fmt.Println("ambiguous zone, candidates:")
			for _, c := range cands {
				fmt.Printf("  %s  %s\n", c.Code, c.Name)
			}
			return model.Query{}, fmt.Errorf("ambiguous zone %q", args[0])
		}
		zone = code
	}
	if srs != "" && !slices.Contains(cfg.CRSChoices, srs) {
		return model.Query{}, fmt.Errorf("srs %q not offered, pick one of %s", srs, strings.Join(cfg.CRSChoices, ", "))
	}
	q := model.Query{
		Register: model.ParseRegister(register),
		ZoneCode: zone,
		Parcels:  model.SplitParcels(parcels),
		SRS:      srs,
	}
	if err := q.Validate(); err != nil {
		return model.Query{}, err
	}
	return q, nil
}
