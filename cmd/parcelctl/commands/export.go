package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"parcelone/internal/export"
	"parcelone/internal/geojson"
)

func exportCmd() *cobra.Command {
	var (
		parcels string
		format  string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "export <zone>",
		Short: "Download parcels as gml zip, geojson, dxf, gpkg or kml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := buildQuery(args, parcels)
			if err != nil {
				return err
			}
			if out == "" {
				name := q.ZoneCode
				if name == "" {
					name = "vyber"
				}
				out = "parcely_" + name + extFor(format)
			}

			switch format {
			case "gml":
				res := fetcher.FetchGML(cmd.Context(), q)
				if !res.OK {
					return fmt.Errorf("fetch failed: %s", res.Note)
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := export.GMLZip(f, q.ZoneCode, res.Pages); err != nil {
					return err
				}

			case "geojson":
				res := fetcher.FetchGeoJSON(cmd.Context(), q, cfg.PageSize)
				if !res.OK {
					return fmt.Errorf("fetch failed: %s", res.Note)
				}
				merged, stats, err := geojson.MergePages(res.Pages, 0)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, merged, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "features: %d\n", stats.Kept)

			case "dxf":
				res := fetcher.FetchGeoJSON(cmd.Context(), q, cfg.PageSize)
				if !res.OK {
					return fmt.Errorf("fetch failed: %s", res.Note)
				}
				if err := os.WriteFile(out, export.DXFFromGeoJSONPages(res.Pages), 0o644); err != nil {
					return err
				}

			case "gpkg", "kml":
				conv, err := export.NewOGRConverter(cfg.Ogr2ogrPath)
				if err != nil {
					return fmt.Errorf("%s export needs ogr2ogr on PATH: %w", format, err)
				}
				res := fetcher.FetchGML(cmd.Context(), q)
				if !res.OK {
					return fmt.Errorf("fetch failed: %s", res.Note)
				}
				f := export.FormatGPKG
				if format == "kml" {
					f = export.FormatKML
				}
				data, err := conv.Convert(cmd.Context(), res.Pages, f)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}

			default:
				return fmt.Errorf("unknown format %q", format)
			}

			fmt.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&parcels, "parcels", "p", "", "parcel labels, comma separated")
	cmd.Flags().StringVarP(&format, "format", "f", "gml", "gml|geojson|dxf|gpkg|kml")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default derived from zone)")
	return cmd
}

func extFor(format string) string {
	switch format {
	case "geojson":
		return ".geojson"
	case "dxf":
		return ".dxf"
	case "gpkg":
		return ".gpkg"
	case "kml":
		return ".kml"
	default:
		return ".zip"
	}
}
