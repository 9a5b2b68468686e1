// Package commands implements the parcelctl CLI: one-shot parcel
// fetches, zone lookups and exports against the cadastre WFS, without a
// running service.
package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"parcelone/internal/core/config"
	"parcelone/internal/core/httpclient"
	"parcelone/internal/core/observability"
	"parcelone/internal/logger"
	"parcelone/internal/wfs"
	"parcelone/internal/zones"
)

var (
	cfg      config.Config
	fetcher  *wfs.Fetcher
	table    *zones.Table
	register string
	srs      string
	verbose  bool
)

func Execute() error {
	cfg = config.FromEnv()
	root := &cobra.Command{
		Use:           "parcelctl",
		Short:         "Fetch Slovak cadastral parcels over WFS",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.FromEnv()
			level := "warn"
			if verbose {
				level = "debug"
			}
			zl := logger.Build(logger.Config{
				Level:     level,
				Console:   true,
				Component: "parcelctl",
			}, os.Stderr)
			log := logger.NewSlog(&zl)

			hc := httpclient.NewOutbound(cfg.ConnectTimeout, cfg.ReadTimeout)
			client := wfs.NewClient(hc, log, cfg.RetryAttempts, cfg.RetryBackoff)
			fetcher = wfs.NewFetcher(client, cfg.WFSBaseC, cfg.WFSBaseE, wfs.Options{
				PageSize:          cfg.PageSize,
				PreviewPageSize:   cfg.PreviewPageSize,
				StartIndexCeiling: cfg.StartIndexCeiling,
				MinPlausibleBytes: cfg.MinPlausibleBytes,
			}, observability.StepSink())
			table = zones.Default()
		},
	}

	root.PersistentFlags().StringVarP(&register, "register", "r", "C", `cadastral register ("C" or "E")`)
	root.PersistentFlags().StringVar(&srs, "srs", "",
		"output projection, one of "+strings.Join(cfg.CRSChoices, ", ")+" (default: server)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(fetchCmd(), bboxCmd(), resolveCmd(), exportCmd())
	return root.Execute()
}

// resolveZone turns a zone name or code argument into a code.
func resolveZone(arg string) (string, []zones.Zone) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", nil
	}
	return table.Resolve(arg)
}
