package commands

import (
	"fmt"

	"github.com/mmcloughlin/geohash"
	"github.com/spf13/cobra"

	"parcelone/internal/core/model"
)

func bboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bbox <zone>",
		Short: "Resolve a zone's bounding box for map framing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, cands := resolveZone(args[0])
			if code == "" {
				return fmt.Errorf("unknown zone %q", args[0])
			}
			if len(cands) > 1 {
				code = cands[0].Code
			}

			bb, ok := fetcher.ZoneBBox(cmd.Context(), model.ParseRegister(register), code)
			if !ok {
				return fmt.Errorf("no bbox found for zone %s", code)
			}
			cx, cy := bb.Center()
			fmt.Printf("bbox: %s\n", bb)
			fmt.Printf("center: %.6f,%.6f\n", cx, cy)
			fmt.Printf("share: %s\n", geohash.EncodeWithPrecision(cy, cx, 9))
			return nil
		},
	}
	return cmd
}
