package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Look up a zone code by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, cands := resolveZone(args[0])
			if code == "" && len(cands) == 0 {
				return fmt.Errorf("no zone matches %q", args[0])
			}
			if len(cands) <= 1 {
				fmt.Println(code)
				return nil
			}
			for _, c := range cands {
				fmt.Printf("%s  %s\n", c.Code, c.Name)
			}
			return nil
		},
	}
	return cmd
}
