package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parcelmesh/baglink/pkg/baglink"
)

const modulePath = "github.com/parcelmesh/baglink"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the baglink version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "baglink v%s\nmodule: %s\n", baglink.Version, modulePath)
			return nil
		},
	}
}
