package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parcelmesh/baglink/internal/engine"
	"github.com/parcelmesh/baglink/pkg/types"
)

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count PARENT_CODE",
		Short: "Print the number of children linked under a parent",
		Args:  cobra.ExactArgs(1),
		RunE:  runCount,
	}
}

func runCount(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(e *engine.Engine) error {
		n, err := e.GetChildCount(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return exitError(exitUserError, fmt.Sprintf("unknown container: %s", args[0]))
			}
			return exitError(exitSysError, fmt.Sprintf("count failed: %s", err))
		}

		if flags.jsonMode {
			return printJSON(cmd, map[string]any{"parent": args[0], "count": n})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
		return nil
	})
}
