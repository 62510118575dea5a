package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parcelmesh/baglink/internal/engine"
	"github.com/parcelmesh/baglink/pkg/types"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show PARENT_CODE",
		Short: "List the children linked under a parent",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(e *engine.Engine) error {
		children, err := e.ListChildren(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return exitError(exitUserError, fmt.Sprintf("unknown container: %s", args[0]))
			}
			return exitError(exitSysError, fmt.Sprintf("show failed: %s", err))
		}

		if flags.jsonMode {
			return printJSON(cmd, children)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d children\n",
			args[0], len(children), types.MaxChildren)
		for _, c := range children {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s (%s)\n", c.ExternalCode, c.Status)
		}
		return nil
	})
}
