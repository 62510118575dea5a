package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parcelmesh/baglink/internal/engine"
	"github.com/parcelmesh/baglink/pkg/types"
)

var linkActor string

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link PARENT_CODE CHILD_CODE",
		Short: "Attach a child container to a parent",
		Long: `Link attaches the container CHILD_CODE under PARENT_CODE.

Unknown codes are registered on first scan. The link is rejected when the
parent is full, when it would form a cycle, or when either code already
plays the opposite role.

Example:
  baglink link SB00001 CHILD01 --actor scanner-7
  baglink link SB00001 CHILD02 --actor scanner-7 --json`,
		Args: cobra.ExactArgs(2),
		RunE: runLink,
	}
	cmd.Flags().StringVar(&linkActor, "actor", "", "opaque actor identity recorded with the scan (required)")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func runLink(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(e *engine.Engine) error {
		res, err := e.CreateLink(cmd.Context(), args[0], args[1], linkActor)
		if err != nil {
			if types.Retryable(err) {
				return exitError(exitSysError, fmt.Sprintf("transient failure, retry later: %s", err))
			}
			return exitError(exitSysError, fmt.Sprintf("link failed: %s", err))
		}

		if flags.jsonMode {
			return printJSON(cmd, res)
		}

		switch res.Outcome {
		case types.LinkLinked:
			fmt.Fprintf(cmd.OutOrStdout(), "Linked %s under %s (%d/%d)\n",
				args[1], args[0], res.ChildCount, types.MaxChildren)
			if res.Completed {
				fmt.Fprintf(cmd.OutOrStdout(), "Parent %s is now full\n", args[0])
			}
		case types.LinkAlreadyLinked:
			fmt.Fprintf(cmd.OutOrStdout(), "Already linked (%d/%d)\n",
				res.ChildCount, types.MaxChildren)
		case types.LinkCapacityExceeded:
			return exitError(exitUserError, fmt.Sprintf("parent %s is full (%d)", args[0], res.ChildCount))
		case types.LinkCycleDetected:
			return exitError(exitUserError, fmt.Sprintf("link %s -> %s would form a cycle", args[0], args[1]))
		case types.LinkNotFound:
			return exitError(exitUserError, "container disappeared during linking")
		case types.LinkInvalid:
			return exitError(exitUserError, fmt.Sprintf("invalid link request: %s -> %s", args[0], args[1]))
		}
		return nil
	})
}
