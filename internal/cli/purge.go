package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parcelmesh/baglink/internal/sqlite"
	"github.com/parcelmesh/baglink/pkg/types"
)

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge CODE",
		Short: "Remove a container and everything that references it",
		Long: `Purge is the maintenance path for deleting a container. The delete
cascades to the container's edges in either direction and its scan
events.`,
		Args: cobra.ExactArgs(1),
		RunE: runPurge,
	}
}

func runPurge(cmd *cobra.Command, args []string) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("resolve data dir: %s", err))
	}

	cfg := storeConfig(loadedConfig, dataDir)

	store := sqlite.NewStore(nil)
	if err := store.Attach(cfg); err != nil {
		return exitError(exitSysError, fmt.Sprintf("attach store: %s", err))
	}
	defer store.Detach()

	if err := store.PurgeContainer(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return exitError(exitUserError, fmt.Sprintf("unknown container: %s", args[0]))
		}
		return exitError(exitSysError, fmt.Sprintf("purge failed: %s", err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Purged %s\n", args[0])
	return nil
}
