// Shared helpers for baglink CLI commands.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parcelmesh/baglink/internal/cache"
	"github.com/parcelmesh/baglink/internal/engine"
	"github.com/parcelmesh/baglink/internal/sqlite"
)

// withEngine attaches the store, builds the linking engine over it, runs
// fn, and detaches. Store attachment failures are system errors.
func withEngine(cmd *cobra.Command, fn func(e *engine.Engine) error) error {
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

	readCache := cache.New(cfg.Cache.GetMaxEntries(), nil)
	return fn(engine.New(store, readCache, nil))
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
