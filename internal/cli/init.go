package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/parcelmesh/baglink/internal/sqlite"
	"github.com/parcelmesh/baglink/pkg/types"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	DataDir string `yaml:"data_dir,omitempty"`
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize baglink storage",
		Long:  "Create configuration and data directories, then initialize the storage backend.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := resolveConfigDir()
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("resolve config directory: %s", err))
	}
	dataDir, err := resolveDataDir()
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("resolve data directory: %s", err))
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return exitError(exitSysError, fmt.Sprintf("create config directory: %s", err))
	}

	configPath := filepath.Join(configDir, configFileExt)
	if err := writeConfigIfMissing(configPath, dataDir); err != nil {
		return exitError(exitSysError, fmt.Sprintf("write config: %s", err))
	}

	// Initialize the data directory via Store.Attach then Detach.
	store := sqlite.NewStore(nil)
	if err := store.Attach(types.Config{DataDir: dataDir}); err != nil {
		return exitError(exitSysError, fmt.Sprintf("initialize storage: %s", err))
	}
	if err := store.Detach(); err != nil {
		return exitError(exitSysError, fmt.Sprintf("finalize storage: %s", err))
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Baglink initialized successfully")
	return nil
}

// writeConfigIfMissing creates config.yaml with default values if the
// file does not exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	cfg := configFile{DataDir: dataDir}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
