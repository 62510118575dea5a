// Package cli implements the baglink command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parcelmesh/baglink/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

var flags rootFlags

// configDataDir holds the data_dir value loaded from config.yaml.
// Set by PersistentPreRunE so all subcommands can use it.
var configDataDir string

// loadedConfig holds the parsed config.yaml settings for pool and cache
// tuning. Set alongside configDataDir.
var loadedConfig *viper.Viper

// NewRootCmd creates the top-level "baglink" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "baglink",
		Short: "Track containers scanned into a logistics pipeline",
		Long: "Baglink records scanned containers (bags) and the parent/child\n" +
			"relationships between them, enforcing per-parent capacity and\n" +
			"acyclicity of the relationship graph.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := resolveConfigDir()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			loadedConfig = cfg
			configDataDir = cfg.GetString(cfgKeyDataDir)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.baglink-db)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newLinkCmd())
	root.AddCommand(newCountCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newPurgeCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitUserError)
	}
}

// resolveConfigDir returns the config directory from flag, env, or default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flags.configDir)
}

// resolveDataDir returns the data directory from flag, config, env, or default.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flags.dataDir, configDataDir)
}

// exitError prints the error to stderr and exits with the given code.
func exitError(code int, msg string) error {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
	return nil // unreachable
}
