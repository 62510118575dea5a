// Config loading for the baglink CLI.
package cli

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/parcelmesh/baglink/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys.
	cfgKeyDataDir          = "data_dir"
	cfgKeyPoolBase         = "pool.base_conns"
	cfgKeyPoolOverflow     = "pool.overflow_conns"
	cfgKeyPoolConnLifetime = "pool.conn_max_lifetime_secs"
	cfgKeyPoolHealthPeriod = "pool.health_check_period_secs"
	cfgKeyCacheMaxEntries  = "cache.max_entries"
)

// loadConfig reads config.yaml from the resolved config directory using
// Viper. A missing directory or config.yaml is not an error; "init"
// creates both.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// storeConfig builds a types.Config from the loaded Viper settings and
// the resolved data directory.
func storeConfig(v *viper.Viper, dataDir string) types.Config {
	return types.Config{
		DataDir: dataDir,
		Pool: types.PoolConfig{
			BaseConns:             v.GetInt(cfgKeyPoolBase),
			OverflowConns:         v.GetInt(cfgKeyPoolOverflow),
			ConnMaxLifetimeSecs:   v.GetInt(cfgKeyPoolConnLifetime),
			HealthCheckPeriodSecs: v.GetInt(cfgKeyPoolHealthPeriod),
		},
		Cache: types.CacheConfig{
			MaxEntries: v.GetInt(cfgKeyCacheMaxEntries),
		},
	}
}

