// Package config provides a reusable loader for node configuration files and
// environment variables. It is versioned so that applications can depend on
// a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"
	"math/big"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ghostchain/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration surface for a ghostchaind node. It
// mirrors the structure of the YAML files Load looks for in cmd/config or
// config (no such files ship with this repository; setDefaults covers every
// field but logging.file).
type Config struct {
	Chain struct {
		ID            string `mapstructure:"chain_id" json:"chain_id"`
		BlockTimeMS   int64  `mapstructure:"block_time_ms" json:"block_time_ms"`
		EpochLength   uint64 `mapstructure:"epoch_length" json:"epoch_length"`
		MinStake      string `mapstructure:"min_stake" json:"min_stake"`
		MaxValidators int    `mapstructure:"max_validators" json:"max_validators"`
		SlashingRate  float64 `mapstructure:"slashing_rate" json:"slashing_rate"`
	} `mapstructure:"chain" json:"chain"`

	Storage struct {
		DataDir          string `mapstructure:"data_dir" json:"data_dir"`
		SnapshotInterval int    `mapstructure:"snapshot_interval" json:"snapshot_interval"`
	} `mapstructure:"storage" json:"storage"`

	Cache struct {
		TTLSeconds int `mapstructure:"cache_ttl_seconds" json:"cache_ttl_seconds"`
		HotSize    int `mapstructure:"hot_size" json:"hot_size"`
		SpillSize  int `mapstructure:"spill_size" json:"spill_size"`
	} `mapstructure:"cache" json:"cache"`

	Pool struct {
		MaxConnections int `mapstructure:"max_connections" json:"max_connections"`
		IdleTimeoutSec int `mapstructure:"idle_timeout_seconds" json:"idle_timeout_seconds"`
	} `mapstructure:"pool" json:"pool"`

	Batch struct {
		Size       int `mapstructure:"batch_size" json:"batch_size"`
		TimeoutMS  int `mapstructure:"batch_timeout_ms" json:"batch_timeout_ms"`
	} `mapstructure:"batch" json:"batch"`

	Features struct {
		EnableContracts bool `mapstructure:"enable_contracts" json:"enable_contracts"`
		EnableDomains   bool `mapstructure:"enable_domains" json:"enable_domains"`
	} `mapstructure:"features" json:"features"`

	RPC struct {
		ListenAddr       string `mapstructure:"listen_addr" json:"listen_addr"`
		RequestTimeoutMS int    `mapstructure:"request_timeout_ms" json:"request_timeout_ms"`
	} `mapstructure:"rpc" json:"rpc"`

	Auth struct {
		RateLimit         float64 `mapstructure:"rate_limit" json:"rate_limit"`
		Burst             int     `mapstructure:"burst" json:"burst"`
		SessionTTLSeconds int     `mapstructure:"session_ttl_seconds" json:"session_ttl_seconds"`
	} `mapstructure:"auth" json:"auth"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// MinStakeBig parses Chain.MinStake as a base-10 big.Int, defaulting to zero
// if the field is empty or malformed.
func (c *Config) MinStakeBig() *big.Int {
	v, ok := new(big.Int).SetString(c.Chain.MinStake, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned. If a .env file is present in the working directory its values
// are loaded into the process environment before viper reads overrides.
func Load(env string) (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	setDefaults()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("ghostchain")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the GHOSTCHAIN_ENV environment
// variable to select an overlay file, falling back to defaults alone.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("GHOSTCHAIN_ENV", ""))
}

func setDefaults() {
	viper.SetDefault("chain.chain_id", "ghostchain-dev")
	viper.SetDefault("chain.block_time_ms", 2000)
	viper.SetDefault("chain.epoch_length", 100)
	viper.SetDefault("chain.min_stake", "1000000000000000000000")
	viper.SetDefault("chain.max_validators", 21)
	viper.SetDefault("chain.slashing_rate", 0.1)
	viper.SetDefault("storage.data_dir", "")
	viper.SetDefault("storage.snapshot_interval", 1000)
	viper.SetDefault("cache.cache_ttl_seconds", 300)
	viper.SetDefault("cache.hot_size", 4096)
	viper.SetDefault("cache.spill_size", 65536)
	viper.SetDefault("pool.max_connections", 64)
	viper.SetDefault("pool.idle_timeout_seconds", 120)
	viper.SetDefault("batch.batch_size", 256)
	viper.SetDefault("batch.batch_timeout_ms", 250)
	viper.SetDefault("features.enable_contracts", true)
	viper.SetDefault("features.enable_domains", true)
	viper.SetDefault("rpc.listen_addr", ":8645")
	viper.SetDefault("rpc.request_timeout_ms", 5000)
	viper.SetDefault("auth.rate_limit", 20.0)
	viper.SetDefault("auth.burst", 40)
	viper.SetDefault("auth.session_ttl_seconds", 3600)
	viper.SetDefault("logging.level", "info")
}
