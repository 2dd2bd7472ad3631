package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Session   SessionConfig   `mapstructure:"session"`
	Pairing   PairingConfig   `mapstructure:"pairing"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpAddr string `mapstructure:"http_addr"`
}

type DiscoveryConfig struct {
	Service          string        `mapstructure:"service"`
	Domain           string        `mapstructure:"domain"`
	ScanTimeout      time.Duration `mapstructure:"scan_timeout"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	FailureThreshold int           `mapstructure:"failure_threshold"` // 连续失败多少次后进入 backoff
	Backoff          time.Duration `mapstructure:"backoff"`
	RecheckInterval  time.Duration `mapstructure:"recheck_interval"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

type SessionConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	Chains         []string      `mapstructure:"chains"`      // 探测顺序
	BtcNetwork     string        `mapstructure:"btc_network"` // mainnet / testnet3 / regtest
}

type PairingConfig struct {
	KeystorePath string `mapstructure:"keystore_path"`
	Passphrase   string `mapstructure:"passphrase"` // 通常通过环境变量 REMOTE_SCREEN_PAIRING_PASSPHRASE 传入
}

// CacheConfig 为空地址时只用进程内缓存
type CacheConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

const envPrefix = "REMOTE_SCREEN"

var Global Config

// Load reads config.yaml (from path, or . and ./config when path is empty),
// applies REMOTE_SCREEN_* environment overrides and returns the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// 环境变量设置
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// 没有配置文件时使用默认值 + 环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init loads the configuration into Global. Used by cmd/ only.
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	Global = *cfg
	return nil
}

// Validate rejects values the session code cannot work with.
func (c *Config) Validate() error {
	if c.Discovery.ScanTimeout <= 0 || c.Discovery.PollInterval <= 0 {
		return errors.New("config: discovery timeouts must be positive")
	}
	if c.Discovery.FailureThreshold <= 0 {
		return errors.New("config: discovery.failure_threshold must be positive")
	}
	if c.Session.ConnectTimeout <= 0 || c.Session.ConfirmTimeout <= 0 {
		return errors.New("config: session timeouts must be positive")
	}
	if len(c.Session.Chains) == 0 {
		return errors.New("config: session.chains must not be empty")
	}
	switch c.Session.BtcNetwork {
	case "mainnet", "testnet3", "regtest":
	default:
		return fmt.Errorf("config: unknown btc_network %q", c.Session.BtcNetwork)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http_addr", "127.0.0.1:8080")

	v.SetDefault("discovery.service", "_secalot._tcp")
	v.SetDefault("discovery.domain", "local.")
	v.SetDefault("discovery.scan_timeout", time.Second)
	v.SetDefault("discovery.poll_interval", time.Second)
	v.SetDefault("discovery.failure_threshold", 5)
	v.SetDefault("discovery.backoff", 5*time.Second)
	v.SetDefault("discovery.recheck_interval", 5*time.Second)
	v.SetDefault("discovery.cache_ttl", 10*time.Second)

	v.SetDefault("session.connect_timeout", time.Second)
	v.SetDefault("session.confirm_timeout", 5*time.Second)
	v.SetDefault("session.chains", []string{"BTC", "ETH", "XRP"})
	v.SetDefault("session.btc_network", "mainnet")

	v.SetDefault("pairing.keystore_path", "pairing.json")

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.key_prefix", "remote-screen:")
}
