package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Storage StorageConfig `mapstructure:"storage"`
	GIS     GISConfig     `mapstructure:"gis"`
	Bus     BusConfig     `mapstructure:"bus"`
	Dedup   DedupConfig   `mapstructure:"dedup"`
	Ingress IngressConfig `mapstructure:"ingress"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Fanout  FanoutConfig  `mapstructure:"fanout"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type RedisConfig struct {
	URL         string        `mapstructure:"url"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

type StorageConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GISConfig struct {
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PushCadence  time.Duration `mapstructure:"push_cadence"`
	RingCapacity int           `mapstructure:"ring_capacity"`
	MaxBatch     int           `mapstructure:"max_batch"`
}

type BusConfig struct {
	URL           string        `mapstructure:"url"`
	Name          string        `mapstructure:"name"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type DedupConfig struct {
	ADSBTTL        time.Duration `mapstructure:"adsb_ttl"`
	MAVLinkADSBTTL time.Duration `mapstructure:"mavlink_adsb_ttl"`
	RemoteIDTTL    time.Duration `mapstructure:"remote_id_ttl"`
	CPRPairTTL     time.Duration `mapstructure:"cpr_pair_ttl"`
}

type IngressConfig struct {
	MaxInFlight int `mapstructure:"max_in_flight"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// FanoutConfig lists the sinks each protocol's first-seen records reach.
// Valid sink names: storage, gis, bus.
type FanoutConfig struct {
	ADSB        []string `mapstructure:"adsb"`
	MAVLinkADSB []string `mapstructure:"mavlink_adsb"`
	RemoteID    []string `mapstructure:"remote_id"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("redis.pool_size", 32)
	v.SetDefault("redis.pool_timeout", "5s")
	v.SetDefault("storage.url", "http://localhost:8001")
	v.SetDefault("storage.timeout", "5s")
	v.SetDefault("gis.url", "http://localhost:8002")
	v.SetDefault("gis.timeout", "5s")
	v.SetDefault("gis.push_cadence", "100ms")
	v.SetDefault("gis.ring_capacity", 1024)
	v.SetDefault("gis.max_batch", 100)
	v.SetDefault("bus.url", "nats://localhost:4222")
	v.SetDefault("bus.name", "airtrace-telemetry")
	v.SetDefault("bus.max_reconnects", -1)
	v.SetDefault("bus.reconnect_wait", "2s")
	v.SetDefault("bus.timeout", "5s")
	v.SetDefault("dedup.adsb_ttl", "10s")
	v.SetDefault("dedup.mavlink_adsb_ttl", "5s")
	v.SetDefault("dedup.remote_id_ttl", "10s")
	v.SetDefault("dedup.cpr_pair_ttl", "1s")
	v.SetDefault("ingress.max_in_flight", 1024)
	v.SetDefault("fanout.adsb", []string{"storage", "gis", "bus"})
	v.SetDefault("fanout.mavlink_adsb", []string{"storage", "bus"})
	v.SetDefault("fanout.remote_id", []string{"gis", "bus"})
	// Registered with an empty default so the env override is visible to
	// Unmarshal; Load still refuses to run without a real value.
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/airtrace/telemetry")
	}

	// Environment variables override
	v.SetEnvPrefix("TELEMETRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth.secret must be set")
	}

	return &cfg, nil
}
