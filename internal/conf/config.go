package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Partitions PartitionsConfig `mapstructure:"partitions"`
	Search     SearchConfig     `mapstructure:"search"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Redis      RedisConfig      `mapstructure:"redis"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

// PartitionsConfig describes the three storage partitions. Primary is
// required; cloud and archive may be left without an endpoint, in which
// case they run disabled (empty reads, rejected writes).
type PartitionsConfig struct {
	Primary PartitionConfig `mapstructure:"primary"`
	Cloud   PartitionConfig `mapstructure:"cloud"`
	Archive PartitionConfig `mapstructure:"archive"`
}

// PartitionConfig is one partition's connectivity endpoint and capacity
// ceiling. The endpoint scheme selects the driver: "postgres://..." DSN or
// "sqlite://<path>".
type PartitionConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	CapacityBytes int64  `mapstructure:"capacity_bytes"`
}

type SearchConfig struct {
	UseCaption bool `mapstructure:"use_caption"`
	MaxResults int  `mapstructure:"max_results"`
}

type IngestConfig struct {
	MediaTypes         []string      `mapstructure:"media_types"`
	Extensions         []string      `mapstructure:"extensions"`
	CheckpointInterval int           `mapstructure:"checkpoint_interval"`
	Gateway            GatewayConfig `mapstructure:"gateway"`
}

// GatewayConfig points at the stream gateway that serves channel history.
type GatewayConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
	PageSize int           `mapstructure:"page_size"`
}

// RedisConfig configures the progress notification channel. An empty addr
// disables Redis publishing; progress then only reaches the log.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 10
	}
	if c.Ingest.CheckpointInterval == 0 {
		c.Ingest.CheckpointInterval = 25
	}
	if len(c.Ingest.MediaTypes) == 0 {
		c.Ingest.MediaTypes = []string{"document", "video"}
	}
	if c.Ingest.Gateway.Timeout == 0 {
		c.Ingest.Gateway.Timeout = 30 * time.Second
	}
	if c.Ingest.Gateway.PageSize == 0 {
		c.Ingest.Gateway.PageSize = 100
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "index:progress"
	}
}

func (c *Config) Validate() error {
	if c.Partitions.Primary.Endpoint == "" {
		return fmt.Errorf("partitions.primary.endpoint is required")
	}
	if c.Ingest.Gateway.BaseURL == "" {
		return fmt.Errorf("ingest.gateway.base_url is required")
	}
	if c.Ingest.CheckpointInterval < 1 {
		return fmt.Errorf("ingest.checkpoint_interval must be >= 1")
	}
	return nil
}
