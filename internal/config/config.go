// Package config loads service settings from an optional YAML file and
// FOODLOTTERY_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/spf13/viper"
)

type CacheConfig struct {
	SizeMB int           `mapstructure:"size_mb" validate:"min:0"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type BackupConfig struct {
	S3            S3Config `mapstructure:"s3"`
	Passphrase    string   `mapstructure:"passphrase"`
	ScheduleHour  int      `mapstructure:"schedule_hour" validate:"min:0|max:23"`
	RetentionDays int      `mapstructure:"retention_days" validate:"min:1"`
}

type Config struct {
	Port      int           `mapstructure:"port" validate:"required|min:1|max:65535"`
	DBPath    string        `mapstructure:"db_path" validate:"required"`
	LogLevel  string        `mapstructure:"log_level" validate:"required|in:debug,info,warn,error"`
	DrawDelay time.Duration `mapstructure:"draw_delay"`
	Cache     CacheConfig   `mapstructure:"cache"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
	Backup    BackupConfig  `mapstructure:"backup"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "foodlottery.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("draw_delay", 3*time.Second)
	v.SetDefault("cache.size_mb", 16)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("backup.s3.endpoint", "")
	v.SetDefault("backup.s3.bucket", "")
	v.SetDefault("backup.s3.region", "us-east-1")
	v.SetDefault("backup.s3.access_key", "")
	v.SetDefault("backup.s3.secret_key", "")
	v.SetDefault("backup.s3.prefix", "foodlottery")
	v.SetDefault("backup.passphrase", "")
	v.SetDefault("backup.schedule_hour", 3)
	v.SetDefault("backup.retention_days", 30)
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply. FOODLOTTERY_CACHE_SIZE_MB overrides
// cache.size_mb, and so on for every key.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FOODLOTTERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}
	if c.DrawDelay < 0 {
		return fmt.Errorf("invalid config: draw_delay must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("invalid config: cache.ttl must not be negative")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
