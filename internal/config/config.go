// Package config loads run settings from flags, environment and an optional
// YAML file.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	WorkDir    string      `mapstructure:"workdir" validate:"required"`
	Input      string      `mapstructure:"input"`
	Report     string      `mapstructure:"report" validate:"required"`
	CacheDB    string      `mapstructure:"cache" validate:"required"`
	Patterns   string      `mapstructure:"patterns"`
	Schema     string      `mapstructure:"schema"`
	Refresh    bool        `mapstructure:"refresh"`
	MinCount   int         `mapstructure:"min_count" validate:"gte=0"`
	Quiet      bool        `mapstructure:"quiet"`
	Fetch      FetchConfig `mapstructure:"fetch"`
	Log        LogConfig   `mapstructure:"log"`
	ListenAddr string      `mapstructure:"listen" validate:"required"`
}

type FetchConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"gt=0"`
	SizeCap     int64         `mapstructure:"size_cap" validate:"gt=0"`
	UserAgent   string        `mapstructure:"user_agent"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// SetDefaults registers default values on v. File names default relative
// to the work directory.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workdir", "_npwork")
	v.SetDefault("input", "")
	v.SetDefault("report", "")
	v.SetDefault("cache", "")
	v.SetDefault("patterns", "")
	v.SetDefault("schema", "")
	v.SetDefault("refresh", false)
	v.SetDefault("min_count", 0)
	v.SetDefault("quiet", false)
	v.SetDefault("listen", ":8080")
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.dial_timeout", 5*time.Second)
	v.SetDefault("fetch.size_cap", int64(5*1024*1024))
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// Load reads configuration from v: an explicit config file if set,
// otherwise .npdetector.yaml in the working or home directory, then
// NPDETECTOR_* environment variables.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(".npdetector")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("NPDETECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	c.fillPaths()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) fillPaths() {
	if c.Input == "" {
		c.Input = filepath.Join(c.WorkDir, "npdetector.csv")
	}
	if c.Report == "" {
		c.Report = filepath.Join(c.WorkDir, "npdetector.json")
	}
	if c.CacheDB == "" {
		c.CacheDB = filepath.Join(c.WorkDir, "cache", "pages.db")
	}
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
