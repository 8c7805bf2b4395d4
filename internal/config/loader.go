package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration in the teacher's documented order
// (internal/config/loader.go): 1. defaults, 2. configuration file,
// 3. environment variables, 4. validate. XLN has no validators.toml or
// rippled-style dynamic port sections, so both of those extra load
// stages from the teacher are dropped rather than adapted.
func LoadConfig(paths ConfigPaths) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if paths.Main != "" {
		if err := loadMainConfig(v, paths.Main); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("XLN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.configPath = paths.Main

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefaultConfig loads with no backing file: defaults plus env only.
// Useful for tests and for a first-run server with nothing on disk yet.
func LoadDefaultConfig() (*Config, error) {
	return LoadConfig(ConfigPaths{})
}

func loadMainConfig(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: file %s does not exist", path)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}
