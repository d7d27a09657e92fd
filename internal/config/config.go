// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/rusenback/dockstream/internal/model"
)

// HostConfig is one host entry in the config file.
type HostConfig struct {
	ID       string `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Endpoint string `mapstructure:"endpoint"`
}

// Config is what ~/.dockstream/config.yaml provides.
type Config struct {
	Token      string       `mapstructure:"token"`
	Tail       int          `mapstructure:"tail"`
	Follow     bool         `mapstructure:"follow"`
	Timestamps bool         `mapstructure:"timestamps"`
	Hosts      []HostConfig `mapstructure:"hosts"`
}

// Load reads the config file. An explicit path must exist; the default
// location may be absent, in which case defaults apply.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("tail", 100)
	v.SetDefault("follow", true)
	v.SetDefault("timestamps", false)

	v.SetEnvPrefix("dockstream")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".dockstream"))
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					return Config{}, fmt.Errorf("read config: %w", err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Options returns the stream options the config implies.
func (c Config) Options() model.StreamOptions {
	return model.StreamOptions{
		Tail:       c.Tail,
		Follow:     c.Follow,
		Timestamps: c.Timestamps,
	}
}

// Directory returns the hosts listed inline in the config.
func (c Config) Directory() model.StaticDirectory {
	dir := make(model.StaticDirectory, 0, len(c.Hosts))
	for _, h := range c.Hosts {
		dir = append(dir, model.Host{ID: h.ID, Name: h.Name, Endpoint: h.Endpoint})
	}
	return dir
}
