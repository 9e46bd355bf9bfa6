// Package config loads service configuration from a YAML file with
// environment-variable override and hot reload.
package config

import (
	"errors"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the runtime settings of the service.
type Config struct {
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// LoadAndWatch reads {service}.yaml from ./config or the working directory
// and applies env overrides (e.g. CLOBD_HTTP_ADDR covers http.addr). A
// missing config file is not an error; defaults and the environment apply.
//
// When the file changes on disk, the new settings are decoded into a fresh
// Config and handed to onChange on the watcher goroutine; the Config
// returned here is never written to again, so the caller can read it freely.
// onChange may be nil.
func LoadAndWatch(service string, logger *zap.Logger, onChange func(Config)) (Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(service)
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix(strings.ToUpper(service))
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, nil, err
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			logger.Error("config reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		logger.Info("config reloaded", zap.String("file", e.Name))
		if onChange != nil {
			onChange(next)
		}
	})

	return cfg, v, nil
}
