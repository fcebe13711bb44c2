// Package config loads settings from defaults, an optional YAML file,
// RECALL_* environment variables and command-line flags, in that order of
// precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/recall/internal/importer"
)

// EnvPrefix is the prefix of environment variables read by Load.
// RECALL_SERVER_ADDR sets server.addr.
const EnvPrefix = "RECALL_"

type Config struct {
	Server  Server  `koanf:"server"`
	Log     Log     `koanf:"log"`
	Library Library `koanf:"library"`
	Study   Study   `koanf:"study"`
}

type Server struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	SessionTTL      time.Duration `koanf:"session_ttl" validate:"gt=0"`
}

type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	File  string `koanf:"file"`
}

// Library configures the deck library. An empty Path disables it.
type Library struct {
	Path string `koanf:"path"`
	Dir  string `koanf:"dir" validate:"omitempty,dir"`
}

// Study holds the default review options of the terminal front-end.
// Zero bounds mean "not set".
type Study struct {
	Start   int  `koanf:"start" validate:"gte=0"`
	End     int  `koanf:"end" validate:"gte=0"`
	Limit   int  `koanf:"limit" validate:"gte=0"`
	Shuffle bool `koanf:"shuffle"`
}

// Options converts the study defaults to import options.
func (s Study) Options() importer.Options {
	opts := importer.Options{Shuffle: s.Shuffle}
	if s.Start > 0 {
		opts.Start = importer.Int(s.Start)
	}
	if s.End > 0 {
		opts.End = importer.Int(s.End)
	}
	if s.Limit > 0 {
		opts.Limit = importer.Int(s.Limit)
	}
	return opts
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":             ":8080",
		"server.shutdown_timeout": 10 * time.Second,
		"server.session_ttl":      12 * time.Hour,
		"log.level":               "info",
		"log.file":                "",
		"library.path":            "recall.db",
		"library.dir":             "",
		"study.start":             0,
		"study.end":               0,
		"study.limit":             0,
		"study.shuffle":           false,
	}
}

// Load builds the configuration. path names an optional YAML file; flags
// holds the parsed command line and keys maps flag names to config keys.
// Only flags the user set override other sources.
func Load(path string, flags *pflag.FlagSet, keys map[string]string) (Config, error) {
	k := koanf.New(".")

	for key, val := range Defaults() {
		if err := k.Set(key, val); err != nil {
			return Config{}, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := keys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps RECALL_SERVER_SHUTDOWN_TIMEOUT to server.shutdown_timeout.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
