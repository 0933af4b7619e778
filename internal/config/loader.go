package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names read by Load.
const (
	EnvPrefix     = "MARQUEE_"
	EnvConfigFile = "MARQUEE_CONFIG"
	EnvTMDBKey    = "TMDB_API_KEY"
	EnvOMDBKey    = "OMDB_API_KEY"
)

// listKeys are env keys holding comma-separated lists.
var listKeys = map[string]struct{}{
	"warmup_sections": {},
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if MARQUEE_CONFIG is set
//  3. env (prefix MARQUEE_)
//  4. TMDB_API_KEY / OMDB_API_KEY, only for keys still empty
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// MARQUEE_WARMUP_QUEUE_SIZE -> warmup_queue_size (flat keys). List keys
	// are comma separated.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(k, v string) (string, any) {
		key := strings.TrimPrefix(strings.ToLower(k), strings.ToLower(EnvPrefix))
		if _, ok := listKeys[key]; ok {
			return key, splitList(v)
		}
		return key, v
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if k.Exists("warmup_sections") {
		cfg.WarmupSections = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.TMDBAPIKey == "" {
		cfg.TMDBAPIKey = os.Getenv(EnvTMDBKey)
	}
	if cfg.OMDBAPIKey == "" {
		cfg.OMDBAPIKey = os.Getenv(EnvOMDBKey)
	}
	cfg.TMDBAPIKey = strings.TrimSpace(cfg.TMDBAPIKey)
	cfg.OMDBAPIKey = strings.TrimSpace(cfg.OMDBAPIKey)
	cfg.Region = strings.ToUpper(strings.TrimSpace(cfg.Region))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks field constraints, naming every offending key.
func (c *Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Field() + " failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
