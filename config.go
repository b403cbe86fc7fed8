package recaptcha

import (
	"context"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/berkan-cetinkaya/recaptcha/internal/config"
)

// EnvPrefix prefixes environment overrides; "__" separates nesting levels,
// e.g. RECAPTCHA__V3__SECRET_KEY.
const EnvPrefix = "RECAPTCHA__"

// Config is the file/env form of the settings. A version is nil when its
// section is absent.
type Config struct {
	SecretProvider string
	PolicyFile     string
	V2             *SettingsV2
	V3             *SettingsV3
}

// SecretSource resolves `secret_key_ref` values.
type SecretSource = config.Source

type loadOptions struct {
	secrets SecretSource
}

// LoadOption customizes LoadConfig.
type LoadOption func(*loadOptions)

// WithSecretSource resolves secret references with src instead of the
// provider named by `secret_provider`.
func WithSecretSource(src SecretSource) LoadOption {
	return func(o *loadOptions) {
		o.secrets = src
	}
}

// LoadConfig reads settings from an optional YAML file and RECAPTCHA__ environment
// variables, resolves secret references and validates every present version.
func LoadConfig(ctx context.Context, path string, opts ...LoadOption) (Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"secret_provider": "env",
	}, "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load default configuration: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Join(strings.Split(s, "__"), ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("error loading environment variables: %w", err)
	}

	cfg := Config{
		SecretProvider: k.String("secret_provider"),
		PolicyFile:     k.String("policy_file"),
	}

	var manager *config.Manager
	secrets := func() (*config.Manager, error) {
		if manager != nil {
			return manager, nil
		}
		if o.secrets != nil {
			manager = config.NewManagerWithSource(o.secrets)
			return manager, nil
		}
		m, err := config.NewManager(cfg.SecretProvider)
		if err != nil {
			return nil, &ConfigurationError{Field: "secret_provider", Err: err}
		}
		manager = m
		return manager, nil
	}

	if k.Exists("v2") {
		setIfMissing(k, "v2.enabled", true)
		s := SettingsV2{}
		if err := k.UnmarshalWithConf("v2", &s, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
			return Config{}, &ConfigurationError{Field: "v2", Err: err}
		}
		if err := resolveSecret(ctx, k, "v2", &s.SecretKey, secrets); err != nil {
			return Config{}, err
		}
		if err := s.Validate(); err != nil {
			return Config{}, err
		}
		cfg.V2 = &s
	}
	if k.Exists("v3") {
		setIfMissing(k, "v3.enabled", true)
		setIfMissing(k, "v3.default_passing_score", DefaultPassingScore)
		s := SettingsV3{}
		if err := k.UnmarshalWithConf("v3", &s, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
			return Config{}, &ConfigurationError{Field: "v3", Err: err}
		}
		if err := resolveSecret(ctx, k, "v3", &s.SecretKey, secrets); err != nil {
			return Config{}, err
		}
		if err := s.Validate(); err != nil {
			return Config{}, err
		}
		cfg.V3 = &s
	}
	return cfg, nil
}

func setIfMissing(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		_ = k.Set(key, value)
	}
}

func resolveSecret(ctx context.Context, k *koanf.Koanf, section string, secret *string, secrets func() (*config.Manager, error)) error {
	ref := strings.TrimSpace(k.String(section + ".secret_key_ref"))
	if ref == "" || strings.TrimSpace(*secret) != "" {
		return nil
	}
	m, err := secrets()
	if err != nil {
		return err
	}
	val, err := m.Get(ctx, ref)
	if err != nil {
		return &ConfigurationError{Field: section + ".secret_key_ref", Err: err}
	}
	*secret = val
	return nil
}
