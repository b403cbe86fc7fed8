package config

import (
	"context"
	"fmt"
	"strings"
)

// Source describes a backend that can provide secret values.
type Source interface {
	Get(ctx context.Context, key string) (string, error)
	Name() string
}

// Manager resolves secret references (for example `secret_key_ref`) against one Source.
type Manager struct {
	source Source
}

// NewManager selects a source by name: "env" (default) or "vault".
func NewManager(provider string) (*Manager, error) {
	source, err := newSource(strings.ToLower(strings.TrimSpace(provider)))
	if err != nil {
		return nil, err
	}
	return &Manager{source: source}, nil
}

// NewManagerWithSource wraps an already built source.
func NewManagerWithSource(source Source) *Manager {
	return &Manager{source: source}
}

// SourceName returns the name of the configured source.
func (m *Manager) SourceName() string {
	return m.source.Name()
}

// Get returns the value for key from the configured source.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	val, err := m.source.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to load secret '%s' from %s: %w", key, m.source.Name(), err)
	}
	return val, nil
}

// GetDefault returns the value if available, otherwise falls back to defaultVal.
func (m *Manager) GetDefault(ctx context.Context, key, defaultVal string) string {
	val, err := m.Get(ctx, key)
	if err != nil || val == "" {
		return defaultVal
	}
	return val
}

func newSource(name string) (Source, error) {
	switch name {
	case "", "env":
		return NewEnvSource(), nil
	case "vault":
		return NewVaultSourceFromEnv()
	default:
		return nil, fmt.Errorf("unknown secret provider: %s", name)
	}
}
