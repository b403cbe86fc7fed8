package config

import (
	"context"
	"fmt"
	"os"

	vault "github.com/hashicorp/vault/api"
)

const defaultVaultMount = "secret"

// VaultOptions points a VaultSource at a KV v2 mount.
type VaultOptions struct {
	Address   string
	Token     string
	MountPath string
}

// VaultSource fetches values from HashiCorp Vault KV v2 backend.
// Each key is read from "<mount>/data/<key>" and must carry a "value" field.
type VaultSource struct {
	client    *vault.Client
	mountPath string
}

func NewVaultSource(opts VaultOptions) (*VaultSource, error) {
	if opts.Address == "" || opts.Token == "" {
		return nil, fmt.Errorf("vault config requires address and token")
	}
	if opts.MountPath == "" {
		opts.MountPath = defaultVaultMount
	}

	cfg := vault.DefaultConfig()
	cfg.Address = opts.Address
	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client init error: %w", err)
	}
	client.SetToken(opts.Token)
	return &VaultSource{
		client:    client,
		mountPath: opts.MountPath,
	}, nil
}

// NewVaultSourceFromEnv reads VAULT_ADDR, VAULT_TOKEN and VAULT_PATH.
func NewVaultSourceFromEnv() (*VaultSource, error) {
	return NewVaultSource(VaultOptions{
		Address:   os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		MountPath: os.Getenv("VAULT_PATH"),
	})
}

func (v *VaultSource) Name() string {
	return "vault"
}

// Get tries environment variables first, then Vault.
func (v *VaultSource) Get(ctx context.Context, key string) (string, error) {
	if val := os.Getenv(key); val != "" {
		return val, nil
	}

	secret, err := v.client.KVv2(v.mountPath).Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("vault read error: %w", err)
	}
	if val, ok := secret.Data["value"].(string); ok && val != "" {
		return val, nil
	}
	return "", fmt.Errorf("no 'value' field found in vault secret: %s", key)
}
