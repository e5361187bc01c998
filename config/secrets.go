package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrSecretNotFound is returned when a secret is not set.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore resolves named secrets.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetWithDefault(ctx context.Context, key, defaultValue string) string
}

// EnvironmentSecretStore reads secrets from environment variables. A variable
// NAME_FILE, when set, names a file holding the secret, as container
// orchestrators mount them.
type EnvironmentSecretStore struct{}

func NewEnvironmentSecretStore() *EnvironmentSecretStore { return &EnvironmentSecretStore{} }

func (s *EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	if path := os.Getenv(key + "_FILE"); path != "" {
		b, err := os.ReadFile(path) // #nosec G304 - path supplied by the operator
		if err != nil {
			return "", fmt.Errorf("read secret file for %s: %w", key, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", key, ErrSecretNotFound)
}

func (s *EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, defaultValue string) string {
	v, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	return v
}

// LoadSecretsFromEnv fills credential fields from the secret store, leaving
// values already present untouched when no secret is configured.
func (c *Config) LoadSecretsFromEnv(ctx context.Context) error {
	return c.LoadSecrets(ctx, NewEnvironmentSecretStore())
}

// LoadSecrets is LoadSecretsFromEnv with an explicit store.
func (c *Config) LoadSecrets(ctx context.Context, store SecretStore) error {
	fields := []struct {
		key string
		dst *string
	}{
		{"ACHIEVEKIT_REDIS_PASSWORD", &c.Storage.Redis.Password},
		{"ACHIEVEKIT_SQL_DSN", &c.Storage.SQL.DSN},
		{"ACHIEVEKIT_WEBHOOK_SECRET", &c.Webhook.Secret},
	}
	for _, f := range fields {
		v, err := store.Get(ctx, f.key)
		switch {
		case err == nil:
			*f.dst = v
		case errors.Is(err, ErrSecretNotFound):
		default:
			return err
		}
	}

	keys, err := store.Get(ctx, "ACHIEVEKIT_SECURITY_API_KEYS")
	switch {
	case err == nil:
		c.Security.APIKeys = splitList(keys)
	case errors.Is(err, ErrSecretNotFound):
	default:
		return err
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
