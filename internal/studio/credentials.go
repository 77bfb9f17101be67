package studio

import (
	"context"
	"fmt"
	"time"

	"github.com/frameforge/frameforge-agent/internal/config"
	"github.com/frameforge/frameforge-agent/internal/provider"
)

// CredentialStore resolves provider settings: a saved provider_settings row
// wins, otherwise the configured defaults apply.
type CredentialStore struct {
	repo     Repository
	defaults func(artifact string) config.ProviderDefaults
}

func NewCredentialStore(repo Repository, cfg config.Config) *CredentialStore {
	return &CredentialStore{repo: repo, defaults: cfg.ProviderDefaults}
}

func (c *CredentialStore) Active(ctx context.Context, artifact string) (provider.Settings, error) {
	row, err := c.repo.GetProviderSetting(ctx, artifact)
	if err != nil {
		return provider.Settings{}, err
	}
	if row != nil {
		return provider.Settings{Kind: row.Kind, BaseURL: row.BaseURL, APIKey: row.APIKey, Model: row.Model}, nil
	}
	d := c.defaults(artifact)
	return provider.Settings{Kind: d.Kind, BaseURL: d.BaseURL, APIKey: d.APIKey, Model: d.Model}, nil
}

// Get returns the effective setting for display. The API key is never
// included in JSON.
func (c *CredentialStore) Get(ctx context.Context, artifact string) (*ProviderSetting, error) {
	if !isProviderArtifact(artifact) {
		return nil, fmt.Errorf("artifact %q: %w", artifact, ErrNotFound)
	}
	row, err := c.repo.GetProviderSetting(ctx, artifact)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}
	d := c.defaults(artifact)
	return &ProviderSetting{Artifact: artifact, Kind: d.Kind, BaseURL: d.BaseURL, APIKey: d.APIKey, Model: d.Model}, nil
}

// Save stores a setting. An empty API key keeps the one already saved.
func (c *CredentialStore) Save(ctx context.Context, s *ProviderSetting) error {
	if !isProviderArtifact(s.Artifact) {
		return fmt.Errorf("artifact %q: %w", s.Artifact, ErrNotFound)
	}
	if s.APIKey == "" {
		existing, err := c.Get(ctx, s.Artifact)
		if err != nil {
			return err
		}
		s.APIKey = existing.APIKey
	}
	s.UpdatedAt = time.Now()
	return c.repo.UpsertProviderSetting(ctx, s)
}

func isProviderArtifact(a string) bool {
	return a == provider.ArtifactText || a == provider.ArtifactImage || a == provider.ArtifactVideo
}
