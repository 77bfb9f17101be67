package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frameforge/frameforge-agent/internal/fetch"
	"github.com/frameforge/frameforge-agent/internal/logging"
)

// Registry builds the client for an artifact from the settings active at
// call time.
type Registry struct {
	creds   Credentials
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

func NewRegistry(creds Credentials, f *fetch.Fetcher, logger *slog.Logger) *Registry {
	return &Registry{creds: creds, fetcher: f, logger: logger}
}

func (r *Registry) Text(ctx context.Context) (TextGenerator, error) {
	s, err := r.active(ctx, ArtifactText)
	if err != nil {
		return nil, err
	}
	switch s.Kind {
	case KindOpenAI:
		return NewOpenAI(s, nil), nil
	case KindGemini:
		g, err := NewGemini(ctx, s)
		if err != nil {
			return nil, err
		}
		return g, nil
	case KindRelay:
		return NewRelay(s, r.fetcher), nil
	default:
		return nil, unsupported(s.Kind, ArtifactText)
	}
}

func (r *Registry) Image(ctx context.Context) (ImageGenerator, error) {
	s, err := r.active(ctx, ArtifactImage)
	if err != nil {
		return nil, err
	}
	switch s.Kind {
	case KindOpenAI:
		return NewOpenAI(s, nil), nil
	case KindGemini:
		g, err := NewGemini(ctx, s)
		if err != nil {
			return nil, err
		}
		return g, nil
	case KindRelay:
		return NewRelay(s, r.fetcher), nil
	default:
		return nil, unsupported(s.Kind, ArtifactImage)
	}
}

func (r *Registry) Video(ctx context.Context) (VideoGenerator, error) {
	s, err := r.active(ctx, ArtifactVideo)
	if err != nil {
		return nil, err
	}
	switch s.Kind {
	case KindDashScope:
		return NewDashScope(s, r.fetcher), nil
	case KindRelay:
		return NewRelay(s, r.fetcher), nil
	default:
		return nil, unsupported(s.Kind, ArtifactVideo)
	}
}

func (r *Registry) active(ctx context.Context, artifact string) (Settings, error) {
	s, err := r.creds.Active(ctx, artifact)
	if err != nil {
		return Settings{}, fmt.Errorf("load %s provider settings: %w", artifact, err)
	}
	if s.Kind == "" {
		return Settings{}, fmt.Errorf("no %s provider configured", artifact)
	}
	if s.APIKey == "" {
		return Settings{}, fmt.Errorf("%s provider %s has no API key", artifact, s.Kind)
	}
	if r.logger != nil {
		r.logger.Debug("provider selected",
			"artifact", artifact,
			"kind", s.Kind,
			"model", s.Model,
			"api_key", logging.SanitizeToken(s.APIKey),
		)
	}
	return s, nil
}

func unsupported(kind, artifact string) error {
	return fmt.Errorf("provider kind %q cannot generate %s", kind, artifact)
}
