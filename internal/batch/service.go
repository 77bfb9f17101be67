package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frameforge/frameforge-agent/internal/events"
	"github.com/frameforge/frameforge-agent/internal/logging"
	"github.com/frameforge/frameforge-agent/internal/provider"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

// Generator renders single assets.
type Generator interface {
	SceneImage(ctx context.Context, sceneID string, progress provider.ProgressFunc) error
	ShotImage(ctx context.Context, shotID string, progress provider.ProgressFunc) error
	CharacterAvatar(ctx context.Context, characterID string, progress provider.ProgressFunc) error
}

type Service struct {
	repo    studio.Repository
	gen     Generator
	emitter events.Emitter
	logger  *slog.Logger
}

func NewService(repo studio.Repository, gen Generator, emitter events.Emitter, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		gen:     gen,
		emitter: emitter,
		logger:  logging.WithComponent(logger, "batch"),
	}
}

// GenerateAllSceneImages renders every scene's reference image. With
// onlyMissing, scenes that already have one are skipped.
func (s *Service) GenerateAllSceneImages(ctx context.Context, projectID string, onlyMissing bool) (Result, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return Result{}, err
	}
	scenes, err := s.repo.ListScenes(ctx, projectID)
	if err != nil {
		return Result{}, fmt.Errorf("list scenes: %w", err)
	}

	items := make([]Item, 0, len(scenes))
	for _, sc := range scenes {
		items = append(items, Item{
			ID:    sc.ID,
			Label: sc.Name,
			Skip:  (onlyMissing && sc.ImagePath != "") || blank(sc.Location, sc.Description),
		})
	}

	pool := NewPool(SceneImageConcurrency, events.ChannelSceneImagesBatch, s.emitter, s.logger)
	return pool.Run(ctx, items, func(ctx context.Context, it Item) error {
		return s.gen.SceneImage(ctx, it.ID, nil)
	}), nil
}

// GenerateAllShotImages renders every shot's storyboard frame in sequence
// order.
func (s *Service) GenerateAllShotImages(ctx context.Context, projectID string, onlyMissing bool) (Result, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return Result{}, err
	}
	shots, err := s.repo.ListShots(ctx, projectID)
	if err != nil {
		return Result{}, fmt.Errorf("list shots: %w", err)
	}

	items := make([]Item, 0, len(shots))
	for _, sh := range shots {
		items = append(items, Item{
			ID:    sh.ID,
			Label: fmt.Sprintf("Shot %d", sh.Sequence),
			Skip:  (onlyMissing && sh.ImagePath != "") || blank(sh.Description, sh.Action),
		})
	}

	pool := NewPool(ShotImageConcurrency, events.ChannelShotImagesBatch, s.emitter, s.logger)
	return pool.Run(ctx, items, func(ctx context.Context, it Item) error {
		return s.gen.ShotImage(ctx, it.ID, nil)
	}), nil
}

func (s *Service) GenerateAllCharacterAvatars(ctx context.Context, projectID string, onlyMissing bool) (Result, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return Result{}, err
	}
	characters, err := s.repo.ListCharacters(ctx, projectID)
	if err != nil {
		return Result{}, fmt.Errorf("list characters: %w", err)
	}

	items := make([]Item, 0, len(characters))
	for _, c := range characters {
		items = append(items, Item{
			ID:    c.ID,
			Label: c.Name,
			Skip:  (onlyMissing && c.AvatarPath != "") || blank(c.Name, c.Description, c.Appearance),
		})
	}

	pool := NewPool(AvatarConcurrency, events.ChannelAvatarsBatch, s.emitter, s.logger)
	return pool.Run(ctx, items, func(ctx context.Context, it Item) error {
		return s.gen.CharacterAvatar(ctx, it.ID, nil)
	}), nil
}

func (s *Service) requireProject(ctx context.Context, projectID string) error {
	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("project %s: %w", projectID, studio.ErrNotFound)
	}
	return nil
}

// blank reports whether every field is empty after trimming.
func blank(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
