package studio

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StudioService is the business CRUD surface used by the API.
type StudioService interface {
	CreateProject(ctx context.Context, p *Project) (*Project, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id string) error

	CreateCharacter(ctx context.Context, c *Character) (*Character, error)
	GetCharacter(ctx context.Context, id string) (*Character, error)
	ListCharacters(ctx context.Context, projectID string) ([]*Character, error)
	UpdateCharacter(ctx context.Context, c *Character) error
	DeleteCharacter(ctx context.Context, id string) error

	CreateScene(ctx context.Context, s *Scene) (*Scene, error)
	GetScene(ctx context.Context, id string) (*Scene, error)
	ListScenes(ctx context.Context, projectID string) ([]*Scene, error)
	UpdateScene(ctx context.Context, s *Scene) error
	DeleteScene(ctx context.Context, id string) error

	CreateShot(ctx context.Context, s *Shot) (*Shot, error)
	GetShot(ctx context.Context, id string) (*Shot, error)
	ListShots(ctx context.Context, projectID string) ([]*Shot, error)
	UpdateShot(ctx context.Context, s *Shot) error
	DeleteShot(ctx context.Context, id string) error
	ReorderShots(ctx context.Context, projectID string, shotIDs []string) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreateProject(ctx context.Context, p *Project) (*Project, error) {
	now := time.Now()
	p.ID = NewID()
	if p.AspectRatio == "" {
		p.AspectRatio = DefaultAspectRatio
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("project created", "project_id", p.ID, "style", p.Style)
	}
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Service) UpdateProject(ctx context.Context, p *Project) error {
	p.UpdatedAt = time.Now()
	return s.repo.UpdateProject(ctx, p)
}

func (s *Service) DeleteProject(ctx context.Context, id string) error {
	return s.repo.DeleteProject(ctx, id)
}

func (s *Service) CreateCharacter(ctx context.Context, c *Character) (*Character, error) {
	if _, err := s.GetProject(ctx, c.ProjectID); err != nil {
		return nil, err
	}
	now := time.Now()
	c.ID = NewID()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.repo.CreateCharacter(ctx, c); err != nil {
		return nil, fmt.Errorf("create character: %w", err)
	}
	return c, nil
}

func (s *Service) GetCharacter(ctx context.Context, id string) (*Character, error) {
	c, err := s.repo.GetCharacter(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("character %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (s *Service) ListCharacters(ctx context.Context, projectID string) ([]*Character, error) {
	return s.repo.ListCharacters(ctx, projectID)
}

func (s *Service) UpdateCharacter(ctx context.Context, c *Character) error {
	c.UpdatedAt = time.Now()
	return s.repo.UpdateCharacter(ctx, c)
}

func (s *Service) DeleteCharacter(ctx context.Context, id string) error {
	return s.repo.DeleteCharacter(ctx, id)
}

func (s *Service) CreateScene(ctx context.Context, sc *Scene) (*Scene, error) {
	if _, err := s.GetProject(ctx, sc.ProjectID); err != nil {
		return nil, err
	}
	now := time.Now()
	sc.ID = NewID()
	sc.CreatedAt = now
	sc.UpdatedAt = now
	if err := s.repo.CreateScene(ctx, sc); err != nil {
		return nil, fmt.Errorf("create scene: %w", err)
	}
	return sc, nil
}

func (s *Service) GetScene(ctx context.Context, id string) (*Scene, error) {
	sc, err := s.repo.GetScene(ctx, id)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, fmt.Errorf("scene %s: %w", id, ErrNotFound)
	}
	return sc, nil
}

func (s *Service) ListScenes(ctx context.Context, projectID string) ([]*Scene, error) {
	return s.repo.ListScenes(ctx, projectID)
}

func (s *Service) UpdateScene(ctx context.Context, sc *Scene) error {
	sc.UpdatedAt = time.Now()
	return s.repo.UpdateScene(ctx, sc)
}

func (s *Service) DeleteScene(ctx context.Context, id string) error {
	return s.repo.DeleteScene(ctx, id)
}

// CreateShot appends the shot to the end of the project's storyboard unless
// a sequence is given.
func (s *Service) CreateShot(ctx context.Context, sh *Shot) (*Shot, error) {
	if _, err := s.GetProject(ctx, sh.ProjectID); err != nil {
		return nil, err
	}
	if sh.Sequence <= 0 {
		next, err := s.repo.NextShotSequence(ctx, sh.ProjectID)
		if err != nil {
			return nil, err
		}
		sh.Sequence = next
	}
	if sh.DurationMs <= 0 {
		sh.DurationMs = DefaultShotMs
	}
	if sh.CharacterIDs == nil {
		sh.CharacterIDs = []string{}
	}
	now := time.Now()
	sh.ID = NewID()
	sh.Status = ShotStatusEmpty
	sh.CreatedAt = now
	sh.UpdatedAt = now

	if err := s.repo.CreateShot(ctx, sh); err != nil {
		return nil, fmt.Errorf("create shot: %w", err)
	}
	return sh, nil
}

func (s *Service) GetShot(ctx context.Context, id string) (*Shot, error) {
	sh, err := s.repo.GetShot(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, fmt.Errorf("shot %s: %w", id, ErrNotFound)
	}
	return sh, nil
}

func (s *Service) ListShots(ctx context.Context, projectID string) ([]*Shot, error) {
	return s.repo.ListShots(ctx, projectID)
}

func (s *Service) UpdateShot(ctx context.Context, sh *Shot) error {
	sh.UpdatedAt = time.Now()
	return s.repo.UpdateShot(ctx, sh)
}

func (s *Service) DeleteShot(ctx context.Context, id string) error {
	return s.repo.DeleteShot(ctx, id)
}

// ReorderShots assigns sequence 1..n following shotIDs. Shots of the project
// missing from the list keep their relative order after the listed ones.
func (s *Service) ReorderShots(ctx context.Context, projectID string, shotIDs []string) error {
	shots, err := s.repo.ListShots(ctx, projectID)
	if err != nil {
		return err
	}

	byID := make(map[string]*Shot, len(shots))
	for _, sh := range shots {
		byID[sh.ID] = sh
	}

	ordered := make([]*Shot, 0, len(shots))
	seen := make(map[string]bool, len(shotIDs))
	for _, id := range shotIDs {
		sh, ok := byID[id]
		if !ok {
			return fmt.Errorf("shot %s in project %s: %w", id, projectID, ErrNotFound)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ordered = append(ordered, sh)
	}
	for _, sh := range shots {
		if !seen[sh.ID] {
			ordered = append(ordered, sh)
		}
	}

	for i, sh := range ordered {
		if sh.Sequence == i+1 {
			continue
		}
		sh.Sequence = i + 1
		if err := s.UpdateShot(ctx, sh); err != nil {
			return err
		}
	}
	return nil
}
