// Package generate turns studio entities into prompts, calls the configured
// provider and stores what comes back.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/frameforge/frameforge-agent/internal/logging"
	"github.com/frameforge/frameforge-agent/internal/provider"
	"github.com/frameforge/frameforge-agent/internal/storage"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

// Progress checkpoints reported by every generation.
const (
	ProgressLoaded    = 10
	ProgressRequested = 20
	ProgressReceived  = 80
	ProgressDone      = 100
)

const maxReferences = 3

// Providers hands out clients for the active settings.
type Providers interface {
	Text(ctx context.Context) (provider.TextGenerator, error)
	Image(ctx context.Context) (provider.ImageGenerator, error)
	Video(ctx context.Context) (provider.VideoGenerator, error)
}

type Generator struct {
	repo       studio.Repository
	providers  Providers
	store      storage.Store
	downloader storage.Downloader
	logger     *slog.Logger
	now        func() time.Time
}

func New(repo studio.Repository, providers Providers, store storage.Store, d storage.Downloader, logger *slog.Logger) *Generator {
	return &Generator{
		repo:       repo,
		providers:  providers,
		store:      store,
		downloader: d,
		logger:     logging.WithComponent(logger, "generate"),
		now:        time.Now,
	}
}

// Run executes a render task: image tasks render the shot frame, video tasks
// animate it.
func (g *Generator) Run(ctx context.Context, task *studio.RenderTask, progress provider.ProgressFunc) error {
	if task.ShotID == "" {
		return fmt.Errorf("render task %s has no shot", task.ID)
	}
	switch task.Type {
	case studio.ArtifactImage:
		return g.ShotImage(ctx, task.ShotID, progress)
	case studio.ArtifactVideo:
		return g.ShotVideo(ctx, task.ShotID, progress)
	default:
		return fmt.Errorf("unknown render task type %q", task.Type)
	}
}

func (g *Generator) CharacterAvatar(ctx context.Context, characterID string, progress provider.ProgressFunc) error {
	report := reporter(progress)
	c, style, err := g.loadCharacter(ctx, characterID)
	if err != nil {
		return err
	}
	report(ProgressLoaded)

	img, err := g.providers.Image(ctx)
	if err != nil {
		return err
	}
	report(ProgressRequested)

	out, err := img.GenerateImage(ctx, provider.ImageRequest{
		Prompt:         CharacterPrompt(style, c),
		NegativePrompt: style.NegativePrompt,
		AspectRatio:    "1:1",
	})
	if err != nil {
		return err
	}
	report(ProgressReceived)

	path, err := g.persist(ctx, out, c.ProjectID, storage.CategoryCharacters, c.ID+"_avatar")
	if err != nil {
		return err
	}
	if err := g.repo.SetCharacterAvatar(ctx, c.ID, path); err != nil {
		return err
	}
	report(ProgressDone)
	g.logger.Info("character avatar generated", "character_id", c.ID)
	return nil
}

func (g *Generator) CharacterAppearance(ctx context.Context, characterID string, progress provider.ProgressFunc) error {
	report := reporter(progress)
	c, _, err := g.loadCharacter(ctx, characterID)
	if err != nil {
		return err
	}
	report(ProgressLoaded)

	text, err := g.providers.Text(ctx)
	if err != nil {
		return err
	}
	report(ProgressRequested)

	system, prompt := AppearancePrompt(c)
	out, err := text.GenerateText(ctx, provider.TextRequest{System: system, Prompt: prompt})
	if err != nil {
		return err
	}
	report(ProgressReceived)

	appearance, err := textOf(out)
	if err != nil {
		return err
	}
	if err := g.repo.SetCharacterAppearance(ctx, c.ID, appearance); err != nil {
		return err
	}
	report(ProgressDone)
	return nil
}

// CharacterThreeView renders front, side and back views, conditioned on the
// avatar when the provider supports it.
func (g *Generator) CharacterThreeView(ctx context.Context, characterID string, progress provider.ProgressFunc) error {
	report := reporter(progress)
	c, style, err := g.loadCharacter(ctx, characterID)
	if err != nil {
		return err
	}
	report(ProgressLoaded)

	img, err := g.providers.Image(ctx)
	if err != nil {
		return err
	}
	var refs []provider.Reference
	if img.SupportsReference() && c.AvatarPath != "" {
		refs = g.loadReferences(ctx, []string{c.AvatarPath})
	}
	report(ProgressRequested)

	views := []string{"front", "side", "back"}
	paths := make([]string, len(views))
	for i, view := range views {
		out, err := img.GenerateImage(ctx, provider.ImageRequest{
			Prompt:         CharacterViewPrompt(style, c, view),
			NegativePrompt: style.NegativePrompt,
			AspectRatio:    "9:16",
			References:     refs,
		})
		if err != nil {
			return fmt.Errorf("%s view: %w", view, err)
		}
		paths[i], err = g.persist(ctx, out, c.ProjectID, storage.CategoryCharacters, c.ID+"_"+view)
		if err != nil {
			return err
		}
		report(ProgressRequested + (ProgressReceived-ProgressRequested)*(i+1)/len(views))
	}

	if err := g.repo.SetCharacterViews(ctx, c.ID, paths[0], paths[1], paths[2]); err != nil {
		return err
	}
	report(ProgressDone)
	return nil
}

func (g *Generator) SceneImage(ctx context.Context, sceneID string, progress provider.ProgressFunc) error {
	report := reporter(progress)
	sc, err := g.repo.GetScene(ctx, sceneID)
	if err != nil {
		return err
	}
	if sc == nil {
		return fmt.Errorf("scene %s: %w", sceneID, studio.ErrNotFound)
	}
	p, err := g.loadProject(ctx, sc.ProjectID)
	if err != nil {
		return err
	}
	style := LookupStyle(p.Style)
	report(ProgressLoaded)

	img, err := g.providers.Image(ctx)
	if err != nil {
		return err
	}
	report(ProgressRequested)

	out, err := img.GenerateImage(ctx, provider.ImageRequest{
		Prompt:         ScenePrompt(style, sc),
		NegativePrompt: style.NegativePrompt,
		AspectRatio:    p.AspectRatio,
	})
	if err != nil {
		return err
	}
	report(ProgressReceived)

	path, err := g.persist(ctx, out, sc.ProjectID, storage.CategoryScenes, sc.ID)
	if err != nil {
		return err
	}
	if err := g.repo.SetSceneImage(ctx, sc.ID, path); err != nil {
		return err
	}
	report(ProgressDone)
	return nil
}

// ShotImage renders the storyboard frame for a shot and keeps the shot's
// status in step with the outcome.
func (g *Generator) ShotImage(ctx context.Context, shotID string, progress provider.ProgressFunc) error {
	return g.trackShot(ctx, shotID, func(sh *studio.Shot) error {
		return g.shotImage(ctx, sh, reporter(progress))
	})
}

func (g *Generator) shotImage(ctx context.Context, sh *studio.Shot, report provider.ProgressFunc) error {
	p, err := g.loadProject(ctx, sh.ProjectID)
	if err != nil {
		return err
	}
	style := LookupStyle(p.Style)

	var scene *studio.Scene
	if sh.SceneID != "" {
		if scene, err = g.repo.GetScene(ctx, sh.SceneID); err != nil {
			return err
		}
	}
	chars := g.shotCharacters(ctx, sh)
	report(ProgressLoaded)

	img, err := g.providers.Image(ctx)
	if err != nil {
		return err
	}

	var refs []provider.Reference
	if img.SupportsReference() {
		var locations []string
		for _, c := range chars {
			if ref := c.ReferenceImage(); ref != "" {
				locations = append(locations, ref)
			}
		}
		refs = g.loadReferences(ctx, locations)
	}
	report(ProgressRequested)

	out, err := img.GenerateImage(ctx, provider.ImageRequest{
		Prompt:         ShotPrompt(style, sh, scene, chars),
		NegativePrompt: style.NegativePrompt,
		AspectRatio:    p.AspectRatio,
		References:     refs,
	})
	if err != nil {
		return err
	}
	report(ProgressReceived)

	path, err := g.persist(ctx, out, sh.ProjectID, storage.CategoryShots, sh.ID)
	if err != nil {
		return err
	}
	if err := g.repo.SetShotImage(ctx, sh.ID, path); err != nil {
		return err
	}
	report(ProgressDone)
	return nil
}

// ShotVideo animates the shot's frame.
func (g *Generator) ShotVideo(ctx context.Context, shotID string, progress provider.ProgressFunc) error {
	return g.trackShot(ctx, shotID, func(sh *studio.Shot) error {
		return g.shotVideo(ctx, sh, reporter(progress))
	})
}

func (g *Generator) shotVideo(ctx context.Context, sh *studio.Shot, report provider.ProgressFunc) error {
	if sh.ImagePath == "" {
		return fmt.Errorf("shot %s has no image to animate", sh.ID)
	}
	p, err := g.loadProject(ctx, sh.ProjectID)
	if err != nil {
		return err
	}
	style := LookupStyle(p.Style)
	report(ProgressLoaded)

	vid, err := g.providers.Video(ctx)
	if err != nil {
		return err
	}

	req := provider.VideoRequest{
		Prompt:         VideoPrompt(style, sh),
		NegativePrompt: style.NegativePrompt,
		DurationS:      max(1, (sh.DurationMs+999)/1000),
	}
	if isURL(sh.ImagePath) {
		req.FirstFrameURL = sh.ImagePath
	} else {
		data, err := g.store.Open(ctx, sh.ImagePath)
		if err != nil {
			return fmt.Errorf("read first frame: %w", err)
		}
		req.FirstFrame = provider.Reference{Data: data, MIMEType: http.DetectContentType(data)}
	}
	report(ProgressRequested)

	out, err := vid.GenerateVideo(ctx, req, report)
	if err != nil {
		return err
	}
	report(ProgressReceived)

	path, err := g.persist(ctx, out, sh.ProjectID, storage.CategoryVideos, sh.ID)
	if err != nil {
		return err
	}
	if err := g.repo.SetShotVideo(ctx, sh.ID, path); err != nil {
		return err
	}
	report(ProgressDone)
	return nil
}

// trackShot marks the shot generating, runs fn and records the outcome. A
// cancelled run puts the shot back to what it showed before.
func (g *Generator) trackShot(ctx context.Context, shotID string, fn func(*studio.Shot) error) error {
	sh, err := g.repo.GetShot(ctx, shotID)
	if err != nil {
		return err
	}
	if sh == nil {
		return fmt.Errorf("shot %s: %w", shotID, studio.ErrNotFound)
	}
	previous := sh.Status

	if err := g.repo.SetShotStatus(ctx, sh.ID, studio.ShotStatusGenerating); err != nil {
		return err
	}

	runErr := fn(sh)

	final := studio.ShotStatusReady
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		final = previous
		if final == studio.ShotStatusGenerating {
			final = studio.ShotStatusEmpty
		}
	default:
		final = studio.ShotStatusError
	}

	// The run's context may be cancelled; the status write must still land.
	if err := g.repo.SetShotStatus(context.WithoutCancel(ctx), sh.ID, final); err != nil {
		g.logger.Warn("failed to update shot status", "shot_id", sh.ID, "status", final, "error", err)
	}
	if runErr != nil {
		g.logger.Warn("shot generation failed", "shot_id", sh.ID, "error", runErr)
	}
	return runErr
}

func (g *Generator) loadProject(ctx context.Context, id string) (*studio.Project, error) {
	p, err := g.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %s: %w", id, studio.ErrNotFound)
	}
	return p, nil
}

func (g *Generator) loadCharacter(ctx context.Context, id string) (*studio.Character, Style, error) {
	c, err := g.repo.GetCharacter(ctx, id)
	if err != nil {
		return nil, Style{}, err
	}
	if c == nil {
		return nil, Style{}, fmt.Errorf("character %s: %w", id, studio.ErrNotFound)
	}
	p, err := g.loadProject(ctx, c.ProjectID)
	if err != nil {
		return nil, Style{}, err
	}
	return c, LookupStyle(p.Style), nil
}

// shotCharacters resolves the shot's cast in order, skipping ids that no
// longer exist.
func (g *Generator) shotCharacters(ctx context.Context, sh *studio.Shot) []*studio.Character {
	var chars []*studio.Character
	for _, id := range sh.CharacterIDs {
		c, err := g.repo.GetCharacter(ctx, id)
		if err != nil || c == nil {
			continue
		}
		chars = append(chars, c)
	}
	return chars
}

// loadReferences reads up to maxReferences images. Unreadable references are
// skipped; generation proceeds without them.
func (g *Generator) loadReferences(ctx context.Context, locations []string) []provider.Reference {
	var refs []provider.Reference
	for _, loc := range locations {
		if len(refs) == maxReferences {
			break
		}
		data, err := g.store.Open(ctx, loc)
		if err != nil {
			g.logger.Warn("skipping reference image", "path", logging.SanitizePath(loc), "error", err)
			continue
		}
		refs = append(refs, provider.Reference{Data: data, MIMEType: http.DetectContentType(data)})
	}
	return refs
}

// persist materializes out and saves it under a timestamped name.
func (g *Generator) persist(ctx context.Context, out provider.Output, projectID, category, stem string) (string, error) {
	data, mime, err := g.materialize(ctx, out)
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_%d%s", stem, g.now().UnixMilli(), extensionFor(category, mime))
	return g.store.Save(ctx, projectID, category, filename, data)
}

// materialize returns the bytes behind a provider output.
func (g *Generator) materialize(ctx context.Context, out provider.Output) ([]byte, string, error) {
	switch o := out.(type) {
	case provider.InlineAsset:
		mime := o.MIMEType
		if mime == "" {
			mime = http.DetectContentType(o.Data)
		}
		return o.Data, mime, nil
	case provider.RemoteAsset:
		data, err := g.downloader.Download(ctx, o.URL)
		if err != nil {
			return nil, "", err
		}
		return data, http.DetectContentType(data), nil
	case provider.Text:
		return nil, "", errors.New("provider returned text where an asset was expected")
	default:
		return nil, "", fmt.Errorf("unsupported provider output %T", out)
	}
}

func textOf(out provider.Output) (string, error) {
	switch o := out.(type) {
	case provider.Text:
		return o.Content, nil
	case provider.InlineAsset, provider.RemoteAsset:
		return "", errors.New("provider returned an asset where text was expected")
	default:
		return "", fmt.Errorf("unsupported provider output %T", out)
	}
}

func extensionFor(category, mime string) string {
	if category == storage.CategoryVideos {
		if mime == "video/webm" {
			return ".webm"
		}
		return ".mp4"
	}
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func reporter(progress provider.ProgressFunc) provider.ProgressFunc {
	if progress == nil {
		return func(int) {}
	}
	return progress
}

func isURL(s string) bool {
	return len(s) > 8 && (s[:7] == "http://" || s[:8] == "https://")
}
