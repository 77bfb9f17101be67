package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/frameforge/frameforge-agent/internal/studio"
)

// ErrNothingToExport is returned when no shot has a rendered video.
var ErrNothingToExport = errors.New("no shot has a rendered video")

type Exporter struct {
	repo      studio.Repository
	assetsDir string
	logger    *slog.Logger
}

func NewExporter(repo studio.Repository, assetsDir string, logger *slog.Logger) *Exporter {
	return &Exporter{repo: repo, assetsDir: assetsDir, logger: logger}
}

// ExportEDL writes <project name>.edl. Without an output dir the file goes to
// the project's exports folder under the assets root.
func (e *Exporter) ExportEDL(ctx context.Context, projectID string, req Request) (*Response, error) {
	p, err := e.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, studio.ErrNotFound)
	}

	dir := req.OutputDir
	if dir == "" {
		dir = filepath.Join(e.assetsDir, projectID, "exports")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create export dir: %w", err)
		}
	} else if err := ValidateOutputDir(dir); err != nil {
		return nil, err
	}

	shots, err := e.repo.ListShots(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list shots: %w", err)
	}
	clips, skipped := Timeline(shots)
	if len(clips) == 0 {
		return nil, ErrNothingToExport
	}

	rate := req.FrameRate
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	title := SanitizeName(p.Name, 120)
	if title == "" {
		title = "frameforge_export"
	}

	out := filepath.Join(dir, title+".edl")
	if err := os.WriteFile(out, []byte(GenerateEDL(clips, title, rate)), 0o644); err != nil {
		return nil, fmt.Errorf("write edl: %w", err)
	}
	if e.logger != nil {
		e.logger.Info("edl exported", "project_id", projectID, "clips", len(clips), "skipped", len(skipped))
	}

	return &Response{
		Status:       "ok",
		Format:       "edl",
		OutputPath:   out,
		ClipCount:    len(clips),
		DurationMs:   TotalMs(clips),
		SkippedShots: skipped,
	}, nil
}
