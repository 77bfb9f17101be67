package export

// Request asks for an EDL of a project's rendered shots.
type Request struct {
	FrameRate float64 `json:"frame_rate" validate:"omitempty,gt=0,lte=120"`
	OutputDir string  `json:"output_dir,omitempty"`
}

// Clip is one timeline event. StartMs and EndMs are source times within the
// clip's media.
type Clip struct {
	Name      string
	MediaPath string
	StartMs   int
	EndMs     int
	ShotID    string
}

type Response struct {
	Status       string   `json:"status"`
	Format       string   `json:"format"`
	OutputPath   string   `json:"output_path"`
	ClipCount    int      `json:"clip_count"`
	DurationMs   int      `json:"duration_ms"`
	SkippedShots []string `json:"skipped_shots"`
}
