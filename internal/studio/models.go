package studio

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// Artifact types a render task can produce.
const (
	ArtifactImage = "image"
	ArtifactVideo = "video"
)

// Render task statuses, as transmitted to the UI.
const (
	TaskStatusQueued    = "queued"
	TaskStatusRendering = "rendering"
	TaskStatusCompleted = "completed"
	TaskStatusError     = "error"
	TaskStatusPaused    = "paused"
)

// Shot statuses derived from render outcomes.
const (
	ShotStatusEmpty      = "empty"
	ShotStatusGenerating = "generating"
	ShotStatusReady      = "ready"
	ShotStatusError      = "error"
)

const (
	DefaultAspectRatio = "16:9"
	DefaultShotMs      = 3000
)

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Style       string    `json:"style"`
	AspectRatio string    `json:"aspect_ratio"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Character struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Appearance  string    `json:"appearance,omitempty"`
	AvatarPath  string    `json:"avatar_path,omitempty"`
	FrontPath   string    `json:"front_path,omitempty"`
	SidePath    string    `json:"side_path,omitempty"`
	BackPath    string    `json:"back_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReferenceImage returns the best stored likeness of the character.
func (c *Character) ReferenceImage() string {
	if c.FrontPath != "" {
		return c.FrontPath
	}
	return c.AvatarPath
}

type Scene struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Location    string    `json:"location,omitempty"`
	TimeOfDay   string    `json:"time_of_day,omitempty"`
	Props       string    `json:"props,omitempty"`
	Description string    `json:"description,omitempty"`
	ImagePath   string    `json:"image_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Shot struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	SceneID      string    `json:"scene_id,omitempty"`
	Sequence     int       `json:"sequence"`
	Description  string    `json:"description,omitempty"`
	Dialogue     string    `json:"dialogue,omitempty"`
	Action       string    `json:"action,omitempty"`
	CameraType   string    `json:"camera_type,omitempty"`
	Mood         string    `json:"mood,omitempty"`
	DurationMs   int       `json:"duration_ms"`
	CharacterIDs []string  `json:"character_ids"`
	ImagePath    string    `json:"image_path,omitempty"`
	VideoPath    string    `json:"video_path,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RenderTask is one persisted "generate artifact X for shot Y" unit of work.
type RenderTask struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	ShotID       string     `json:"shot_id,omitempty"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TaskPatch is a partial render task update. Nil fields are left unchanged.
type TaskPatch struct {
	Status       *string
	Progress     *int
	ErrorMessage *string
}

type ProviderSetting struct {
	Artifact  string    `json:"artifact"`
	Kind      string    `json:"kind"`
	BaseURL   string    `json:"base_url,omitempty"`
	APIKey    string    `json:"-"`
	Model     string    `json:"model,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewID() string {
	return uuid.NewString()
}

// IsTerminal reports whether a task status can no longer change.
func IsTerminal(status string) bool {
	return status == TaskStatusCompleted || status == TaskStatusError
}

func IsValidArtifact(t string) bool {
	return t == ArtifactImage || t == ArtifactVideo
}
