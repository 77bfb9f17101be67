package api

import (
	"github.com/frameforge/frameforge-agent/internal/generate"
	"github.com/frameforge/frameforge-agent/internal/logging"
	"github.com/frameforge/frameforge-agent/internal/render"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State       string        `json:"state"`
	QueuedCount int           `json:"queued_count"`
	Queue       render.Status `json:"queue"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type ProjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	Style       string `json:"style" validate:"max=64"`
	AspectRatio string `json:"aspect_ratio" validate:"omitempty,oneof=16:9 9:16 1:1 4:3 3:4 21:9"`
}

type CharacterRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	Appearance  string `json:"appearance" validate:"max=4000"`
}

type SceneRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Location    string `json:"location" validate:"max=1000"`
	TimeOfDay   string `json:"time_of_day" validate:"max=200"`
	Props       string `json:"props" validate:"max=2000"`
	Description string `json:"description" validate:"max=4000"`
}

type ShotRequest struct {
	SceneID      string   `json:"scene_id"`
	Sequence     int      `json:"sequence" validate:"gte=0"`
	Description  string   `json:"description" validate:"max=4000"`
	Dialogue     string   `json:"dialogue" validate:"max=4000"`
	Action       string   `json:"action" validate:"max=4000"`
	CameraType   string   `json:"camera_type" validate:"max=200"`
	Mood         string   `json:"mood" validate:"max=200"`
	DurationMs   int      `json:"duration_ms" validate:"gte=0,lte=600000"`
	CharacterIDs []string `json:"character_ids" validate:"dive,required"`
}

type ReorderShotsRequest struct {
	ShotIDs []string `json:"shot_ids" validate:"required,min=1,dive,required"`
}

// CreateTasksRequest queues either one shot or a batch of shots.
type CreateTasksRequest struct {
	Type    string   `json:"type" validate:"required"`
	ShotID  string   `json:"shot_id"`
	ShotIDs []string `json:"shot_ids" validate:"dive,required"`
}

type CreateTasksResponse struct {
	TaskIDs []string `json:"task_ids"`
}

type TasksResponse struct {
	Tasks []*studio.RenderTask `json:"tasks"`
}

type BatchRequest struct {
	OnlyMissing bool `json:"only_missing"`
}

type ProjectsResponse struct {
	Projects []*studio.Project `json:"projects"`
}

type CharactersResponse struct {
	Characters []*studio.Character `json:"characters"`
}

type ScenesResponse struct {
	Scenes []*studio.Scene `json:"scenes"`
}

type ShotsResponse struct {
	Shots []*studio.Shot `json:"shots"`
}

type StylesResponse struct {
	Categories []string         `json:"categories"`
	Styles     []generate.Style `json:"styles"`
}

type ProviderSettingRequest struct {
	Kind    string `json:"kind" validate:"required,oneof=openai gemini relay dashscope"`
	BaseURL string `json:"base_url" validate:"omitempty,url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model" validate:"max=200"`
}

// ProviderSettingResponse never carries the key itself.
type ProviderSettingResponse struct {
	Artifact   string `json:"artifact"`
	Kind       string `json:"kind"`
	BaseURL    string `json:"base_url,omitempty"`
	Model      string `json:"model,omitempty"`
	HasAPIKey  bool   `json:"has_api_key"`
	APIKeyHint string `json:"api_key_hint,omitempty"`
}

func ProviderSettingToResponse(s *studio.ProviderSetting) ProviderSettingResponse {
	resp := ProviderSettingResponse{
		Artifact:  s.Artifact,
		Kind:      s.Kind,
		BaseURL:   s.BaseURL,
		Model:     s.Model,
		HasAPIKey: s.APIKey != "",
	}
	if resp.HasAPIKey {
		resp.APIKeyHint = logging.SanitizeToken(s.APIKey)
	}
	return resp
}

func (r ProjectRequest) apply(p *studio.Project) {
	p.Name = r.Name
	p.Description = r.Description
	p.Style = r.Style
	if r.AspectRatio != "" {
		p.AspectRatio = r.AspectRatio
	}
}

func (r CharacterRequest) apply(c *studio.Character) {
	c.Name = r.Name
	c.Description = r.Description
	c.Appearance = r.Appearance
}

func (r SceneRequest) apply(s *studio.Scene) {
	s.Name = r.Name
	s.Location = r.Location
	s.TimeOfDay = r.TimeOfDay
	s.Props = r.Props
	s.Description = r.Description
}

func (r ShotRequest) apply(s *studio.Shot) {
	s.SceneID = r.SceneID
	if r.Sequence > 0 {
		s.Sequence = r.Sequence
	}
	s.Description = r.Description
	s.Dialogue = r.Dialogue
	s.Action = r.Action
	s.CameraType = r.CameraType
	s.Mood = r.Mood
	if r.DurationMs > 0 {
		s.DurationMs = r.DurationMs
	}
	s.CharacterIDs = r.CharacterIDs
	if s.CharacterIDs == nil {
		s.CharacterIDs = []string{}
	}
}
