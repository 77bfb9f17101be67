package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frameforge/frameforge-agent/internal/fetch"
)

const (
	defaultDashScopeURL   = "https://dashscope.aliyuncs.com"
	defaultDashScopeModel = "wanx2.1-i2v-turbo"

	// VideoPollInterval and VideoMaxPolls bound an async video task to
	// roughly ten minutes.
	VideoPollInterval = 3 * time.Second
	VideoMaxPolls     = 200

	videoProgressStart = 20
	videoProgressCap   = 75
)

// Async task states reported by the video API.
const (
	taskPending   = "PENDING"
	taskRunning   = "RUNNING"
	taskSucceeded = "SUCCEEDED"
	taskFailed    = "FAILED"
	taskCanceled  = "CANCELED"
	taskUnknown   = "UNKNOWN"
)

// ErrVideoTimeout is returned when the provider never finished the task.
var ErrVideoTimeout = fmt.Errorf("generation timeout: video task did not finish after %d polls", VideoMaxPolls)

// DashScope generates video from a first frame through an async task API:
// submit once, then poll until the task settles.
type DashScope struct {
	fetcher      *fetch.Fetcher
	baseURL      string
	apiKey       string
	model        string
	pollInterval time.Duration
	maxPolls     int
}

func NewDashScope(s Settings, f *fetch.Fetcher) *DashScope {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = defaultDashScopeURL
	}
	model := s.Model
	if model == "" {
		model = defaultDashScopeModel
	}
	return &DashScope{
		fetcher:      f,
		baseURL:      base,
		apiKey:       s.APIKey,
		model:        model,
		pollInterval: VideoPollInterval,
		maxPolls:     VideoMaxPolls,
	}
}

type videoSubmitRequest struct {
	Model      string          `json:"model"`
	Input      videoInput      `json:"input"`
	Parameters videoParameters `json:"parameters"`
}

type videoInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	ImgURL         string `json:"img_url"`
}

type videoParameters struct {
	Resolution   string `json:"resolution,omitempty"`
	Duration     int    `json:"duration,omitempty"`
	PromptExtend bool   `json:"prompt_extend"`
}

type videoTaskResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		VideoURL   string `json:"video_url"`
		Code       string `json:"code"`
		Message    string `json:"message"`
	} `json:"output"`
	RequestID string `json:"request_id"`
}

func (d *DashScope) GenerateVideo(ctx context.Context, req VideoRequest, progress ProgressFunc) (Output, error) {
	taskID, err := d.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return d.poll(ctx, taskID, progress)
}

func (d *DashScope) submit(ctx context.Context, req VideoRequest) (string, error) {
	img := req.FirstFrameURL
	if img == "" && len(req.FirstFrame.Data) > 0 {
		img = dataURL(req.FirstFrame)
	}
	if img == "" {
		return "", errors.New("video generation needs a first frame image")
	}

	resolution := req.Resolution
	if resolution == "" {
		resolution = "720P"
	}
	payload, err := json.Marshal(videoSubmitRequest{
		Model: d.model,
		Input: videoInput{
			Prompt:         req.Prompt,
			NegativePrompt: req.NegativePrompt,
			ImgURL:         img,
		},
		Parameters: videoParameters{Resolution: resolution, Duration: req.DurationS, PromptExtend: true},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	resp, err := d.fetcher.PostJSON(ctx, d.baseURL+"/api/v1/services/aigc/video-generation/video-synthesis",
		d.headers(map[string]string{"X-DashScope-Async": "enable"}), payload)
	if err != nil {
		return "", classify(KindDashScope, err)
	}
	if !resp.OK() {
		return "", newAPIError(KindDashScope, resp.StatusCode, resp.Body)
	}

	var out videoTaskResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if out.Output.TaskID == "" {
		return "", &APIError{Provider: KindDashScope, StatusCode: resp.StatusCode, Code: out.Output.Code,
			Message: nonEmpty(out.Output.Message, "provider returned no task id")}
	}
	return out.Output.TaskID, nil
}

func (d *DashScope) poll(ctx context.Context, taskID string, progress ProgressFunc) (Output, error) {
	url := d.baseURL + "/api/v1/tasks/" + taskID
	return pollVideo(ctx, d.pollInterval, d.maxPolls, progress, func(ctx context.Context) (Output, bool, error) {
		resp, err := d.fetcher.Get(ctx, url, d.headers(nil))
		if err != nil {
			// A dropped poll does not fail the task; the next tick asks again.
			return nil, false, nil
		}
		if !resp.OK() {
			return nil, true, newAPIError(KindDashScope, resp.StatusCode, resp.Body)
		}

		var out videoTaskResponse
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return nil, true, fmt.Errorf("decode task status: %w", err)
		}

		switch out.Output.TaskStatus {
		case taskPending, taskRunning:
			return nil, false, nil
		case taskSucceeded:
			if out.Output.VideoURL == "" {
				return nil, true, errors.New("video task succeeded without a video url")
			}
			return RemoteAsset{URL: out.Output.VideoURL}, true, nil
		case taskFailed, taskCanceled, taskUnknown:
			return nil, true, &APIError{Provider: KindDashScope, Code: out.Output.Code,
				Message: nonEmpty(out.Output.Message, "video task "+strings.ToLower(out.Output.TaskStatus))}
		default:
			return nil, true, fmt.Errorf("unexpected video task status %q", out.Output.TaskStatus)
		}
	})
}

func (d *DashScope) headers(extra map[string]string) map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + d.apiKey,
		"Content-Type":  "application/json",
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
