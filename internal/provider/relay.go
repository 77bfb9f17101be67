package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frameforge/frameforge-agent/internal/fetch"
)

// Relay speaks the OpenAI wire format to a third-party relay. Requests go
// through the fetcher so a relay the default transport cannot reach is
// retried over a raw socket.
type Relay struct {
	fetcher      *fetch.Fetcher
	baseURL      string
	apiKey       string
	model        string
	pollInterval time.Duration
	maxPolls     int
}

func NewRelay(s Settings, f *fetch.Fetcher) *Relay {
	return &Relay{
		fetcher:      f,
		baseURL:      strings.TrimRight(s.BaseURL, "/"),
		apiKey:       s.APIKey,
		model:        s.Model,
		pollInterval: VideoPollInterval,
		maxPolls:     VideoMaxPolls,
	}
}

type relayMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type relayChatRequest struct {
	Model    string         `json:"model"`
	Messages []relayMessage `json:"messages"`
}

type relayChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type relayImageRequest struct {
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt"`
	N              int      `json:"n"`
	Size           string   `json:"size"`
	ResponseFormat string   `json:"response_format,omitempty"`
	Image          []string `json:"image,omitempty"`
}

type relayImageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Video job states on the relay's /videos/generations endpoint.
const (
	relayVideoQueued     = "queued"
	relayVideoInProgress = "in_progress"
	relayVideoCompleted  = "completed"
	relayVideoFailed     = "failed"
	relayVideoExpired    = "expired"
)

type relayVideoRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Image          string `json:"image"`
	Seconds        int    `json:"seconds,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
}

type relayVideoJob struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
	Data     []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (j relayVideoJob) url() string {
	if j.VideoURL != "" {
		return j.VideoURL
	}
	for _, d := range j.Data {
		if d.URL != "" {
			return d.URL
		}
	}
	return ""
}

func (r *Relay) GenerateText(ctx context.Context, req TextRequest) (Output, error) {
	var msgs []relayMessage
	if req.System != "" {
		msgs = append(msgs, relayMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, relayMessage{Role: "user", Content: req.Prompt})

	var out relayChatResponse
	if err := r.post(ctx, "/chat/completions", relayChatRequest{Model: r.model, Messages: msgs}, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("relay: empty completion")
	}
	return Text{Content: strings.TrimSpace(out.Choices[0].Message.Content)}, nil
}

func (r *Relay) GenerateImage(ctx context.Context, req ImageRequest) (Output, error) {
	body := relayImageRequest{
		Model:          r.model,
		Prompt:         withNegative(req.Prompt, req.NegativePrompt),
		N:              1,
		Size:           sizeFor(req.AspectRatio),
		ResponseFormat: "b64_json",
	}
	for _, ref := range req.References {
		body.Image = append(body.Image, dataURL(ref))
	}

	var out relayImageResponse
	if err := r.post(ctx, "/images/generations", body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, errors.New("relay: no image returned")
	}
	return imageOutput(out.Data[0].B64JSON, out.Data[0].URL)
}

func (r *Relay) SupportsReference() bool {
	return true
}

// GenerateVideo submits an image-to-video job and polls it until it settles.
func (r *Relay) GenerateVideo(ctx context.Context, req VideoRequest, progress ProgressFunc) (Output, error) {
	img := req.FirstFrameURL
	if img == "" && len(req.FirstFrame.Data) > 0 {
		img = dataURL(req.FirstFrame)
	}
	if img == "" {
		return nil, errors.New("video generation needs a first frame image")
	}

	var job relayVideoJob
	err := r.post(ctx, "/videos/generations", relayVideoRequest{
		Model:          r.model,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Image:          img,
		Seconds:        req.DurationS,
		Resolution:     req.Resolution,
	}, &job)
	if err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, &APIError{Provider: KindRelay, Message: "provider returned no video job id"}
	}

	url := r.baseURL + "/videos/generations/" + job.ID
	headers := map[string]string{"Authorization": "Bearer " + r.apiKey}
	return pollVideo(ctx, r.pollInterval, r.maxPolls, progress, func(ctx context.Context) (Output, bool, error) {
		resp, err := r.fetcher.Get(ctx, url, headers)
		if err != nil {
			return nil, false, nil
		}
		if !resp.OK() {
			return nil, true, newAPIError(KindRelay, resp.StatusCode, resp.Body)
		}

		var st relayVideoJob
		if err := json.Unmarshal(resp.Body, &st); err != nil {
			return nil, true, fmt.Errorf("decode video job: %w", err)
		}

		switch st.Status {
		case relayVideoQueued, relayVideoInProgress:
			return nil, false, nil
		case relayVideoCompleted:
			if st.url() == "" {
				return nil, true, errors.New("video job completed without a video url")
			}
			return RemoteAsset{URL: st.url()}, true, nil
		case relayVideoFailed, relayVideoExpired:
			apiErr := &APIError{Provider: KindRelay, Message: "video job " + st.Status}
			if st.Error != nil {
				apiErr.Code = st.Error.Code
				apiErr.Message = nonEmpty(st.Error.Message, apiErr.Message)
			}
			return nil, true, apiErr
		default:
			return nil, true, fmt.Errorf("unexpected video job status %q", st.Status)
		}
	})
}

func (r *Relay) post(ctx context.Context, path string, in, out any) error {
	if r.baseURL == "" {
		return errors.New("relay: base URL is not configured")
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	resp, err := r.fetcher.PostJSON(ctx, r.baseURL+path, map[string]string{
		"Authorization": "Bearer " + r.apiKey,
	}, payload)
	if err != nil {
		return classify(KindRelay, err)
	}
	if !resp.OK() {
		return newAPIError(KindRelay, resp.StatusCode, resp.Body)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode relay response: %w", err)
	}
	return nil
}

func dataURL(ref Reference) string {
	mime := ref.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(ref.Data)
}
