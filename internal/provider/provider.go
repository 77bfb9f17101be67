// Package provider talks to the remote AI services that produce text, images
// and videos. Each call reads the active settings for its artifact, so a
// settings change in the UI takes effect on the next request.
package provider

import (
	"context"
)

// Artifacts a provider can be configured for.
const (
	ArtifactText  = "text"
	ArtifactImage = "image"
	ArtifactVideo = "video"
)

// Provider kinds.
const (
	KindOpenAI    = "openai"
	KindGemini    = "gemini"
	KindRelay     = "relay"
	KindDashScope = "dashscope"
)

// Settings selects and authenticates a provider.
type Settings struct {
	Kind    string
	BaseURL string
	APIKey  string
	Model   string
}

// Credentials yields the active settings for an artifact.
type Credentials interface {
	Active(ctx context.Context, artifact string) (Settings, error)
}

// ProgressFunc receives a percentage in [0, 100].
type ProgressFunc func(percent int)

// Reference is an image used to condition generation.
type Reference struct {
	Data     []byte
	MIMEType string
}

type TextRequest struct {
	System string
	Prompt string
}

type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	References     []Reference
}

type VideoRequest struct {
	Prompt         string
	NegativePrompt string
	FirstFrame     Reference
	FirstFrameURL  string
	Resolution     string
	DurationS      int
}

// Output is what a provider returned. It is one of Text, InlineAsset or
// RemoteAsset.
type Output interface {
	isOutput()
}

type Text struct {
	Content string
}

// InlineAsset carries the generated bytes directly in the response.
type InlineAsset struct {
	Data     []byte
	MIMEType string
}

// RemoteAsset points at a URL the asset must be downloaded from.
type RemoteAsset struct {
	URL string
}

func (Text) isOutput()        {}
func (InlineAsset) isOutput() {}
func (RemoteAsset) isOutput() {}

type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (Output, error)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (Output, error)
	// SupportsReference reports whether References are honored.
	SupportsReference() bool
}

type VideoGenerator interface {
	GenerateVideo(ctx context.Context, req VideoRequest, progress ProgressFunc) (Output, error)
}

// sizeFor maps an aspect ratio to the closest supported pixel size.
func sizeFor(aspect string) string {
	switch aspect {
	case "9:16", "3:4", "2:3":
		return "1024x1792"
	case "1:1":
		return "1024x1024"
	default:
		return "1792x1024"
	}
}

func withNegative(prompt, negative string) string {
	if negative == "" {
		return prompt
	}
	return prompt + "\n\nAvoid: " + negative
}
