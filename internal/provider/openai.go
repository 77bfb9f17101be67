package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAITextModel  = openai.GPT4oMini
	defaultOpenAIImageModel = openai.CreateImageModelDallE3
	openAITimeout           = 180 * time.Second
)

// OpenAI serves text and images through the official OpenAI API or any
// compatible base URL.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(s Settings, httpClient *http.Client) *OpenAI {
	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(s.BaseURL, "/")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: openAITimeout}
	}
	cfg.HTTPClient = httpClient
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: s.Model}
}

func (o *OpenAI) GenerateText(ctx context.Context, req TextRequest) (Output, error) {
	model := o.model
	if model == "" {
		model = defaultOpenAITextModel
	}

	var msgs []openai.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	})
	if err != nil {
		return nil, o.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty completion")
	}
	return Text{Content: strings.TrimSpace(resp.Choices[0].Message.Content)}, nil
}

func (o *OpenAI) GenerateImage(ctx context.Context, req ImageRequest) (Output, error) {
	model := o.model
	if model == "" {
		model = defaultOpenAIImageModel
	}

	ir := openai.ImageRequest{
		Prompt: withNegative(req.Prompt, req.NegativePrompt),
		Model:  model,
		N:      1,
		Size:   sizeFor(req.AspectRatio),
	}
	if strings.HasPrefix(model, "dall-e") {
		ir.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := o.client.CreateImage(ctx, ir)
	if err != nil {
		return nil, o.wrap(err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai: no image returned")
	}
	return imageOutput(resp.Data[0].B64JSON, resp.Data[0].URL)
}

func (o *OpenAI) SupportsReference() bool {
	return false
}

func (o *OpenAI) wrap(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.Type
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		return &APIError{
			Provider:   KindOpenAI,
			StatusCode: apiErr.HTTPStatusCode,
			Code:       code,
			Message:    apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &APIError{Provider: KindOpenAI, StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}
	return classify(KindOpenAI, err)
}

// imageOutput normalizes the b64-or-url pair OpenAI style APIs return.
func imageOutput(b64, url string) (Output, error) {
	if b64 != "" {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return InlineAsset{Data: data, MIMEType: "image/png"}, nil
	}
	if url != "" {
		return RemoteAsset{URL: url}, nil
	}
	return nil, errors.New("image response had neither data nor url")
}
