package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"restauro/internal/domain"
	"restauro/internal/imagecodec"
	"restauro/internal/infra"
	"restauro/internal/retry"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	TextModel  string
	HTTPClient *http.Client
	Logger     *infra.Logger
	// Retry wraps every single upstream call. The zero value makes exactly
	// one attempt.
	Retry retry.Policy
}

// Client issues generateContent requests against the Gemini REST API and
// normalizes multi-part responses into domain.ProcessResult values. It holds
// no state between calls.
type Client struct {
	apiKey     string
	baseURL    string
	imageModel string
	textModel  string
	httpClient *http.Client
	logger     *infra.Logger
	retry      retry.Policy
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature        float64            `json:"temperature,omitempty"`
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// APIError is returned for non-2xx upstream responses.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini status %d", e.Status)
	}
	return fmt.Sprintf("gemini status %d: %s", e.Status, e.Message)
}

// StatusCode exposes the upstream HTTP status to retry classification.
func (e *APIError) StatusCode() int { return e.Status }

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusTooManyRequests || retry.HasQuotaMarker(e.Message):
		return domain.ErrRateLimited
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return domain.ErrConfiguration
	default:
		return domain.ErrProviderFailure
	}
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = domain.DefaultImageModel
	}
	textModel := strings.TrimSpace(opts.TextModel)
	if textModel == "" {
		textModel = domain.DefaultTextModel
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.Nop())
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		imageModel: imageModel,
		textModel:  textModel,
		httpClient: client,
		logger:     logger,
		retry:      opts.Retry,
	}
}

// ImageModel returns the default image model identifier.
func (c *Client) ImageModel() string {
	return c.imageModel
}

// HasCredentials reports whether an API key is configured.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// call describes one generateContent request.
type call struct {
	model       string
	parts       []geminiPart
	system      string
	temperature float64
	aspect      string
	textOnly    bool
}

func (c call) payload() geminiGenerateContentRequest {
	req := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: c.parts}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature: c.temperature,
		},
	}
	if c.system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: c.system}}}
	}
	if !c.textOnly {
		req.GenerationConfig.ResponseModalities = []string{"TEXT", "IMAGE"}
		if c.aspect != "" {
			req.GenerationConfig.ImageConfig = &geminiImageConfig{AspectRatio: c.aspect}
		}
	}
	return req
}

// generateImage runs one call through the retry policy and parses the image
// out of the response. A response without image data is not retried.
func (c *Client) generateImage(ctx context.Context, in call) (domain.ProcessResult, error) {
	start := time.Now()
	resp, err := c.invokeWithRetry(ctx, in)
	if err != nil {
		return domain.ProcessResult{}, err
	}
	result, err := parseImageResponse(resp, in.model)
	if err != nil {
		c.logger.Warn().
			Str("model", in.model).
			Int("candidates", len(resp.Candidates)).
			Msg("genai: response carried no image part")
		return domain.ProcessResult{}, err
	}
	c.logger.Debug().
		Str("model", in.model).
		Float64("temperature", in.temperature).
		Str("aspect_ratio", in.aspect).
		Dur("elapsed", time.Since(start)).
		Msg("genai: generated image")
	return result, nil
}

func (c *Client) invokeWithRetry(ctx context.Context, in call) (geminiGenerateContentResponse, error) {
	return retry.Value(ctx, c.retry, func(ctx context.Context) (geminiGenerateContentResponse, error) {
		return c.invoke(ctx, in)
	})
}

func (c *Client) invoke(ctx context.Context, in call) (geminiGenerateContentResponse, error) {
	var out geminiGenerateContentResponse
	if c.apiKey == "" {
		return out, fmt.Errorf("%w: GEMINI_API_KEY is not set", domain.ErrConfiguration)
	}
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(in.model))
	err := c.invokeGemini(ctx, path, in.payload(), &out)
	return out, err
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			msg := apiErr.Error.Message
			if apiErr.Error.Status != "" {
				msg = apiErr.Error.Status + ": " + msg
			}
			return &APIError{Status: resp.StatusCode, Message: msg}
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

// parseImageResponse takes the first inline-data part as the image and the
// first non-empty text part as the description.
func parseImageResponse(resp geminiGenerateContentResponse, model string) (domain.ProcessResult, error) {
	var image *geminiInlineData
	var description string
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if image == nil && part.InlineData != nil && part.InlineData.Data != "" {
				image = part.InlineData
			}
			if description == "" && strings.TrimSpace(part.Text) != "" {
				description = strings.TrimSpace(part.Text)
			}
		}
	}
	if image == nil {
		if description != "" {
			return domain.ProcessResult{}, fmt.Errorf("%w (model said: %s)", domain.ErrGenerationFailed, truncate(description, 200))
		}
		return domain.ProcessResult{}, domain.ErrGenerationFailed
	}
	return domain.ProcessResult{
		Payload:     imagecodec.ToDataURL(image.Data, image.MimeType),
		ModelID:     model,
		Description: description,
	}, nil
}

func extractText(resp geminiGenerateContentResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func imagePart(payload, fallbackMIME string) geminiPart {
	data, mime := imagecodec.ToRawPayload(payload)
	if mime == "" {
		mime = fallbackMIME
	}
	if mime == "" {
		mime = imagecodec.DefaultMIME
	}
	return geminiPart{InlineData: &geminiInlineData{MimeType: mime, Data: data}}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
