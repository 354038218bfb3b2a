// Package client talks to the restauro HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"restauro/internal/domain"
)

const DefaultBaseURL = "http://localhost:8080"

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Locale is sent as Accept-Language on every request.
	Locale func() string
}

// Client implements the workflow remote over the JSON endpoints. It does not
// retry; the server applies the retry policy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	locale     func() string
}

func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{baseURL: base, httpClient: hc, locale: opts.Locale}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return e.Message
}

func (e *StatusError) StatusCode() int { return e.Code }

func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case e.Code >= 400 && e.Code < 500:
		return domain.ErrValidation
	case strings.Contains(strings.ToLower(e.Message), "configuration error"):
		return domain.ErrConfiguration
	case e.Code == http.StatusBadGateway && strings.Contains(e.Message, domain.ErrGenerationFailed.Error()):
		return domain.ErrGenerationFailed
	default:
		return domain.ErrProviderFailure
	}
}

type processImageBody struct {
	Base64Image       string `json:"base64Image"`
	MimeType          string `json:"mimeType,omitempty"`
	PromptInstruction string `json:"promptInstruction"`
	ModelPreference   string `json:"modelPreference,omitempty"`
}

type processImageReply struct {
	Base64      string `json:"base64"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type mergeBody struct {
	ImageA string `json:"imageA"`
	MimeA  string `json:"mimeA,omitempty"`
	ImageB string `json:"imageB"`
	MimeB  string `json:"mimeB,omitempty"`
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

type generateBody struct {
	Prompt      string `json:"prompt"`
	Count       int    `json:"count"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	BaseImage   string `json:"baseImage,omitempty"`
	BaseMime    string `json:"baseMime,omitempty"`
}

type imageReply struct {
	Base64 string `json:"base64"`
	Model  string `json:"model"`
}

func (c *Client) Restore(ctx context.Context, req domain.RestoreRequest) (domain.ProcessResult, error) {
	var out processImageReply
	err := c.post(ctx, "/api/process-image", processImageBody{
		Base64Image:       req.Image,
		MimeType:          req.MimeType,
		PromptInstruction: req.Instruction,
		ModelPreference:   req.Model,
	}, &out)
	if err != nil {
		return domain.ProcessResult{}, err
	}
	if out.Base64 == "" {
		return domain.ProcessResult{}, domain.ErrGenerationFailed
	}
	return domain.ProcessResult{Payload: out.Base64, ModelID: req.Model, Description: out.Description}, nil
}

func (c *Client) Merge(ctx context.Context, req domain.MergeRequest) ([]domain.ProcessResult, error) {
	var out []imageReply
	err := c.post(ctx, "/api/merge-images", mergeBody{
		ImageA: req.ImageA,
		MimeA:  req.MimeA,
		ImageB: req.ImageB,
		MimeB:  req.MimeB,
		Prompt: req.Instruction,
		Count:  domain.ClampVariants(req.Count),
	}, &out)
	if err != nil {
		return nil, err
	}
	return toResults(out)
}

func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) ([]domain.ProcessResult, error) {
	var out []imageReply
	err := c.post(ctx, "/api/generate-image", generateBody{
		Prompt:      req.Prompt,
		Count:       domain.ClampVariants(req.Count),
		AspectRatio: req.AspectRatio,
		BaseImage:   req.BaseImage,
		BaseMime:    req.BaseMime,
	}, &out)
	if err != nil {
		return nil, err
	}
	return toResults(out)
}

func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := c.post(ctx, "/api/chat", map[string]string{"message": message}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// Health reports whether the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func toResults(items []imageReply) ([]domain.ProcessResult, error) {
	if len(items) == 0 {
		return nil, domain.ErrGenerationFailed
	}
	out := make([]domain.ProcessResult, len(items))
	for i, it := range items {
		out[i] = domain.ProcessResult{Payload: it.Base64, ModelID: it.Model}
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.locale != nil {
		if l := strings.TrimSpace(c.locale()); l != "" {
			req.Header.Set("Accept-Language", l)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}
