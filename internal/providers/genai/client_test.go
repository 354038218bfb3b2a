package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"restauro/internal/domain"
	"restauro/internal/retry"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func imageResponse(data, mime, text string) geminiGenerateContentResponse {
	parts := []geminiPart{}
	if text != "" {
		parts = append(parts, geminiPart{Text: text})
	}
	if data != "" {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: mime, Data: data}})
	}
	return geminiGenerateContentResponse{Candidates: []geminiCandidate{{Content: geminiContent{Role: "model", Parts: parts}}}}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, policy retry.Policy) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(Options{APIKey: "test-key", BaseURL: ts.URL, Retry: policy})
}

func TestRestoreParsesImageAndDescription(t *testing.T) {
	var captured geminiGenerateContentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Fatalf("api key header = %q", got)
		}
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash-image:generateContent") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(imageResponse("BBBB", "image/png", "Imagem restaurada."))
	}, retry.Policy{})

	res, err := client.Restore(context.Background(), domain.RestoreRequest{
		Image:       "data:image/png;base64,AAAA",
		MimeType:    "image/png",
		Instruction: "Heavy restoration",
	})
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if res.Payload != "data:image/png;base64,BBBB" {
		t.Fatalf("payload = %q", res.Payload)
	}
	if res.Description != "Imagem restaurada." {
		t.Fatalf("description = %q", res.Description)
	}
	if res.ModelID != domain.DefaultImageModel {
		t.Fatalf("model = %q", res.ModelID)
	}

	parts := captured.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	if parts[0].InlineData == nil || parts[0].InlineData.Data != "AAAA" || parts[0].InlineData.MimeType != "image/png" {
		t.Fatalf("image part = %+v", parts[0].InlineData)
	}
	if parts[1].Text != "Heavy restoration" {
		t.Fatalf("instruction part = %q", parts[1].Text)
	}
	if captured.SystemInstruction == nil || !strings.Contains(captured.SystemInstruction.Parts[0].Text, "Preserve the identity") {
		t.Fatalf("system instruction missing: %+v", captured.SystemInstruction)
	}
	cfg := captured.GenerationConfig
	if cfg.Temperature != restoreTemperature || cfg.ImageConfig == nil || cfg.ImageConfig.AspectRatio != "1:1" {
		t.Fatalf("generation config = %+v", cfg)
	}
}

func TestRestoreWithoutInlineDataFails(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(imageResponse("", "", "I cannot edit this image."))
	}, retry.Policy{Retries: 2, Sleep: func(context.Context, time.Duration) error { return nil }})

	_, err := client.Restore(context.Background(), domain.RestoreRequest{Image: "AAAA", MimeType: "image/png", Instruction: "fix"})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1 (generation failures are not retried)", got)
	}
}

func TestRestoreRetriesRateLimit(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(imageResponse("CCCC", "image/jpeg", ""))
	}, retry.Policy{Retries: 2, BaseDelay: time.Millisecond, Sleep: func(context.Context, time.Duration) error { return nil }})

	res, err := client.Restore(context.Background(), domain.RestoreRequest{Image: "AAAA", MimeType: "image/jpeg", Instruction: "fix"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Payload != "data:image/jpeg;base64,CCCC" {
		t.Fatalf("payload = %q", res.Payload)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down"}}`, want: domain.ErrRateLimited},
		{name: "quota message", status: http.StatusBadRequest, body: `{"error":{"message":"Quota exceeded"}}`, want: domain.ErrRateLimited},
		{name: "bad key", status: http.StatusForbidden, body: `{"error":{"message":"API key not valid"}}`, want: domain.ErrConfiguration},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, want: domain.ErrProviderFailure},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}, retry.Policy{})
			_, err := client.Restore(context.Background(), domain.RestoreRequest{Image: "AAAA", Instruction: "fix"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode() != tc.status {
				t.Fatalf("expected APIError with status %d, got %v", tc.status, err)
			}
		})
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	client := NewClient(Options{HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request expected without credentials")
		return nil, nil
	})}})
	if client.HasCredentials() {
		t.Fatal("HasCredentials() = true, want false")
	}
	_, err := client.Restore(context.Background(), domain.RestoreRequest{Image: "AAAA", Instruction: "fix"})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestMergeRequestsVariantsIndependently(t *testing.T) {
	var mu sync.Mutex
	temps := map[float64]bool{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiGenerateContentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents[0].Parts) != 3 {
			t.Fatalf("merge parts = %d, want 3", len(req.Contents[0].Parts))
		}
		if !strings.Contains(req.SystemInstruction.Parts[0].Text, "collage") {
			t.Fatalf("merge system instruction missing collage constraint")
		}
		temp := req.GenerationConfig.Temperature
		mu.Lock()
		temps[temp] = true
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(imageResponse(fmt.Sprintf("T%.1f", temp), "image/png", ""))
	}, retry.Policy{})

	results, err := client.Merge(context.Background(), domain.MergeRequest{
		ImageA: "data:image/png;base64,AAAA", ImageB: "BBBB", MimeB: "image/jpeg",
		Instruction: "put them together", Count: 3,
	})
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	want := []string{"T0.4", "T0.5", "T0.6"}
	for i, res := range results {
		if res.Payload != "data:image/png;base64,"+want[i] {
			t.Fatalf("results[%d] = %q, want slot ordered by index", i, res.Payload)
		}
	}
	if len(temps) != 3 {
		t.Fatalf("distinct temperatures = %d, want 3", len(temps))
	}
}

func TestGenerateFailsWhenAnyVariantFails(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req geminiGenerateContentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		text := req.Contents[0].Parts[len(req.Contents[0].Parts)-1].Text
		if strings.Contains(text, "Variation #2 of 2") {
			_ = json.NewEncoder(w).Encode(imageResponse("", "", "refused"))
			return
		}
		_ = json.NewEncoder(w).Encode(imageResponse("OK", "image/png", ""))
	}, retry.Policy{})

	_, err := client.Generate(context.Background(), domain.GenerateRequest{Prompt: "a lighthouse", Count: 2, AspectRatio: "16:9"})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestGenerateWithBaseImage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiGenerateContentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		parts := req.Contents[0].Parts
		if len(parts) != 2 || parts[0].InlineData == nil {
			t.Fatalf("expected base image part first, got %+v", parts)
		}
		if req.GenerationConfig.ImageConfig.AspectRatio != "1:1" {
			t.Fatalf("aspect = %q, want fallback 1:1", req.GenerationConfig.ImageConfig.AspectRatio)
		}
		_ = json.NewEncoder(w).Encode(imageResponse("GEN", "image/png", ""))
	}, retry.Policy{})

	results, err := client.Generate(context.Background(), domain.GenerateRequest{Prompt: "make it winter", Count: 1, AspectRatio: "7:3", BaseImage: "data:image/png;base64,BASE"})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(results) != 1 || results[0].ModelID != domain.DefaultImageModel {
		t.Fatalf("results = %+v", results)
	}
}

func TestChat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, domain.DefaultTextModel+":generateContent") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req geminiGenerateContentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.GenerationConfig.ResponseModalities != nil {
			t.Fatalf("chat must not request image modality")
		}
		_ = json.NewEncoder(w).Encode(imageResponse("", "", "Olá!"))
	}, retry.Policy{})

	text, err := client.Chat(context.Background(), "oi")
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if text != "Olá!" {
		t.Fatalf("text = %q", text)
	}
}

func TestBuildVariationPrompt(t *testing.T) {
	if got := buildVariationPrompt(" castle ", 3, 1); got != "castle\nVariation #2 of 3." {
		t.Fatalf("buildVariationPrompt = %q", got)
	}
	if got := buildVariationPrompt("", 1, 0); got != "Variation #1 of 1." {
		t.Fatalf("buildVariationPrompt empty = %q", got)
	}
}
