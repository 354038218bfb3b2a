package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"restauro/internal/domain"
	"restauro/internal/middleware"
	"restauro/internal/providers/genai"
)

type stubGenerator struct {
	restore  func(context.Context, domain.RestoreRequest) (domain.ProcessResult, error)
	merge    func(context.Context, domain.MergeRequest) ([]domain.ProcessResult, error)
	generate func(context.Context, domain.GenerateRequest) ([]domain.ProcessResult, error)
	chat     func(context.Context, string) (string, error)
	calls    int
}

func (s *stubGenerator) Restore(ctx context.Context, req domain.RestoreRequest) (domain.ProcessResult, error) {
	s.calls++
	return s.restore(ctx, req)
}

func (s *stubGenerator) Merge(ctx context.Context, req domain.MergeRequest) ([]domain.ProcessResult, error) {
	s.calls++
	return s.merge(ctx, req)
}

func (s *stubGenerator) Generate(ctx context.Context, req domain.GenerateRequest) ([]domain.ProcessResult, error) {
	s.calls++
	return s.generate(ctx, req)
}

func (s *stubGenerator) Chat(ctx context.Context, message string) (string, error) {
	s.calls++
	return s.chat(ctx, message)
}

func do(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req = req.WithContext(context.WithValue(req.Context(), middleware.LocaleKey, "en"))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestProcessImageSuccess(t *testing.T) {
	gen := &stubGenerator{restore: func(ctx context.Context, req domain.RestoreRequest) (domain.ProcessResult, error) {
		if req.Instruction != "Heavy restoration" {
			t.Fatalf("instruction = %q", req.Instruction)
		}
		if req.Model != "custom-model" {
			t.Fatalf("model = %q", req.Model)
		}
		if req.Locale != "en" {
			t.Fatalf("locale = %q", req.Locale)
		}
		return domain.ProcessResult{Payload: "data:image/png;base64,BBBB", Description: "Imagem restaurada."}, nil
	}}
	app := NewApp(nil, nil, gen)

	rec := do(t, app.ProcessImage, `{"base64Image":"data:image/png;base64,AAAA","mimeType":"image/png","promptInstruction":"Heavy restoration","modelPreference":"custom-model"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeMap(t, rec)
	if body["base64"] != "data:image/png;base64,BBBB" || body["description"] != "Imagem restaurada." || body["status"] != "success" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestProcessImageErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"bad json", `{`, nil, http.StatusBadRequest, "invalid JSON"},
		{"missing image", `{"prompt":"x"}`, nil, http.StatusBadRequest, "base64Image"},
		{"missing prompt", `{"base64Image":"AAAA"}`, nil, http.StatusBadRequest, "prompt"},
		{"rate limited", `{"base64Image":"AAAA","prompt":"x"}`, fmt.Errorf("variant 1: %w", domain.ErrRateLimited), http.StatusTooManyRequests, "rate limited"},
		{"missing key", `{"base64Image":"AAAA","prompt":"x"}`, fmt.Errorf("%w: GEMINI_API_KEY is not set", domain.ErrConfiguration), http.StatusInternalServerError, "server configuration error: GEMINI_API_KEY is not set"},
		{"no image", `{"base64Image":"AAAA","prompt":"x"}`, domain.ErrGenerationFailed, http.StatusBadGateway, "generation failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &stubGenerator{restore: func(context.Context, domain.RestoreRequest) (domain.ProcessResult, error) {
				return domain.ProcessResult{}, tc.err
			}}
			rec := do(t, NewApp(nil, nil, gen).ProcessImage, tc.body)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			body := decodeMap(t, rec)
			if body["status"] != "error" {
				t.Fatalf("status field = %v", body["status"])
			}
			if msg, _ := body["error"].(string); !strings.Contains(msg, tc.wantMsg) {
				t.Fatalf("error = %q, want it to contain %q", msg, tc.wantMsg)
			}
			if tc.err == nil && gen.calls != 0 {
				t.Fatalf("generator called on invalid input")
			}
		})
	}
}

func TestStatusForWrappedConfigurationError(t *testing.T) {
	missing := fmt.Errorf("%w: GEMINI_API_KEY is not set", domain.ErrConfiguration)
	for _, err := range []error{missing, fmt.Errorf("variant 1: %w", missing)} {
		code, msg := statusFor(err)
		if code != http.StatusInternalServerError {
			t.Fatalf("status = %d", code)
		}
		if msg != "server configuration error: GEMINI_API_KEY is not set" {
			t.Fatalf("message = %q", msg)
		}
	}
}

func TestMergeImages(t *testing.T) {
	gen := &stubGenerator{merge: func(ctx context.Context, req domain.MergeRequest) ([]domain.ProcessResult, error) {
		if req.Count != domain.MaxVariants {
			t.Fatalf("count = %d, want clamp to %d", req.Count, domain.MaxVariants)
		}
		out := make([]domain.ProcessResult, req.Count)
		for i := range out {
			out[i] = domain.ProcessResult{Payload: fmt.Sprintf("data:image/png;base64,M%d", i)}
		}
		return out, nil
	}}
	rec := do(t, NewApp(nil, nil, gen).MergeImages, `{"imageA":"AAAA","mimeA":"image/png","imageB":"BBBB","mimeB":"image/jpeg","prompt":"together","count":9}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var out []imageResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 4 || out[2].Base64 != "data:image/png;base64,M2" {
		t.Fatalf("unexpected results %+v", out)
	}
}

func TestMergeImagesMissingImage(t *testing.T) {
	gen := &stubGenerator{}
	rec := do(t, NewApp(nil, nil, gen).MergeImages, `{"imageA":"AAAA","prompt":"together"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if gen.calls != 0 {
		t.Fatal("generator must not be called")
	}
}

func TestGenerateImage(t *testing.T) {
	gen := &stubGenerator{generate: func(ctx context.Context, req domain.GenerateRequest) ([]domain.ProcessResult, error) {
		if req.AspectRatio != "16:9" || req.Count != 2 || req.BaseImage != "CCCC" {
			t.Fatalf("unexpected request %+v", req)
		}
		return []domain.ProcessResult{
			{Payload: "data:image/png;base64,G0", ModelID: domain.DefaultImageModel},
			{Payload: "data:image/png;base64,G1", ModelID: domain.DefaultImageModel},
		}, nil
	}}
	rec := do(t, NewApp(nil, nil, gen).GenerateImage, `{"prompt":"castle","count":2,"aspectRatio":"16:9","baseImage":"CCCC"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var out []imageResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[1].Model != domain.DefaultImageModel {
		t.Fatalf("unexpected results %+v", out)
	}
}

func TestGenerateImageFailure(t *testing.T) {
	gen := &stubGenerator{generate: func(context.Context, domain.GenerateRequest) ([]domain.ProcessResult, error) {
		return nil, fmt.Errorf("variant 2: %w", domain.ErrGenerationFailed)
	}}
	rec := do(t, NewApp(nil, nil, gen).GenerateImage, `{"prompt":"castle"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeMap(t, rec)
	if _, ok := body["status"]; ok {
		t.Fatal("status field only belongs to process-image responses")
	}
}

func TestChat(t *testing.T) {
	gen := &stubGenerator{chat: func(ctx context.Context, message string) (string, error) {
		return "echo: " + message, nil
	}}
	app := NewApp(nil, nil, gen)
	rec := do(t, app.Chat, `{"message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeMap(t, rec); body["text"] != "echo: hi" {
		t.Fatalf("unexpected body %v", body)
	}

	rec = do(t, app.Chat, `{"message":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank message status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewApp(nil, nil, nil).Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NewApp(nil, nil, genai.NewClient(genai.Options{})).Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, `"upstream":"missing"`) || !strings.Contains(body, domain.DefaultImageModel) {
		t.Fatalf("health without key = %d %s", rec.Code, body)
	}
}
