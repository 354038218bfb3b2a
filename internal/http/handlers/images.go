package handlers

import (
	"net/http"
	"strings"
	"time"

	"restauro/internal/domain"
	"restauro/internal/middleware"
)

type processImageRequest struct {
	Base64Image       string `json:"base64Image"`
	MimeType          string `json:"mimeType"`
	Prompt            string `json:"prompt"`
	PromptInstruction string `json:"promptInstruction"`
	Model             string `json:"model"`
	ModelPreference   string `json:"modelPreference"`
}

type processImageResponse struct {
	Base64      string `json:"base64"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type mergeImagesRequest struct {
	ImageA string `json:"imageA"`
	MimeA  string `json:"mimeA"`
	ImageB string `json:"imageB"`
	MimeB  string `json:"mimeB"`
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

type generateImageRequest struct {
	Prompt      string `json:"prompt"`
	Count       int    `json:"count"`
	AspectRatio string `json:"aspectRatio"`
	BaseImage   string `json:"baseImage,omitempty"`
	BaseMime    string `json:"baseMime,omitempty"`
}

type imageResult struct {
	Base64 string `json:"base64"`
	Model  string `json:"model,omitempty"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func (a *App) ProcessImage(w http.ResponseWriter, r *http.Request) {
	var req processImageRequest
	if err := a.decode(w, r, &req); err != nil {
		a.badRequest(w, r, "invalid JSON payload", true)
		return
	}
	instruction := firstNonEmpty(req.PromptInstruction, req.Prompt)
	if strings.TrimSpace(req.Base64Image) == "" {
		a.badRequest(w, r, "base64Image is required", true)
		return
	}
	if instruction == "" {
		a.badRequest(w, r, "prompt is required", true)
		return
	}

	start := time.Now()
	res, err := a.Generator.Restore(r.Context(), domain.RestoreRequest{
		Image:       req.Base64Image,
		MimeType:    req.MimeType,
		Instruction: instruction,
		Model:       firstNonEmpty(req.ModelPreference, req.Model),
		Locale:      middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, err, true)
		return
	}
	a.Logger.Info().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("model", res.ModelID).
		Dur("elapsed", time.Since(start)).
		Msg("image processed")
	a.json(w, http.StatusOK, processImageResponse{
		Base64:      res.Payload,
		Description: res.Description,
		Status:      "success",
	})
}

func (a *App) MergeImages(w http.ResponseWriter, r *http.Request) {
	var req mergeImagesRequest
	if err := a.decode(w, r, &req); err != nil {
		a.badRequest(w, r, "invalid JSON payload", false)
		return
	}
	if strings.TrimSpace(req.ImageA) == "" || strings.TrimSpace(req.ImageB) == "" {
		a.badRequest(w, r, "imageA and imageB are required", false)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.badRequest(w, r, "prompt is required", false)
		return
	}

	results, err := a.Generator.Merge(r.Context(), domain.MergeRequest{
		ImageA:      req.ImageA,
		MimeA:       req.MimeA,
		ImageB:      req.ImageB,
		MimeB:       req.MimeB,
		Instruction: req.Prompt,
		Count:       domain.ClampVariants(req.Count),
		Locale:      middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, err, false)
		return
	}
	out := make([]imageResult, len(results))
	for i, res := range results {
		out[i] = imageResult{Base64: res.Payload}
	}
	a.json(w, http.StatusOK, out)
}

func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req generateImageRequest
	if err := a.decode(w, r, &req); err != nil {
		a.badRequest(w, r, "invalid JSON payload", false)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.badRequest(w, r, "prompt is required", false)
		return
	}

	results, err := a.Generator.Generate(r.Context(), domain.GenerateRequest{
		Prompt:      req.Prompt,
		Count:       domain.ClampVariants(req.Count),
		AspectRatio: req.AspectRatio,
		BaseImage:   req.BaseImage,
		BaseMime:    req.BaseMime,
		Locale:      middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, err, false)
		return
	}
	out := make([]imageResult, len(results))
	for i, res := range results {
		out[i] = imageResult{Base64: res.Payload, Model: res.ModelID}
	}
	a.json(w, http.StatusOK, out)
}
