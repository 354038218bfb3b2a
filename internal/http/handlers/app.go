package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"restauro/internal/domain"
	"restauro/internal/infra"
)

// Generator is the generation backend behind the JSON endpoints.
type Generator interface {
	Restore(ctx context.Context, req domain.RestoreRequest) (domain.ProcessResult, error)
	Merge(ctx context.Context, req domain.MergeRequest) ([]domain.ProcessResult, error)
	Generate(ctx context.Context, req domain.GenerateRequest) ([]domain.ProcessResult, error)
	Chat(ctx context.Context, message string) (string, error)
}

type App struct {
	Config    *infra.Config
	Logger    *infra.Logger
	Generator Generator
}

func NewApp(cfg *infra.Config, logger *infra.Logger, gen Generator) *App {
	if logger == nil {
		l := infra.Logger(zerolog.Nop())
		logger = &l
	}
	return &App{Config: cfg, Logger: logger, Generator: gen}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) maxBody() int64 {
	if a.Config != nil && a.Config.MaxBodyBytes > 0 {
		return a.Config.MaxBodyBytes
	}
	return 25 << 20
}

// decode reads a JSON body bounded by the configured size limit.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxBody())
	return json.NewDecoder(r.Body).Decode(dst)
}
