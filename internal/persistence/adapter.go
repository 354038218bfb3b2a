package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"restauro/internal/domain"
	"restauro/internal/infra"
)

// historyFallback is how many of the newest history entries are kept when a
// full history write is rejected.
const historyFallback = 3

// Adapter encodes values as JSON on top of a Backend.
type Adapter struct {
	backend Backend
	logger  *infra.Logger
}

func NewAdapter(backend Backend, logger *infra.Logger) *Adapter {
	if logger == nil {
		l := infra.Logger(zerolog.Nop())
		logger = &l
	}
	return &Adapter{backend: backend, logger: logger}
}

// Save writes value under key. Failures are logged, never returned. A rejected
// history write is retried with the newest entries only, and the key is
// cleared when that also fails.
func (a *Adapter) Save(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("persistence: encode failed")
		return
	}
	err = a.backend.Put(ctx, key, data)
	if err == nil {
		return
	}
	a.logger.Warn().Err(err).Str("key", key).Int("bytes", len(data)).Msg("persistence: write failed")

	if key != HistoryKey {
		return
	}
	items, ok := value.([]domain.HistoryItem)
	if ok && len(items) > historyFallback {
		trimmed, mErr := json.Marshal(items[:historyFallback])
		if mErr == nil {
			if err = a.backend.Put(ctx, key, trimmed); err == nil {
				a.logger.Info().Int("kept", historyFallback).Msg("persistence: history trimmed to fit storage")
				return
			}
			a.logger.Warn().Err(err).Msg("persistence: trimmed history write failed")
		}
	}
	if err := a.backend.Delete(ctx, key); err != nil {
		a.logger.Error().Err(err).Str("key", key).Msg("persistence: clear failed")
		return
	}
	a.logger.Warn().Str("key", key).Msg("persistence: history cleared")
}

// Load decodes the value stored under key, or returns def when the key is
// missing, unreadable or malformed.
func Load[T any](ctx context.Context, a *Adapter, key string, def T) T {
	data, err := a.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.logger.Warn().Err(err).Str("key", key).Msg("persistence: read failed")
		}
		return def
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("persistence: stored value is malformed")
		return def
	}
	return out
}
