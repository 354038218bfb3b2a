package persistence

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"restauro/internal/domain"
)

// History is the persisted list of processed images, newest first.
type History struct {
	adapter *Adapter
	now     func() time.Time
	mu      sync.Mutex
}

func NewHistory(adapter *Adapter) *History {
	return &History{adapter: adapter, now: time.Now}
}

func (h *History) List(ctx context.Context) []domain.HistoryItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx)
}

// Append stores item at the head of the list and drops entries past
// domain.HistoryLimit. Missing ids and timestamps are filled in.
func (h *History) Append(ctx context.Context, item domain.HistoryItem) domain.HistoryItem {
	if item.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			item.ID = id.String()
		} else {
			item.ID = uuid.NewString()
		}
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = h.now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	items := append([]domain.HistoryItem{item}, h.load(ctx)...)
	if len(items) > domain.HistoryLimit {
		items = items[:domain.HistoryLimit]
	}
	h.adapter.Save(ctx, HistoryKey, items)
	return item
}

// Delete removes the entry with id and reports whether it existed.
func (h *History) Delete(ctx context.Context, id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	items := h.load(ctx)
	idx := slices.IndexFunc(items, func(it domain.HistoryItem) bool { return it.ID == id })
	if idx < 0 {
		return false
	}
	items = slices.Delete(items, idx, idx+1)
	h.adapter.Save(ctx, HistoryKey, items)
	return true
}

func (h *History) load(ctx context.Context) []domain.HistoryItem {
	return Load(ctx, h.adapter, HistoryKey, []domain.HistoryItem{})
}

// SettingsStore persists domain.AppSettings.
type SettingsStore struct {
	adapter *Adapter
}

func NewSettingsStore(adapter *Adapter) *SettingsStore {
	return &SettingsStore{adapter: adapter}
}

func (s *SettingsStore) Load(ctx context.Context) domain.AppSettings {
	settings := Load(ctx, s.adapter, SettingsKey, domain.DefaultSettings())
	return settings.Normalize()
}

func (s *SettingsStore) Save(ctx context.Context, settings domain.AppSettings) {
	s.adapter.Save(ctx, SettingsKey, settings.Normalize())
}
