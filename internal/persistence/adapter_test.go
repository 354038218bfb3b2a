package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"restauro/internal/domain"
)

// memoryBackend rejects values larger than limit when limit is positive.
type memoryBackend struct {
	data    map[string][]byte
	limit   int
	failGet error
	puts    int
	deletes int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: map[string][]byte{}}
}

func (m *memoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if m.failGet != nil {
		return nil, m.failGet
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *memoryBackend) Put(ctx context.Context, key string, value []byte) error {
	m.puts++
	if m.limit > 0 && len(value) > m.limit {
		return domain.ErrStorageQuotaExceeded
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryBackend) Delete(ctx context.Context, key string) error {
	m.deletes++
	delete(m.data, key)
	return nil
}

func historyItems(n int) []domain.HistoryItem {
	items := make([]domain.HistoryItem, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range items {
		items[i] = domain.HistoryItem{
			ID:        fmt.Sprintf("h%d", i),
			Original:  "data:image/png;base64," + strings.Repeat("A", 100),
			Processed: "data:image/png;base64," + strings.Repeat("B", 100),
			Mode:      domain.ModeRestore,
			Timestamp: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return items
}

func TestLoadMissingReturnsDefault(t *testing.T) {
	a := NewAdapter(newMemoryBackend(), nil)
	got := Load(context.Background(), a, SettingsKey, domain.DefaultSettings())
	if got != domain.DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestLoadMalformedReturnsDefault(t *testing.T) {
	b := newMemoryBackend()
	b.data[SettingsKey] = []byte("{not json")
	a := NewAdapter(b, nil)
	got := Load(context.Background(), a, SettingsKey, domain.DefaultSettings())
	if got.Theme != domain.DefaultTheme {
		t.Fatalf("expected default theme, got %q", got.Theme)
	}
}

func TestLoadBackendErrorReturnsDefault(t *testing.T) {
	b := newMemoryBackend()
	b.failGet = errors.New("disk gone")
	a := NewAdapter(b, nil)
	got := Load(context.Background(), a, HistoryKey, []domain.HistoryItem{})
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %d items", len(got))
	}
}

func TestSaveRoundTrip(t *testing.T) {
	a := NewAdapter(newMemoryBackend(), nil)
	ctx := context.Background()
	want := domain.AppSettings{Theme: "light", Language: "en", PreferredModel: "m"}
	a.Save(ctx, SettingsKey, want)
	if got := Load(ctx, a, SettingsKey, domain.DefaultSettings()); got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSaveHistoryFallsBackToNewestThree(t *testing.T) {
	b := newMemoryBackend()
	items := historyItems(15)
	// Room for three entries but not fifteen.
	b.limit = 2000
	a := NewAdapter(b, nil)
	ctx := context.Background()

	a.Save(ctx, HistoryKey, items)

	got := Load(ctx, a, HistoryKey, []domain.HistoryItem{})
	if len(got) != 3 {
		t.Fatalf("expected 3 persisted items, got %d", len(got))
	}
	for i, it := range got {
		if it.ID != items[i].ID {
			t.Fatalf("item %d: id %q, want %q", i, it.ID, items[i].ID)
		}
	}
	if b.deletes != 0 {
		t.Fatalf("unexpected delete")
	}
}

func TestSaveHistoryClearsWhenFallbackFails(t *testing.T) {
	b := newMemoryBackend()
	b.data[HistoryKey] = []byte("[]")
	b.limit = 10
	a := NewAdapter(b, nil)
	ctx := context.Background()

	a.Save(ctx, HistoryKey, historyItems(15))

	if b.puts != 2 {
		t.Fatalf("expected 2 put attempts, got %d", b.puts)
	}
	if b.deletes != 1 {
		t.Fatalf("expected history to be cleared, deletes=%d", b.deletes)
	}
	if _, ok := b.data[HistoryKey]; ok {
		t.Fatal("history key should be gone")
	}
}

func TestSaveOtherKeyDoesNotClear(t *testing.T) {
	b := newMemoryBackend()
	b.limit = 1
	a := NewAdapter(b, nil)
	a.Save(context.Background(), SettingsKey, domain.DefaultSettings())
	if b.deletes != 0 || b.puts != 1 {
		t.Fatalf("puts=%d deletes=%d", b.puts, b.deletes)
	}
}
