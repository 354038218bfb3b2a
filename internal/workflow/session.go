package workflow

import (
	"context"
	"sync"

	"restauro/internal/domain"
)

// SettingsStore loads and saves AppSettings.
type SettingsStore interface {
	Load(ctx context.Context) domain.AppSettings
	Save(ctx context.Context, settings domain.AppSettings)
}

// HistoryStore is the persisted restore log.
type HistoryStore interface {
	HistoryRecorder
	List(ctx context.Context) []domain.HistoryItem
	Delete(ctx context.Context, id string) bool
}

// Session owns the three workflows plus the state shared between them: the
// viewer, the error banner, settings and history.
type Session struct {
	Restore  *ImageState
	Merge    *MergeState
	Generate *GenerateState

	settingsStore SettingsStore
	history       HistoryStore

	mu       sync.Mutex
	settings domain.AppSettings
	viewer   Viewer
	banner   string
}

// NewSession loads settings once and wires the workflows to remote. Either
// store may be nil.
func NewSession(ctx context.Context, remote Remote, settings SettingsStore, history HistoryStore) *Session {
	s := &Session{settingsStore: settings, history: history}
	if settings != nil {
		s.settings = settings.Load(ctx)
	} else {
		s.settings = domain.DefaultSettings()
	}
	var recorder HistoryRecorder
	if history != nil {
		recorder = history
	}
	s.Restore = NewImageState(remote, recorder, s.preferredModel, s.setBanner)
	s.Merge = NewMergeState(remote, s.setBanner)
	s.Generate = NewGenerateState(remote, s.setBanner)
	return s
}

func (s *Session) preferredModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.PreferredModel
}

func (s *Session) setBanner(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = errMessage(err)
}

// Banner returns the latest error message, or "" once dismissed.
func (s *Session) Banner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner
}

func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = ""
}

func (s *Session) Settings() domain.AppSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings applies fn and saves the result when it changed.
func (s *Session) UpdateSettings(ctx context.Context, fn func(*domain.AppSettings)) domain.AppSettings {
	s.mu.Lock()
	next := s.settings
	fn(&next)
	next = next.Normalize()
	changed := next != s.settings
	s.settings = next
	s.mu.Unlock()

	if changed && s.settingsStore != nil {
		s.settingsStore.Save(ctx, next)
	}
	return next
}

func (s *Session) History(ctx context.Context) []domain.HistoryItem {
	if s.history == nil {
		return nil
	}
	return s.history.List(ctx)
}

func (s *Session) DeleteHistory(ctx context.Context, id string) bool {
	if s.history == nil {
		return false
	}
	return s.history.Delete(ctx, id)
}

// Viewer returns the viewer with the payload its source shows right now, so
// edits made after View are reflected. It is closed once the source is empty.
func (s *Session) Viewer() Viewer {
	s.mu.Lock()
	v := s.viewer
	s.mu.Unlock()
	if !v.Open {
		return v
	}
	payload, ok := s.Current(v.Source)
	if !ok {
		return Viewer{}
	}
	v.Payload = payload
	return v
}

// View opens the viewer on the current item of source. It reports false when
// there is nothing to show.
func (s *Session) View(source Source) bool {
	payload, ok := s.Current(source)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewer = Viewer{Open: true, Source: source, Payload: payload}
	return true
}

func (s *Session) CloseViewer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewer = Viewer{}
}

// Navigate moves the result cursor of source by dir. An open viewer on the
// same source follows the cursor.
func (s *Session) Navigate(source Source, dir int) (domain.ProcessResult, bool) {
	return s.move(source, func(r *Results) { r.Navigate(dir) })
}

// Select jumps the result cursor of source to i.
func (s *Session) Select(source Source, i int) (domain.ProcessResult, bool) {
	return s.move(source, func(r *Results) { r.Select(i) })
}

func (s *Session) move(source Source, fn func(*Results)) (domain.ProcessResult, bool) {
	switch source {
	case SourceMerge:
		return s.Merge.Navigate(fn)
	case SourceGenerate:
		return s.Generate.Navigate(fn)
	}
	return domain.ProcessResult{}, false
}

// Current returns the image source is showing: the processed preview or the
// working image for restore, the result under the cursor otherwise.
func (s *Session) Current(source Source) (string, bool) {
	switch source {
	case SourceRestore:
		snap := s.Restore.Snapshot()
		if snap.ProcessedPreview != "" {
			return snap.ProcessedPreview, true
		}
		return snap.OriginalPreview, snap.OriginalPreview != ""
	case SourceMerge:
		res, ok := s.Merge.Navigate(func(*Results) {})
		return res.Payload, ok
	case SourceGenerate:
		res, ok := s.Generate.Navigate(func(*Results) {})
		return res.Payload, ok
	}
	return "", false
}

// Reset clears every workflow, the viewer and the banner.
func (s *Session) Reset() {
	s.Restore.Reset()
	s.Merge.Reset()
	s.Generate.Reset()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewer = Viewer{}
	s.banner = ""
}
