package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"restauro/internal/domain"
)

// ImageState is the restore workflow: a working image, an optional processed
// preview and undo/redo stacks of previously accepted originals.
type ImageState struct {
	remote   Remote
	recorder HistoryRecorder
	model    func() string
	onError  ErrorSink

	mu          sync.Mutex
	original    string
	processed   string
	description string
	mimeType    string
	history     []string // most recent last
	future      []string // most recent first
	status      Status
	err         error
	epoch       uint64
}

// ImageSnapshot is a copy of ImageState safe to read without locking.
type ImageSnapshot struct {
	OriginalPreview  string
	ProcessedPreview string
	Description      string
	MimeType         string
	History          []string
	Future           []string
	Status           Status
	Err              string
}

func NewImageState(remote Remote, recorder HistoryRecorder, model func() string, onError ErrorSink) *ImageState {
	return &ImageState{remote: remote, recorder: recorder, model: model, onError: onError, status: StatusIdle}
}

func (s *ImageState) Snapshot() ImageSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ImageSnapshot{
		OriginalPreview:  s.original,
		ProcessedPreview: s.processed,
		Description:      s.description,
		MimeType:         s.mimeType,
		History:          append([]string(nil), s.history...),
		Future:           append([]string(nil), s.future...),
		Status:           s.status,
		Err:              errMessage(s.err),
	}
}

// Load replaces the working image and discards every derived state.
func (s *ImageState) Load(payload, mimeType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.original = payload
	s.mimeType = mimeType
	s.processed = ""
	s.description = ""
	s.history = nil
	s.future = nil
	s.status = StatusIdle
	s.err = nil
}

// Submit sends the working image for processing. It reports false without
// contacting the remote when there is no image, no instruction, or a request
// is already in flight.
func (s *ImageState) Submit(ctx context.Context, mode domain.Mode, instruction string) (bool, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		instruction = mode.Instruction()
	}

	s.mu.Lock()
	if s.original == "" || instruction == "" || s.status == StatusProcessing {
		s.mu.Unlock()
		return false, nil
	}
	s.status = StatusProcessing
	s.err = nil
	epoch := s.epoch
	req := domain.RestoreRequest{
		Image:       s.original,
		MimeType:    s.mimeType,
		Instruction: instruction,
	}
	if s.model != nil {
		req.Model = s.model()
	}
	s.mu.Unlock()

	res, err := s.remote.Restore(ctx, req)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return true, nil
	}
	if err != nil {
		s.status = StatusError
		s.err = err
		s.mu.Unlock()
		if s.onError != nil {
			s.onError(err)
		}
		return true, err
	}
	s.processed = res.Payload
	s.description = res.Description
	s.status = StatusSuccess
	item := domain.HistoryItem{
		Original:    req.Image,
		Processed:   res.Payload,
		Mode:        mode,
		Timestamp:   time.Now(),
		Description: res.Description,
	}
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.Append(ctx, item)
	}
	return true, nil
}

// Accept promotes the processed preview to the working image. Accept, Undo
// and Redo refuse while a request is in flight so its result always lands on
// the original it was computed from.
func (s *ImageState) Accept() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processed == "" || s.status == StatusProcessing {
		return false
	}
	s.history = append(s.history, s.original)
	s.original = s.processed
	s.processed = ""
	s.description = ""
	s.future = nil
	s.status = StatusIdle
	return true
}

func (s *ImageState) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.history)
	if n == 0 || s.status == StatusProcessing {
		return false
	}
	prev := s.history[n-1]
	s.history = s.history[:n-1]
	s.future = append([]string{s.original}, s.future...)
	s.original = prev
	s.processed = ""
	s.description = ""
	s.status = StatusIdle
	s.err = nil
	return true
}

func (s *ImageState) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.future) == 0 || s.status == StatusProcessing {
		return false
	}
	next := s.future[0]
	s.future = s.future[1:]
	s.history = append(s.history, s.original)
	s.original = next
	s.processed = ""
	s.description = ""
	s.status = StatusIdle
	s.err = nil
	return true
}

// Reset clears everything. A request in flight is not cancelled but its
// result is dropped.
func (s *ImageState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.original = ""
	s.processed = ""
	s.description = ""
	s.mimeType = ""
	s.history = nil
	s.future = nil
	s.status = StatusIdle
	s.err = nil
}
