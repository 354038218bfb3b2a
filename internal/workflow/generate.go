package workflow

import (
	"context"
	"strings"
	"sync"

	"restauro/internal/domain"
)

// GenerateState produces images from a prompt and refines single results.
type GenerateState struct {
	remote  Remote
	onError ErrorSink

	mu        sync.Mutex
	prompt    string
	baseImage string
	baseMime  string
	aspect    string
	results   Results
	status    Status
	err       error
	epoch     uint64
}

type GenerateSnapshot struct {
	Prompt    string
	BaseImage string
	Aspect    string
	Results   Results
	Status    Status
	Err       string
}

func NewGenerateState(remote Remote, onError ErrorSink) *GenerateState {
	return &GenerateState{remote: remote, onError: onError, status: StatusIdle}
}

func (s *GenerateState) Snapshot() GenerateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GenerateSnapshot{
		Prompt:    s.prompt,
		BaseImage: s.baseImage,
		Aspect:    s.aspect,
		Results:   s.results.clone(),
		Status:    s.status,
		Err:       errMessage(s.err),
	}
}

func (s *GenerateState) SetPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = prompt
}

// SetBaseImage conditions generation on an image. An empty payload clears it.
func (s *GenerateState) SetBaseImage(payload, mimeType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseImage, s.baseMime = payload, mimeType
}

// Submit generates a fresh result set, replacing the previous one on success.
func (s *GenerateState) Submit(ctx context.Context, count int, aspect string) (bool, error) {
	s.mu.Lock()
	prompt := strings.TrimSpace(s.prompt)
	if prompt == "" || s.status == StatusProcessing {
		s.mu.Unlock()
		return false, nil
	}
	if aspect == "" {
		aspect = domain.DefaultAspectRatio
	}
	s.aspect = aspect
	req := domain.GenerateRequest{
		Prompt:      prompt,
		Count:       domain.ClampVariants(count),
		AspectRatio: aspect,
		BaseImage:   s.baseImage,
		BaseMime:    s.baseMime,
	}
	epoch := s.begin()
	s.mu.Unlock()

	res, err := s.remote.Generate(ctx, req)

	return true, s.finish(epoch, err, func() {
		s.results = Results{Items: res}
	})
}

// Refine regenerates only the result under the cursor, using it as the base
// image. The cursor does not move.
func (s *GenerateState) Refine(ctx context.Context, instruction string) (bool, error) {
	instruction = strings.TrimSpace(instruction)

	s.mu.Lock()
	current, ok := s.results.Current()
	if !ok || instruction == "" || s.status == StatusProcessing {
		s.mu.Unlock()
		return false, nil
	}
	idx := s.results.Index
	aspect := s.aspect
	if aspect == "" {
		aspect = domain.DefaultAspectRatio
	}
	req := domain.GenerateRequest{
		Prompt:      instruction,
		Count:       1,
		AspectRatio: aspect,
		BaseImage:   current.Payload,
	}
	epoch := s.begin()
	s.mu.Unlock()

	res, err := s.remote.Generate(ctx, req)
	if err == nil && len(res) == 0 {
		err = domain.ErrGenerationFailed
	}

	return true, s.finish(epoch, err, func() {
		if idx < len(s.results.Items) {
			s.results.Items[idx] = res[0]
		}
	})
}

// Navigate applies fn to the result cursor and returns the current result.
func (s *GenerateState) Navigate(fn func(*Results)) (domain.ProcessResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.results)
	return s.results.Current()
}

func (s *GenerateState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.prompt, s.baseImage, s.baseMime, s.aspect = "", "", "", ""
	s.results = Results{}
	s.status = StatusIdle
	s.err = nil
}

// begin must be called with mu held.
func (s *GenerateState) begin() uint64 {
	s.status = StatusProcessing
	s.err = nil
	return s.epoch
}

// finish applies a completed request unless the state was reset meanwhile.
// Failures keep prior results.
func (s *GenerateState) finish(epoch uint64, err error, apply func()) error {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.status = StatusError
		s.err = err
		s.mu.Unlock()
		if s.onError != nil {
			s.onError(err)
		}
		return err
	}
	apply()
	s.status = StatusSuccess
	s.mu.Unlock()
	return nil
}
