package workflow

import (
	"context"
	"strings"
	"sync"

	"restauro/internal/domain"
)

// MergeState combines two photos into one or more variants.
type MergeState struct {
	remote  Remote
	onError ErrorSink

	mu      sync.Mutex
	imageA  string
	mimeA   string
	imageB  string
	mimeB   string
	results Results
	status  Status
	err     error
	epoch   uint64
}

type MergeSnapshot struct {
	ImageA  string
	ImageB  string
	Results Results
	Status  Status
	Err     string
}

func NewMergeState(remote Remote, onError ErrorSink) *MergeState {
	return &MergeState{remote: remote, onError: onError, status: StatusIdle}
}

func (s *MergeState) Snapshot() MergeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MergeSnapshot{
		ImageA:  s.imageA,
		ImageB:  s.imageB,
		Results: s.results.clone(),
		Status:  s.status,
		Err:     errMessage(s.err),
	}
}

func (s *MergeState) SetImageA(payload, mimeType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageA, s.mimeA = payload, mimeType
}

func (s *MergeState) SetImageB(payload, mimeType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageB, s.mimeB = payload, mimeType
}

// Submit requests count merged variants. It reports false without contacting
// the remote unless both images and an instruction are present.
func (s *MergeState) Submit(ctx context.Context, instruction string, count int) (bool, error) {
	instruction = strings.TrimSpace(instruction)

	s.mu.Lock()
	if s.imageA == "" || s.imageB == "" || instruction == "" || s.status == StatusProcessing {
		s.mu.Unlock()
		return false, nil
	}
	s.status = StatusProcessing
	s.err = nil
	epoch := s.epoch
	req := domain.MergeRequest{
		ImageA:      s.imageA,
		MimeA:       s.mimeA,
		ImageB:      s.imageB,
		MimeB:       s.mimeB,
		Instruction: instruction,
		Count:       domain.ClampVariants(count),
	}
	s.mu.Unlock()

	res, err := s.remote.Merge(ctx, req)

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
	s.results = Results{Items: res}
	s.status = StatusSuccess
	s.mu.Unlock()
	return true, nil
}

// Navigate applies fn to the result cursor and returns the current result.
func (s *MergeState) Navigate(fn func(*Results)) (domain.ProcessResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.results)
	return s.results.Current()
}

func (s *MergeState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.imageA, s.mimeA, s.imageB, s.mimeB = "", "", "", ""
	s.results = Results{}
	s.status = StatusIdle
	s.err = nil
}
