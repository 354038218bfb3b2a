// Package workflow holds the client-side state machines for restoring,
// merging and generating images, and the session that ties them together.
package workflow

import (
	"context"

	"restauro/internal/domain"
)

// Status is the lifecycle of a single workflow.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Remote performs generation requests.
type Remote interface {
	Restore(ctx context.Context, req domain.RestoreRequest) (domain.ProcessResult, error)
	Merge(ctx context.Context, req domain.MergeRequest) ([]domain.ProcessResult, error)
	Generate(ctx context.Context, req domain.GenerateRequest) ([]domain.ProcessResult, error)
}

// HistoryRecorder receives one entry per successful restore.
type HistoryRecorder interface {
	Append(ctx context.Context, item domain.HistoryItem) domain.HistoryItem
}

// ErrorSink is notified of every failed submission.
type ErrorSink func(err error)

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
