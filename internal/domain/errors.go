package domain

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrRateLimited          = errors.New("upstream rate limited")
	ErrGenerationFailed     = errors.New("generation failed: no image returned")
	ErrConfiguration        = errors.New("configuration error")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
	ErrProviderFailure      = errors.New("provider failure")
)
