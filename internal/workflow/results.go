package workflow

import "restauro/internal/domain"

// Results is an ordered set of variants with a cursor.
type Results struct {
	Items []domain.ProcessResult
	Index int
}

func (r Results) Len() int { return len(r.Items) }

// Current returns the result under the cursor.
func (r Results) Current() (domain.ProcessResult, bool) {
	if len(r.Items) == 0 || r.Index < 0 || r.Index >= len(r.Items) {
		return domain.ProcessResult{}, false
	}
	return r.Items[r.Index], true
}

func (r *Results) Next() { r.Navigate(1) }

func (r *Results) Prev() { r.Navigate(-1) }

// Navigate moves the cursor by dir, wrapping at both ends.
func (r *Results) Navigate(dir int) {
	n := len(r.Items)
	if n == 0 {
		return
	}
	r.Index = ((r.Index+dir)%n + n) % n
}

// Select moves the cursor to i. Out of range indexes are ignored.
func (r *Results) Select(i int) bool {
	if i < 0 || i >= len(r.Items) {
		return false
	}
	r.Index = i
	return true
}

func (r Results) clone() Results {
	return Results{Items: append([]domain.ProcessResult(nil), r.Items...), Index: r.Index}
}

// Source names the workflow a viewer is showing.
type Source string

const (
	SourceRestore  Source = "restore"
	SourceMerge    Source = "merge"
	SourceGenerate Source = "generate"
)

// Viewer is the full-size preview of one result.
type Viewer struct {
	Open    bool
	Source  Source
	Payload string
}
