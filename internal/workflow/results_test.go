package workflow

import (
	"testing"

	"restauro/internal/domain"
)

func makeResults(n int) *Results {
	r := &Results{Items: make([]domain.ProcessResult, n)}
	return r
}

func TestResultsNextWraps(t *testing.T) {
	for _, n := range []int{1, 2, 4} {
		r := makeResults(n)
		for i := 0; i < n; i++ {
			r.Next()
		}
		if r.Index != 0 {
			t.Fatalf("L=%d: index after L nexts = %d", n, r.Index)
		}
		r.Prev()
		if r.Index != n-1 {
			t.Fatalf("L=%d: prev from 0 = %d", n, r.Index)
		}
	}
}

func TestResultsNavigateLargeSteps(t *testing.T) {
	r := makeResults(3)
	r.Navigate(-7)
	if r.Index != 2 {
		t.Fatalf("index = %d", r.Index)
	}
	r.Navigate(5)
	if r.Index != 1 {
		t.Fatalf("index = %d", r.Index)
	}
}

func TestResultsEmptyIsNoop(t *testing.T) {
	r := &Results{}
	r.Next()
	r.Prev()
	if r.Index != 0 || r.Select(0) {
		t.Fatal("empty results must not move")
	}
	if _, ok := r.Current(); ok {
		t.Fatal("empty results have no current item")
	}
}

func TestResultsSelect(t *testing.T) {
	r := makeResults(3)
	if !r.Select(2) || r.Index != 2 {
		t.Fatal("select 2 failed")
	}
	if r.Select(3) || r.Select(-1) || r.Index != 2 {
		t.Fatal("out of range select must be ignored")
	}
}

func TestResultsValueMethods(t *testing.T) {
	snapshot := func() Results {
		return Results{Items: []domain.ProcessResult{{Payload: "a"}, {Payload: "b"}}, Index: 1}
	}
	if snapshot().Len() != 2 {
		t.Fatal("Len on a returned value")
	}
	if cur, ok := snapshot().Current(); !ok || cur.Payload != "b" {
		t.Fatalf("Current = %+v, %v", cur, ok)
	}
}
