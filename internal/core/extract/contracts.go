package extract

import (
	"context"

	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

// Adapter is one recognition backend: image path -> candidate.
// Invoke never panics on purpose and never returns a nil Detail.
type Adapter interface {
	Name() string
	Invoke(ctx context.Context, path string) Outcome
}

// Outcome is what an adapter produced for one image.
type Outcome struct {
	Candidate entity.Candidate
	Detail    any   // raw backend output, written under all_results
	Err       error // set when the backend failed; Candidate is then empty
}

// Failure is the outcome of a backend that produced nothing.
func Failure(name string, err error) Outcome {
	detail := map[string]any{"text": "", "confidence": 0.0}
	if err != nil {
		detail["error"] = err.Error()
	}
	return Outcome{Candidate: entity.EmptyCandidate(name), Detail: detail, Err: err}
}
