package entity

import (
	"fmt"
	"time"
)

// ExtractionResult is the outcome for one image. Either BestResult (with
// AllResults) or Error is set.
type ExtractionResult struct {
	FilePath   string         `json:"file_path"`
	Timestamp  time.Time      `json:"timestamp"`
	BestResult *Candidate     `json:"best_result,omitempty"`
	AllResults map[string]any `json:"all_results,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// ErrorResult builds an error-only result for path.
func ErrorResult(path string, at time.Time, err error) ExtractionResult {
	return ExtractionResult{FilePath: path, Timestamp: at, Error: err.Error()}
}

// Succeeded reports whether the image produced a non-empty best text.
func (r ExtractionResult) Succeeded() bool {
	return r.Error == "" && r.BestResult != nil && !r.BestResult.IsEmpty()
}

// Metadata summarizes a batch run.
type Metadata struct {
	RunID          string    `json:"run_id"`
	ProcessingDate time.Time `json:"processing_date"`
	InputFolder    string    `json:"input_folder"`
	TotalImages    int       `json:"total_images"`
	Successful     int       `json:"successful"`
	Failed         int       `json:"failed"`
}

// BatchResult is the document produced for a directory run. Results are keyed by full path.
type BatchResult struct {
	Metadata Metadata                    `json:"metadata"`
	Results  map[string]ExtractionResult `json:"results"`
}

// NewBatchResult starts an empty batch for inputFolder.
func NewBatchResult(runID, inputFolder string, at time.Time) *BatchResult {
	return &BatchResult{
		Metadata: Metadata{
			RunID:          runID,
			ProcessingDate: at,
			InputFolder:    inputFolder,
		},
		Results: make(map[string]ExtractionResult),
	}
}

// Add records r and updates the counters. A path seen twice replaces the earlier entry.
func (b *BatchResult) Add(r ExtractionResult) {
	if prev, ok := b.Results[r.FilePath]; ok {
		b.Metadata.TotalImages--
		if prev.Succeeded() {
			b.Metadata.Successful--
		} else {
			b.Metadata.Failed--
		}
	}
	b.Results[r.FilePath] = r
	b.Metadata.TotalImages++
	if r.Succeeded() {
		b.Metadata.Successful++
	} else {
		b.Metadata.Failed++
	}
}

// Validate checks the counter invariants.
func (b *BatchResult) Validate() error {
	m := b.Metadata
	if m.Successful+m.Failed != m.TotalImages {
		return fmt.Errorf("successful (%d) + failed (%d) != total_images (%d)", m.Successful, m.Failed, m.TotalImages)
	}
	if m.TotalImages != len(b.Results) {
		return fmt.Errorf("total_images (%d) != results (%d)", m.TotalImages, len(b.Results))
	}
	return nil
}
