package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunRecord represents a stored batch run for data transfer between layers.
type RunRecord struct {
	ID             uuid.UUID `json:"id"`
	InputFolder    string    `json:"input_folder"`
	ProcessingDate time.Time `json:"processing_date"`
	TotalImages    int       `json:"total_images"`
	Successful     int       `json:"successful"`
	Failed         int       `json:"failed"`
}

// ImageRecord represents one stored image result.
type ImageRecord struct {
	ID          uuid.UUID       `json:"id"`
	RunID       uuid.UUID       `json:"run_id"`
	FilePath    string          `json:"file_path"`
	Status      string          `json:"status"`
	BestText    string          `json:"best_text"`
	Method      string          `json:"method"`
	Confidence  float64         `json:"confidence"`
	ErrorText   *string         `json:"error_message,omitempty"`
	AllResults  json.RawMessage `json:"all_results,omitempty"`
	ProcessedAt time.Time       `json:"processed_at"`
}
