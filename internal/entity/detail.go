package entity

// ClassicalDetail is the raw output of a tesseract profile sweep, as written under all_results.
type ClassicalDetail struct {
	BestText   string            `json:"best_text"`
	BestConfig string            `json:"best_config"`
	AllResults map[string]string `json:"all_results"`
	Error      string            `json:"error,omitempty"`
}

// NeuralDetail is the raw output of a TrOCR model, as written under all_results.
type NeuralDetail struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
	Error      string  `json:"error,omitempty"`
}
