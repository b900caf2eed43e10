package entity

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-ocr/constants"
)

// Candidate is one backend's answer for an image.
type Candidate struct {
	Text       string  `json:"text"`
	Method     string  `json:"method"`
	Confidence float64 `json:"confidence"`
	Length     int     `json:"length"`
}

// NewCandidate trims text, clamps confidence into [0,1] (NaN becomes 0) and
// sets Length to the character count of the trimmed text.
func NewCandidate(text, method string, confidence float64) Candidate {
	text = strings.TrimSpace(text)
	switch {
	case math.IsNaN(confidence), confidence < 0:
		confidence = 0
	case confidence > 1:
		confidence = 1
	}
	return Candidate{
		Text:       text,
		Method:     method,
		Confidence: confidence,
		Length:     utf8.RuneCountInString(text),
	}
}

// EmptyCandidate is what a failed backend contributes.
func EmptyCandidate(method string) Candidate {
	return Candidate{Method: method}
}

// NoneCandidate is the selection result when no backend produced text.
func NoneCandidate() Candidate {
	return Candidate{Method: constants.MethodNone}
}

// IsEmpty reports whether the candidate carries no text.
func (c Candidate) IsEmpty() bool {
	return c.Text == ""
}
