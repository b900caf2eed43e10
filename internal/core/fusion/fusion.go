// Package fusion picks one candidate out of the backends' answers.
package fusion

import (
	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

// Score weights.
const (
	ConfidenceWeight = 0.7
	LengthWeight     = 0.3
	// LengthSaturation is the character count at which length stops adding score.
	LengthSaturation = 100
)

// Score rates a candidate: 0.7*confidence + 0.3*min(length/100, 1).
func Score(c entity.Candidate) float64 {
	return ConfidenceWeight*c.Confidence + LengthWeight*min(float64(c.Length)/LengthSaturation, 1.0)
}

// Select returns the highest scoring non-empty candidate. cands must be in
// precedence order (classical, printed, handwritten); an exact tie keeps the
// earlier one. No usable candidate yields entity.NoneCandidate().
func Select(cands []entity.Candidate) entity.Candidate {
	best := entity.NoneCandidate()
	bestScore := -1.0
	for _, c := range cands {
		if c.IsEmpty() {
			continue
		}
		if s := Score(c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}
