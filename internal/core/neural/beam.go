package neural

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// BeamConfig controls generation.
type BeamConfig struct {
	NumBeams       int
	MaxLength      int // total sequence length including the start token
	NoRepeatNgram  int // 0 disables
	EarlyStopping  bool
	LengthPenalty  float64
	DecoderStartID int64
	EOSID          int64
}

// DefaultBeamConfig matches the generation settings of the TrOCR base checkpoints.
func DefaultBeamConfig() BeamConfig {
	return BeamConfig{
		NumBeams:       4,
		MaxLength:      512,
		NoRepeatNgram:  2,
		EarlyStopping:  true,
		LengthPenalty:  1.0,
		DecoderStartID: 2,
		EOSID:          2,
	}
}

// StepFunc returns next-token logits for every prefix. All prefixes have the same length.
type StepFunc func(ctx context.Context, prefixes [][]int64) ([][]float32, error)

// Generation is the winning hypothesis.
type Generation struct {
	Tokens    []int64   // generated ids, without the start token and the end token
	StepProbs []float64 // probability of the token emitted at each step, end token included
	Score     float64   // length-normalized log probability
}

// MeanProb is the confidence proxy: the mean per-step probability of the emitted tokens.
// It is not calibrated.
func (g Generation) MeanProb() float64 {
	if len(g.StepProbs) == 0 {
		return 0
	}
	var sum float64
	for _, p := range g.StepProbs {
		sum += p
	}
	return sum / float64(len(g.StepProbs))
}

type beamState struct {
	tokens []int64
	probs  []float64
	logp   float64
}

type candidate struct {
	beam  int
	token int64
	logp  float64
	prob  float64
}

// BeamSearch runs width-NumBeams search. A hypothesis finishes when it emits
// EOSID; with EarlyStopping the search ends once NumBeams hypotheses finished.
// Beams alive at MaxLength are finalized as they are.
func BeamSearch(ctx context.Context, step StepFunc, cfg BeamConfig) (Generation, error) {
	k := max(cfg.NumBeams, 1)
	if cfg.MaxLength < 2 {
		return Generation{}, fmt.Errorf("max length %d leaves no room to generate", cfg.MaxLength)
	}
	if cfg.LengthPenalty == 0 {
		cfg.LengthPenalty = 1.0
	}

	beams := []beamState{{tokens: []int64{cfg.DecoderStartID}}}
	var finished []beamState
	done := false

	for len(beams[0].tokens) < cfg.MaxLength {
		if err := ctx.Err(); err != nil {
			return Generation{}, err
		}
		prefixes := make([][]int64, len(beams))
		for i, b := range beams {
			prefixes[i] = b.tokens
		}
		logits, err := step(ctx, prefixes)
		if err != nil {
			return Generation{}, err
		}
		if len(logits) != len(beams) {
			return Generation{}, fmt.Errorf("decoder returned %d rows for %d beams", len(logits), len(beams))
		}

		var cands []candidate
		for bi, b := range beams {
			lp := logSoftmax(logits[bi])
			banned := bannedTokens(b.tokens, cfg.NoRepeatNgram)
			for _, tok := range topK(lp, banned, 2*k) {
				cands = append(cands, candidate{
					beam:  bi,
					token: int64(tok),
					logp:  b.logp + lp[tok],
					prob:  math.Exp(lp[tok]),
				})
			}
		}
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].logp > cands[j].logp })
		if len(cands) > 2*k {
			cands = cands[:2*k]
		}

		next := make([]beamState, 0, k)
		for rank, c := range cands {
			parent := beams[c.beam]
			probs := append(append([]float64(nil), parent.probs...), c.prob)
			if c.token == cfg.EOSID {
				if rank >= k {
					continue
				}
				finished = append(finished, beamState{
					tokens: parent.tokens,
					probs:  probs,
					logp:   c.logp / math.Pow(float64(len(parent.tokens)), cfg.LengthPenalty),
				})
				continue
			}
			next = append(next, beamState{
				tokens: append(append([]int64(nil), parent.tokens...), c.token),
				probs:  probs,
				logp:   c.logp,
			})
			if len(next) == k {
				break
			}
		}

		if cfg.EarlyStopping && len(finished) >= k {
			done = true
			break
		}
		if len(next) == 0 {
			done = true
			break
		}
		beams = next
	}

	if !done {
		for _, b := range beams {
			finished = append(finished, beamState{
				tokens: b.tokens,
				probs:  b.probs,
				logp:   b.logp / math.Pow(float64(len(b.tokens)), cfg.LengthPenalty),
			})
		}
	}
	if len(finished) == 0 {
		return Generation{}, fmt.Errorf("beam search produced no hypothesis")
	}

	best := finished[0]
	for _, h := range finished[1:] {
		if h.logp > best.logp {
			best = h
		}
	}
	return Generation{
		Tokens:    append([]int64(nil), best.tokens[1:]...),
		StepProbs: best.probs,
		Score:     best.logp,
	}, nil
}

func logSoftmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxV := math.Inf(-1)
	for _, v := range logits {
		maxV = math.Max(maxV, float64(v))
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v) - maxV)
	}
	logSum := math.Log(sum)
	for i, v := range logits {
		out[i] = float64(v) - maxV - logSum
	}
	return out
}

// bannedTokens lists the tokens that would repeat an n-gram already present in tokens.
func bannedTokens(tokens []int64, n int) map[int64]struct{} {
	if n <= 0 || len(tokens)+1 < n {
		return nil
	}
	prefix := tokens[len(tokens)-(n-1):]
	banned := make(map[int64]struct{})
	for i := 0; i+n <= len(tokens); i++ {
		match := true
		for j := range prefix {
			if tokens[i+j] != prefix[j] {
				match = false
				break
			}
		}
		if match {
			banned[tokens[i+n-1]] = struct{}{}
		}
	}
	return banned
}

// topK returns the indices of the k largest finite values not in banned, best first, lower index first on ties.
func topK(lp []float64, banned map[int64]struct{}, k int) []int {
	idx := make([]int, 0, k+1)
	for i, v := range lp {
		if _, skip := banned[int64(i)]; skip || math.IsInf(v, -1) || math.IsNaN(v) {
			continue
		}
		if len(idx) == k && v <= lp[idx[k-1]] {
			continue
		}
		pos := sort.Search(len(idx), func(j int) bool { return lp[idx[j]] < v })
		idx = append(idx, 0)
		copy(idx[pos+1:], idx[pos:])
		idx[pos] = i
		if len(idx) > k {
			idx = idx[:k]
		}
	}
	return idx
}
