package neural

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Vocab maps token ids back to text for a byte-level BPE tokenizer.
type Vocab struct {
	tokens    []string
	special   map[int64]struct{}
	byteLevel bool
}

var specialTokens = map[string]struct{}{
	"<s>": {}, "</s>": {}, "<pad>": {}, "<unk>": {}, "<mask>": {},
}

// LoadVocab reads vocab.json (token -> id). A .txt file is read as one token per line, id = line number.
func LoadVocab(path string) (*Vocab, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		lines, err := loadDict(path)
		if err != nil {
			return nil, err
		}
		return NewVocab(lines, false), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocab %s: %w", path, err)
	}
	var ids map[string]int64
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("parse vocab %s: %w", path, err)
	}
	var maxID int64 = -1
	for _, id := range ids {
		maxID = max(maxID, id)
	}
	tokens := make([]string, maxID+1)
	for tok, id := range ids {
		if id >= 0 {
			tokens[id] = tok
		}
	}
	return NewVocab(tokens, true), nil
}

func loadDict(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dict %s: %w", path, err)
	}
	defer file.Close()
	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dict %s: %w", path, err)
	}
	return lines, nil
}

// NewVocab builds a vocab from tokens indexed by id. byteLevel marks GPT-2 style
// printable-byte symbols that need mapping back to raw bytes.
func NewVocab(tokens []string, byteLevel bool) *Vocab {
	v := &Vocab{tokens: tokens, special: make(map[int64]struct{}), byteLevel: byteLevel}
	for id, tok := range tokens {
		if _, ok := specialTokens[tok]; ok {
			v.special[int64(id)] = struct{}{}
		}
	}
	return v
}

// Size is the number of ids.
func (v *Vocab) Size() int { return len(v.tokens) }

// Decode joins the tokens for ids, skipping special tokens, and for byte-level
// vocabularies maps the symbols back to UTF-8.
func (v *Vocab) Decode(ids []int64) string {
	var sb strings.Builder
	for _, id := range ids {
		if id < 0 || int(id) >= len(v.tokens) {
			continue
		}
		if _, ok := v.special[id]; ok {
			continue
		}
		sb.WriteString(v.tokens[id])
	}
	if !v.byteLevel {
		return sb.String()
	}
	buf := make([]byte, 0, sb.Len())
	for _, r := range sb.String() {
		if b, ok := unicodeToByte[r]; ok {
			buf = append(buf, b)
			continue
		}
		buf = append(buf, string(r)...)
	}
	return strings.ToValidUTF8(string(buf), "�")
}

// unicodeToByte inverts the printable-byte mapping used by byte-level BPE vocabularies.
var unicodeToByte = func() map[rune]byte {
	m := make(map[rune]byte, 256)
	printable := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}
	n := 0
	for b := 0; b < 256; b++ {
		if printable(b) {
			m[rune(b)] = byte(b)
			continue
		}
		m[rune(256+n)] = byte(b)
		n++
	}
	return m
}()
