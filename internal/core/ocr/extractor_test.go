package ocr

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

type fakeEngine struct {
	texts map[string]string
	errs  map[string]error
	calls []string
	conf  float64
}

func (f *fakeEngine) Recognize(_ context.Context, _ string, p ConfigProfile) (string, error) {
	f.calls = append(f.calls, p.Name)
	if err := f.errs[p.Name]; err != nil {
		return "", err
	}
	return f.texts[p.Name], nil
}

type confidentEngine struct {
	*fakeEngine
	asked string
}

func (c *confidentEngine) WordConfidence(_ context.Context, _ string, p ConfigProfile) (float64, error) {
	c.asked = p.Name
	return c.conf, nil
}

func TestExtractAllPicksLongestText(t *testing.T) {
	eng := &fakeEngine{texts: map[string]string{
		"printed":     "INVOICE 123\f",
		"handwritten": "INV",
		"auto":        "INVOICE 123 TOTAL 9.99\n",
		"single_line": "",
		"single_word": "INVOICE",
	}}
	res := NewExtractor(eng, Config{}, nil).ExtractAll(context.Background(), "a.png")

	assert.Equal(t, "auto", res.BestProfile)
	assert.Equal(t, "INVOICE 123 TOTAL 9.99", res.BestText)
	assert.Equal(t, []string{"printed", "handwritten", "auto", "single_line", "single_word"}, eng.calls)
	assert.Len(t, res.Profiles, 5)
	assert.Equal(t, "INVOICE 123", res.Texts()["printed"])
}

func TestExtractAllTieGoesToEarlierProfile(t *testing.T) {
	eng := &fakeEngine{texts: map[string]string{
		"printed": "ABCD",
		"auto":    "  WXYZ  ",
	}}
	res := NewExtractor(eng, Config{}, nil).ExtractAll(context.Background(), "a.png")
	assert.Equal(t, "printed", res.BestProfile)
	assert.Equal(t, "ABCD", res.BestText)
}

func TestExtractAllSurvivesProfileFailure(t *testing.T) {
	boom := common.NewConfigProfileError("printed", errors.New("exit status 1"))
	eng := &fakeEngine{
		texts: map[string]string{"handwritten": "hello"},
		errs:  map[string]error{"printed": boom},
	}
	res := NewExtractor(eng, Config{}, nil).ExtractAll(context.Background(), "a.png")

	assert.Equal(t, "handwritten", res.BestProfile)
	assert.Len(t, eng.calls, 5)
	require.Error(t, res.Profiles[0].Err)
	assert.True(t, errors.Is(res.Profiles[0].Err, common.ErrConfigProfile))
	assert.Equal(t, "", res.Profiles[0].Text)
}

func TestExtractAllEmptyEverywhere(t *testing.T) {
	res := NewExtractor(&fakeEngine{}, Config{}, nil).ExtractAll(context.Background(), "a.png")
	assert.Equal(t, "", res.BestProfile)
	assert.Equal(t, "", res.BestText)
}

func TestExtractAllDeterministic(t *testing.T) {
	eng := &fakeEngine{texts: map[string]string{"printed": "one two", "auto": "three four"}}
	x := NewExtractor(eng, Config{}, nil)
	first := x.ExtractAll(context.Background(), "a.png")
	second := x.ExtractAll(context.Background(), "a.png")
	assert.Equal(t, first.BestProfile, second.BestProfile)
	assert.Equal(t, first.BestText, second.BestText)
}

func TestExtractAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := &fakeEngine{texts: map[string]string{"printed": "x"}}
	res := NewExtractor(eng, Config{}, nil).ExtractAll(ctx, "a.png")
	assert.Empty(t, eng.calls)
	assert.Equal(t, "", res.BestProfile)
}

func TestExtractAllMeasuresConfidenceOnWinner(t *testing.T) {
	eng := &confidentEngine{fakeEngine: &fakeEngine{
		texts: map[string]string{"printed": "a", "handwritten": "longer"},
		conf:  0.91,
	}}
	res := NewExtractor(eng, Config{MeasureConfidence: true}, nil).ExtractAll(context.Background(), "a.png")
	assert.Equal(t, "handwritten", eng.asked)
	assert.InDelta(t, 0.91, res.Confidence, 1e-9)
}

func TestCustomProfileOrder(t *testing.T) {
	eng := &fakeEngine{texts: map[string]string{"b": "same", "a": "same"}}
	res := NewExtractor(eng, Config{Profiles: []ConfigProfile{{Name: "b", PSM: 6}, {Name: "a", PSM: 6}}}, nil).
		ExtractAll(context.Background(), "a.png")
	assert.Equal(t, "b", res.BestProfile)
}

func TestExtractAllScenarios(t *testing.T) {
	names := []string{"printed", "handwritten", "auto", "single_line", "single_word"}
	cases := []struct {
		name        string
		outputs     []string
		wantProfile string
		wantText    string
		wantLen     int
	}{
		{
			name:        "second profile longest",
			outputs:     []string{"abc", "abcdef", "", "", "a"},
			wantProfile: "handwritten",
			wantText:    "abcdef",
			wantLen:     6,
		},
		{
			name:        "line endings count as in the engine output",
			outputs:     []string{"ab\r\ncd\n", "abcdef", "", "", ""},
			wantProfile: "printed",
			wantText:    "ab\ncd",
			wantLen:     5,
		},
		{
			name:        "surrounding whitespace ignored",
			outputs:     []string{"  abc  \n", "abcd", "", "", ""},
			wantProfile: "handwritten",
			wantText:    "abcd",
			wantLen:     4,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			texts := map[string]string{}
			for i, out := range tc.outputs {
				texts[names[i]] = out
			}
			res := NewExtractor(&fakeEngine{texts: texts}, Config{}, nil).ExtractAll(context.Background(), "a.png")
			assert.Equal(t, tc.wantProfile, res.BestProfile)
			assert.Equal(t, tc.wantText, res.BestText)
			assert.Equal(t, tc.wantLen, utf8.RuneCountInString(res.BestText))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "foo\nbar", CleanText("foo  \r\nbar\f"))
	assert.Equal(t, "a  b", CleanText("  a  b \n\n"))
	assert.Equal(t, "", CleanText("\f\n "))
}
