package extract

import (
	"context"
	"image"
	"log/slog"

	"github.com/joseph-ayodele/invoice-ocr/internal/core/neural"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/preprocess"
	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

// TextRecognizer is the part of neural.Recognizer the adapter needs.
type TextRecognizer interface {
	ModelID() string
	ExtractWithConfidence(ctx context.Context, img image.Image) (neural.Recognition, error)
	Close() error
}

// NeuralAdapter runs one TrOCR model. Printed and handwritten are two
// instances, each owning its recognizer.
type NeuralAdapter struct {
	name       string
	recognizer TextRecognizer
	normalizer preprocess.Normalizer // nil feeds the decoded image as is
	logger     *slog.Logger
}

func NewNeuralAdapter(name string, r TextRecognizer, n preprocess.Normalizer, l *slog.Logger) *NeuralAdapter {
	if l == nil {
		l = slog.Default()
	}
	return &NeuralAdapter{name: name, recognizer: r, normalizer: n, logger: l}
}

func (a *NeuralAdapter) Name() string { return a.name }

func (a *NeuralAdapter) Invoke(ctx context.Context, path string) Outcome {
	model := a.recognizer.ModelID()
	fail := func(err error) Outcome {
		a.logger.Error("neural recognition failed", "adapter", a.name, "file_path", path, "error", err)
		return Outcome{
			Candidate: entity.EmptyCandidate(a.name),
			Detail:    entity.NeuralDetail{Model: model, Error: err.Error()},
			Err:       err,
		}
	}

	raw, err := preprocess.Load(path)
	if err != nil {
		return fail(err)
	}
	var img image.Image = raw.Image
	if a.normalizer != nil {
		pp, err := a.normalizer.Normalize(ctx, raw, preprocess.ProfileNeural)
		if err != nil {
			return fail(err)
		}
		img = pp.Image
	}

	rec, err := a.recognizer.ExtractWithConfidence(ctx, img)
	if err != nil {
		return fail(err)
	}
	c := entity.NewCandidate(rec.Text, a.name, rec.Confidence)
	return Outcome{
		Candidate: c,
		Detail:    entity.NeuralDetail{Text: c.Text, Confidence: c.Confidence, Model: model},
	}
}

// Close releases the model.
func (a *NeuralAdapter) Close() error {
	return a.recognizer.Close()
}
