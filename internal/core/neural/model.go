package neural

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	ort "github.com/getcharzp/onnxruntime_purego"
	"github.com/up-zero/gotool/convertutil"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/onnx"
)

// Encoding is the encoder output for one image.
type Encoding struct {
	Hidden     []float32
	SeqLen     int
	HiddenSize int
}

// Seq2Seq is an image encoder with an autoregressive text decoder.
type Seq2Seq interface {
	Encode(ctx context.Context, pixels []float32, size int) (Encoding, error)
	// NextTokenLogits returns the logits over the vocabulary for the token following each prefix.
	NextTokenLogits(ctx context.Context, enc Encoding, prefixes [][]int64) ([][]float32, error)
	Close() error
}

// ModelConfig locates an exported encoder/decoder pair.
type ModelConfig struct {
	Dir                string // holds encoder_model.onnx, decoder_model.onnx and vocab.json
	EncoderPath        string
	DecoderPath        string
	VocabPath          string
	OnnxRuntimeLibPath string
	HiddenSize         int // default 768
}

func (c ModelConfig) withDefaults() ModelConfig {
	if c.EncoderPath == "" {
		c.EncoderPath = filepath.Join(c.Dir, "encoder_model.onnx")
	}
	if c.DecoderPath == "" {
		c.DecoderPath = filepath.Join(c.Dir, "decoder_model.onnx")
	}
	if c.VocabPath == "" {
		c.VocabPath = filepath.Join(c.Dir, "vocab.json")
	}
	if c.HiddenSize <= 0 {
		c.HiddenSize = 768
	}
	return c
}

// Tensor names of the optimum TrOCR export.
const (
	encoderInput  = "pixel_values"
	encoderOutput = "last_hidden_state"
	decoderIDs    = "input_ids"
	decoderHidden = "encoder_hidden_states"
	decoderOutput = "logits"
)

// ONNXModel runs the encoder and decoder sessions. Sessions live as long as the model.
type ONNXModel struct {
	rt         *onnx.Config
	encoder    *ort.Session
	decoder    *ort.Session
	hiddenSize int
}

// OpenModel checks the model files, loads the sessions and the vocabulary.
// Missing files or a runtime that does not load are engine-unavailable errors.
func OpenModel(cfg ModelConfig, logger *slog.Logger) (*ONNXModel, *Vocab, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	for _, p := range []string{cfg.EncoderPath, cfg.DecoderPath, cfg.VocabPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, nil, common.NewEngineUnavailableError(p, err)
		}
	}

	vocab, err := LoadVocab(cfg.VocabPath)
	if err != nil {
		return nil, nil, common.NewEngineUnavailableError(cfg.VocabPath, err)
	}

	rt := new(onnx.Config)
	_ = convertutil.CopyProperties(cfg, rt)
	if err := rt.New(); err != nil {
		return nil, nil, common.NewEngineUnavailableError("onnxruntime", err)
	}

	m := &ONNXModel{rt: rt, hiddenSize: cfg.HiddenSize}
	if m.encoder, err = rt.NewSession(cfg.EncoderPath); err != nil {
		_ = m.Close()
		return nil, nil, common.NewEngineUnavailableError(cfg.EncoderPath, err)
	}
	if m.decoder, err = rt.NewSession(cfg.DecoderPath); err != nil {
		_ = m.Close()
		return nil, nil, common.NewEngineUnavailableError(cfg.DecoderPath, err)
	}
	logger.Info("model loaded", "dir", cfg.Dir, "vocab_size", vocab.Size())
	return m, vocab, nil
}

func (m *ONNXModel) Encode(_ context.Context, pixels []float32, size int) (Encoding, error) {
	shape := []int64{1, 3, int64(size), int64(size)}
	in, err := ort.NewTensor(shape, pixels)
	if err != nil {
		return Encoding{}, fmt.Errorf("pixel tensor: %w", err)
	}
	defer in.Destroy()

	outs, err := m.encoder.Run(map[string]*ort.Value{encoderInput: in})
	if err != nil {
		return Encoding{}, fmt.Errorf("encoder run: %w", err)
	}
	defer destroyAll(outs)

	v, ok := outs[encoderOutput]
	if !ok {
		return Encoding{}, fmt.Errorf("encoder output %q missing", encoderOutput)
	}
	data, err := ort.GetTensorData[float32](v)
	if err != nil {
		return Encoding{}, fmt.Errorf("encoder output data: %w", err)
	}
	if len(data)%m.hiddenSize != 0 {
		return Encoding{}, fmt.Errorf("encoder output size %d is not a multiple of hidden size %d", len(data), m.hiddenSize)
	}
	return Encoding{
		Hidden:     append([]float32(nil), data...),
		SeqLen:     len(data) / m.hiddenSize,
		HiddenSize: m.hiddenSize,
	}, nil
}

func (m *ONNXModel) NextTokenLogits(_ context.Context, enc Encoding, prefixes [][]int64) ([][]float32, error) {
	batch := len(prefixes)
	if batch == 0 {
		return nil, nil
	}
	seqLen := len(prefixes[0])
	ids := make([]int64, 0, batch*seqLen)
	hidden := make([]float32, 0, batch*len(enc.Hidden))
	for _, p := range prefixes {
		if len(p) != seqLen {
			return nil, fmt.Errorf("ragged prefixes: %d vs %d", len(p), seqLen)
		}
		ids = append(ids, p...)
		hidden = append(hidden, enc.Hidden...)
	}

	idsT, err := ort.NewTensor([]int64{int64(batch), int64(seqLen)}, ids)
	if err != nil {
		return nil, fmt.Errorf("ids tensor: %w", err)
	}
	defer idsT.Destroy()
	hidT, err := ort.NewTensor([]int64{int64(batch), int64(enc.SeqLen), int64(enc.HiddenSize)}, hidden)
	if err != nil {
		return nil, fmt.Errorf("hidden tensor: %w", err)
	}
	defer hidT.Destroy()

	outs, err := m.decoder.Run(map[string]*ort.Value{decoderIDs: idsT, decoderHidden: hidT})
	if err != nil {
		return nil, fmt.Errorf("decoder run: %w", err)
	}
	defer destroyAll(outs)

	v, ok := outs[decoderOutput]
	if !ok {
		return nil, fmt.Errorf("decoder output %q missing", decoderOutput)
	}
	data, err := ort.GetTensorData[float32](v)
	if err != nil {
		return nil, fmt.Errorf("decoder output data: %w", err)
	}
	if len(data)%(batch*seqLen) != 0 {
		return nil, fmt.Errorf("decoder output size %d does not fit [%d,%d,V]", len(data), batch, seqLen)
	}
	vocab := len(data) / (batch * seqLen)

	// last position of every row
	rows := make([][]float32, batch)
	for b := 0; b < batch; b++ {
		off := (b*seqLen + seqLen - 1) * vocab
		rows[b] = append([]float32(nil), data[off:off+vocab]...)
	}
	return rows, nil
}

func (m *ONNXModel) Close() error {
	if m.encoder != nil {
		m.encoder.Destroy()
		m.encoder = nil
	}
	if m.decoder != nil {
		m.decoder.Destroy()
		m.decoder = nil
	}
	if m.rt != nil {
		m.rt.Destroy()
		m.rt = nil
	}
	return nil
}

func destroyAll(vs map[string]*ort.Value) {
	for _, v := range vs {
		if v != nil {
			v.Destroy()
		}
	}
}
