package common

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OCR_CLASSICAL_CONFIDENCE", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("TROCR_NUM_BEAMS", "")
	t.Setenv("PREPROCESS_NEURAL", "")
	t.Setenv("OCR_PREPROCESS_CLASSICAL", "")

	cfg := LoadConfig()
	assert.False(t, cfg.Preprocess.Neural)
	assert.False(t, cfg.OCR.PreprocessInput)
	assert.Equal(t, 0.8, cfg.OCR.ClassicalConfidence)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, 4, cfg.Neural.NumBeams)
	assert.Equal(t, 512, cfg.Neural.MaxLength)
	assert.Equal(t, 2, cfg.Neural.NoRepeatNgram)
	assert.Equal(t, time.Duration(0), cfg.OCR.AdapterTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("OCR_CLASSICAL_CONFIDENCE", "0.65")
	t.Setenv("OCR_MEASURE_CONFIDENCE", "true")
	t.Setenv("TROCR_NUM_BEAMS", "2")
	t.Setenv("ADAPTER_TIMEOUT", "45s")
	t.Setenv("STORE_MAX_CONNS", "9")

	cfg := LoadConfig()
	assert.Equal(t, 0.65, cfg.OCR.ClassicalConfidence)
	assert.True(t, cfg.OCR.MeasureConfidence)
	assert.Equal(t, 2, cfg.Neural.NumBeams)
	assert.Equal(t, 45*time.Second, cfg.OCR.AdapterTimeout)
	assert.Equal(t, int32(9), cfg.Store.MaxConns)
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("TROCR_NUM_BEAMS", "four")
	t.Setenv("ADAPTER_TIMEOUT", "soon")
	t.Setenv("OUTPUT_PRETTY", "maybe")

	cfg := LoadConfig()
	assert.Equal(t, 4, cfg.Neural.NumBeams)
	assert.Equal(t, time.Duration(0), cfg.OCR.AdapterTimeout)
	assert.True(t, cfg.Output.Pretty)
}

func TestConfigValidate(t *testing.T) {
	t.Run("confidence out of range", func(t *testing.T) {
		cfg := LoadConfig()
		cfg.OCR.ClassicalConfidence = 1.5
		err := cfg.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Contains(t, err.Error(), "OCR_CLASSICAL_CONFIDENCE")
	})

	t.Run("store needs a dsn", func(t *testing.T) {
		cfg := LoadConfig()
		cfg.Store.Driver = "sqlite"
		cfg.Store.DSN = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STORE_DSN")
	})

	t.Run("unknown binarization", func(t *testing.T) {
		cfg := LoadConfig()
		cfg.Preprocess.Binarize = "sauvola"
		require.Error(t, cfg.Validate())
	})

	t.Run("log level is case insensitive", func(t *testing.T) {
		cfg := LoadConfig()
		cfg.Log.Level = "DEBUG"
		require.NoError(t, cfg.Validate())
	})
}

func TestValidatorRules(t *testing.T) {
	v := NewValidator().
		Field("name", "  ", Required).
		Field("id", "not-a-uuid", UUID).
		Field("mode", "x", OneOf("a", "b")).
		Field("beams", 0, Between(1, 8)).
		Field("ratio", "0.5", Between(0, 1))

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 5)
	assert.Contains(t, v.ErrorMessage(), "must be one of a, b")
	assert.Contains(t, v.ErrorMessage(), "must be a number")

	ok := NewValidator().
		Field("name", "x", Required).
		Field("id", "7b0e3f9e-2b5c-4a36-9d61-3c7c1e8d2f10", UUID).
		Field("beams", int32(4), Between(1, 8))
	assert.False(t, ok.HasErrors())
	assert.NoError(t, ok.Error())
	assert.NoError(t, ValidateAndReturnError(ok))
}

func TestRegularFileRule(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "profiles.yaml")
	require.NoError(t, os.WriteFile(file, []byte("profiles: []\n"), 0o644))

	assert.Nil(t, RegularFile("f", ""))
	assert.Nil(t, RegularFile("f", file))
	assert.NotNil(t, RegularFile("f", dir))
	assert.NotNil(t, RegularFile("f", filepath.Join(dir, "missing.yaml")))

	cfg := LoadConfig()
	cfg.OCR.ProfilesFile = filepath.Join(dir, "missing.yaml")
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OCR_PROFILES_FILE")
}

func TestAppErrorsMatchSentinels(t *testing.T) {
	cause := errors.New("boom")

	cases := []struct {
		err      *AppError
		sentinel error
		code     string
	}{
		{NewImageDecodeError("a.png", cause), ErrImageDecode, CodeImageDecode},
		{NewEngineUnavailableError("tesseract", cause), ErrEngineUnavailable, CodeEngineUnavailable},
		{NewModelInvocationError("trocr_printed", cause), ErrModelInvocation, CodeModelInvocation},
		{NewConfigProfileError("psm6", nil), ErrConfigProfile, CodeConfigProfile},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.sentinel)
		assert.Equal(t, tc.code, tc.err.Code)
		if tc.err.Code != CodeConfigProfile {
			assert.ErrorIs(t, tc.err, cause)
		}
	}

	var appErr *AppError
	wrapped := WrapError(NewImageDecodeError("b.png", cause), "load")
	require.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, "b.png", appErr.Message)
	assert.Nil(t, WrapError(nil, "noop"))
}

func TestWithTimeout(t *testing.T) {
	parent := context.Background()

	ctx, cancel := WithTimeout(parent, 0)
	cancel()
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
	assert.NoError(t, ctx.Err())

	ctx, cancel = WithTimeout(parent, time.Millisecond)
	defer cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}

func TestContextValues(t *testing.T) {
	ctx := WithFilePath(WithRunID(context.Background(), "run-1"), "/in/a.png")
	assert.Equal(t, "run-1", RunIDFromContext(ctx))
	assert.Equal(t, "/in/a.png", FilePathFromContext(ctx))
	assert.Empty(t, RunIDFromContext(context.Background()))
}
