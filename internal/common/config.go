package common

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	OCR        OCRConfig
	Preprocess PreprocessConfig
	Neural     NeuralConfig
	Output     OutputConfig
	Store      StoreConfig
	S3         S3Config
	Log        LogConfig
}

// OCRConfig holds classical (tesseract) configuration
type OCRConfig struct {
	TesseractBin        string
	TessdataDir         string
	Language            string
	ProfilesFile        string
	ClassicalConfidence float64
	MeasureConfidence   bool
	PreprocessInput     bool
	ArtifactCacheDir    string
	AdapterTimeout      time.Duration
}

// PreprocessConfig holds image normalization configuration
type PreprocessConfig struct {
	Neural   bool // off: TrOCR gets the decoded file, as the classical engine does
	Binarize string
}

// NeuralConfig holds TrOCR model configuration
type NeuralConfig struct {
	RuntimeLib         string
	PrintedDir         string
	HandwrittenDir     string
	PrintedEnabled     bool
	HandwrittenEnabled bool
	NumBeams           int
	MaxLength          int
	NoRepeatNgram      int
	InputSize          int
	HiddenSize         int
}

// OutputConfig holds result document configuration
type OutputConfig struct {
	File   string
	Pretty bool
}

// StoreConfig holds run-history database configuration
type StoreConfig struct {
	Driver          string
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// S3Config holds result upload configuration
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// LoadConfig loads configuration from a .env file (when present) and environment variables
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		OCR: OCRConfig{
			TesseractBin:        getEnv("OCR_TESSERACT_BIN", "tesseract"),
			TessdataDir:         getEnv("TESSDATA_PREFIX", ""),
			Language:            getEnv("OCR_LANG", "eng"),
			ProfilesFile:        getEnv("OCR_PROFILES_FILE", ""),
			ClassicalConfidence: getEnvAsFloat64("OCR_CLASSICAL_CONFIDENCE", 0.8),
			MeasureConfidence:   getEnvAsBool("OCR_MEASURE_CONFIDENCE", false),
			PreprocessInput:     getEnvAsBool("OCR_PREPROCESS_CLASSICAL", false),
			ArtifactCacheDir:    getEnv("ARTIFACT_CACHE_DIR", os.TempDir()),
			AdapterTimeout:      getEnvAsDuration("ADAPTER_TIMEOUT", 0),
		},
		Preprocess: PreprocessConfig{
			Neural:   getEnvAsBool("PREPROCESS_NEURAL", false),
			Binarize: getEnv("PREPROCESS_BINARIZE", "adaptive"),
		},
		Neural: NeuralConfig{
			RuntimeLib:         getEnv("ONNXRUNTIME_LIB", ""),
			PrintedDir:         getEnv("TROCR_PRINTED_DIR", "./models/trocr-base-printed"),
			HandwrittenDir:     getEnv("TROCR_HANDWRITTEN_DIR", "./models/trocr-base-handwritten"),
			PrintedEnabled:     getEnvAsBool("TROCR_PRINTED_ENABLED", true),
			HandwrittenEnabled: getEnvAsBool("TROCR_HANDWRITTEN_ENABLED", true),
			NumBeams:           getEnvAsInt("TROCR_NUM_BEAMS", 4),
			MaxLength:          getEnvAsInt("TROCR_MAX_LENGTH", 512),
			NoRepeatNgram:      getEnvAsInt("TROCR_NO_REPEAT_NGRAM", 2),
			InputSize:          getEnvAsInt("TROCR_INPUT_SIZE", 384),
			HiddenSize:         getEnvAsInt("TROCR_HIDDEN_SIZE", 768),
		},
		Output: OutputConfig{
			File:   getEnv("OUTPUT_FILE", ""),
			Pretty: getEnvAsBool("OUTPUT_PRETTY", true),
		},
		Store: StoreConfig{
			Driver:          getEnv("STORE_DRIVER", "none"),
			DSN:             getEnv("STORE_DSN", ""),
			MaxConns:        getEnvAsInt32("STORE_MAX_CONNS", 4),
			MinConns:        getEnvAsInt32("STORE_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("STORE_MAX_CONN_LIFETIME", 30*time.Minute),
			DialTimeout:     getEnvAsDuration("STORE_DIAL_TIMEOUT", 3*time.Second),
		},
		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Prefix:          getEnv("S3_PREFIX", "invoice-ocr/"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("OCR_TESSERACT_BIN", c.OCR.TesseractBin, Required).
		Field("OCR_PROFILES_FILE", c.OCR.ProfilesFile, RegularFile).
		Field("OCR_CLASSICAL_CONFIDENCE", c.OCR.ClassicalConfidence, Between(0, 1)).
		Field("PREPROCESS_BINARIZE", c.Preprocess.Binarize, OneOf("adaptive", "otsu")).
		Field("TROCR_NUM_BEAMS", c.Neural.NumBeams, Between(1, 64)).
		Field("TROCR_MAX_LENGTH", c.Neural.MaxLength, Between(1, 4096)).
		Field("TROCR_NO_REPEAT_NGRAM", c.Neural.NoRepeatNgram, Between(0, 16)).
		Field("TROCR_INPUT_SIZE", c.Neural.InputSize, Between(16, 4096)).
		Field("STORE_DRIVER", c.Store.Driver, OneOf("none", "sqlite", "postgres")).
		Field("LOG_LEVEL", strings.ToLower(c.Log.Level), OneOf("debug", "info", "warn", "error"))
	if c.Store.Driver != "none" {
		v.Field("STORE_DSN", c.Store.DSN, Required)
	}
	return ValidateAndReturnError(v)
}

// NewLogger builds the JSON slog logger used by the command line tools.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
