package onnx

import (
	"fmt"
	"os"
	"runtime"

	ort "github.com/getcharzp/onnxruntime_purego"
)

// Config holds the runtime library location and, after New, the live engine and session options.
type Config struct {
	OnnxRuntimeLibPath string

	OnnxEngine     *ort.Engine
	SessionOptions *ort.SessionOptions
}

// New loads the runtime library and prepares default session options.
func (c *Config) New() error {
	lib, err := ResolveLibrary(c.OnnxRuntimeLibPath)
	if err != nil {
		return err
	}
	c.OnnxRuntimeLibPath = lib
	engine, err := ort.NewEngine(c.OnnxRuntimeLibPath)
	if err != nil {
		return fmt.Errorf("load onnxruntime %s: %w", c.OnnxRuntimeLibPath, err)
	}
	opts, err := engine.NewSessionOptions()
	if err != nil {
		engine.Destroy()
		return fmt.Errorf("create session options: %w", err)
	}
	c.OnnxEngine = engine
	c.SessionOptions = opts
	return nil
}

// NewSession opens a model file with the shared options.
func (c *Config) NewSession(modelPath string) (*ort.Session, error) {
	if c.OnnxEngine == nil {
		return nil, fmt.Errorf("onnx runtime not initialised")
	}
	session, err := c.OnnxEngine.NewSession(modelPath, c.SessionOptions)
	if err != nil {
		return nil, fmt.Errorf("create session %s: %w", modelPath, err)
	}
	return session, nil
}

// Destroy releases the session options and the runtime.
func (c *Config) Destroy() {
	if c.SessionOptions != nil {
		c.SessionOptions.Destroy()
		c.SessionOptions = nil
	}
	if c.OnnxEngine != nil {
		c.OnnxEngine.Destroy()
		c.OnnxEngine = nil
	}
}

// SystemLibraryName is the runtime's shared library name on this platform.
// Loading it by bare name leaves the search to the system loader
// (LD_LIBRARY_PATH, DYLD_LIBRARY_PATH or PATH).
func SystemLibraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

// ResolveLibrary returns the configured library path, or the bare system
// name when none is configured. A configured path must exist.
func ResolveLibrary(configured string) (string, error) {
	if configured == "" {
		return SystemLibraryName(), nil
	}
	info, err := os.Stat(configured)
	if err != nil {
		return "", fmt.Errorf("onnxruntime library: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("onnxruntime library %s is a directory", configured)
	}
	return configured, nil
}
