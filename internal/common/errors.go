package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried on AppError.
const (
	CodeImageDecode       = "IMAGE_DECODE"
	CodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	CodeModelInvocation   = "MODEL_INVOCATION"
	CodeConfigProfile     = "CONFIG_PROFILE"
	CodeConfig            = "CONFIG_ERROR"
	CodeStorage           = "STORAGE_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrStorage      = errors.New("storage error")
	ErrValidation   = errors.New("validation failed")

	// ErrImageDecode: the input file could not be opened or decoded as an image.
	ErrImageDecode = errors.New("image decode failed")
	// ErrEngineUnavailable: the classical engine binary or a model could not be located or loaded.
	ErrEngineUnavailable = errors.New("engine unavailable")
	// ErrModelInvocation: a neural model failed during conversion or generation.
	ErrModelInvocation = errors.New("model invocation failed")
	// ErrConfigProfile: a single classical engine profile failed.
	ErrConfigProfile = errors.New("config profile failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// NewImageDecodeError reports an unreadable image at path.
func NewImageDecodeError(path string, cause error) *AppError {
	return NewAppError(CodeImageDecode, path, join(ErrImageDecode, cause))
}

// NewEngineUnavailableError reports a backend that could not be located or loaded.
func NewEngineUnavailableError(engine string, cause error) *AppError {
	return NewAppError(CodeEngineUnavailable, engine, join(ErrEngineUnavailable, cause))
}

// NewModelInvocationError reports a failed model call.
func NewModelInvocationError(model string, cause error) *AppError {
	return NewAppError(CodeModelInvocation, model, join(ErrModelInvocation, cause))
}

// NewConfigProfileError reports a failed engine run for one profile.
func NewConfigProfileError(profile string, cause error) *AppError {
	return NewAppError(CodeConfigProfile, profile, join(ErrConfigProfile, cause))
}

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
