package errors

import "fmt"

// AppError represents an application error with additional context
type AppError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeConfig      = "CONFIG_ERROR"
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeProviderAPI = "PROVIDER_API_ERROR"
	ErrCodeStorage     = "STORAGE_ERROR"
	ErrCodeNotify      = "NOTIFY_ERROR"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Internal: err}
}

// Common error constructors

// Config creates a configuration error
func Config(message string, err error) *AppError {
	return Wrap(err, ErrCodeConfig, message)
}

// Validation creates a validation error
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ProviderAPI creates a provider API error
func ProviderAPI(message string, err error) *AppError {
	return Wrap(err, ErrCodeProviderAPI, message)
}

// Storage creates a storage error
func Storage(message string, err error) *AppError {
	return Wrap(err, ErrCodeStorage, message)
}

// Notify creates a notification error
func Notify(message string, err error) *AppError {
	return Wrap(err, ErrCodeNotify, message)
}
