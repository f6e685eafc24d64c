// Package errors provides the structured error type (LamdError) used across
// lamd for category-based classification, exit code mapping and log context.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory classifies a LamdError.
type ErrorCategory string

const (
	// User input and configuration
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Content pipeline
	CategoryDocument  ErrorCategory = "document"
	CategoryField     ErrorCategory = "field"
	CategoryReference ErrorCategory = "reference"
	CategoryCoercion  ErrorCategory = "coercion"
	CategoryStage     ErrorCategory = "stage"
	CategoryTemplate  ErrorCategory = "template"

	// Infrastructure
	CategoryService    ErrorCategory = "service"
	CategoryGit        ErrorCategory = "git"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded output
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// Sentinels the structured errors unwrap to, for errors.Is matching.
var (
	ErrDocumentNotFound   = stderrors.New("document not found")
	ErrFieldNotFound      = stderrors.New("field not found")
	ErrMalformedReference = stderrors.New("malformed reference")
	ErrTypeCoercion       = stderrors.New("type coercion failed")
	ErrServiceUnavailable = stderrors.New("resolver service unavailable")
	ErrConfigRequired     = stderrors.New("required configuration missing")
	ErrUnknownStage       = stderrors.New("unknown pipeline stage")
)

// LamdError is a structured error with category, severity and context.
type LamdError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`

	sentinel error
}

// ContextFields carries structured context for LamdError.
type ContextFields map[string]any

func (e *LamdError) Error() string {
	msg := fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
	if detail := e.contextSummary(); detail != "" {
		msg += " [" + detail + "]"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// contextSummary renders the identifying context keys in a fixed order so
// messages stay deterministic.
func (e *LamdError) contextSummary() string {
	out := ""
	for _, k := range summaryKeys {
		v, ok := e.Context[k]
		if !ok {
			continue
		}
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", k, v)
	}
	return out
}

var summaryKeys = []string{"path", "key", "field", "stage", "record", "value", "line"}

// Unwrap exposes both the cause and the category sentinel.
func (e *LamdError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.sentinel != nil {
		errs = append(errs, e.sentinel)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// WithContext adds context information to the error.
func (e *LamdError) WithContext(key string, value any) *LamdError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

func (e *LamdError) withSentinel(s error) *LamdError {
	e.sentinel = s
	return e
}

// New creates a new LamdError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *LamdError {
	return &LamdError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new LamdError that wraps an existing error.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *LamdError {
	return &LamdError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As returns the first LamdError in err's chain.
func As(err error) (*LamdError, bool) {
	var le *LamdError
	if stderrors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	if le, ok := As(err); ok {
		return le.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or CategoryInternal.
func GetCategory(err error) ErrorCategory {
	if le, ok := As(err); ok {
		return le.Category
	}
	return CategoryInternal
}

// Is is re-exported so callers need a single errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }
