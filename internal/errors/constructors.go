package errors

import "fmt"

// Document and field errors

func DocumentNotFound(path string) *LamdError {
	return New(CategoryDocument, SeverityFatal, "document not found").
		WithContext("path", path).
		withSentinel(ErrDocumentNotFound)
}

func DocumentUnreadable(path string, cause error) *LamdError {
	return Wrap(cause, CategoryDocument, SeverityFatal, "document could not be read").
		WithContext("path", path)
}

// FieldNotFound is informational only; resolution returns an empty value.
func FieldNotFound(field string) *LamdError {
	return New(CategoryField, SeverityInfo, "field not found").
		WithContext("field", field).
		withSentinel(ErrFieldNotFound)
}

func MalformedReference(path string, line int, text string) *LamdError {
	return New(CategoryReference, SeverityWarning, "malformed reference skipped").
		WithContext("path", path).
		WithContext("line", line).
		WithContext("value", text).
		withSentinel(ErrMalformedReference)
}

// Pipeline errors

// TypeCoercion names the record and the raw value that could not be converted.
func TypeCoercion(stage, recordID, field string, raw any, cause error) *LamdError {
	return Wrap(cause, CategoryCoercion, SeverityFatal, "type coercion failed").
		WithContext("stage", stage).
		WithContext("record", recordID).
		WithContext("field", field).
		WithContext("value", fmt.Sprintf("%q", fmt.Sprint(raw))).
		withSentinel(ErrTypeCoercion)
}

func UnknownStage(category, name string) *LamdError {
	return New(CategoryStage, SeverityFatal, "unknown "+category).
		WithContext("key", name).
		withSentinel(ErrUnknownStage)
}

func StageArgs(stage string, cause error) *LamdError {
	return Wrap(cause, CategoryStage, SeverityFatal, "invalid stage arguments").
		WithContext("stage", stage)
}

func TemplateFailed(name string, cause error) *LamdError {
	return Wrap(cause, CategoryTemplate, SeverityFatal, "template rendering failed").
		WithContext("key", name)
}

// Config errors

func ConfigNotFound(path string) *LamdError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

// ConfigRequired names the missing key, e.g. "listtemplate".
func ConfigRequired(key string) *LamdError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("key", key).
		withSentinel(ErrConfigRequired)
}

func ConfigInvalid(path string, cause error) *LamdError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration could not be parsed").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *LamdError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Infrastructure errors

// ServiceUnavailable is never surfaced to users; clients fall back in-process.
func ServiceUnavailable(cause error) *LamdError {
	return Wrap(cause, CategoryService, SeverityWarning, "resolver service unavailable").
		withSentinel(ErrServiceUnavailable)
}

func GitSyncFailed(path string, cause error) *LamdError {
	return Wrap(cause, CategoryGit, SeverityError, "repository sync failed").
		WithContext("path", path)
}

func FileSystemError(operation string, cause error) *LamdError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "filesystem operation failed").
		WithContext("operation", operation)
}

func InternalError(message string, cause error) *LamdError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
