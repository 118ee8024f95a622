package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies every failure the core reports.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindValidation    ErrorKind = "validation"
	KindDuplicate     ErrorKind = "duplicate"
	KindPermission    ErrorKind = "permission"
	KindFileOperation ErrorKind = "file_operation"
	KindFileNotFound  ErrorKind = "file_not_found"
	KindInvalidFormat ErrorKind = "invalid_format"
	KindDatabase      ErrorKind = "database"
)

// ErrorKinds lists every kind, in declaration order.
var ErrorKinds = []ErrorKind{
	KindNotFound,
	KindValidation,
	KindDuplicate,
	KindPermission,
	KindFileOperation,
	KindFileNotFound,
	KindInvalidFormat,
	KindDatabase,
}

// IsValid checks if the kind belongs to the closed set.
func (k ErrorKind) IsValid() bool {
	for _, v := range ErrorKinds {
		if k == v {
			return true
		}
	}
	return false
}

// DomainError represents an error in the domain layer with context.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Context map[string]interface{}
	Err     error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another *DomainError of the same kind, so callers can write
// errors.Is(err, &DomainError{Kind: KindDuplicate}).
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf returns the kind carried by err. The second result is false when err
// is nil, was never classified or carries a kind outside ErrorKinds.
func KindOf(err error) (ErrorKind, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Kind.IsValid() {
		return domainErr.Kind, true
	}
	return "", false
}

// IsKind reports whether err was classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// NewTaskNotFoundError creates a task not found error.
func NewTaskNotFoundError(taskID int64) *DomainError {
	return &DomainError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("No task found with id %d", taskID),
		Context: map[string]interface{}{"id": taskID},
	}
}

// NewNotFoundOrUnchangedError is returned by update-style operations where
// zero affected rows means either a missing task or an empty change set.
func NewNotFoundOrUnchangedError(taskID int64) *DomainError {
	return &DomainError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("No task found with id %d or no changes provided", taskID),
		Context: map[string]interface{}{"id": taskID},
	}
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Message: fmt.Sprintf("Validation failed for field '%s': %s", field, message),
		Context: map[string]interface{}{"field": field},
	}
}

// NewDuplicateTaskError creates a duplicate title error.
func NewDuplicateTaskError(title string, err error) *DomainError {
	return &DomainError{
		Kind:    KindDuplicate,
		Message: fmt.Sprintf("Task already exists: title='%s'", title),
		Context: map[string]interface{}{"title": title},
		Err:     err,
	}
}

// NewDatabaseError wraps a storage failure that has no more specific kind.
func NewDatabaseError(operation string, err error) *DomainError {
	msg := fmt.Sprintf("Database operation failed: operation='%s'", operation)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &DomainError{
		Kind:    KindDatabase,
		Message: msg,
		Context: map[string]interface{}{"operation": operation},
		Err:     err,
	}
}

// NewFileOperationError creates a generic file failure.
func NewFileOperationError(path string, err error) *DomainError {
	msg := fmt.Sprintf("File operation failed: filepath='%s'", path)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &DomainError{
		Kind:    KindFileOperation,
		Message: msg,
		Context: map[string]interface{}{"filepath": path},
		Err:     err,
	}
}

// NewFileNotFoundError creates a missing file error.
func NewFileNotFoundError(path string) *DomainError {
	return &DomainError{
		Kind:    KindFileNotFound,
		Message: fmt.Sprintf("File not found: %s", path),
		Context: map[string]interface{}{"filepath": path},
	}
}

// NewPermissionError creates a permission error; operation is e.g. "read".
func NewPermissionError(path, operation string, err error) *DomainError {
	return &DomainError{
		Kind:    KindPermission,
		Message: fmt.Sprintf("Permission denied: Cannot %s '%s'", operation, path),
		Context: map[string]interface{}{"filepath": path, "operation": operation},
		Err:     err,
	}
}

// NewInvalidFormatError creates an invalid file format error.
func NewInvalidFormatError(path, detail string, err error) *DomainError {
	msg := fmt.Sprintf("Invalid JSON format in file '%s'", path)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return &DomainError{
		Kind:    KindInvalidFormat,
		Message: msg,
		Context: map[string]interface{}{"filepath": path},
		Err:     err,
	}
}

// NewImportFailedError reports a batch where no element could be imported.
// Only the first three element errors are kept in the message.
func NewImportFailedError(path string, elementErrs []string) *DomainError {
	shown := elementErrs
	if len(shown) > 3 {
		shown = shown[:3]
	}
	return &DomainError{
		Kind:    KindFileOperation,
		Message: fmt.Sprintf("Failed to import any tasks from %s: %s", path, strings.Join(shown, "; ")),
		Context: map[string]interface{}{
			"filepath": path,
			"errors":   elementErrs,
		},
	}
}
