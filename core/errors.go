package core

import (
	"fmt"
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	// ErrForbidden is returned when the acting user may not perform an operation.
	ErrForbidden = errors.New("permission denied")
	// ErrInvalidTransition is returned when a status change is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldsValidationError converts validator.ValidationErrors into a *ValidationError carrying
// translated messages. Any other error is returned as is.
func NewFieldsValidationError(err error, translator ut.Translator) error {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	msgs := make([]string, 0, len(vErrs))
	for _, vErr := range vErrs {
		msg := vErr.Translate(translator)
		flds = append(flds, FieldError{Field: vErr.Field(), Error: msg})
		msgs = append(msgs, msg)
	}
	return &ValidationError{Err: errors.New(strings.Join(msgs, "; ")), Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// FieldMap returns the field errors keyed by field name.
func (err ValidationError) FieldMap() map[string]string {
	fldErrs := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		fldErrs[fErr.Field] = fErr.Error
	}
	return fldErrs
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// TransportError is a failed round trip to a remote backend: a non-2xx response or a network failure.
type TransportError struct {
	Status  int // 0 when no response was received
	Title   string
	Message string
	Err     error
}

func (err *TransportError) Error() string {
	if err.Status > 0 {
		return fmt.Sprintf("%d %s: %s", err.Status, err.Title, err.Message)
	}
	return fmt.Sprintf("%s: %s", err.Title, err.Message)
}

func (err *TransportError) Unwrap() error { return err.Err }

// NormalizedError is the displayable shape of any error.
type NormalizedError struct {
	Status  int    `json:"status,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

var fallbackError = NormalizedError{
	Title:   "Unexpected error",
	Message: "Something went wrong. Please try again later.",
}

// Normalize turns err into a NormalizedError for display.
func Normalize(err error) NormalizedError {
	if err == nil {
		return fallbackError
	}

	var tErr *TransportError
	if errors.As(err, &tErr) {
		norm := NormalizedError{Status: tErr.Status, Title: tErr.Title, Message: tErr.Message}
		if norm.Title == "" {
			norm.Title = "Request failed"
		}
		if norm.Message == "" {
			norm.Message = fallbackError.Message
		}
		return norm
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		msg := vErr.Error()
		if len(vErr.Fields) > 0 && vErr.Err == nil {
			fields := vErr.FieldMap()
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			msgs := make([]string, 0, len(keys))
			for _, k := range keys {
				msgs = append(msgs, fields[k])
			}
			msg = strings.Join(msgs, "; ")
		}
		return NormalizedError{Title: "Invalid data", Message: msg}
	}

	return NormalizedError{Title: "Error", Message: err.Error()}
}
