package plugin

import (
	"errors"
	"fmt"
)

const (
	ErrorNotInitialized    = "not_initialized"
	ErrorInvalidArguments  = "invalid_arguments"
	ErrorInvalidType       = "invalid_type"
	ErrorMissingOption     = "missing_option"
	ErrorUnsupportedAdUnit = "unsupported_ad_unit"
	ErrorNotAttached       = "not_attached"
)

// ErrListenerRegistered is returned by Init when another listener already
// holds the session. The caller still owns the listener it passed in.
var ErrListenerRegistered = errors.New("listener already registered")

// Error is a categorized caller error. Detail is the text scripts see in the
// log line.
type Error struct {
	Category string
	Detail   string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return e.Category
	}

	return fmt.Sprintf("%s: %s", e.Category, e.Detail)
}

// NewError creates a categorized plugin error.
func NewError(category string, detail string) error {
	return &Error{Category: category, Detail: detail}
}

func newErrorf(category string, format string, args ...any) error {
	return &Error{Category: category, Detail: fmt.Sprintf(format, args...)}
}

// CategoryOf returns the category of a plugin error, or "" for anything else.
func CategoryOf(err error) string {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Category
	}
	return ""
}

// DetailOf returns the script-facing detail of err.
func DetailOf(err error) string {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Detail
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
