package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an AppError by the handling policy it carries, per the
// orchestration core's error taxonomy. Handling is decided by Kind, never
// by comparing a specific error value.
type Kind string

const (
	// KindConfiguration surfaces to the caller of RunSeries before any
	// work starts: bad GameTypes, GroupCount, or other config fields.
	KindConfiguration Kind = "configuration"
	// KindState signals a programmer error: a component called out of
	// its allowed state machine order. Never retried.
	KindState Kind = "state"
	// KindMatchExecution never propagates as a failure on its own; the
	// executor folds it into a MatchResult outcome instead. It exists so
	// callers that need to observe *why* an outcome was an error can.
	KindMatchExecution Kind = "match_execution"
	// KindJournalWrite is logged, never propagated; it must not corrupt
	// in-memory event state.
	KindJournalWrite Kind = "journal_write"
	// KindPublisher carries the same non-propagating policy as
	// KindJournalWrite.
	KindPublisher Kind = "publisher"
)

// AppError is a structured error carrying a Kind so callers can dispatch on
// handling policy instead of string-matching messages.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// Wrap adds context to err without changing its kind, preserving errors.As
// unwrapping.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

var (
	ErrInvalidGroupCount   = New(KindConfiguration, "group count must clamp to between 1 and 10", nil)
	ErrUnknownGameType     = New(KindConfiguration, "unknown game type", nil)
	ErrNoGameTypes         = New(KindConfiguration, "series config must list at least one game type", nil)
	ErrTooFewBots          = New(KindConfiguration, "at least two bots are required", nil)

	ErrInvalidState  = New(KindState, "operation not valid in current stage", nil)
	ErrUnknownBot    = New(KindState, "bot is not part of this event", nil)
	ErrNotPending    = New(KindState, "match is not a pending match for this event", nil)
	ErrAlreadyClosed = New(KindState, "event is already in a terminal state", nil)

	ErrMatchCancelled = New(KindMatchExecution, "match cancelled before completion", nil)
	ErrMoveTimeout    = New(KindMatchExecution, "bot exceeded its move timeout", nil)

	ErrJournalWrite = New(KindJournalWrite, "failed to append match result to journal", nil)
	ErrJournalOpen  = New(KindJournalWrite, "failed to open journal run", nil)

	ErrPublishFailed = New(KindPublisher, "failed to publish event", nil)
)

func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{Kind: e.Kind, Message: msg, Err: e.Err}
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{Kind: e.Kind, Message: e.Message, Err: err}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}
	return New(KindState, "unclassified error", err)
}

// Is reports whether err is (or wraps) an AppError of the given Kind.
func Is(err error, kind Kind) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Kind == kind
}
