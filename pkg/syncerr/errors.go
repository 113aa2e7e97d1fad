// Package syncerr classifies the failures that abort a sync run.
package syncerr

import (
	"errors"
	"fmt"
)

// Kind classifies what went wrong.
type Kind string

const (
	// KindTransport represents network failures and unexpected HTTP statuses.
	KindTransport Kind = "transport"

	// KindDecode represents a body that does not match the page shape.
	KindDecode Kind = "decode"

	// KindConnect represents a failure to open a session to the destination.
	KindConnect Kind = "connect"

	// KindWrite represents a destination rejecting a write.
	KindWrite Kind = "write"
)

// Stage names the step of the run that failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageWrite   Stage = "write"
	StageConnect Stage = "connect"
)

// Error is a stage-tagged failure. Every Error is fatal for the run.
type Error struct {
	Stage      Stage
	Kind       Kind
	Op         string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s stage: %s error", e.Stage, e.Kind)
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Transport wraps a network-level failure.
func Transport(stage Stage, op string, err error) *Error {
	return &Error{Stage: stage, Kind: KindTransport, Op: op, Err: err}
}

// Status reports an unexpected HTTP status from the source or destination.
func Status(stage Stage, kind Kind, op string, code int) *Error {
	return &Error{Stage: stage, Kind: kind, Op: op, StatusCode: code}
}

// Decode wraps a body that could not be parsed.
func Decode(op string, err error) *Error {
	return &Error{Stage: StageFetch, Kind: KindDecode, Op: op, Err: err}
}

// Connect wraps a failure to reach or authenticate with the destination.
func Connect(op string, err error) *Error {
	return &Error{Stage: StageConnect, Kind: KindConnect, Op: op, Err: err}
}

// Write wraps a destination-side write failure.
func Write(op string, err error) *Error {
	return &Error{Stage: StageWrite, Kind: KindWrite, Op: op, Err: err}
}

// StageOf returns the stage of the first *Error in err's chain.
func StageOf(err error) (Stage, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage, true
	}
	return "", false
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
