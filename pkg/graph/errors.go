package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing node, edge or endpoint.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a duplicate node key or a duplicate same-type edge.
	ErrConflict = errors.New("already exists")
	// ErrInvalidRequest reports an empty update payload or an ambiguous edge address.
	ErrInvalidRequest = errors.New("invalid request")
)

// OpError carries the failing operation and subject alongside one of the sentinel errors.
type OpError struct {
	Op      string
	Subject string
	Msg     string
	Err     error
}

func (e *OpError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Subject, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func notFound(op, subject, msg string) error {
	return &OpError{Op: op, Subject: subject, Msg: msg, Err: ErrNotFound}
}

func conflict(op, subject, msg string) error {
	return &OpError{Op: op, Subject: subject, Msg: msg, Err: ErrConflict}
}

func invalid(op, msg string) error {
	return &OpError{Op: op, Msg: msg, Err: ErrInvalidRequest}
}

// ItemError is one failed item of a batch operation.
type ItemError struct {
	Node string `json:"node,omitempty"`
	Edge string `json:"edge,omitempty"`
	Err  error  `json:"-"`
}

func (e ItemError) Error() string { return e.Err.Error() }

// Result is the {success, message} shape handed to callers that speak JSON.
type Result struct {
	Success int    `json:"success"`
	Message string `json:"message"`
}

// ResultOf converts an operation error into a Result.
func ResultOf(err error, okMsg string) Result {
	if err != nil {
		return Result{Success: 0, Message: err.Error()}
	}
	return Result{Success: 1, Message: okMsg}
}
