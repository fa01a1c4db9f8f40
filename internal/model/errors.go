package model

import (
	"errors"
	"fmt"
	"time"

	goerrors "github.com/go-errors/errors"
)

var (
	// ErrNotFound is returned by lookups for a key that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRunFinalized is returned when a terminal sync run is asked to change state.
	ErrRunFinalized = errors.New("sync run already finalized")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// PageError marks one page of a collection that failed. The run counts it
// and moves on.
type PageError struct {
	Collector string
	Page      string
	Err       error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s page %s: %v", e.Collector, e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Run stages reported in RunError.
const (
	StageStart   = "start"
	StageCursor  = "cursor"
	StageCollect = "collect"
	StageUpsert  = "upsert"
	StageFinish  = "finish"
)

// RunError is a failure that ends a sync run.
type RunError struct {
	Pipeline string
	Stage    string
	Err      error
	Stack    []byte
}

// NewRunError wraps err with the stage it happened in and the caller's stack.
func NewRunError(pipeline, stage string, err error) *RunError {
	if err == nil {
		err = errors.New("unknown error")
	}
	var stack []byte
	var ge *goerrors.Error
	if errors.As(err, &ge) {
		stack = ge.Stack()
	} else {
		stack = goerrors.Wrap(err, 1).Stack()
	}
	return &RunError{
		Pipeline: pipeline,
		Stage:    stage,
		Err:      err,
		Stack:    stack,
	}
}

func (e *RunError) Error() string {
	return fmt.Sprintf("sync %s failed at %s: %v", e.Pipeline, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
