package app

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidData marks a resource that was fetched but does not match its schema.
	ErrInvalidData = errors.New("invalid data")

	// ErrSuperseded is returned by a semester load that a newer load replaced.
	ErrSuperseded = errors.New("load superseded by a newer request")

	// ErrInvalidKey is returned for semester keys that are not "{year}_{term}".
	ErrInvalidKey = errors.New("invalid semester key")

	// ErrUnknownSemester is returned for semesters missing from the index.
	ErrUnknownSemester = errors.New("unknown semester")
)

// FetchError reports a resource that could not be retrieved.
type FetchError struct {
	Path       string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Path, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DataError reports a schema violation inside a fetched resource.
type DataError struct {
	Resource string
	Entry    string // e.g. "event 3", empty for the whole document
	Reason   string
}

func (e *DataError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("%s: %s", e.Resource, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Resource, e.Entry, e.Reason)
}

func (e *DataError) Is(target error) bool {
	return target == ErrInvalidData
}
