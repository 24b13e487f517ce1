package model

import (
	"errors"
	"fmt"
)

// ErrRepositoryUnavailable is wrapped by scan repositories when the backing
// store cannot be reached.
var ErrRepositoryUnavailable = errors.New("scan repository unavailable")

// DecodeError reports an image that could not be read or parsed.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode image: %v", e.Err)
	}
	return fmt.Sprintf("decode image %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FeatureExtractionError reports a profiler or detector that failed and
// returned its sentinel value instead.
type FeatureExtractionError struct {
	Component string
	Err       error
}

func (e *FeatureExtractionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Component, e.Err)
}

func (e *FeatureExtractionError) Unwrap() error { return e.Err }

// PersistenceError reports a failed save or archive write. The diagnosis
// itself succeeded and is returned alongside it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
