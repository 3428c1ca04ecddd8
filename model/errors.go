package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across connectors.
var (
	// ErrNoVectors is returned when a store call receives an empty batch.
	ErrNoVectors = errors.New("no vectors to store")

	// ErrDimensionMismatch is returned when a batch mixes embedding sizes.
	ErrDimensionMismatch = errors.New("vectors in a batch must share one dimension")

	// ErrCollectionNotFound is returned when the namespace or collection a
	// call targets does not exist on the backend.
	ErrCollectionNotFound = errors.New("collection not found")
)

// ConnectionError reports that a connector could not reach or authenticate
// against its backing service.
type ConnectionError struct {
	Connector string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection could not be initialized: %v", e.Connector, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// InsertionError reports a failed store operation. Batches already accepted
// by the backend before the failure stay stored.
type InsertionError struct {
	Connector string
	Err       error
}

func (e *InsertionError) Error() string {
	return fmt.Sprintf("%s: storing vectors failed: %v", e.Connector, e.Err)
}

func (e *InsertionError) Unwrap() error { return e.Err }

// QueryError reports a failed similarity search.
type QueryError struct {
	Connector string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: query failed: %v", e.Connector, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// IndexInfoError reports a failed namespace or collection info lookup.
type IndexInfoError struct {
	Connector string
	Err       error
}

func (e *IndexInfoError) Error() string {
	return fmt.Sprintf("%s: index info failed: %v", e.Connector, e.Err)
}

func (e *IndexInfoError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err wraps a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsInsertionError reports whether err wraps an InsertionError.
func IsInsertionError(err error) bool {
	var ie *InsertionError
	return errors.As(err, &ie)
}

// IsQueryError reports whether err wraps a QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// IsIndexInfoError reports whether err wraps an IndexInfoError.
func IsIndexInfoError(err error) bool {
	var iie *IndexInfoError
	return errors.As(err, &iie)
}
