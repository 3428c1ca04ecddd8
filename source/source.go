// Package source lists and downloads files from external data sources so a
// pipeline can turn them into vectors.
package source

import (
	"context"
	"time"

	"github.com/kestrelflow/vecsink/model"
)

// DataConnector is the source-side counterpart of a sink: it enumerates
// files and materializes them locally for processing. Connectors hold no
// open connections between calls.
type DataConnector interface {
	// Name identifies the connector in logs and errors.
	Name() string

	// RequiredProperties names the configuration fields that must be set.
	RequiredProperties() []string

	// OptionalProperties names the configuration fields that may be set.
	OptionalProperties() []string

	// AvailableMetadata names the fields a Selector may route into vector
	// metadata.
	AvailableMetadata() []string

	// Validate checks the configuration against the live source.
	Validate(ctx context.Context) error

	// ListFull walks every file in the source. fn returning false stops
	// the walk early without error.
	ListFull(ctx context.Context, fn func(model.CloudFile) bool) error

	// ListDelta walks only files modified after since.
	ListDelta(ctx context.Context, since time.Time, fn func(model.CloudFile) bool) error

	// Download fetches one file into a temporary directory and hands it to
	// fn. The local path is valid only while fn runs; the directory is
	// removed when Download returns.
	Download(ctx context.Context, file model.CloudFile, fn func(model.LocalFile) error) error
}
