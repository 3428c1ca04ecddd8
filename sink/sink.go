package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/kestrelflow/vecsink/model"
)

// DefaultBatchSize bounds how many vectors travel in one upsert request for
// connectors that batch.
const DefaultBatchSize = 32

// SinkConnector is the contract every vector sink satisfies. Connectors hold
// configuration only; connections to the backing service are opened per
// operation and released before the call returns. Each operation fails with
// exactly one error kind: Validate with ConnectionError, Store with
// InsertionError, Search with QueryError and Info with IndexInfoError.
type SinkConnector interface {
	Name() string
	RequiredProperties() []string
	OptionalProperties() []string
	Validate(ctx context.Context) error
	Store(ctx context.Context, pipelineID string, vectors []model.Vector) (int, error)
	Search(ctx context.Context, query []float32, k int, pipelineID string) ([]model.SearchResult, error)
	Info(ctx context.Context, pipelineID string) (model.SinkInfo, error)
}

// ResolveNamespace returns the namespace or collection a pipeline writes to:
// the configured name when set, otherwise "pipeline_<pipelineID>".
func ResolveNamespace(configured, pipelineID string) string {
	if configured != "" {
		return configured
	}
	return "pipeline_" + pipelineID
}

// vectorDimension validates a batch before anything is sent: it must be
// non-empty and every embedding must share one non-zero dimension.
func vectorDimension(vectors []model.Vector) (int, error) {
	if len(vectors) == 0 {
		return 0, model.ErrNoVectors
	}
	dim := len(vectors[0].Embedding)
	if dim == 0 {
		return 0, errors.New("vectors must have at least one dimension")
	}
	for _, v := range vectors[1:] {
		if len(v.Embedding) != dim {
			return 0, fmt.Errorf("vector %q has dimension %d, batch started with %d: %w",
				v.ID, len(v.Embedding), dim, model.ErrDimensionMismatch)
		}
	}
	return dim, nil
}

// batchVectors splits vectors into consecutive slices of at most size
// elements, preserving order. size <= 0 falls back to DefaultBatchSize.
func batchVectors(vectors []model.Vector, size int) [][]model.Vector {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]model.Vector, 0, (len(vectors)+size-1)/size)
	for start := 0; start < len(vectors); start += size {
		end := start + size
		if end > len(vectors) {
			end = len(vectors)
		}
		batches = append(batches, vectors[start:end])
	}
	return batches
}

type taskIDKey struct{}

// ContextWithTaskID tags ctx with the pipeline task that produced the
// vectors being stored. Connectors may record it; none require it.
func ContextWithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey{}, taskID)
}

// TaskIDFromContext returns the task ID attached by ContextWithTaskID,
// or "" when none is set.
func TaskIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(taskIDKey{}).(string)
	return id
}
