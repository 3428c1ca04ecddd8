package sink

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kestrelflow/vecsink/model"
)

func TestInMemorySinkStoreSearchInfo(t *testing.T) {
	ctx := context.Background()
	s := NewInMemorySink()

	vectors := []model.Vector{
		{ID: "a", Embedding: []float32{1, 0, 0}, Metadata: map[string]any{"kind": "doc"}},
		{ID: "b", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "c", Embedding: []float32{0, 0, 1}},
	}
	stored, err := s.Store(ctx, "p1", vectors)
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if stored != 3 {
		t.Fatalf("Store reported %d, want 3", stored)
	}

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2, "p1")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Fatalf("unexpected ranking: %q then %q", results[0].ID, results[1].ID)
	}
	if results[0].Score < results[1].Score {
		t.Fatalf("scores out of order: %v then %v", results[0].Score, results[1].Score)
	}
	if results[0].Metadata["kind"].(string) != "doc" {
		t.Fatalf("metadata not returned: %#v", results[0].Metadata)
	}

	info, err := s.Info(ctx, "p1")
	if err != nil {
		t.Fatalf("Info returned error: %v", err)
	}
	if info.VectorsStored != 3 {
		t.Fatalf("Info = %d, want 3", info.VectorsStored)
	}

	empty, err := s.Info(ctx, "never-written")
	if err != nil {
		t.Fatalf("Info on fresh namespace returned error: %v", err)
	}
	if empty.VectorsStored != 0 {
		t.Fatalf("fresh namespace = %d, want 0", empty.VectorsStored)
	}
}

func TestInMemorySinkUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := NewInMemorySink()

	first := []model.Vector{{ID: "a", Embedding: []float32{1, 0}}}
	if _, err := s.Store(ctx, "p1", first); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	second := []model.Vector{{ID: "a", Embedding: []float32{0, 1}, Metadata: map[string]any{"rev": 2}}}
	if _, err := s.Store(ctx, "p1", second); err != nil {
		t.Fatalf("second Store returned error: %v", err)
	}

	info, _ := s.Info(ctx, "p1")
	if info.VectorsStored != 1 {
		t.Fatalf("expected upsert to keep one vector, got %d", info.VectorsStored)
	}
	results, _ := s.Search(ctx, []float32{0, 1}, 1, "p1")
	if len(results) != 1 || results[0].Metadata["rev"].(int) != 2 {
		t.Fatalf("expected replaced vector, got %#v", results)
	}
}

func TestInMemorySinkStoreLargeBatchReportsAll(t *testing.T) {
	ctx := context.Background()
	s := NewInMemorySink()

	vectors := make([]model.Vector, 40)
	for i := range vectors {
		vectors[i] = model.Vector{ID: fmt.Sprintf("v%02d", i), Embedding: []float32{float32(i), 1}}
	}
	stored, err := s.Store(ctx, "bulk", vectors)
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if stored != 40 {
		t.Fatalf("Store reported %d, want 40", stored)
	}
	info, _ := s.Info(ctx, "bulk")
	if info.VectorsStored != 40 {
		t.Fatalf("Info = %d, want 40", info.VectorsStored)
	}
}

func TestInMemorySinkRejectsEmptyBatch(t *testing.T) {
	_, err := NewInMemorySink().Store(context.Background(), "p1", nil)
	if err == nil {
		t.Fatal("expected error for empty batch")
	}
	if !model.IsInsertionError(err) {
		t.Fatalf("expected insertion kind, got %T", err)
	}
	if !errors.Is(err, model.ErrNoVectors) {
		t.Fatalf("expected ErrNoVectors, got %v", err)
	}
}

func TestInMemorySinkRejectsMixedDimensions(t *testing.T) {
	vectors := []model.Vector{
		{ID: "a", Embedding: []float32{1, 2}},
		{ID: "b", Embedding: []float32{1, 2, 3}},
	}
	_, err := NewInMemorySink().Store(context.Background(), "p1", vectors)
	if !model.IsInsertionError(err) || !errors.Is(err, model.ErrDimensionMismatch) {
		t.Fatalf("expected insertion kind wrapping ErrDimensionMismatch, got %v", err)
	}
}

func TestInMemorySinkSearchRejectsMismatchedQuery(t *testing.T) {
	ctx := context.Background()
	s := NewInMemorySink()

	vectors := []model.Vector{
		{ID: "v1", Embedding: []float32{1, 0, 0, 0}},
		{ID: "v2", Embedding: []float32{0, 1, 0, 0}},
	}
	if _, err := s.Store(ctx, "p1", vectors); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	_, err := s.Search(ctx, []float32{1, 0}, 1, "p1")
	if !model.IsQueryError(err) {
		t.Fatalf("expected query kind for a short query, got %v", err)
	}
	if !errors.Is(err, model.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	// An empty namespace has no dimension to clash with.
	results, err := s.Search(ctx, []float32{1, 0}, 1, "never-written")
	if err != nil {
		t.Fatalf("Search on fresh namespace returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestInMemorySinkRecordsTaskID(t *testing.T) {
	s := NewInMemorySink()
	ctx := ContextWithTaskID(context.Background(), "task-7")
	if _, err := s.Store(ctx, "p1", []model.Vector{{ID: "a", Embedding: []float32{1}}}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	taskID, ok := s.TaskID("p1", "a")
	if !ok {
		t.Fatal("expected stored vector to be found")
	}
	if taskID != "task-7" {
		t.Fatalf("TaskID = %q, want %q", taskID, "task-7")
	}
	if _, ok := s.TaskID("p1", "missing"); ok {
		t.Fatal("did not expect a record for an unknown vector")
	}
}

func TestInMemorySinkConfiguredNamespaceWins(t *testing.T) {
	ctx := context.Background()
	s := NewInMemorySink()
	s.Namespace = "fixed"

	if _, err := s.Store(ctx, "p1", []model.Vector{{ID: "a", Embedding: []float32{1}}}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	// Any pipeline resolves to the configured namespace.
	info, _ := s.Info(ctx, "a-completely-different-pipeline")
	if info.VectorsStored != 1 {
		t.Fatalf("Info = %d, want 1", info.VectorsStored)
	}
}

func TestInMemorySinkCopiesMetadataDefensively(t *testing.T) {
	ctx := context.Background()
	s := NewInMemorySink()
	metadata := map[string]any{"kind": "doc"}
	if _, err := s.Store(ctx, "p1", []model.Vector{{ID: "a", Embedding: []float32{1}, Metadata: metadata}}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	metadata["kind"] = "mutated"

	results, _ := s.Search(ctx, []float32{1}, 1, "p1")
	if results[0].Metadata["kind"].(string) != "doc" {
		t.Fatalf("stored metadata was mutable from outside: %#v", results[0].Metadata)
	}
}
