package sink

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kestrelflow/vecsink/model"
)

type memoryRecord struct {
	vector model.Vector
	taskID string
}

// InMemorySink implements SinkConnector for tests and lightweight
// deployments. Namespaces spring into existence on first write, so a
// namespace that was never written to reports zero vectors instead of
// failing.
type InMemorySink struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]memoryRecord

	// Namespace overrides the pipeline-derived namespace when set.
	Namespace string
}

func NewInMemorySink() *InMemorySink {
	return &InMemorySink{namespaces: make(map[string]map[string]memoryRecord)}
}

func (s *InMemorySink) Name() string { return "InMemorySink" }

func (s *InMemorySink) RequiredProperties() []string { return nil }

func (s *InMemorySink) OptionalProperties() []string { return []string{"namespace"} }

// Validate never fails: there is nothing to reach.
func (s *InMemorySink) Validate(_ context.Context) error { return nil }

// Store upserts vectors into the pipeline's namespace and records the task
// ID riding on ctx, if any.
func (s *InMemorySink) Store(ctx context.Context, pipelineID string, vectors []model.Vector) (int, error) {
	if err := s.store(ctx, pipelineID, vectors); err != nil {
		return 0, &model.InsertionError{Connector: s.Name(), Err: err}
	}
	return len(vectors), nil
}

func (s *InMemorySink) store(ctx context.Context, pipelineID string, vectors []model.Vector) error {
	if _, err := vectorDimension(vectors); err != nil {
		return err
	}
	namespace := ResolveNamespace(s.Namespace, pipelineID)
	taskID := TaskIDFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.namespaces == nil {
		s.namespaces = make(map[string]map[string]memoryRecord)
	}
	records, ok := s.namespaces[namespace]
	if !ok {
		records = make(map[string]memoryRecord)
		s.namespaces[namespace] = records
	}
	for _, v := range vectors {
		records[v.ID] = memoryRecord{
			vector: model.Vector{
				ID:        v.ID,
				Embedding: append([]float32(nil), v.Embedding...),
				Metadata:  model.CloneMetadata(v.Metadata),
			},
			taskID: taskID,
		}
	}
	return nil
}

// Search ranks the namespace's vectors by cosine similarity against query,
// highest first. A query whose dimension differs from the stored vectors
// fails the way a backing service would reject it.
func (s *InMemorySink) Search(_ context.Context, query []float32, k int, pipelineID string) ([]model.SearchResult, error) {
	results, err := s.search(query, k, pipelineID)
	if err != nil {
		return nil, &model.QueryError{Connector: s.Name(), Err: err}
	}
	return results, nil
}

func (s *InMemorySink) search(query []float32, k int, pipelineID string) ([]model.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.namespaces[ResolveNamespace(s.Namespace, pipelineID)]
	type scored struct {
		res   model.SearchResult
		score float64
	}
	scoredResults := make([]scored, 0, len(records))
	for _, rec := range records {
		if len(rec.vector.Embedding) != len(query) {
			return nil, fmt.Errorf("query has dimension %d, vector %q has %d: %w",
				len(query), rec.vector.ID, len(rec.vector.Embedding), model.ErrDimensionMismatch)
		}
		score := model.CosineSimilarity(query, rec.vector.Embedding)
		scoredResults = append(scoredResults, scored{
			res: model.SearchResult{
				ID:       rec.vector.ID,
				Score:    score,
				Metadata: model.CloneMetadata(rec.vector.Metadata),
			},
			score: score,
		})
	}
	sort.Slice(scoredResults, func(i, j int) bool {
		return scoredResults[i].score > scoredResults[j].score
	})
	if len(scoredResults) > k {
		scoredResults = scoredResults[:k]
	}
	results := make([]model.SearchResult, len(scoredResults))
	for i, sc := range scoredResults {
		results[i] = sc.res
	}
	return results, nil
}

// Info counts the vectors currently held under the pipeline's namespace.
func (s *InMemorySink) Info(_ context.Context, pipelineID string) (model.SinkInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.SinkInfo{VectorsStored: len(s.namespaces[ResolveNamespace(s.Namespace, pipelineID)])}, nil
}

// TaskID returns the task recorded with the most recent store of vectorID,
// for callers that track provenance.
func (s *InMemorySink) TaskID(pipelineID, vectorID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.namespaces[ResolveNamespace(s.Namespace, pipelineID)][vectorID]
	if !ok {
		return "", false
	}
	return rec.taskID, true
}
