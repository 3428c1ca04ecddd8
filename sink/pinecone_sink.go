package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/pinecone-io/go-pinecone/v4/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kestrelflow/vecsink/model"
)

// PineconeConfig carries the connection settings for a Pinecone index.
type PineconeConfig struct {
	// APIKey authenticates against the Pinecone control and data planes.
	APIKey string
	// Environment is the Pinecone environment identifier the index lives
	// in. The client resolves data-plane hosts by index name, so the value
	// is only checked for presence.
	Environment string
	// Index is the name of the target index.
	Index string
	// Namespace overrides the pipeline-derived namespace when set.
	Namespace string
	// BatchSize caps vectors per upsert request. Zero means
	// DefaultBatchSize.
	BatchSize int
}

// PineconeSink writes pipeline vectors to a Pinecone index, one namespace
// per pipeline.
type PineconeSink struct {
	cfg PineconeConfig
}

// NewPineconeSink checks the static configuration and returns the sink. No
// connection is opened until an operation runs.
func NewPineconeSink(cfg PineconeConfig) (*PineconeSink, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("pinecone: api key is required")
	}
	if cfg.Environment == "" {
		return nil, errors.New("pinecone: environment is required")
	}
	if cfg.Index == "" {
		return nil, errors.New("pinecone: index is required")
	}
	return &PineconeSink{cfg: cfg}, nil
}

func (ps *PineconeSink) Name() string { return "PineconeSink" }

func (ps *PineconeSink) RequiredProperties() []string {
	return []string{"api_key", "environment", "index"}
}

func (ps *PineconeSink) OptionalProperties() []string {
	return []string{"namespace"}
}

// connect opens an index connection scoped to namespace. Callers own Close.
func (ps *PineconeSink) connect(ctx context.Context, namespace string) (*pinecone.IndexConnection, error) {
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: ps.cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	idx, err := client.DescribeIndex(ctx, ps.cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("describe index %q: %w", ps.cfg.Index, err)
	}
	conn, err := client.Index(pinecone.NewIndexConnParams{Host: idx.Host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("connect to index %q: %w", ps.cfg.Index, err)
	}
	return conn, nil
}

func (ps *PineconeSink) stats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error) {
	conn, err := ps.connect(ctx, "")
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.DescribeIndexStats(ctx)
}

// Validate checks the configured index answers a stats call with the API key.
func (ps *PineconeSink) Validate(ctx context.Context) error {
	if _, err := ps.stats(ctx); err != nil {
		return &model.ConnectionError{Connector: ps.Name(), Err: err}
	}
	return nil
}

// Store upserts vectors into the namespace derived from pipelineID in
// batches of at most BatchSize and returns the total count the service
// acknowledged. A mid-batch failure aborts the loop; batches already
// accepted stay stored.
func (ps *PineconeSink) Store(ctx context.Context, pipelineID string, vectors []model.Vector) (int, error) {
	stored, err := ps.store(ctx, pipelineID, vectors)
	if err != nil {
		return 0, &model.InsertionError{Connector: ps.Name(), Err: err}
	}
	return stored, nil
}

func (ps *PineconeSink) store(ctx context.Context, pipelineID string, vectors []model.Vector) (int, error) {
	if _, err := vectorDimension(vectors); err != nil {
		return 0, err
	}
	namespace := ResolveNamespace(ps.cfg.Namespace, pipelineID)
	conn, err := ps.connect(ctx, namespace)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	stored := 0
	for _, batch := range batchVectors(vectors, ps.cfg.BatchSize) {
		converted, err := toPineconeVectors(batch)
		if err != nil {
			return stored, err
		}
		count, err := conn.UpsertVectors(ctx, converted)
		if err != nil {
			return stored, err
		}
		stored += int(count)
	}
	return stored, nil
}

// Search runs a top-k query against the pipeline's namespace with metadata
// included and raw values omitted.
func (ps *PineconeSink) Search(ctx context.Context, query []float32, k int, pipelineID string) ([]model.SearchResult, error) {
	results, err := ps.search(ctx, query, k, pipelineID)
	if err != nil {
		return nil, &model.QueryError{Connector: ps.Name(), Err: err}
	}
	return results, nil
}

func (ps *PineconeSink) search(ctx context.Context, query []float32, k int, pipelineID string) ([]model.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	namespace := ResolveNamespace(ps.cfg.Namespace, pipelineID)
	conn, err := ps.connect(ctx, namespace)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          query,
		TopK:            uint32(k),
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	return fromScoredVectors(resp.Matches), nil
}

// Info reports how many vectors the pipeline's namespace currently holds.
// A namespace absent from the index stats cannot be resolved and fails.
func (ps *PineconeSink) Info(ctx context.Context, pipelineID string) (model.SinkInfo, error) {
	info, err := ps.info(ctx, pipelineID)
	if err != nil {
		return model.SinkInfo{}, &model.IndexInfoError{Connector: ps.Name(), Err: err}
	}
	return info, nil
}

func (ps *PineconeSink) info(ctx context.Context, pipelineID string) (model.SinkInfo, error) {
	namespace := ResolveNamespace(ps.cfg.Namespace, pipelineID)
	stats, err := ps.stats(ctx)
	if err != nil {
		return model.SinkInfo{}, err
	}
	count, err := namespaceCount(stats, namespace)
	if err != nil {
		return model.SinkInfo{}, err
	}
	return model.SinkInfo{VectorsStored: count}, nil
}

// toPineconeVectors converts one batch to the SDK's vector type, carrying
// metadata as a protobuf struct.
func toPineconeVectors(vectors []model.Vector) ([]*pinecone.Vector, error) {
	out := make([]*pinecone.Vector, len(vectors))
	for i, v := range vectors {
		var metadata *pinecone.Metadata
		if len(v.Metadata) > 0 {
			s, err := structpb.NewStruct(v.Metadata)
			if err != nil {
				return nil, fmt.Errorf("metadata for vector %q: %w", v.ID, err)
			}
			metadata = s
		}
		out[i] = &pinecone.Vector{
			Id:       v.ID,
			Values:   &v.Embedding,
			Metadata: metadata,
		}
	}
	return out, nil
}

func fromScoredVectors(matches []*pinecone.ScoredVector) []model.SearchResult {
	results := make([]model.SearchResult, 0, len(matches))
	for _, match := range matches {
		if match == nil || match.Vector == nil {
			continue
		}
		var metadata map[string]any
		if match.Vector.Metadata != nil {
			metadata = match.Vector.Metadata.AsMap()
		}
		results = append(results, model.SearchResult{
			ID:       match.Vector.Id,
			Score:    float64(match.Score),
			Metadata: metadata,
		})
	}
	return results
}

func namespaceCount(stats *pinecone.DescribeIndexStatsResponse, namespace string) (int, error) {
	if stats == nil {
		return 0, fmt.Errorf("namespace %q: %w", namespace, model.ErrCollectionNotFound)
	}
	summary, ok := stats.Namespaces[namespace]
	if !ok || summary == nil {
		return 0, fmt.Errorf("namespace %q: %w", namespace, model.ErrCollectionNotFound)
	}
	return int(summary.VectorCount), nil
}
