package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kestrelflow/vecsink/model"
)

const qdrantTimeout = 15 * time.Second

// QdrantConfig carries the connection settings for a Qdrant server.
type QdrantConfig struct {
	// URL is the base URL of the REST API, e.g. "http://localhost:6333".
	URL string
	// APIKey is sent as the api-key header when set.
	APIKey string
	// CollectionName overrides the pipeline-derived collection when set.
	CollectionName string
}

// QdrantSink writes pipeline vectors to a Qdrant collection per pipeline
// over the REST API.
type QdrantSink struct {
	cfg     QdrantConfig
	baseURL string
	client  *http.Client
}

// NewQdrantSink checks the static configuration and returns the sink. No
// connection is opened until an operation runs.
func NewQdrantSink(cfg QdrantConfig) (*QdrantSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant: url is required")
	}
	return &QdrantSink{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: qdrantTimeout},
	}, nil
}

func (qs *QdrantSink) Name() string { return "QdrantSink" }

func (qs *QdrantSink) RequiredProperties() []string {
	return []string{"url"}
}

func (qs *QdrantSink) OptionalProperties() []string {
	return []string{"api_key", "collection_name"}
}

// qdrantStatus supports both `status: "ok"` and `status: {"error":"..."}`.
type qdrantStatus struct {
	State string
	Error string
}

func (s *qdrantStatus) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		s.State = strings.ToLower(v)
		return nil
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Error != "" {
		s.State = "error"
		s.Error = obj.Error
	}
	return nil
}

type qdrantEnvelope[T any] struct {
	Status qdrantStatus `json:"status"`
	Time   float64      `json:"time"`
	Result T            `json:"result"`
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

type qdrantMatch struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type qdrantCountResult struct {
	Count int `json:"count"`
}

// Validate checks the server answers the collections listing with the
// configured credentials.
func (qs *QdrantSink) Validate(ctx context.Context) error {
	if err := qs.do(ctx, http.MethodGet, "/collections", nil, nil); err != nil {
		return &model.ConnectionError{Connector: qs.Name(), Err: err}
	}
	return nil
}

// Store upserts vectors into the pipeline's collection and returns how many
// it wrote. The collection is created on first use with the dimension of
// the first vector in the batch and cosine distance.
func (qs *QdrantSink) Store(ctx context.Context, pipelineID string, vectors []model.Vector) (int, error) {
	if err := qs.store(ctx, pipelineID, vectors); err != nil {
		return 0, &model.InsertionError{Connector: qs.Name(), Err: err}
	}
	return len(vectors), nil
}

func (qs *QdrantSink) store(ctx context.Context, pipelineID string, vectors []model.Vector) error {
	dim, err := vectorDimension(vectors)
	if err != nil {
		return err
	}
	collection := ResolveNamespace(qs.cfg.CollectionName, pipelineID)
	if err := qs.ensureCollection(ctx, collection, dim); err != nil {
		return err
	}

	points := make([]qdrantPoint, len(vectors))
	for i, v := range vectors {
		points[i] = qdrantPoint{ID: v.ID, Vector: v.Embedding, Payload: v.Metadata}
	}
	var resp qdrantEnvelope[json.RawMessage]
	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(collection))
	if err := qs.do(ctx, http.MethodPut, path, map[string]any{"points": points}, &resp); err != nil {
		return err
	}
	if !strings.EqualFold(resp.Status.State, "ok") && resp.Status.Error != "" {
		return errors.New(resp.Status.Error)
	}
	return nil
}

// ensureCollection creates the collection and treats "already exists" as
// success so repeat stores stay idempotent.
func (qs *QdrantSink) ensureCollection(ctx context.Context, collection string, dim int) error {
	req := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	err := qs.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", url.PathEscape(collection)), req, nil)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return nil
	}
	return err
}

// Search runs a top-k query against the pipeline's collection with payloads
// included. Scores are Qdrant's cosine similarities, so higher is closer.
func (qs *QdrantSink) Search(ctx context.Context, query []float32, k int, pipelineID string) ([]model.SearchResult, error) {
	results, err := qs.search(ctx, query, k, pipelineID)
	if err != nil {
		return nil, &model.QueryError{Connector: qs.Name(), Err: err}
	}
	return results, nil
}

func (qs *QdrantSink) search(ctx context.Context, query []float32, k int, pipelineID string) ([]model.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	collection := ResolveNamespace(qs.cfg.CollectionName, pipelineID)
	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}
	var resp qdrantEnvelope[[]qdrantMatch]
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(collection))
	if err := qs.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	results := make([]model.SearchResult, 0, len(resp.Result))
	for _, match := range resp.Result {
		results = append(results, model.SearchResult{
			ID:       qdrantIDString(match.ID),
			Score:    match.Score,
			Metadata: match.Payload,
		})
	}
	return results, nil
}

// Info reports how many points the pipeline's collection currently holds,
// using an exact count.
func (qs *QdrantSink) Info(ctx context.Context, pipelineID string) (model.SinkInfo, error) {
	info, err := qs.info(ctx, pipelineID)
	if err != nil {
		return model.SinkInfo{}, &model.IndexInfoError{Connector: qs.Name(), Err: err}
	}
	return info, nil
}

func (qs *QdrantSink) info(ctx context.Context, pipelineID string) (model.SinkInfo, error) {
	collection := ResolveNamespace(qs.cfg.CollectionName, pipelineID)
	var resp qdrantEnvelope[qdrantCountResult]
	path := fmt.Sprintf("/collections/%s/points/count", url.PathEscape(collection))
	if err := qs.do(ctx, http.MethodPost, path, map[string]any{"exact": true}, &resp); err != nil {
		return model.SinkInfo{}, err
	}
	return model.SinkInfo{VectorsStored: resp.Result.Count}, nil
}

func (qs *QdrantSink) do(ctx context.Context, method, path string, body any, out any) error {
	u := qs.baseURL + path

	var buf io.ReadWriter
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewBuffer(b)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if qs.cfg.APIKey != "" {
		req.Header.Set("api-key", qs.cfg.APIKey)
	}
	resp, err := qs.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("qdrant %s %s -> http %d: %w", method, u, resp.StatusCode, model.ErrCollectionNotFound)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("qdrant %s %s -> http %d: %s",
			method, u, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return err
		}
	}
	return nil
}

// qdrantIDString renders a point id that may arrive as a JSON string or
// number.
func qdrantIDString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}
