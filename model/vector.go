package model

// Vector is a single embedding bound for a sink, identified uniquely within
// its namespace or collection. Storing a vector under an existing ID
// replaces it.
type Vector struct {
	ID        string         `json:"id"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SearchResult is one match returned by a similarity query. Score carries
// the backend's native measure: Pinecone and Qdrant report similarity
// (higher is closer), pgvector reports cosine distance (lower is closer).
type SearchResult struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SinkInfo describes the current state of one namespace or collection.
type SinkInfo struct {
	VectorsStored int `json:"vectors_stored"`
}
