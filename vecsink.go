// Package vecsink re-exports the module's public surface so callers can
// depend on a single import path.
package vecsink

import (
	"github.com/kestrelflow/vecsink/model"
	"github.com/kestrelflow/vecsink/sink"
	"github.com/kestrelflow/vecsink/source"
)

type (
	Vector       = model.Vector
	SearchResult = model.SearchResult
	SinkInfo     = model.SinkInfo
	CloudFile    = model.CloudFile
	LocalFile    = model.LocalFile
	Selector     = model.Selector

	ConnectionError = model.ConnectionError
	InsertionError  = model.InsertionError
	QueryError      = model.QueryError
	IndexInfoError  = model.IndexInfoError

	SinkConnector = sink.SinkConnector
	DataConnector = source.DataConnector

	InMemorySink   = sink.InMemorySink
	PineconeSink   = sink.PineconeSink
	PineconeConfig = sink.PineconeConfig
	SupabaseSink   = sink.SupabaseSink
	SupabaseConfig = sink.SupabaseConfig
	QdrantSink     = sink.QdrantSink
	QdrantConfig   = sink.QdrantConfig

	S3Connector = source.S3Connector
	S3Config    = source.S3Config
)

// DefaultBatchSize caps vectors per request where a sink batches upserts.
const DefaultBatchSize = sink.DefaultBatchSize

var (
	ErrNoVectors          = model.ErrNoVectors
	ErrDimensionMismatch  = model.ErrDimensionMismatch
	ErrCollectionNotFound = model.ErrCollectionNotFound

	IsConnectionError = model.IsConnectionError
	IsInsertionError  = model.IsInsertionError
	IsQueryError      = model.IsQueryError
	IsIndexInfoError  = model.IsIndexInfoError

	NewInMemorySink = sink.NewInMemorySink
	NewPineconeSink = sink.NewPineconeSink
	NewSupabaseSink = sink.NewSupabaseSink
	NewQdrantSink   = sink.NewQdrantSink
	NewS3Connector  = source.NewS3Connector

	ResolveNamespace  = sink.ResolveNamespace
	ContextWithTaskID = sink.ContextWithTaskID
	TaskIDFromContext = sink.TaskIDFromContext

	CosineSimilarity = model.CosineSimilarity
)
