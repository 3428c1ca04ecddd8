package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kestrelflow/vecsink/model"
)

// vecsSchema is the Postgres schema Supabase's vector tooling keeps its
// collections in. Tables created here stay visible to that tooling.
const vecsSchema = "vecs"

// SupabaseConfig carries the connection settings for a Supabase Postgres
// database with the pgvector extension.
type SupabaseConfig struct {
	// DatabaseConnection is the Postgres connection string.
	DatabaseConnection string
	// CollectionName overrides the pipeline-derived collection when set.
	CollectionName string
}

// SupabaseSink writes pipeline vectors to a pgvector table per pipeline,
// laid out the way Supabase's vecs collections are.
type SupabaseSink struct {
	cfg SupabaseConfig
}

// NewSupabaseSink checks the static configuration and returns the sink. No
// connection is opened until an operation runs.
func NewSupabaseSink(cfg SupabaseConfig) (*SupabaseSink, error) {
	if cfg.DatabaseConnection == "" {
		return nil, errors.New("supabase: database connection string is required")
	}
	return &SupabaseSink{cfg: cfg}, nil
}

func (ss *SupabaseSink) Name() string { return "SupabaseSink" }

func (ss *SupabaseSink) RequiredProperties() []string {
	return []string{"database_connection"}
}

func (ss *SupabaseSink) OptionalProperties() []string {
	return []string{"collection_name"}
}

// connect opens a pool for one operation. Callers own Close.
func (ss *SupabaseSink) connect(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, ss.cfg.DatabaseConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return pool, nil
}

// Validate checks the connection string reaches a database that answers a
// ping.
func (ss *SupabaseSink) Validate(ctx context.Context) error {
	if err := ss.ping(ctx); err != nil {
		return &model.ConnectionError{Connector: ss.Name(), Err: err}
	}
	return nil
}

func (ss *SupabaseSink) ping(ctx context.Context) error {
	pool, err := ss.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	return pool.Ping(ctx)
}

// Store upserts vectors into the pipeline's collection inside one
// transaction and returns how many it wrote. The collection is created on
// first use with the dimension of the first vector in the batch.
func (ss *SupabaseSink) Store(ctx context.Context, pipelineID string, vectors []model.Vector) (int, error) {
	if err := ss.store(ctx, pipelineID, vectors); err != nil {
		return 0, &model.InsertionError{Connector: ss.Name(), Err: err}
	}
	return len(vectors), nil
}

func (ss *SupabaseSink) store(ctx context.Context, pipelineID string, vectors []model.Vector) (err error) {
	dim, err := vectorDimension(vectors)
	if err != nil {
		return err
	}
	pool, err := ss.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	name := ResolveNamespace(ss.cfg.CollectionName, pipelineID)
	table := collectionTable(name)
	if err = ensureCollection(ctx, pool, table, dim); err != nil {
		return err
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	upsert := fmt.Sprintf(
		`INSERT INTO %s (id, vec, metadata) VALUES ($1, $2::vector, $3::jsonb)
		ON CONFLICT (id) DO UPDATE SET vec = EXCLUDED.vec, metadata = EXCLUDED.metadata`,
		table,
	)
	for _, v := range vectors {
		literal, err := vectorLiteral(v.Embedding)
		if err != nil {
			return fmt.Errorf("vector %q: %w", v.ID, err)
		}
		if _, err := tx.Exec(ctx, upsert, v.ID, literal, model.EncodeMetadata(v.Metadata)); err != nil {
			return fmt.Errorf("upsert vector %q: %w", v.ID, err)
		}
	}
	err = tx.Commit(ctx)
	return err
}

// Search ranks the pipeline's collection by cosine distance to query and
// returns the k nearest rows. Scores are distances, so lower is closer.
func (ss *SupabaseSink) Search(ctx context.Context, query []float32, k int, pipelineID string) ([]model.SearchResult, error) {
	results, err := ss.search(ctx, query, k, pipelineID)
	if err != nil {
		return nil, &model.QueryError{Connector: ss.Name(), Err: err}
	}
	return results, nil
}

func (ss *SupabaseSink) search(ctx context.Context, query []float32, k int, pipelineID string) ([]model.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	pool, err := ss.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	name := ResolveNamespace(ss.cfg.CollectionName, pipelineID)
	table := collectionTable(name)
	exists, err := collectionExists(ctx, pool, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("collection %q: %w", name, model.ErrCollectionNotFound)
	}

	literal, err := vectorLiteral(query)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(
		`SELECT id, vec <=> $1::vector AS distance, metadata::text FROM %s
		ORDER BY vec <=> $1::vector LIMIT $2`,
		table,
	)
	rows, err := pool.Query(ctx, sql, literal, k)
	if err != nil {
		return nil, fmt.Errorf("query collection %q: %w", name, err)
	}
	return scanSearchResults(rows)
}

// scanSearchResults drains a search query's rows. Metadata is read as
// nullable text: tables this sink creates default it to '{}', but
// collections written by other tooling may hold NULL.
func scanSearchResults(rows pgx.Rows) ([]model.SearchResult, error) {
	defer rows.Close()
	var results []model.SearchResult
	for rows.Next() {
		var (
			id           string
			distance     float64
			metadataText *string
		)
		if err := rows.Scan(&id, &distance, &metadataText); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		metadata := ""
		if metadataText != nil {
			metadata = *metadataText
		}
		results = append(results, model.SearchResult{
			ID:       id,
			Score:    distance,
			Metadata: model.DecodeMetadata(metadata),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read result rows: %w", err)
	}
	return results, nil
}

// Info reports how many vectors the pipeline's collection currently holds.
func (ss *SupabaseSink) Info(ctx context.Context, pipelineID string) (model.SinkInfo, error) {
	info, err := ss.info(ctx, pipelineID)
	if err != nil {
		return model.SinkInfo{}, &model.IndexInfoError{Connector: ss.Name(), Err: err}
	}
	return info, nil
}

func (ss *SupabaseSink) info(ctx context.Context, pipelineID string) (model.SinkInfo, error) {
	pool, err := ss.connect(ctx)
	if err != nil {
		return model.SinkInfo{}, err
	}
	defer pool.Close()

	name := ResolveNamespace(ss.cfg.CollectionName, pipelineID)
	table := collectionTable(name)
	exists, err := collectionExists(ctx, pool, table)
	if err != nil {
		return model.SinkInfo{}, err
	}
	if !exists {
		return model.SinkInfo{}, fmt.Errorf("collection %q: %w", name, model.ErrCollectionNotFound)
	}

	var count int
	if err := pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
		return model.SinkInfo{}, fmt.Errorf("count collection %q: %w", name, err)
	}
	return model.SinkInfo{VectorsStored: count}, nil
}

func ensureCollection(ctx context.Context, pool *pgxpool.Pool, table string, dim int) error {
	statements := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{vecsSchema}.Sanitize()),
		fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				vec VECTOR(%d) NOT NULL,
				metadata JSONB NOT NULL DEFAULT '{}'::jsonb
			)`,
			table, dim,
		),
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("prepare collection: %w", err)
		}
	}
	return nil
}

func collectionExists(ctx context.Context, pool *pgxpool.Pool, table string) (bool, error) {
	var regclass *string
	if err := pool.QueryRow(ctx, "SELECT to_regclass($1)::text", table).Scan(&regclass); err != nil {
		return false, fmt.Errorf("check collection: %w", err)
	}
	return regclass != nil, nil
}

// collectionTable qualifies and quotes a collection name for use in SQL.
func collectionTable(name string) string {
	return pgx.Identifier{vecsSchema, name}.Sanitize()
}

// vectorLiteral renders an embedding in pgvector's text format, which is
// the same as a JSON array of numbers.
func vectorLiteral(embedding []float32) (string, error) {
	b, err := json.Marshal(embedding)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	return string(b), nil
}
