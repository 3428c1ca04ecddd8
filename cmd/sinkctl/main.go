// Command sinkctl exercises a configured vector sink from the command line:
// validate the connection, store generated vectors, search them, report the
// namespace size, or list an S3 source. Connector settings come from the
// environment (see internal/config).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelflow/vecsink/internal/config"
	"github.com/kestrelflow/vecsink/model"
	"github.com/kestrelflow/vecsink/sink"
	"github.com/kestrelflow/vecsink/source"
)

func main() {
	var (
		sinkName = flag.String("sink", "memory", "sink to exercise: memory, pinecone, supabase or qdrant")
		op       = flag.String("op", "validate", "operation: validate, store, search, info or list")
		pipeline = flag.String("pipeline", "demo", "pipeline id the namespace derives from")
		count    = flag.Int("count", 40, "vectors to generate for store")
		dim      = flag.Int("dim", 8, "dimension of generated vectors")
		k        = flag.Int("k", 3, "results to return for search")
		taskID   = flag.String("task", "", "task id to attach to store")
		selector = flag.String("select", "key,last_modified", "comma-separated metadata fields for list")
		timeout  = flag.Duration("timeout", 30*time.Second, "per-operation timeout")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if *taskID != "" {
		ctx = sink.ContextWithTaskID(ctx, *taskID)
	}

	if err := run(ctx, logger, cfg, *sinkName, *op, *pipeline, *selector, *count, *dim, *k); err != nil {
		logger.Error("operation failed", "sink", *sinkName, "op", *op, "err", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, sinkName, op, pipeline, selector string, count, dim, k int) error {
	if op == "list" {
		return runList(ctx, logger, cfg, selector)
	}

	s, err := buildSink(cfg, sinkName)
	if err != nil {
		return err
	}

	switch op {
	case "validate":
		if err := s.Validate(ctx); err != nil {
			return err
		}
		logger.Info("sink validated", "sink", s.Name())
	case "store":
		stored, err := s.Store(ctx, pipeline, demoVectors(count, dim))
		if err != nil {
			return err
		}
		logger.Info("vectors stored", "sink", s.Name(), "pipeline", pipeline, "stored", stored)
	case "search":
		results, err := s.Search(ctx, demoEmbedding(dim), k, pipeline)
		if err != nil {
			return err
		}
		for i, r := range results {
			logger.Info("search result", "rank", i+1, "id", r.ID, "score", r.Score)
		}
		logger.Info("search complete", "sink", s.Name(), "pipeline", pipeline, "results", len(results))
	case "info":
		info, err := s.Info(ctx, pipeline)
		if err != nil {
			return err
		}
		logger.Info("sink info", "sink", s.Name(), "pipeline", pipeline, "vectors", info.VectorsStored)
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
	return nil
}

func buildSink(cfg *config.Config, name string) (sink.SinkConnector, error) {
	switch name {
	case "memory":
		return sink.NewInMemorySink(), nil
	case "pinecone":
		pc, err := cfg.Pinecone()
		if err != nil {
			return nil, err
		}
		return sink.NewPineconeSink(pc)
	case "supabase":
		sc, err := cfg.Supabase()
		if err != nil {
			return nil, err
		}
		return sink.NewSupabaseSink(sc)
	case "qdrant":
		qc, err := cfg.Qdrant()
		if err != nil {
			return nil, err
		}
		return sink.NewQdrantSink(qc)
	default:
		return nil, fmt.Errorf("unknown sink %q", name)
	}
}

func runList(ctx context.Context, logger *slog.Logger, cfg *config.Config, selector string) error {
	s3cfg, err := cfg.S3()
	if err != nil {
		return err
	}
	s3cfg.Selector = model.Selector{ToMetadata: splitFields(selector)}

	connector, err := source.NewS3Connector(ctx, s3cfg)
	if err != nil {
		return err
	}
	if err := connector.Validate(ctx); err != nil {
		return err
	}

	listed := 0
	err = connector.ListFull(ctx, func(f model.CloudFile) bool {
		listed++
		logger.Info("object", "id", f.ID, "metadata", f.Metadata)
		return true
	})
	if err != nil {
		return err
	}
	logger.Info("listing complete", "bucket", s3cfg.BucketName, "objects", listed)
	return nil
}

func splitFields(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// demoVectors generates count random vectors with uuid ids, suitable for
// exercising store and search against a scratch namespace.
func demoVectors(count, dim int) []model.Vector {
	vectors := make([]model.Vector, count)
	for i := range vectors {
		vectors[i] = model.Vector{
			ID:        uuid.NewString(),
			Embedding: demoEmbedding(dim),
			Metadata:  map[string]any{"seq": i},
		}
	}
	return vectors
}

func demoEmbedding(dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rand.Float32()
	}
	return v
}
