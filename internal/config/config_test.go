package config

import (
	"strings"
	"testing"
)

func setPineconeEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PINECONE_API_KEY", "key")
	t.Setenv("PINECONE_ENVIRONMENT", "us-east-1-aws")
	t.Setenv("PINECONE_INDEX", "documents")
	t.Setenv("PINECONE_NAMESPACE", "")
	t.Setenv("PINECONE_BATCH_SIZE", "")
}

func TestPineconeFromEnvironment(t *testing.T) {
	setPineconeEnv(t)
	t.Setenv("PINECONE_NAMESPACE", "shared")
	t.Setenv("PINECONE_BATCH_SIZE", "64")

	cfg, err := Load().Pinecone()
	if err != nil {
		t.Fatalf("Pinecone(): %v", err)
	}
	if cfg.APIKey != "key" || cfg.Environment != "us-east-1-aws" || cfg.Index != "documents" {
		t.Fatalf("Pinecone() = %+v", cfg)
	}
	if cfg.Namespace != "shared" || cfg.BatchSize != 64 {
		t.Fatalf("optional fields = %+v", cfg)
	}
}

func TestPineconeMissingEnvNamesVariable(t *testing.T) {
	setPineconeEnv(t)
	t.Setenv("PINECONE_INDEX", "")

	_, err := Load().Pinecone()
	if err == nil || !strings.Contains(err.Error(), "PINECONE_INDEX") {
		t.Fatalf("Pinecone() error = %v, want missing PINECONE_INDEX", err)
	}
}

func TestPineconeBatchSizeMustBeInteger(t *testing.T) {
	setPineconeEnv(t)
	t.Setenv("PINECONE_BATCH_SIZE", "lots")

	if _, err := Load().Pinecone(); err == nil {
		t.Fatal("Pinecone() accepted a non-integer batch size")
	}
}

func TestSupabaseFromEnvironment(t *testing.T) {
	t.Setenv("SUPABASE_DATABASE_CONNECTION", "postgres://u:p@localhost/db")
	t.Setenv("SUPABASE_COLLECTION_NAME", "docs")

	cfg, err := Load().Supabase()
	if err != nil {
		t.Fatalf("Supabase(): %v", err)
	}
	if cfg.DatabaseConnection != "postgres://u:p@localhost/db" || cfg.CollectionName != "docs" {
		t.Fatalf("Supabase() = %+v", cfg)
	}

	t.Setenv("SUPABASE_DATABASE_CONNECTION", "")
	if _, err := Load().Supabase(); err == nil || !strings.Contains(err.Error(), "SUPABASE_DATABASE_CONNECTION") {
		t.Fatalf("Supabase() error = %v, want missing SUPABASE_DATABASE_CONNECTION", err)
	}
}

func TestQdrantFromEnvironment(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://localhost:6333")
	t.Setenv("QDRANT_API_KEY", "secret")
	t.Setenv("QDRANT_COLLECTION_NAME", "")

	cfg, err := Load().Qdrant()
	if err != nil {
		t.Fatalf("Qdrant(): %v", err)
	}
	if cfg.URL != "http://localhost:6333" || cfg.APIKey != "secret" || cfg.CollectionName != "" {
		t.Fatalf("Qdrant() = %+v", cfg)
	}

	t.Setenv("QDRANT_URL", "")
	if _, err := Load().Qdrant(); err == nil || !strings.Contains(err.Error(), "QDRANT_URL") {
		t.Fatalf("Qdrant() error = %v, want missing QDRANT_URL", err)
	}
}

func TestS3FromEnvironment(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_REGION", "")
	t.Setenv("S3_BUCKET", "bucket")
	t.Setenv("S3_PREFIX", "docs/")

	cfg, err := Load().S3()
	if err != nil {
		t.Fatalf("S3(): %v", err)
	}
	if cfg.AWSKeyID != "AKIA" || cfg.AWSAccessKey != "secret" || cfg.BucketName != "bucket" || cfg.Prefix != "docs/" {
		t.Fatalf("S3() = %+v", cfg)
	}
	if cfg.Region != "us-east-1" {
		t.Fatalf("Region = %q, want default us-east-1", cfg.Region)
	}

	t.Setenv("S3_BUCKET", "")
	if _, err := Load().S3(); err == nil || !strings.Contains(err.Error(), "S3_BUCKET") {
		t.Fatalf("S3() error = %v, want missing S3_BUCKET", err)
	}
}
