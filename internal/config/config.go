// Package config loads connector settings from the environment for the
// sinkctl demo. A .env file in the working directory is picked up when
// present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/kestrelflow/vecsink/sink"
	"github.com/kestrelflow/vecsink/source"
)

// Config holds the raw environment values for every supported connector.
// Only the connector actually selected needs its fields set; the accessors
// below check their own required fields.
type Config struct {
	PineconeAPIKey      string
	PineconeEnvironment string
	PineconeIndex       string
	PineconeNamespace   string
	PineconeBatchSize   string

	SupabaseDatabaseConnection string
	SupabaseCollectionName     string

	QdrantURL            string
	QdrantAPIKey         string
	QdrantCollectionName string

	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
}

// Load reads the environment, after loading .env when one exists.
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		PineconeAPIKey:      os.Getenv("PINECONE_API_KEY"),
		PineconeEnvironment: os.Getenv("PINECONE_ENVIRONMENT"),
		PineconeIndex:       os.Getenv("PINECONE_INDEX"),
		PineconeNamespace:   os.Getenv("PINECONE_NAMESPACE"),
		PineconeBatchSize:   os.Getenv("PINECONE_BATCH_SIZE"),

		SupabaseDatabaseConnection: os.Getenv("SUPABASE_DATABASE_CONNECTION"),
		SupabaseCollectionName:     os.Getenv("SUPABASE_COLLECTION_NAME"),

		QdrantURL:            os.Getenv("QDRANT_URL"),
		QdrantAPIKey:         os.Getenv("QDRANT_API_KEY"),
		QdrantCollectionName: os.Getenv("QDRANT_COLLECTION_NAME"),

		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3Prefix:           os.Getenv("S3_PREFIX"),
	}
}

// Pinecone assembles the Pinecone sink settings.
func (c *Config) Pinecone() (sink.PineconeConfig, error) {
	if c.PineconeAPIKey == "" {
		return sink.PineconeConfig{}, errors.New("PINECONE_API_KEY is required")
	}
	if c.PineconeEnvironment == "" {
		return sink.PineconeConfig{}, errors.New("PINECONE_ENVIRONMENT is required")
	}
	if c.PineconeIndex == "" {
		return sink.PineconeConfig{}, errors.New("PINECONE_INDEX is required")
	}
	batchSize := 0
	if c.PineconeBatchSize != "" {
		v, err := strconv.Atoi(c.PineconeBatchSize)
		if err != nil {
			return sink.PineconeConfig{}, fmt.Errorf("PINECONE_BATCH_SIZE must be an integer: %w", err)
		}
		batchSize = v
	}
	return sink.PineconeConfig{
		APIKey:      c.PineconeAPIKey,
		Environment: c.PineconeEnvironment,
		Index:       c.PineconeIndex,
		Namespace:   c.PineconeNamespace,
		BatchSize:   batchSize,
	}, nil
}

// Supabase assembles the Supabase sink settings.
func (c *Config) Supabase() (sink.SupabaseConfig, error) {
	if c.SupabaseDatabaseConnection == "" {
		return sink.SupabaseConfig{}, errors.New("SUPABASE_DATABASE_CONNECTION is required")
	}
	return sink.SupabaseConfig{
		DatabaseConnection: c.SupabaseDatabaseConnection,
		CollectionName:     c.SupabaseCollectionName,
	}, nil
}

// Qdrant assembles the Qdrant sink settings.
func (c *Config) Qdrant() (sink.QdrantConfig, error) {
	if c.QdrantURL == "" {
		return sink.QdrantConfig{}, errors.New("QDRANT_URL is required")
	}
	return sink.QdrantConfig{
		URL:            c.QdrantURL,
		APIKey:         c.QdrantAPIKey,
		CollectionName: c.QdrantCollectionName,
	}, nil
}

// S3 assembles the S3 source settings. The selector is left to the caller.
func (c *Config) S3() (source.S3Config, error) {
	if c.AWSAccessKeyID == "" {
		return source.S3Config{}, errors.New("AWS_ACCESS_KEY_ID is required")
	}
	if c.AWSSecretAccessKey == "" {
		return source.S3Config{}, errors.New("AWS_SECRET_ACCESS_KEY is required")
	}
	if c.S3Bucket == "" {
		return source.S3Config{}, errors.New("S3_BUCKET is required")
	}
	return source.S3Config{
		AWSKeyID:     c.AWSAccessKeyID,
		AWSAccessKey: c.AWSSecretAccessKey,
		BucketName:   c.S3Bucket,
		Prefix:       c.S3Prefix,
		Region:       c.AWSRegion,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
