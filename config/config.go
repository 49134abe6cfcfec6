// Package config loads blobvault settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/stackline-io/blobvault/blobtypes"
)

// Config carries everything the command-line entry points need to build a
// client. Zero tuning fields fall back to the built-in defaults.
type Config struct {
	Bucket         string
	Region         string
	Endpoint       string
	ForcePathStyle bool
	MaxRetries     int

	MaxFileSize       int64
	AllowedExtensions []string

	// MetricsAddr is the listen address for the /metrics endpoint. Empty
	// disables the metrics server.
	MetricsAddr string

	Tuning blobtypes.TransferTuning
}

// FromEnv reads configuration from BLOBVAULT_* environment variables,
// falling back to defaults where unset.
func FromEnv() Config {
	return Config{
		Bucket:         os.Getenv("BLOBVAULT_BUCKET"),
		Region:         getEnv("BLOBVAULT_REGION", "us-east-1"),
		Endpoint:       os.Getenv("BLOBVAULT_ENDPOINT"),
		ForcePathStyle: getEnvBool("BLOBVAULT_FORCE_PATH_STYLE", false),
		MaxRetries:     getEnvInt("BLOBVAULT_MAX_RETRIES", 3),

		MaxFileSize:       getEnvInt64("BLOBVAULT_MAX_FILE_SIZE", 1024*1024*1024),
		AllowedExtensions: getEnvList("BLOBVAULT_ALLOWED_EXTENSIONS"),

		MetricsAddr: os.Getenv("BLOBVAULT_METRICS_ADDR"),

		Tuning: blobtypes.TransferTuning{
			MultipartThreshold: getEnvInt64("BLOBVAULT_MULTIPART_THRESHOLD", 0),
			StreamingThreshold: getEnvInt64("BLOBVAULT_STREAMING_THRESHOLD", 0),

			SmallObjectLimit:  getEnvInt64("BLOBVAULT_SMALL_OBJECT_LIMIT", 0),
			MediumObjectLimit: getEnvInt64("BLOBVAULT_MEDIUM_OBJECT_LIMIT", 0),
			ChunkSizeSmall:    getEnvInt64("BLOBVAULT_CHUNK_SIZE_SMALL", 0),
			ChunkSizeMedium:   getEnvInt64("BLOBVAULT_CHUNK_SIZE_MEDIUM", 0),
			ChunkSizeLarge:    getEnvInt64("BLOBVAULT_CHUNK_SIZE_LARGE", 0),

			MaxConcurrentUploads:      getEnvInt("BLOBVAULT_MAX_CONCURRENT_UPLOADS", 0),
			MinChunksForConcurrency:   getEnvInt("BLOBVAULT_MIN_CHUNKS_FOR_CONCURRENCY", 0),
			FullConcurrencyCeiling:    getEnvInt("BLOBVAULT_FULL_CONCURRENCY_CEILING", 0),
			LimitedConcurrencyCeiling: getEnvInt("BLOBVAULT_LIMITED_CONCURRENCY_CEILING", 0),
			LimitedConcurrencyValue:   getEnvInt("BLOBVAULT_LIMITED_CONCURRENCY_VALUE", 0),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
