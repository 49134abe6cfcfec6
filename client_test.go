package blobvault

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackline-io/blobvault/blobtypes"
	"github.com/stackline-io/blobvault/errors"
	"github.com/stackline-io/blobvault/internal/testutil"
)

func TestNew_RejectsInvalidBucket(t *testing.T) {
	tests := []struct {
		name   string
		bucket string
	}{
		{"empty", ""},
		{"too short", "x"},
		{"uppercase", "My-Bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithBucket(tt.bucket))
			require.Error(t, err)
			assert.True(t, errors.IsInvalidInput(err))
		})
	}
}

func TestNew_WithCustomAWSConfig(t *testing.T) {
	cfg := aws.Config{Region: "eu-west-1"}

	client, err := New(
		WithBucket("test-bucket"),
		WithAWSConfig(&cfg),
		WithEndpoint("https://minio.local:9000"),
		WithForcePathStyle(true),
	)

	require.NoError(t, err)
	assert.Equal(t, "test-bucket", client.Bucket())
	require.NoError(t, client.Close())
}

func TestNewWithClient_NormalizesTuning(t *testing.T) {
	client := NewWithClient(&testutil.MockS3Client{},
		WithBucket("test-bucket"),
		WithTuning(blobtypes.TransferTuning{MultipartThreshold: 42}),
	)

	tuning := client.Tuning()
	assert.Equal(t, int64(42), tuning.MultipartThreshold)
	assert.Equal(t, blobtypes.DefaultTuning().StreamingThreshold, tuning.StreamingThreshold)
	assert.Equal(t, blobtypes.DefaultTuning().MaxConcurrentUploads, tuning.MaxConcurrentUploads)
}
