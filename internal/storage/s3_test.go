package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/cardlink/internal/config"
)

func testStore(publicBase string) *ProofStore {
	awsCfg := aws.Config{
		Region:      "ap-southeast-1",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", "")),
	}
	return NewProofStoreWithConfig(awsCfg, config.StorageConfig{
		Bucket:        "proofs-bucket",
		Region:        "ap-southeast-1",
		PublicBaseURL: publicBase,
		PresignTTL:    10 * time.Minute,
	})
}

func TestPresignProof(t *testing.T) {
	up, err := testStore("").PresignProof(context.Background(), 7, "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.Key, "proofs/7/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Equal(t, "https://proofs-bucket.s3.ap-southeast-1.amazonaws.com/"+up.Key, up.ObjectURL)

	u, err := url.Parse(up.UploadURL)
	require.NoError(t, err)
	assert.Contains(t, u.Host, "proofs-bucket")
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
}

func TestPresignProof_PublicBaseAndContentType(t *testing.T) {
	store := testStore("https://cdn.example.com/")
	up, err := store.PresignProof(context.Background(), 1, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+up.Key, up.ObjectURL)

	_, err = store.PresignProof(context.Background(), 1, "text/html")
	assert.Error(t, err)
	assert.False(t, Supported("text/html"))
}
