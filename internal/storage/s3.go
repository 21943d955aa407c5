// Package storage hands out presigned S3 uploads for payment proofs.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/oggyb/cardlink/internal/config"
)

var proofExtensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Upload is what a client needs to PUT a proof and reference it afterwards.
type Upload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	ObjectURL string    `json:"objectUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ProofStore struct {
	presign    *s3.PresignClient
	bucket     string
	region     string
	publicBase string
	ttl        time.Duration
}

// NewProofStore loads AWS credentials from the default chain.
func NewProofStore(ctx context.Context, cfg config.StorageConfig) (*ProofStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewProofStoreWithConfig(awsCfg, cfg), nil
}

func NewProofStoreWithConfig(awsCfg aws.Config, cfg config.StorageConfig) *ProofStore {
	return &ProofStore{
		presign:    s3.NewPresignClient(s3.NewFromConfig(awsCfg)),
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		ttl:        cfg.PresignTTL,
	}
}

// Supported reports whether contentType may be uploaded as a proof.
func Supported(contentType string) bool {
	_, ok := proofExtensions[contentType]
	return ok
}

// PresignProof returns a short-lived PUT URL under proofs/<userID>/.
func (p *ProofStore) PresignProof(ctx context.Context, userID uint64, contentType string) (*Upload, error) {
	ext, ok := proofExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
	key := fmt.Sprintf("proofs/%d/%s%s", userID, uuid.NewString(), ext)

	req, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return nil, fmt.Errorf("presign proof upload: %w", err)
	}

	return &Upload{
		Key:       key,
		UploadURL: req.URL,
		ObjectURL: p.objectURL(key),
		ExpiresAt: time.Now().UTC().Add(p.ttl),
	}, nil
}

func (p *ProofStore) objectURL(key string) string {
	if p.publicBase != "" {
		return p.publicBase + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key)
}
