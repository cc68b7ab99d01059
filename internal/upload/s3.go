package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"dapp/internal/domain"
)

// objectPutter is the part of *s3.Client used by S3Store.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads images to a bucket. Objects are public and addressed as
// PublicURL + "/" + key.
type S3Store struct {
	client    objectPutter
	bucket    string
	prefix    string
	publicURL string
	MaxSize   int64
}

var _ domain.ImageStore = (*S3Store)(nil)

// NewS3Client builds a client from the default AWS configuration chain:
// environment, shared config and profiles, SSO, and instance roles. A
// non-empty endpoint selects an S3-compatible service with path-style
// addressing. It fails when no credentials can be resolved.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("resolve aws credentials: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Store stores images in bucket under prefix. publicURL defaults to the
// virtual-hosted bucket URL.
func NewS3Store(client objectPutter, bucket, prefix, publicURL string) *S3Store {
	if publicURL == "" {
		publicURL = "https://" + bucket + ".s3.amazonaws.com"
	}
	return &S3Store{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		MaxSize:   DefaultMaxSize,
	}
}

// SaveImage uploads the image and returns its public URL.
func (s *S3Store) SaveImage(ctx context.Context, name, _ string, r io.Reader) (string, error) {
	contentType, ext, body, err := sniff(r)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, limit(body, s.maxSize())); err != nil {
		return "", err
	}

	key := s.prefix + uuid.NewString() + ext
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": name,
			"upload-time":       time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

// Hosts reports whether url names an object under the store's prefix.
func (s *S3Store) Hosts(url string) bool {
	_, ok := storedName(url, s.publicURL+"/"+s.prefix)
	return ok
}

func (s *S3Store) maxSize() int64 {
	if s.MaxSize > 0 {
		return s.MaxSize
	}
	return DefaultMaxSize
}
