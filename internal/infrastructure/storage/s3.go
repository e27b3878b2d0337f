package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/barease/backend/internal/domain"
	"github.com/barease/backend/internal/logging"
)

// Cache-Control headers for published objects
const (
	menuCacheControl       = "max-age=60, s-maxage=300"
	embeddingsCacheControl = "max-age=300, s-maxage=600"
	imageCacheControl      = "max-age=31536000"
	contentTypeJSON        = "application/json"
)

// S3API is the subset of the S3 client used by the stores
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds bucket and key names
type S3Config struct {
	Region             string
	MenuBucket         string
	PublicImageBucket  string
	StagingImageBucket string
	MenuKey            string
	EmbeddingKey       string
}

// S3Store keeps the menu snapshots in the menu bucket and moves images
// between the staging and public buckets.
type S3Store struct {
	client S3API
	config S3Config
}

// NewS3Store creates a new S3 backed snapshot and image store
func NewS3Store(client S3API, cfg S3Config) *S3Store {
	if cfg.MenuKey == "" {
		cfg.MenuKey = "menu.json"
	}
	if cfg.EmbeddingKey == "" {
		cfg.EmbeddingKey = "embeddings.json"
	}
	return &S3Store{client: client, config: cfg}
}

// GetMenu implements domain.SnapshotStore
func (s *S3Store) GetMenu(ctx context.Context) (*domain.MenuSnapshot, error) {
	var menu domain.MenuSnapshot
	if err := s.getJSON(ctx, s.config.MenuKey, &menu); err != nil {
		return nil, err
	}
	if menu.Items == nil {
		menu.Items = []domain.MenuItem{}
	}
	return &menu, nil
}

// PutMenu implements domain.SnapshotStore
func (s *S3Store) PutMenu(ctx context.Context, menu *domain.MenuSnapshot) error {
	body, err := json.MarshalIndent(menu, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode menu: %w", err)
	}
	return s.putJSON(ctx, s.config.MenuKey, body, menuCacheControl)
}

// GetEmbeddings implements domain.SnapshotStore
func (s *S3Store) GetEmbeddings(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	var records []domain.EmbeddingRecord
	if err := s.getJSON(ctx, s.config.EmbeddingKey, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// PutEmbeddings implements domain.SnapshotStore
func (s *S3Store) PutEmbeddings(ctx context.Context, records []domain.EmbeddingRecord) error {
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode embeddings: %w", err)
	}
	return s.putJSON(ctx, s.config.EmbeddingKey, body, embeddingsCacheControl)
}

func (s *S3Store) getJSON(ctx context.Context, key string, out any) error {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.MenuBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: s3://%s/%s not found", domain.ErrSnapshotUnavailable, s.config.MenuBucket, key)
		}
		return fmt.Errorf("failed to get s3://%s/%s: %w", s.config.MenuBucket, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read s3://%s/%s: %w", s.config.MenuBucket, key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode s3://%s/%s: %w", s.config.MenuBucket, key, err)
	}
	return nil
}

func (s *S3Store) putJSON(ctx context.Context, key string, body []byte, cacheControl string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.config.MenuBucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentTypeJSON),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", s.config.MenuBucket, key, err)
	}
	logging.Ctx(ctx).Debug().Str("component", "s3").Str("key", key).Int("bytes", len(body)).Msg("object written")
	return nil
}

// CopyToPublic implements domain.ImageStore
func (s *S3Store) CopyToPublic(ctx context.Context, stagingKey, publicKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.config.PublicImageBucket),
		CopySource:        aws.String(s.config.StagingImageBucket + "/" + escapeKey(stagingKey)),
		Key:               aws.String(publicKey),
		MetadataDirective: types.MetadataDirectiveReplace,
		CacheControl:      aws.String(imageCacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", stagingKey, publicKey, err)
	}
	return nil
}

// DeletePublic implements domain.ImageStore
func (s *S3Store) DeletePublic(ctx context.Context, key string) error {
	return s.deleteObject(ctx, s.config.PublicImageBucket, key)
}

// DeleteStaging implements domain.ImageStore
func (s *S3Store) DeleteStaging(ctx context.Context, key string) error {
	return s.deleteObject(ctx, s.config.StagingImageBucket, key)
}

func (s *S3Store) deleteObject(ctx context.Context, bucket, key string) error {
	if bucket == "" || key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// PublicURL implements domain.ImageStore
func (s *S3Store) PublicURL(key string) string {
	return PublicObjectURL(s.config.PublicImageBucket, s.config.Region, key)
}

// PublicObjectURL builds the virtual-hosted URL of an object
func PublicObjectURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, escapeKey(key))
}

// escapeKey escapes each path segment of an object key
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
