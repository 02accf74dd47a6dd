package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ConfabulousDev/aist/internal/transcript"
)

var tracer = otel.Tracer("aist/storage")

// Sentinel errors for storage operations
var (
	// ErrObjectNotFound indicates the requested object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions for the operation
	ErrAccessDenied = errors.New("access denied")

	// ErrNetworkError indicates a network connectivity issue
	ErrNetworkError = errors.New("network error")

	// ErrTooManyObjects indicates a listing exceeded MaxObjectsPerList
	ErrTooManyObjects = errors.New("too many objects under prefix")
)

// MaxObjectsPerList bounds a single archive listing.
const MaxObjectsPerList = 100000

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// S3Archive reads archived session logs from a bucket.
type S3Archive struct {
	client *minio.Client
	bucket string
}

// NewS3Archive creates an archive client and checks that the bucket exists.
func NewS3Archive(ctx context.Context, config S3Config) (*S3Archive, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", config.BucketName)
	}

	return &S3Archive{
		client: client,
		bucket: config.BucketName,
	}, nil
}

// ListSources lists every log object under prefix, in key order.
func (s *S3Archive) ListSources(ctx context.Context, prefix string) ([]Source, error) {
	ctx, span := tracer.Start(ctx, "storage.list_sources",
		trace.WithAttributes(attribute.String("storage.prefix", prefix)))
	defer span.End()

	var sources []Source
	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for obj := range objectCh {
		if obj.Err != nil {
			span.RecordError(obj.Err)
			span.SetStatus(codes.Error, obj.Err.Error())
			return nil, classifyStorageError(obj.Err, "list sources")
		}
		if !IsLogName(obj.Key) {
			continue
		}
		sources = append(sources, &S3Source{archive: s, key: obj.Key})

		if len(sources) > MaxObjectsPerList {
			err := fmt.Errorf("list sources: %w (limit: %d)", ErrTooManyObjects, MaxObjectsPerList)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("sources.count", len(sources)))
	return sources, nil
}

// Download retrieves an object's raw bytes.
func (s *S3Archive) Download(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "storage.download",
		trace.WithAttributes(attribute.String("storage.key", key)))
	defer span.End()

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyStorageError(err, "download")
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyStorageError(err, "download")
	}

	span.SetAttributes(attribute.Int("file.size", len(data)))
	return data, nil
}

// Upload stores a log under key.
func (s *S3Archive) Upload(ctx context.Context, key string, data []byte) error {
	ctx, span := tracer.Start(ctx, "storage.upload",
		trace.WithAttributes(
			attribute.String("storage.key", key),
			attribute.Int("file.size", len(data)),
		))
	defer span.End()

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return classifyStorageError(err, "upload")
	}
	return nil
}

// S3Source is one archived log.
type S3Source struct {
	archive *S3Archive
	key     string
}

func (s *S3Source) Ref() transcript.Ref {
	return NewRef(s.key)
}

// Open downloads the object and decompresses it by key suffix.
func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	data, err := s.archive.Download(ctx, s.key)
	if err != nil {
		return nil, err
	}
	rc, err := Decompress(io.NopCloser(bytes.NewReader(data)), CompressionOf(s.key))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.key, err)
	}
	return rc, nil
}

// classifyStorageError examines a storage error and returns an appropriate sentinel error
func classifyStorageError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch minioErr.Code {
		case "NoSuchKey", "NoSuchBucket":
			return fmt.Errorf("%s: %w", operation, ErrObjectNotFound)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%s: %w", operation, ErrAccessDenied)
		}
	}

	if containsAny(err.Error(), []string{"connection", "timeout", "network", "dial", "refused"}) {
		return fmt.Errorf("%s network issue: %w", operation, ErrNetworkError)
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
