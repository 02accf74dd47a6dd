package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ConfabulousDev/aist/internal/storage"
)

const testBucket = "aist-test"

// TestEnvironment holds test infrastructure (a MinIO container with an
// archive bucket)
type TestEnvironment struct {
	Archive        *storage.S3Archive
	Config         storage.S3Config
	MinioContainer *tcminio.MinioContainer
	Ctx            context.Context
}

// SetupTestEnvironment starts a MinIO container for integration testing.
// Integration tests call this after checking testing.Short().
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	ctx := context.Background()

	t.Log("Starting MinIO container...")
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/minio/health/live").
				WithPort("9000/tcp").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start minio container: %v", err)
	}

	env := &TestEnvironment{
		MinioContainer: minioContainer,
		Ctx:            ctx,
	}
	t.Cleanup(func() {
		env.Cleanup(t)
	})

	endpoint, err := minioContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get minio endpoint: %v", err)
	}
	env.Config = storage.S3Config{
		Endpoint:        endpoint,
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		BucketName:      testBucket,
		UseSSL:          false, // Local testing without SSL
	}

	// The archive never creates buckets, so make one out-of-band
	admin, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	if err != nil {
		t.Fatalf("Failed to create minio admin client: %v", err)
	}

	// Live is not ready; bucket creation can still fail briefly
	maxRetries := 10
	for i := 0; i < maxRetries; i++ {
		err = admin.MakeBucket(ctx, testBucket, minio.MakeBucketOptions{})
		if err == nil {
			break
		}
		if i == maxRetries-1 {
			t.Fatalf("Failed to create bucket after %d retries: %v", maxRetries, err)
		}
		t.Logf("MinIO not ready yet, retrying... (%d/%d)", i+1, maxRetries)
		time.Sleep(500 * time.Millisecond)
	}

	env.Archive, err = storage.NewS3Archive(ctx, env.Config)
	if err != nil {
		t.Fatalf("Failed to create S3 archive: %v", err)
	}

	t.Log("Test environment ready!")
	return env
}

// Cleanup stops containers
func (e *TestEnvironment) Cleanup(t *testing.T) {
	t.Helper()
	if err := testcontainers.TerminateContainer(e.MinioContainer); err != nil {
		t.Logf("Warning: failed to terminate minio container: %v", err)
	}
}

// PutLog uploads a session log into the test bucket.
func (e *TestEnvironment) PutLog(t *testing.T, key string, data []byte) {
	t.Helper()
	if err := e.Archive.Upload(e.Ctx, key, data); err != nil {
		t.Fatalf("failed to upload %s: %v", key, err)
	}
}
