//go:build integration

package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/querychat/querychat/internal/storage"
)

func TestChartRoundTripAgainstMinIO(t *testing.T) {
	endpoint := envOr("QUERYCHAT_TEST_S3_ENDPOINT", "")
	if endpoint == "" {
		t.Skip("QUERYCHAT_TEST_S3_ENDPOINT is not set")
	}

	cfg := Config{
		Endpoint:         endpoint,
		Region:           envOr("QUERYCHAT_TEST_S3_REGION", "us-east-1"),
		Bucket:           envOr("QUERYCHAT_TEST_S3_BUCKET", "querychat-it"),
		AccessKeyID:      envOr("QUERYCHAT_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey:  envOr("QUERYCHAT_TEST_S3_SECRET_KEY", "miniostorage"),
		UseSSL:           false,
		Prefix:           "integration-tests",
		AutoCreateBucket: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	key, err := storage.BuildChartKey("integration", "roundtrip", 1, "Score by name")
	if err != nil {
		t.Fatalf("BuildChartKey() error = %v", err)
	}
	payload := []byte("\x89PNG-querychat-integration")

	info, err := storage.PutBytes(ctx, store, key, payload, storage.PutOptions{ContentType: storage.ContentTypePNG})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !strings.HasSuffix(info.Location, "/integration-tests/"+key) {
		t.Fatalf("Location = %q", info.Location)
	}

	stat, err := store.Stat(ctx, key)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if stat.Size != int64(len(payload)) {
		t.Fatalf("Stat().Size = %d, want %d", stat.Size, len(payload))
	}

	reader, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	readPayload, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Fatalf("reader.Close() error = %v", err)
	}
	if !bytes.Equal(readPayload, payload) {
		t.Fatalf("Get() payload = %q, want %q", string(readPayload), string(payload))
	}

	presigning := *store
	presigning.presignTTL = time.Minute
	presigned, err := presigning.Stat(ctx, key)
	if err != nil {
		t.Fatalf("presigned Stat() error = %v", err)
	}
	if !strings.HasPrefix(presigned.Location, "http") || !strings.Contains(presigned.Location, "X-Amz-Signature=") {
		t.Fatalf("presigned Location = %q", presigned.Location)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Stat(ctx, key); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() after delete error = %v, want ErrObjectNotFound", err)
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
