package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/querychat/querychat/internal/storage"
)

func TestPutUsesPrefixAndReportsLocation(t *testing.T) {
	fake := &fakeClient{}
	store := mustStore(t, fake, Config{Bucket: "charts", Prefix: "/querychat/prod/"})

	info, err := storage.PutBytes(context.Background(), store, "/LMS_MODEL/s1/1_Scores.png", []byte("png"), storage.PutOptions{
		ContentType: storage.ContentTypePNG,
		Metadata:    map[string]string{"caller": "LMS_MODEL", "session": "s1"},
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastBucket != "charts" {
		t.Fatalf("bucket = %q", fake.lastBucket)
	}
	if fake.lastKey != "querychat/prod/LMS_MODEL/s1/1_Scores.png" {
		t.Fatalf("key = %q", fake.lastKey)
	}
	if fake.lastOpts.ContentType != storage.ContentTypePNG || fake.lastOpts.Metadata["session"] != "s1" {
		t.Fatalf("opts = %#v", fake.lastOpts)
	}
	if info.Location != "s3://charts/querychat/prod/LMS_MODEL/s1/1_Scores.png" {
		t.Fatalf("Location = %q", info.Location)
	}
	if string(fake.lastBody) != "png" {
		t.Fatalf("body = %q", fake.lastBody)
	}
}

func TestPutReportsPresignedLocation(t *testing.T) {
	fake := &fakeClient{}
	store := mustStore(t, fake, Config{Bucket: "charts", PresignTTL: 10 * time.Minute})

	info, err := storage.PutBytes(context.Background(), store, "alice/s1/1_Spread.png", []byte("png"), storage.PutOptions{ContentType: storage.ContentTypePNG})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if info.Location != "https://minio.local/charts/alice/s1/1_Spread.png?ttl=10m0s" {
		t.Fatalf("Location = %q", info.Location)
	}

	fake.presignErr = errors.New("signer offline")
	if _, err := store.Stat(context.Background(), "alice/s1/1_Spread.png"); err == nil || !strings.Contains(err.Error(), "signer offline") {
		t.Fatalf("Stat() error = %v", err)
	}
}

func TestPutDefaultsContentType(t *testing.T) {
	fake := &fakeClient{}
	store := mustStore(t, fake, Config{Bucket: "charts"})
	if _, err := store.Put(context.Background(), "a.bin", bytes.NewBufferString("x"), 1, storage.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastOpts.ContentType != "application/octet-stream" {
		t.Fatalf("content type = %q", fake.lastOpts.ContentType)
	}
}

func TestPutRejectsInvalidKeys(t *testing.T) {
	store := mustStore(t, &fakeClient{}, Config{Bucket: "charts"})
	for _, key := range []string{"../secrets.txt", "a/../../b.png", "", "..", `a\b.png`} {
		if _, err := store.Put(context.Background(), key, bytes.NewBufferString("x"), 1, storage.PutOptions{}); err == nil {
			t.Fatalf("Put(%q) expected validation error", key)
		}
	}
}

func TestNewStoreValidatesConfig(t *testing.T) {
	if _, err := newStore(&fakeClient{}, Config{Bucket: " "}); err == nil {
		t.Fatal("expected error for empty bucket")
	}
	if _, err := newStore(&fakeClient{}, Config{Bucket: "charts", PresignTTL: -time.Second}); err == nil {
		t.Fatal("expected error for negative presign ttl")
	}
	if _, err := New(context.Background(), Config{Bucket: "charts"}); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestEnsureBucketCreatesWhenMissing(t *testing.T) {
	fake := &fakeClient{}
	store := mustStore(t, fake, Config{Bucket: "charts"})
	if err := store.ensureBucket(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("ensureBucket() error = %v", err)
	}
	if fake.madeBucketRegion != "us-east-1" {
		t.Fatalf("MakeBucket region = %q", fake.madeBucketRegion)
	}

	fake = &fakeClient{bucketExists: true}
	store = mustStore(t, fake, Config{Bucket: "charts"})
	if err := store.ensureBucket(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("ensureBucket() error = %v", err)
	}
	if fake.madeBucketRegion != "" {
		t.Fatal("MakeBucket called for an existing bucket")
	}
}

func TestPingRequiresBucket(t *testing.T) {
	fake := &fakeClient{}
	store := mustStore(t, fake, Config{Bucket: "charts"})
	if err := store.Ping(context.Background()); err == nil {
		t.Fatal("expected Ping() error for a missing bucket")
	}
	fake.bucketExists = true
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestMissingObjectsMapToErrObjectNotFound(t *testing.T) {
	fake := &fakeClient{missing: true}
	store := mustStore(t, fake, Config{Bucket: "charts"})
	ctx := context.Background()

	if _, err := store.Stat(ctx, "missing.png"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() error = %v", err)
	}
	if _, err := store.Get(ctx, "missing.png"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() error = %v", err)
	}
	if err := store.Delete(ctx, "missing.png"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw        string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{raw: "https://minio.example.com", wantHost: "minio.example.com", wantSecure: true},
		{raw: "http://localhost:9000", useSSL: true, wantHost: "localhost:9000", wantSecure: true},
		{raw: "http://localhost:9000", wantHost: "localhost:9000"},
		{raw: "localhost:9000", wantHost: "localhost:9000"},
	}
	for _, tc := range tests {
		host, secure, err := parseEndpoint(tc.raw, tc.useSSL)
		if err != nil {
			t.Fatalf("parseEndpoint(%q) error = %v", tc.raw, err)
		}
		if host != tc.wantHost || secure != tc.wantSecure {
			t.Fatalf("parseEndpoint(%q) = %q/%v", tc.raw, host, secure)
		}
	}
	for _, raw := range []string{" ", "ftp://minio", "http://"} {
		if _, _, err := parseEndpoint(raw, false); err == nil {
			t.Fatalf("parseEndpoint(%q) expected error", raw)
		}
	}
}

func mustStore(t *testing.T, c objectClient, cfg Config) *Store {
	t.Helper()
	store, err := newStore(c, cfg)
	if err != nil {
		t.Fatalf("newStore() error = %v", err)
	}
	return store
}

type fakeClient struct {
	lastBucket       string
	lastKey          string
	lastBody         []byte
	lastOpts         storage.PutOptions
	bucketExists     bool
	madeBucketRegion string
	missing          bool
	presignErr       error
}

func (f *fakeClient) PutObject(_ context.Context, bucket, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	f.lastBucket, f.lastKey, f.lastBody, f.lastOpts = bucket, key, payload, opts
	return storage.ObjectInfo{Key: key, Size: size, ETag: "etag-1"}, nil
}

func (f *fakeClient) GetObject(_ context.Context, _, key string) (io.ReadCloser, error) {
	if f.missing {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(strings.NewReader(key)), nil
}

func (f *fakeClient) StatObject(_ context.Context, _, key string) (storage.ObjectInfo, error) {
	if f.missing {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: 10, LastModified: time.Now().UTC()}, nil
}

func (f *fakeClient) RemoveObject(context.Context, string, string) error {
	if f.missing {
		return storage.ErrObjectNotFound
	}
	return nil
}

func (f *fakeClient) BucketExists(context.Context, string) (bool, error) {
	return f.bucketExists, nil
}

func (f *fakeClient) MakeBucket(_ context.Context, _, region string) error {
	f.madeBucketRegion = region
	return nil
}

func (f *fakeClient) PresignGet(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://minio.local/" + bucket + "/" + key + "?ttl=" + ttl.String(), nil
}
