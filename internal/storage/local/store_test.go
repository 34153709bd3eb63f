package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/querychat/querychat/internal/storage"
)

func TestPutWritesFileBelowRoot(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	info, err := storage.PutBytes(context.Background(), store, "LMS_MODEL/s1/1_Scores.png", []byte("png-bytes"), storage.PutOptions{ContentType: storage.ContentTypePNG})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	want := filepath.Join(root, "LMS_MODEL", "s1", "1_Scores.png")
	if info.Location != want {
		t.Fatalf("Location = %q, want %q", info.Location, want)
	}
	if info.Size != 9 || info.ETag == "" {
		t.Fatalf("info = %#v", info)
	}
	payload, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(payload) != "png-bytes" {
		t.Fatalf("payload = %q", payload)
	}
	leftovers, _ := filepath.Glob(filepath.Join(root, "LMS_MODEL", "s1", ".put-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
}

func TestGetStatDeleteRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	if _, err := store.Put(ctx, "a/b.png", strings.NewReader("abc"), 3, storage.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	stat, err := store.Stat(ctx, "/a/b.png")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if stat.Key != "a/b.png" || stat.Size != 3 {
		t.Fatalf("Stat() = %#v", stat)
	}

	reader, err := store.Get(ctx, "a/b.png")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	payload, _ := io.ReadAll(reader)
	_ = reader.Close()
	if string(payload) != "abc" {
		t.Fatalf("Get() payload = %q", payload)
	}

	if err := store.Delete(ctx, "a/b.png"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "a/b.png"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if _, err := store.Stat(ctx, "a/b.png"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() after delete error = %v", err)
	}
	if _, err := store.Get(ctx, "a/b.png"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if _, err := store.Stat(ctx, "a"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() on directory error = %v", err)
	}
}

func TestRejectsKeysOutsideRoot(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"", "  ", "../escape.png", "a/../../escape.png", `a\b.png`} {
		if _, err := store.Put(context.Background(), key, strings.NewReader("x"), 1, storage.PutOptions{}); err == nil {
			t.Fatalf("Put(%q) expected error", key)
		}
	}
}

func TestNewDefaultsDirectory(t *testing.T) {
	t.Chdir(t.TempDir())
	store, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if filepath.Base(store.Root()) != DefaultDir {
		t.Fatalf("Root() = %q", store.Root())
	}
	if _, err := os.Stat(store.Root()); err != nil {
		t.Fatalf("root not created: %v", err)
	}
}

func TestPutHonorsCanceledContext(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "a.png", strings.NewReader("x"), 1, storage.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Put() error = %v, want context.Canceled", err)
	}
}
