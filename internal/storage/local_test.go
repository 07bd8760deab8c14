// local_test.go - Tests for the filesystem provider
package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func createTestProvider(t *testing.T) *LocalProvider {
	t.Helper()
	p, err := NewLocalProvider(t.TempDir(), "http://localhost:3999/", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return p
}

func TestNewLocalProvider(t *testing.T) {
	t.Run("creates root directory", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "files")

		p, err := NewLocalProvider(root, "http://example.test", slog.Default())
		if err != nil {
			t.Fatalf("Failed to create provider: %v", err)
		}
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			t.Error("Expected root directory to be created")
		}
		if err := p.Ping(context.Background()); err != nil {
			t.Errorf("Expected ping to succeed, got %v", err)
		}
	})

	t.Run("ping fails when root disappears", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "gone")
		p, err := NewLocalProvider(root, "http://example.test", slog.Default())
		if err != nil {
			t.Fatalf("Failed to create provider: %v", err)
		}
		os.RemoveAll(root)

		if err := p.Ping(context.Background()); err == nil {
			t.Error("Expected ping to fail")
		}
	})
}

func TestLocalProvider_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("stores file under category and folder", func(t *testing.T) {
		p := createTestProvider(t)
		content := "%PDF-1.4 test"

		res, err := p.Upload(ctx, strings.NewReader(content), UploadParams{
			Folder:       "uploads",
			PublicID:     "cv_report_1700000000000_123456789.pdf",
			ResourceType: ResourceRaw,
		})
		if err != nil {
			t.Fatalf("Failed to upload: %v", err)
		}

		if res.PublicID != "uploads/cv_report_1700000000000_123456789.pdf" {
			t.Errorf("Unexpected public id %q", res.PublicID)
		}
		if res.ResourceType != ResourceRaw {
			t.Errorf("Expected raw, got %q", res.ResourceType)
		}
		if res.Format != "pdf" {
			t.Errorf("Expected format pdf, got %q", res.Format)
		}
		if res.Bytes != int64(len(content)) {
			t.Errorf("Expected %d bytes, got %d", len(content), res.Bytes)
		}
		want := "http://localhost:3999/files/raw/uploads/cv_report_1700000000000_123456789.pdf"
		if res.SecureURL != want {
			t.Errorf("Expected URL %q, got %q", want, res.SecureURL)
		}

		data, err := os.ReadFile(filepath.Join(p.root, "raw", "uploads", "cv_report_1700000000000_123456789.pdf"))
		if err != nil {
			t.Fatalf("Expected file on disk: %v", err)
		}
		if string(data) != content {
			t.Errorf("Content mismatch: %q", data)
		}
	})

	t.Run("image category folds into auto", func(t *testing.T) {
		p := createTestProvider(t)

		res, err := p.Upload(ctx, strings.NewReader("png"), UploadParams{PublicID: "foto.png", ResourceType: ResourceImage})
		if err != nil {
			t.Fatalf("Failed to upload: %v", err)
		}
		if res.ResourceType != ResourceAuto {
			t.Errorf("Expected auto, got %q", res.ResourceType)
		}
	})

	t.Run("rejects traversal", func(t *testing.T) {
		p := createTestProvider(t)

		for _, id := range []string{"../escape.pdf", "a/../../b.pdf", "/abs.pdf", ""} {
			if _, err := p.Upload(ctx, strings.NewReader("x"), UploadParams{PublicID: id}); err == nil {
				t.Errorf("Expected error for public id %q", id)
			}
		}
	})

	t.Run("cancelled context leaves no file", func(t *testing.T) {
		p := createTestProvider(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := p.Upload(cctx, strings.NewReader("data"), UploadParams{PublicID: "x.pdf"}); err == nil {
			t.Fatal("Expected cancelled upload to fail")
		}
		entries, _ := os.ReadDir(filepath.Join(p.root, "auto"))
		if len(entries) != 0 {
			t.Errorf("Expected no files, found %d", len(entries))
		}
	})
}

func TestLocalProvider_DestroyAndResource(t *testing.T) {
	ctx := context.Background()
	p := createTestProvider(t)

	if _, err := p.Upload(ctx, strings.NewReader("pdf bytes"), UploadParams{PublicID: "doc.pdf", ResourceType: ResourceRaw}); err != nil {
		t.Fatalf("Failed to upload: %v", err)
	}

	t.Run("resource under wrong category is not found", func(t *testing.T) {
		_, err := p.Resource(ctx, "doc.pdf", ResourceAuto)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("resource under stored category", func(t *testing.T) {
		asset, err := p.Resource(ctx, "doc.pdf", ResourceRaw)
		if err != nil {
			t.Fatalf("Failed to get resource: %v", err)
		}
		if asset.Bytes != int64(len("pdf bytes")) {
			t.Errorf("Unexpected size %d", asset.Bytes)
		}
		if asset.Format != "pdf" {
			t.Errorf("Unexpected format %q", asset.Format)
		}
		if asset.CreatedAt.IsZero() {
			t.Error("Expected creation time")
		}
	})

	t.Run("open stored file", func(t *testing.T) {
		f, err := p.Open(ResourceRaw, "doc.pdf")
		if err != nil {
			t.Fatalf("Failed to open: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "pdf bytes" {
			t.Errorf("Unexpected content %q", data)
		}

		if _, err := p.Open(ResourceAuto, "doc.pdf"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("destroy under wrong category reports not found", func(t *testing.T) {
		res, err := p.Destroy(ctx, "doc.pdf", ResourceAuto)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if res.Result != ResultNotFound {
			t.Errorf("Expected %q, got %q", ResultNotFound, res.Result)
		}
	})

	t.Run("destroy under stored category", func(t *testing.T) {
		res, err := p.Destroy(ctx, "doc.pdf", ResourceRaw)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if res.Result != ResultOK {
			t.Errorf("Expected ok, got %q", res.Result)
		}
		if _, err := p.Resource(ctx, "doc.pdf", ResourceRaw); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected file to be gone, got %v", err)
		}
	})
}

func TestLocalProvider_URL(t *testing.T) {
	p := createTestProvider(t)

	tests := []struct {
		name string
		id   string
		opts URLOptions
		want string
	}{
		{
			name: "auto view",
			id:   "uploads/foto.png",
			opts: URLOptions{ResourceType: ResourceAuto},
			want: "http://localhost:3999/files/auto/uploads/foto.png",
		},
		{
			name: "raw attachment",
			id:   "uploads/doc.pdf",
			opts: URLOptions{ResourceType: ResourceRaw, Flags: FlagAttachment},
			want: "http://localhost:3999/files/raw/fl_attachment/uploads/doc.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.URL(tt.id, tt.opts)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}

	if _, err := p.URL("../x", URLOptions{}); err == nil {
		t.Error("Expected error for invalid id")
	}
}
