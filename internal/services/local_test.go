package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/spf13/afero"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestTree(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string][]byte{
		"/src/2024/a.png":   pngBytes(t, 2, 3),
		"/src/b.mp4":        []byte("not really a video"),
		"/src/notes.txt":    []byte("ignored"),
		"/src/.cache/c.png": pngBytes(t, 1, 1),
		"/dst/existing.png": pngBytes(t, 5, 5),
	}
	for name, data := range files {
		if err := afero.WriteFile(fs, name, data, 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return fs
}

func TestLocalCatalog(t *testing.T) {
	ctx := context.Background()
	taken := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ListItems", func(t *testing.T) {
		fs := newTestTree(t)
		if err := fs.Chtimes("/src/2024/a.png", taken, taken); err != nil {
			t.Fatalf("chtimes failed: %v", err)
		}
		catalog := NewLocalCatalog(fs, "/dst", nil)

		items, err := catalog.ListItems(ctx, "/src")
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 media items, got %d: %+v", len(items), items)
		}

		a, b := items[0], items[1]
		if a.ID != "2024/a.png" || a.Filename != "a.png" || a.MimeType != "image/png" {
			t.Errorf("unexpected item: %+v", a)
		}
		if a.Width != 2 || a.Height != 3 {
			t.Errorf("expected 2x3, got %dx%d", a.Width, a.Height)
		}
		if a.CreatedTime != "2023-06-01T12:00:00Z" {
			t.Errorf("expected mtime fallback, got %s", a.CreatedTime)
		}
		if b.ID != "b.mp4" || !b.IsVideo() {
			t.Errorf("unexpected item: %+v", b)
		}
	})

	t.Run("empty account lists root", func(t *testing.T) {
		catalog := NewLocalCatalog(newTestTree(t), "/dst", nil)
		items, err := catalog.ListItems(ctx, "")
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}
		if len(items) != 1 || items[0].ID != "existing.png" {
			t.Errorf("unexpected items: %+v", items)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		catalog := NewLocalCatalog(afero.NewMemMapFs(), "/nowhere", nil)
		if _, err := catalog.ListItems(ctx, ""); !errors.Is(err, shared.ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound, got %v", err)
		}
	})

	t.Run("DownloadChunks", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		afero.WriteFile(fs, "/src/x.jpg", []byte("abcdefghij"), 0644)
		catalog := NewLocalCatalog(fs, "/src", nil)

		var got []byte
		chunks := 0
		for chunk, err := range catalog.DownloadChunks(ctx, models.Item{ID: "x.jpg", SourceURL: "/src/x.jpg"}, 3) {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			chunks++
			got = append(got, chunk...)
		}
		if string(got) != "abcdefghij" || chunks != 4 {
			t.Errorf("expected 4 chunks of abcdefghij, got %d chunks of %q", chunks, got)
		}

		for _, err := range catalog.DownloadChunks(ctx, models.Item{ID: "gone", SourceURL: "/src/gone.jpg"}, 3) {
			if !errors.Is(err, shared.ErrItemNotFound) {
				t.Errorf("expected ErrItemNotFound, got %v", err)
			}
		}
	})

	t.Run("Upload mirrors the source layout", func(t *testing.T) {
		fs := newTestTree(t)
		source := NewLocalCatalog(fs, "/src", nil)
		target := NewLocalCatalog(fs, "/dst", nil)

		items, err := source.ListItems(ctx, "")
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}

		meta := items[0]
		meta.CreatedTime = "2023-06-01T12:00:00Z"
		data, _ := afero.ReadFile(fs, meta.SourceURL)

		stored, err := target.Upload(ctx, data, meta)
		if err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
		if stored.ID != "2024/a.png" || stored.Width != 2 {
			t.Errorf("unexpected stored item: %+v", stored)
		}

		mirrored, err := target.ListItems(ctx, "")
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}
		found := false
		for _, m := range mirrored {
			if m.ID == "2024/a.png" {
				found = true
				if m.CreatedTime != meta.CreatedTime {
					t.Errorf("expected created time %s, got %s", meta.CreatedTime, m.CreatedTime)
				}
			}
		}
		if !found {
			t.Errorf("uploaded item not listed: %+v", mirrored)
		}
	})

	t.Run("Upload rejects unsafe paths", func(t *testing.T) {
		catalog := NewLocalCatalog(afero.NewMemMapFs(), "/dst", nil)
		tc := []models.Item{
			{ID: "../../etc/passwd", Filename: "passwd"},
			{ID: "x", Filename: ""},
		}
		for _, meta := range tc {
			if _, err := catalog.Upload(ctx, []byte("x"), meta); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput for %+v, got %v", meta, err)
			}
		}
	})
}

func TestMediaType(t *testing.T) {
	tc := map[string]string{
		"IMG_0001.JPG": "image/jpeg",
		"clip.MOV":     "video/quicktime",
		"scan.heic":    "image/heic",
		"readme.md":    "",
	}
	for name, want := range tc {
		if got := MediaType(name); got != want {
			t.Errorf("MediaType(%s) = %q, want %q", name, got, want)
		}
	}
}
