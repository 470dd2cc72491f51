package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/shared"
	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/spf13/afero"
)

const exifDateLayout = "2006:01:02 15:04:05"

var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".3gp":  "video/3gpp",
}

// MediaType returns the MIME type for a media file name, or "" for files that
// are not photos or videos.
func MediaType(name string) string {
	return mediaTypes[strings.ToLower(filepath.Ext(name))]
}

// LocalCatalog implements [Catalog] over a directory tree.
//
// The account passed to ListItems is a directory; an empty account lists root.
// Item IDs are slash-separated paths relative to the listed directory, so two
// trees with the same layout share IDs. Uploads are written below root.
type LocalCatalog struct {
	fs     afero.Fs
	root   string
	logger *log.Logger
}

// NewLocalCatalog creates a catalog rooted at root on fsys.
func NewLocalCatalog(fsys afero.Fs, root string, logger *log.Logger) *LocalCatalog {
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	return &LocalCatalog{fs: fsys, root: root, logger: shared.WithLogger(logger, "service", "local")}
}

func (c *LocalCatalog) Name() string {
	return "Local"
}

func (c *LocalCatalog) dir(account string) string {
	if account == "" {
		return c.root
	}
	return account
}

// ListItems walks the account directory in lexical order.
func (c *LocalCatalog) ListItems(ctx context.Context, account string) ([]models.Item, error) {
	dir := c.dir(account)
	if info, err := c.fs.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", shared.ErrAccountNotFound, dir)
	}

	var items []models.Item
	err := afero.Walk(c.fs, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			if p != dir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		mimeType := MediaType(info.Name())
		if mimeType == "" {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		item, err := c.describe(p, info, mimeType)
		if err != nil {
			c.logger.Warn("skipping unreadable file", "path", p, "error", err)
			return nil
		}
		item.ID = filepath.ToSlash(rel)
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	return items, nil
}

// describe reads dimensions and EXIF metadata, falling back to the
// modification time when the file carries no capture date.
func (c *LocalCatalog) describe(p string, info fs.FileInfo, mimeType string) (models.Item, error) {
	item := models.Item{
		Filename:    info.Name(),
		MimeType:    mimeType,
		CreatedTime: formatTime(info.ModTime()),
		SourceURL:   p,
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return item, nil
	}

	f, err := c.fs.Open(p)
	if err != nil {
		return item, err
	}
	defer f.Close()

	if cfg, _, err := image.DecodeConfig(f); err == nil {
		item.Width, item.Height = cfg.Width, cfg.Height
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return item, err
	}
	if x, err := goexif.Decode(f); err == nil {
		applyExif(&item, x)
	}
	return item, nil
}

func applyExif(item *models.Item, x *goexif.Exif) {
	if tag, err := x.Get(goexif.DateTimeOriginal); err == nil {
		if s, err := tag.StringVal(); err == nil {
			if t, err := time.Parse(exifDateLayout, strings.TrimSpace(s)); err == nil {
				item.CreatedTime = formatTime(t)
			}
		}
	} else if t, err := x.DateTime(); err == nil {
		item.CreatedTime = formatTime(t)
	}

	if tag, err := x.Get(goexif.Make); err == nil {
		item.CameraMake, _ = tag.StringVal()
	}
	if tag, err := x.Get(goexif.Model); err == nil {
		item.CameraModel, _ = tag.StringVal()
	}
	if tag, err := x.Get(goexif.FocalLength); err == nil {
		if r, err := tag.Rat(0); err == nil {
			item.FocalLength = r.FloatString(1) + "mm"
		}
	}
	if tag, err := x.Get(goexif.FNumber); err == nil {
		if r, err := tag.Rat(0); err == nil {
			item.Aperture = "f/" + r.FloatString(1)
		}
	}
	if tag, err := x.Get(goexif.ISOSpeedRatings); err == nil {
		item.ISO, _ = tag.Int(0)
	}
	if lat, long, err := x.LatLong(); err == nil {
		item.Latitude, item.Longitude = &lat, &long
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// DownloadChunks reads the file behind item.SourceURL.
func (c *LocalCatalog) DownloadChunks(ctx context.Context, item models.Item, chunkSize int) iter.Seq2[[]byte, error] {
	if item.SourceURL == "" {
		return yieldErr(fmt.Errorf("%w: %s", shared.ErrURLExpired, item.ID))
	}
	if chunkSize <= 0 {
		return yieldErr(fmt.Errorf("%w: chunk size must be positive", shared.ErrInvalidArgument))
	}

	return func(yield func([]byte, error) bool) {
		f, err := c.fs.Open(item.SourceURL)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				err = fmt.Errorf("%w: %s", shared.ErrItemNotFound, item.ID)
			}
			yield(nil, err)
			return
		}
		defer f.Close()

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			chunk := make([]byte, chunkSize)
			n, err := io.ReadFull(f, chunk)
			if n > 0 && !yield(chunk[:n], nil) {
				return
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("failed to read %s: %w", item.ID, err))
				return
			}
		}
	}
}

// Upload writes data below root. A source ID that is itself a relative path
// keeps its directory so mirrored trees keep their layout.
func (c *LocalCatalog) Upload(ctx context.Context, data []byte, meta models.Item) (*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel, err := uploadPath(meta)
	if err != nil {
		return nil, err
	}

	dest := filepath.Join(c.root, filepath.FromSlash(rel))
	if err := c.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}
	if err := afero.WriteFile(c.fs, dest, data, 0644); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUploadFailed, err)
	}

	if t, err := time.Parse(time.RFC3339, meta.CreatedTime); err == nil {
		_ = c.fs.Chtimes(dest, t, t)
	}

	stored := meta
	stored.ID = rel
	stored.SourceURL = dest
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		stored.Width, stored.Height = cfg.Width, cfg.Height
	}

	c.logger.Debug("wrote file", "path", dest, "bytes", len(data))
	return &stored, nil
}

func uploadPath(meta models.Item) (string, error) {
	if meta.Filename == "" {
		return "", fmt.Errorf("%w: item %s has no filename", shared.ErrInvalidInput, meta.ID)
	}

	rel := path.Base(filepath.ToSlash(meta.Filename))
	if strings.Contains(meta.ID, "/") {
		rel = path.Join(path.Dir(meta.ID), rel)
	}
	rel = path.Clean(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", fmt.Errorf("%w: unsafe path %q", shared.ErrInvalidInput, rel)
	}
	return rel, nil
}
