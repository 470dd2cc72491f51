// package services defines the catalog interfaces the sync engine reads from and writes to
//
// Google Photos (Photos Library API), local directories (afero)
package services

import (
	"context"
	"iter"

	"github.com/desertthunder/photomirror/internal/models"
)

// CatalogReader lists and downloads the media items of an account.
type CatalogReader interface {
	// ListItems returns every item of the account, in the order the remote reports them.
	ListItems(ctx context.Context, account string) ([]models.Item, error)

	// DownloadChunks streams the item's bytes in chunks of at most chunkSize.
	// A failure is yielded as the final pair with a nil chunk.
	DownloadChunks(ctx context.Context, item models.Item, chunkSize int) iter.Seq2[[]byte, error]
}

// CatalogWriter stores a new item built from a payload and the metadata of its source item.
type CatalogWriter interface {
	// Upload returns the newly created target item.
	Upload(ctx context.Context, data []byte, meta models.Item) (*models.Item, error)
}

// Catalog is a provider that can act as both sides of a mirror.
type Catalog interface {
	CatalogReader
	CatalogWriter
	Name() string // Name returns the provider name (e.g., "Google Photos")
}

// yieldErr returns a sequence that yields a single error.
func yieldErr(err error) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		yield(nil, err)
	}
}
