// Package services defines the [CatalogReader] and [CatalogWriter] interfaces the
// sync engine depends on, and implements them for Google Photos and local directories.
//
// # Catalog Interfaces
//
// A reader lists the items of an account and streams an item's bytes as an
// [iter.Seq2] of chunks. A writer creates a new item from a payload and the
// source item's metadata. [Catalog] combines both with a provider name.
//
// # Google Photos Implementation
//
// [GooglePhotosService] talks to the Photos Library API through an [oauth2] client
// bound to one account. Listing pages through mediaItems 100 at a time. Downloads
// stream the base URL with the "=d" suffix under a 30 second timeout. Uploads are
// two steps: raw bytes to /uploads for a token, then mediaItems:batchCreate.
//
// Every call waits on a shared [rate.Limiter]. HTTP 429 responses are retried with
// exponential backoff (1s, 2s, 4s) before failing with [shared.ErrRateLimited].
//
// # OAuth
//
// [NewGoogleOAuthConfig] builds the authorization code flow for a source (read-only
// scope) or target (append-only scope) account, and [AccountTokenSource] turns stored
// tokens back into a refreshing [oauth2.TokenSource].
//
// # Local Directory Implementation
//
// [LocalCatalog] mirrors to and from a directory tree on an [afero.Fs]. Dimensions
// come from [image.DecodeConfig] and capture date and camera fields from EXIF.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrURLExpired] : item has no usable download URL
//   - [shared.ErrRateLimited] : 429 retries exhausted
//   - [shared.ErrTokenExpired] : API returned 401
//   - [shared.ErrAPIRequest] : any other failed request
//   - [shared.ErrUploadFailed] : upload or batchCreate rejected
package services
