// Google Photos Library API implementation of [Catalog]
//
// API response types based on https://developers.google.com/photos/library/reference/rest
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	googlePhotosBaseURL = "https://photoslibrary.googleapis.com/v1"
	listPageSize        = 100
)

type photoMetadata struct {
	CameraMake      string  `json:"cameraMake"`
	CameraModel     string  `json:"cameraModel"`
	FocalLength     float64 `json:"focalLength"`
	ApertureFNumber float64 `json:"apertureFNumber"`
	IsoEquivalent   int     `json:"isoEquivalent"`
}

// MediaMetadata holds the creation time and dimensions of a media item.
//
// Width and height are int64 values encoded as JSON strings.
type MediaMetadata struct {
	CreationTime string         `json:"creationTime"`
	Width        string         `json:"width"`
	Height       string         `json:"height"`
	Photo        *photoMetadata `json:"photo,omitempty"`
}

// MediaItem represents a Google Photos media item.
type MediaItem struct {
	ID            string        `json:"id"`
	Description   string        `json:"description"`
	ProductURL    string        `json:"productUrl"`
	BaseURL       string        `json:"baseUrl"`
	MimeType      string        `json:"mimeType"`
	Filename      string        `json:"filename"`
	MediaMetadata MediaMetadata `json:"mediaMetadata"`
}

// ToItem converts the API representation to a [models.Item].
func (m MediaItem) ToItem() models.Item {
	width, _ := strconv.Atoi(m.MediaMetadata.Width)
	height, _ := strconv.Atoi(m.MediaMetadata.Height)

	item := models.Item{
		ID:          m.ID,
		Filename:    m.Filename,
		CreatedTime: m.MediaMetadata.CreationTime,
		Width:       width,
		Height:      height,
		MimeType:    m.MimeType,
		SourceURL:   m.BaseURL,
		ProductURL:  m.ProductURL,
		Description: m.Description,
	}

	if p := m.MediaMetadata.Photo; p != nil {
		item.CameraMake = p.CameraMake
		item.CameraModel = p.CameraModel
		item.ISO = p.IsoEquivalent
		if p.FocalLength > 0 {
			item.FocalLength = strconv.FormatFloat(p.FocalLength, 'f', -1, 64) + "mm"
		}
		if p.ApertureFNumber > 0 {
			item.Aperture = "f/" + strconv.FormatFloat(p.ApertureFNumber, 'f', -1, 64)
		}
	}
	return item
}

type mediaItemsPage struct {
	MediaItems    []MediaItem `json:"mediaItems"`
	NextPageToken string      `json:"nextPageToken"`
}

type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type simpleMediaItem struct {
	UploadToken string `json:"uploadToken"`
	FileName    string `json:"fileName"`
}

type newMediaItem struct {
	Description     string          `json:"description,omitempty"`
	SimpleMediaItem simpleMediaItem `json:"simpleMediaItem"`
}

type batchCreateRequest struct {
	NewMediaItems []newMediaItem `json:"newMediaItems"`
}

type batchCreateResponse struct {
	NewMediaItemResults []struct {
		UploadToken string     `json:"uploadToken"`
		Status      *apiStatus `json:"status"`
		MediaItem   *MediaItem `json:"mediaItem"`
	} `json:"newMediaItemResults"`
}

// GooglePhotosOptions tunes the HTTP behaviour of [GooglePhotosService].
// Zero values fall back to the defaults noted on each field.
type GooglePhotosOptions struct {
	BaseURL           string        // https://photoslibrary.googleapis.com/v1
	RequestsPerSecond float64       // 5
	MaxRetries        int           // 3, for HTTP 429 only; negative disables retries
	BaseBackoff       time.Duration // 1s
	ReadTimeout       time.Duration // 30s without download progress
	WriteTimeout      time.Duration // 60s without upload progress, and per batchCreate
	HTTPClient        *http.Client  // base transport, also used for unauthenticated downloads
	Clock             clockwork.Clock
	Logger            *log.Logger
}

// GooglePhotosService implements [Catalog] for one Google Photos account.
//
// API calls go through an [oauth2] client and share a [rate.Limiter]; responses
// with status 429 are retried with exponential backoff.
type GooglePhotosService struct {
	account    string
	baseURL    string
	api        *http.Client
	download   *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	readTO     time.Duration
	writeTO    time.Duration
	clock      clockwork.Clock
	logger     *log.Logger
}

// NewGooglePhotosService creates a service acting on behalf of account with tokens from ts.
func NewGooglePhotosService(account string, ts oauth2.TokenSource, opts GooglePhotosOptions) *GooglePhotosService {
	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	if opts.BaseURL == "" {
		opts.BaseURL = googlePhotosBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 60 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewDiscardLogger()
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	return &GooglePhotosService{
		account:    account,
		baseURL:    opts.BaseURL,
		api:        oauth2.NewClient(ctx, ts),
		download:   base,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		maxRetries: opts.MaxRetries,
		backoff:    opts.BaseBackoff,
		readTO:     opts.ReadTimeout,
		writeTO:    opts.WriteTimeout,
		clock:      opts.Clock,
		logger:     shared.WithLogger(opts.Logger, "service", "google", "account", account),
	}
}

func (s *GooglePhotosService) Name() string {
	return "Google Photos"
}

// Account returns the account this service is bound to.
func (s *GooglePhotosService) Account() string {
	return s.account
}

// do sends a request built by newReq, waiting on the rate limiter before every
// attempt and backing off on 429. The caller closes the returned body.
func (s *GooglePhotosService) do(ctx context.Context, client *http.Client, newReq func() (*http.Request, error)) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := newReq()
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		resp.Body.Close()

		if attempt >= s.maxRetries {
			return nil, fmt.Errorf("%w: gave up after %d retries", shared.ErrRateLimited, s.maxRetries)
		}

		delay := s.backoff * time.Duration(1<<attempt)
		s.logger.Warn("rate limited", "attempt", attempt+1, "delay", delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.clock.After(delay):
		}
	}
}

// doJSON performs an authenticated JSON API call and decodes the response into result.
func (s *GooglePhotosService) doJSON(ctx context.Context, method, endpoint string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	resp, err := s.do(ctx, s.api, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", shared.ErrTokenExpired, resp.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("%w: status %d", shared.ErrItemNotFound, resp.StatusCode)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, bytes.TrimSpace(snippet))
	}
}

// idleTimeout cancels a request context once d passes without progress.
type idleTimeout struct {
	timer clockwork.Timer
	d     time.Duration
}

// withIdleTimeout starts the countdown right away, so connecting and waiting
// for response headers are bounded too. stop must be called when done.
func (s *GooglePhotosService) withIdleTimeout(ctx context.Context, d time.Duration) (context.Context, *idleTimeout, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	idle := &idleTimeout{d: d}
	idle.timer = s.clock.AfterFunc(d, func() {
		cancel(fmt.Errorf("%w: no progress for %s", shared.ErrTimeout, d))
	})
	return ctx, idle, func() {
		idle.timer.Stop()
		cancel(context.Canceled)
	}
}

func (t *idleTimeout) extend() { t.timer.Reset(t.d) }

// pause stops the countdown while the caller holds a chunk.
func (t *idleTimeout) pause() { t.timer.Stop() }

// idleReader extends an [idleTimeout] on every read.
type idleReader struct {
	r    io.Reader
	idle *idleTimeout
}

func (r *idleReader) Read(p []byte) (int, error) {
	r.idle.extend()
	return r.r.Read(p)
}

// timeoutCause reports the idle timeout instead of the cancellation it caused.
func timeoutCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, shared.ErrTimeout) {
		return fmt.Errorf("%w (%v)", cause, err)
	}
	return err
}

// ListItems pages through mediaItems until no nextPageToken is returned.
func (s *GooglePhotosService) ListItems(ctx context.Context, account string) ([]models.Item, error) {
	if account != "" && account != s.account {
		return nil, fmt.Errorf("%w: service is bound to %s, not %s", shared.ErrAccountNotFound, s.account, account)
	}

	var items []models.Item
	pageToken := ""
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("pageSize", strconv.Itoa(listPageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var resp mediaItemsPage
		if err := s.doJSON(ctx, http.MethodGet, "/mediaItems?"+q.Encode(), nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list media items: %w", err)
		}

		for _, m := range resp.MediaItems {
			items = append(items, m.ToItem())
		}
		s.logger.Debug("listed page", "page", page, "items", len(resp.MediaItems))

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return items, nil
}

// DownloadChunks streams the original bytes from the item's base URL with the "=d" suffix.
func (s *GooglePhotosService) DownloadChunks(ctx context.Context, item models.Item, chunkSize int) iter.Seq2[[]byte, error] {
	if item.SourceURL == "" {
		return yieldErr(fmt.Errorf("%w: %s", shared.ErrURLExpired, item.ID))
	}
	if chunkSize <= 0 {
		return yieldErr(fmt.Errorf("%w: chunk size must be positive", shared.ErrInvalidArgument))
	}

	return func(yield func([]byte, error) bool) {
		ctx, idle, stop := s.withIdleTimeout(ctx, s.readTO)
		defer stop()

		resp, err := s.do(ctx, s.download, func() (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, item.SourceURL+"=d", nil)
		})
		if err != nil {
			yield(nil, fmt.Errorf("failed to download %s: %w", item.ID, timeoutCause(ctx, err)))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusGone {
			yield(nil, fmt.Errorf("%w: %s: status %d", shared.ErrURLExpired, item.ID, resp.StatusCode))
			return
		}
		if err := checkStatus(resp); err != nil {
			yield(nil, fmt.Errorf("failed to download %s: %w", item.ID, err))
			return
		}

		body := &idleReader{r: resp.Body, idle: idle}
		buf := make([]byte, chunkSize)
		for {
			n, err := io.ReadFull(body, buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				idle.pause()
				if !yield(chunk, nil) {
					return
				}
			}
			if (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) && ctx.Err() == nil {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("failed to download %s: %w", item.ID, timeoutCause(ctx, err)))
				return
			}
		}
	}
}

// Upload sends the raw bytes to /uploads for an upload token, then creates the
// media item with mediaItems:batchCreate, carrying over filename and description.
func (s *GooglePhotosService) Upload(ctx context.Context, data []byte, meta models.Item) (*models.Item, error) {
	token, err := s.uploadBytes(ctx, data, meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrUploadFailed, meta.Filename, err)
	}

	req := batchCreateRequest{NewMediaItems: []newMediaItem{{
		Description:     meta.Description,
		SimpleMediaItem: simpleMediaItem{UploadToken: token, FileName: meta.Filename},
	}}}

	createCtx, cancel := context.WithTimeout(ctx, s.writeTO)
	defer cancel()

	var resp batchCreateResponse
	if err := s.doJSON(createCtx, http.MethodPost, "/mediaItems:batchCreate", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrUploadFailed, meta.Filename, err)
	}

	if len(resp.NewMediaItemResults) == 0 {
		return nil, fmt.Errorf("%w: %s: no media items created", shared.ErrUploadFailed, meta.Filename)
	}

	result := resp.NewMediaItemResults[0]
	if result.Status != nil && result.Status.Code != 0 {
		return nil, fmt.Errorf("%w: %s: %s", shared.ErrUploadFailed, meta.Filename, result.Status.Message)
	}
	if result.MediaItem == nil {
		return nil, fmt.Errorf("%w: %s: response has no media item", shared.ErrUploadFailed, meta.Filename)
	}

	created := result.MediaItem.ToItem()
	s.logger.Debug("uploaded", "item", created.ID, "filename", created.Filename, "bytes", len(data))
	return &created, nil
}

// uploadBytes sends data as a raw upload. The write timeout restarts whenever
// the transport reads more of the body, so large payloads only fail when the
// connection stalls.
func (s *GooglePhotosService) uploadBytes(ctx context.Context, data []byte, meta models.Item) (string, error) {
	ctx, idle, stop := s.withIdleTimeout(ctx, s.writeTO)
	defer stop()

	resp, err := s.do(ctx, s.api, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/uploads",
			&idleReader{r: bytes.NewReader(data), idle: idle})
		if err != nil {
			return nil, err
		}
		req.ContentLength = int64(len(data))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(&idleReader{r: bytes.NewReader(data), idle: idle}), nil
		}
		if len(data) == 0 {
			req.Body = http.NoBody
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set("X-Goog-Upload-Content-Type", meta.MimeType)
		req.Header.Set("X-Goog-Upload-File-Name", meta.Filename)
		req.Header.Set("X-Goog-Upload-Protocol", "raw")
		return req, nil
	})
	if err != nil {
		return "", timeoutCause(ctx, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	token, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload token: %w", timeoutCause(ctx, err))
	}
	if len(bytes.TrimSpace(token)) == 0 {
		return "", fmt.Errorf("empty upload token")
	}
	return string(bytes.TrimSpace(token)), nil
}
