package sequence

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"net/http"
	"os"
)

// Fetcher fetches and decodes the image for a single frame slot.
type Fetcher interface {
	Fetch(ctx context.Context, slot Slot) (image.Image, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, slot Slot) (image.Image, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, slot Slot) (image.Image, error) {
	return f(ctx, slot)
}

// Decoder turns raw image bytes into an image.
type Decoder interface {
	Decode(r io.Reader) (image.Image, error)
}

// Locator opens a bundled resource by name. Unknown names must yield an
// error wrapping fs.ErrNotExist.
type Locator interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DefaultMaxBytes is the default limit on the size of a single frame source.
const DefaultMaxBytes = 32 << 20

// SourceFetcher is a Fetcher that reads frames from remote URLs, local files
// and bundled resources according to Resolve.
type SourceFetcher struct {
	client   *http.Client
	locator  Locator
	decoder  Decoder
	maxBytes int64
}

// NewSourceFetcher returns a SourceFetcher. A nil client uses
// http.DefaultClient and maxBytes <= 0 uses DefaultMaxBytes.
func NewSourceFetcher(client *http.Client, locator Locator, decoder Decoder, maxBytes int64) *SourceFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &SourceFetcher{client: client, locator: locator, decoder: decoder, maxBytes: maxBytes}
}

// Fetch implements Fetcher.
func (f *SourceFetcher) Fetch(ctx context.Context, slot Slot) (image.Image, error) {
	strategy, ref := Resolve(slot.URI)
	rc, err := f.open(ctx, strategy, ref)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %s %q: %w", slot.Index, strategy, ref, err)
	}
	defer rc.Close()

	src := &readErrRecorder{r: io.LimitReader(rc, f.maxBytes)}
	img, err := f.decoder.Decode(src)
	if err != nil {
		if src.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("frame %d: %w", slot.Index, ctxErr)
			}
			return nil, fmt.Errorf("frame %d: %w: read %s %q: %v", slot.Index, ErrNotFound, strategy, ref, src.err)
		}
		return nil, fmt.Errorf("frame %d: %w: %v", slot.Index, ErrDecode, err)
	}
	return img, nil
}

// readErrRecorder keeps the first read error other than io.EOF, so transport
// failures can be told apart from malformed image data.
type readErrRecorder struct {
	r   io.Reader
	err error
}

func (r *readErrRecorder) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && err != io.EOF && r.err == nil {
		r.err = err
	}
	return n, err
}

func (f *SourceFetcher) open(ctx context.Context, strategy Strategy, ref string) (io.ReadCloser, error) {
	switch strategy {
	case Remote:
		return f.openRemote(ctx, ref)
	case LocalFile:
		fd, err := os.Open(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return fd, nil
	default:
		if f.locator == nil {
			return nil, ErrNotFound
		}
		rc, err := f.locator.Open(ctx, ref)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
			}
			return nil, err
		}
		return rc, nil
	}
}

func (f *SourceFetcher) openRemote(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	// TODO: retry transient remote failures with backoff before reporting
	// the frame as not found.
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %s", ErrNotFound, resp.Status)
	}
	return resp.Body, nil
}
