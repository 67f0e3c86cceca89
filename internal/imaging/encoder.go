// Package imaging converts uploaded images into embeddable data URIs.
package imaging

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes is the default upload size limit.
const DefaultMaxBytes int64 = 5 << 20

// Encoder errors.
var (
	ErrEmptyImage    = errors.New("image is empty")
	ErrImageTooLarge = errors.New("image exceeds size limit")
	ErrNotImage      = errors.New("file is not an image")
)

// Result is the single outcome of an asynchronous encoding.
type Result struct {
	URI string
	Err error
}

// Encoder reads image uploads and produces data URIs.
type Encoder struct {
	maxBytes int64
}

// NewEncoder creates an Encoder. Non-positive limits use DefaultMaxBytes.
func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{maxBytes: maxBytes}
}

// MaxBytes returns the configured size limit.
func (e *Encoder) MaxBytes() int64 {
	return e.maxBytes
}

// Encode reads r fully and returns a base64 data URI whose media type is
// sniffed from the content, not taken from any client-supplied header.
func (e *Encoder) Encode(ctx context.Context, r io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("encode image: %w", ctx.Err())
	default:
	}

	if r == nil {
		return "", ErrEmptyImage
	}

	data, err := io.ReadAll(io.LimitReader(r, e.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("encode image: reading: %w", err)
	}

	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if int64(len(data)) > e.maxBytes {
		return "", fmt.Errorf("%w (%d bytes)", ErrImageTooLarge, e.maxBytes)
	}

	mime := mimetype.Detect(data)
	mediaType := strings.TrimSpace(strings.SplitN(mime.String(), ";", 2)[0])
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mediaType)
	}

	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// EncodeAsync runs Encode in its own goroutine. The returned channel
// delivers exactly one Result and is then closed.
func (e *Encoder) EncodeAsync(ctx context.Context, r io.Reader) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		uri, err := e.Encode(ctx, r)
		out <- Result{URI: uri, Err: err}
	}()
	return out
}

// Await blocks until the encoding finishes or ctx is done.
func Await(ctx context.Context, results <-chan Result) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("await image: %w", ctx.Err())
	case res, ok := <-results:
		if !ok {
			return "", errors.New("await image: no result")
		}
		return res.URI, res.Err
	}
}
