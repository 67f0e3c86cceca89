package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gifBytes is a 1x1 transparent GIF.
var gifBytes = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02,
	0x44, 0x01, 0x00, 0x3b,
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestEncoder_Encode(t *testing.T) {
	tests := []struct {
		name       string
		input      []byte
		wantPrefix string
		wantErr    error
	}{
		{name: "gif", input: gifBytes, wantPrefix: "data:image/gif;base64,"},
		{name: "png", input: pngHeader, wantPrefix: "data:image/png;base64,"},
		{name: "empty", input: []byte{}, wantErr: ErrEmptyImage},
		{name: "text", input: []byte("hello, not an image"), wantErr: ErrNotImage},
	}

	enc := NewEncoder(1024)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := enc.Encode(context.Background(), bytes.NewReader(tt.input))

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, uri)
				return
			}
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(uri, tt.wantPrefix), "uri = %s", uri)

			payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, tt.wantPrefix))
			require.NoError(t, err)
			assert.Equal(t, tt.input, payload)
		})
	}
}

func TestEncoder_TooLarge(t *testing.T) {
	enc := NewEncoder(int64(len(gifBytes) - 1))

	_, err := enc.Encode(context.Background(), bytes.NewReader(gifBytes))

	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestEncoder_ExactLimit(t *testing.T) {
	enc := NewEncoder(int64(len(gifBytes)))

	_, err := enc.Encode(context.Background(), bytes.NewReader(gifBytes))

	assert.NoError(t, err)
}

func TestEncoder_NilReader(t *testing.T) {
	_, err := NewEncoder(0).Encode(context.Background(), nil)

	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestEncoder_ReadError(t *testing.T) {
	_, err := NewEncoder(0).Encode(context.Background(), errReader{})

	assert.ErrorContains(t, err, "disk on fire")
}

func TestEncoder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEncoder(0).Encode(ctx, bytes.NewReader(gifBytes))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEncoder_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultMaxBytes, NewEncoder(-5).MaxBytes())
	assert.Equal(t, int64(42), NewEncoder(42).MaxBytes())
}

func TestEncodeAsync_Await(t *testing.T) {
	enc := NewEncoder(0)

	uri, err := Await(context.Background(), enc.EncodeAsync(context.Background(), bytes.NewReader(gifBytes)))

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/gif;base64,"))
}

func TestEncodeAsync_SingleResult(t *testing.T) {
	results := NewEncoder(0).EncodeAsync(context.Background(), bytes.NewReader(nil))

	first, ok := <-results
	require.True(t, ok)
	assert.ErrorIs(t, first.Err, ErrEmptyImage)

	_, ok = <-results
	assert.False(t, ok, "channel should be closed after one result")
}

func TestAwait_ContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Await(ctx, make(chan Result))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAwait_ClosedChannel(t *testing.T) {
	ch := make(chan Result)
	close(ch)

	_, err := Await(context.Background(), ch)

	assert.Error(t, err)
}
