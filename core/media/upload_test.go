package media

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prochartist/backend/core"
)

type memStore struct {
	key         string
	contentType string
	data        []byte
	err         error
}

func (s *memStore) Save(_ context.Context, key, contentType string, r io.Reader, _ int64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.key, s.contentType, s.data = key, contentType, b
	return "https://cdn.test/" + key, nil
}

var pngData = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 5000)...)

func TestUploader_Upload(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Storage.MaxImageSize = 10000
	ctx := context.Background()

	tests := []struct {
		name      string
		kind      Kind
		filename  string
		data      []byte
		size      int64
		wantField bool
	}{
		{name: "empty", kind: KindImage, filename: "a.png", data: nil, size: 0, wantField: true},
		{name: "too large", kind: KindImage, filename: "a.png", data: pngData, size: 10001, wantField: true},
		{name: "bad extension", kind: KindImage, filename: "a.gif", data: pngData, size: int64(len(pngData)), wantField: true},
		{name: "spoofed content", kind: KindImage, filename: "a.png", data: []byte("just some text"), size: 14, wantField: true},
		{name: "video as image", kind: KindVideo, filename: "a.mp4", data: pngData, size: int64(len(pngData)), wantField: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			_, err := NewUploader(store, conf).Upload(ctx, tt.kind, tt.filename, bytes.NewReader(tt.data), tt.size)
			assert.True(t, core.IsValidation(err), err)
			assert.Empty(t, store.key)
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		_, err := NewUploader(&memStore{}, conf).Upload(ctx, Kind("audio"), "a.mp3", strings.NewReader("x"), 1)
		assert.Error(t, err)
		assert.False(t, core.IsValidation(err))
	})

	t.Run("stored", func(t *testing.T) {
		store := &memStore{}
		url, err := NewUploader(store, conf).Upload(ctx, KindImage, "Chart.PNG", bytes.NewReader(pngData), int64(len(pngData)))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(store.key, "images/"), store.key)
		assert.True(t, strings.HasSuffix(store.key, ".png"), store.key)
		assert.Equal(t, "https://cdn.test/"+store.key, url)
		assert.Equal(t, "image/png", store.contentType)
		assert.Equal(t, pngData, store.data)
	})

	t.Run("store failure", func(t *testing.T) {
		storeErr := errors.New("bucket gone")
		_, err := NewUploader(&memStore{err: storeErr}, conf).Upload(ctx, KindImage, "a.png", bytes.NewReader(pngData), int64(len(pngData)))
		assert.Equal(t, storeErr, errors.Cause(err))
	})
}
