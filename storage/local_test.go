package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngBytes is the start of a PNG file, enough for type detection
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func newTestBucket(t *testing.T) *LocalBucket {
	b, err := NewLocalBucket(t.TempDir(), "images", "http://localhost:5000/",
		[]string{"image/png", "image/jpeg"})
	require.NoError(t, err)

	return b
}

func TestUploadOpenRemove(t *testing.T) {
	ctx := context.Background()
	b := newTestBucket(t)

	info, err := b.Upload(ctx, "highlights/1_a.png", bytes.NewReader(pngBytes), "image/png", false)
	require.NoError(t, err)
	assert.Equal(t, "highlights/1_a.png", info.Path)
	assert.Equal(t, int64(len(pngBytes)), info.Size)
	assert.Equal(t, "image/png", info.ContentType)

	f, openInfo, err := b.Open("highlights/1_a.png")
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, pngBytes, content)
	assert.Equal(t, info.Size, openInfo.Size)

	objects, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "highlights/1_a.png", objects[0].Path)

	require.NoError(t, b.Remove(ctx, "highlights/1_a.png", "does/not/exist.png"))

	_, _, err = b.Open("highlights/1_a.png")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestUploadNoOverwrite(t *testing.T) {
	ctx := context.Background()
	b := newTestBucket(t)

	_, err := b.Upload(ctx, "a.png", bytes.NewReader(pngBytes), "image/png", false)
	require.NoError(t, err)

	_, err = b.Upload(ctx, "a.png", bytes.NewReader(pngBytes), "image/png", false)
	assert.True(t, errors.Is(err, ErrObjectExists))

	_, err = b.Upload(ctx, "a.png", bytes.NewReader(pngBytes), "image/png", true)
	assert.NoError(t, err, "upsert should overwrite")
}

func TestUploadRejectsMIMEType(t *testing.T) {
	ctx := context.Background()
	b := newTestBucket(t)

	_, err := b.Upload(ctx, "a.png", bytes.NewReader([]byte("just some text")), "image/png", false)
	assert.True(t, errors.Is(err, ErrMIMENotAllowed), "content is detected, declared type is ignored")

	ico := append([]byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00}, make([]byte, 32)...)
	_, err = b.Upload(ctx, "favicon.ico", bytes.NewReader(ico), "image/x-icon", false)
	assert.True(t, errors.Is(err, ErrMIMENotAllowed))

	objects, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestPathTraversal(t *testing.T) {
	ctx := context.Background()
	b := newTestBucket(t)

	for _, p := range []string{"", "/etc/passwd", "../escape.png", "a/../../escape.png", `a\b.png`} {
		_, err := b.Upload(ctx, p, bytes.NewReader(pngBytes), "image/png", false)
		assert.Truef(t, errors.Is(err, ErrInvalidPath), "path %q should be rejected", p)
	}
}

func TestPublicURLRoundTrip(t *testing.T) {
	b := newTestBucket(t)

	u := b.PublicURL("slider/123_photo.png")
	assert.Equal(t, "http://localhost:5000/storage/v1/object/public/images/slider/123_photo.png", u)

	p, ok := b.ObjectPath(u)
	require.True(t, ok)
	assert.Equal(t, "slider/123_photo.png", p)

	_, ok = b.ObjectPath("https://cdn.example.com/other/photo.png")
	assert.False(t, ok)

	_, ok = b.ObjectPath("http://localhost:5000/storage/v1/object/public/videos/a.png")
	assert.False(t, ok, "other buckets are not ours")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "myphoto1.png", SanitizeFilename("my photo (1).png"))
	assert.Equal(t, "etcpasswd", SanitizeFilename("../etc/passwd"))
	assert.Equal(t, "o", SanitizeFilename("ção"))
	assert.Len(t, SanitizeFilename("çã()"), 36, "falls back to a UUID")
}

func TestNewObjectPath(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "slider/1700000000123_ab.jpg", NewObjectPath("/slider/", "a b.jpg", now))
}
