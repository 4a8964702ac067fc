package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"image/png"
	"io"
	"mime/multipart"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu        sync.Mutex
	failTypes map[string]bool
	calls     int
}

func (f *fakeUploader) UploadFile(_ context.Context, file io.Reader, objectKey, contentType string) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failTypes[contentType] {
		return "", errors.New("upload failed")
	}
	return fmt.Sprintf("https://cdn.test/%s/%d", contentType, len(data)), nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 2, 2), palette.Plan9), nil))
	return buf.Bytes()
}

// Minimal MP4: size box plus "ftypisom" brand, enough for magic-byte
// detection.
func mp4Bytes() []byte {
	data := []byte{0x00, 0x00, 0x00, 0x1c}
	data = append(data, []byte("ftypisom")...)
	return append(data, make([]byte, 20)...)
}

// fileHeaders builds real multipart file headers the way gin hands them to
// the handler.
func fileHeaders(t *testing.T, contents ...[]byte) []*multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for i, content := range contents {
		part, err := writer.CreateFormFile("files", fmt.Sprintf("file-%d.bin", i))
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&body, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	return form.File["files"]
}

func TestIngest_PartitionsByMagicBytes(t *testing.T) {
	uploader := &fakeUploader{}
	ing := NewIngestor(uploader, 10, 5)

	pngData := pngBytes(t)
	gifData := gifBytes(t)
	mp4Data := mp4Bytes()

	images, videos, err := ing.Ingest(context.Background(), fileHeaders(t, pngData, mp4Data, gifData))
	require.NoError(t, err)

	// Images keep submission order regardless of upload completion order.
	assert.Equal(t, []string{
		fmt.Sprintf("https://cdn.test/image/png/%d", len(pngData)),
		fmt.Sprintf("https://cdn.test/image/gif/%d", len(gifData)),
	}, images)
	assert.Equal(t, []string{
		fmt.Sprintf("https://cdn.test/video/mp4/%d", len(mp4Data)),
	}, videos)
}

func TestIngest_FailedUploadExcluded(t *testing.T) {
	uploader := &fakeUploader{failTypes: map[string]bool{"image/gif": true}}
	ing := NewIngestor(uploader, 10, 5)

	pngData := pngBytes(t)
	images, videos, err := ing.Ingest(context.Background(), fileHeaders(t, pngData, gifBytes(t), mp4Bytes()))
	require.NoError(t, err)

	// The failed upload is dropped, never a placeholder URL.
	assert.Equal(t, []string{fmt.Sprintf("https://cdn.test/image/png/%d", len(pngData))}, images)
	assert.Len(t, videos, 1)
}

func TestIngest_AllUploadsFailed(t *testing.T) {
	uploader := &fakeUploader{failTypes: map[string]bool{"image/png": true, "video/mp4": true}}
	ing := NewIngestor(uploader, 10, 5)

	images, videos, err := ing.Ingest(context.Background(), fileHeaders(t, pngBytes(t), mp4Bytes()))
	require.NoError(t, err)
	assert.Empty(t, images)
	assert.Empty(t, videos)
}

func TestIngest_UnknownTypeSkipped(t *testing.T) {
	uploader := &fakeUploader{}
	ing := NewIngestor(uploader, 10, 5)

	images, videos, err := ing.Ingest(context.Background(), fileHeaders(t, []byte("definitely not media")))
	require.NoError(t, err)
	assert.Empty(t, images)
	assert.Empty(t, videos)
	assert.Equal(t, 0, uploader.calls)
}

func TestIngest_TooManyImages(t *testing.T) {
	uploader := &fakeUploader{}
	ing := NewIngestor(uploader, 1, 5)

	_, _, err := ing.Ingest(context.Background(), fileHeaders(t, pngBytes(t), gifBytes(t)))

	var tooMany *ErrTooManyFiles
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, "image", tooMany.Kind)
	// Count violations are rejected before any upload starts.
	assert.Equal(t, 0, uploader.calls)
}

func TestIngest_NoFiles(t *testing.T) {
	ing := NewIngestor(&fakeUploader{}, 10, 5)

	images, videos, err := ing.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, images)
	assert.Empty(t, videos)
}
