package upload

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklink/internal/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestNeedsNormalization(t *testing.T) {
	assert.True(t, NeedsNormalization("IMG_0001.HEIC"))
	assert.True(t, NeedsNormalization("shot.heif"))
	assert.True(t, NeedsNormalization("sticker.webp"))
	assert.False(t, NeedsNormalization("photo.jpg"))
	assert.False(t, NeedsNormalization("doc.pdf"))
}

func TestNormalizePassesThroughPlainFiles(t *testing.T) {
	n := &Normalizer{}
	f := File{Name: "photo.jpg", ContentType: "image/jpeg", Content: []byte("jpeg bytes")}

	out, err := n.Normalize(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, f, out)
}

func TestNormalizeTranscodesToJPEG(t *testing.T) {
	n := &Normalizer{}
	// A decodable container behind a .webp name; some exporters mislabel.
	f := File{Name: "sticker.webp", ContentType: "image/webp", Content: pngBytes(t, 32, 24)}

	out, err := n.Normalize(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, "sticker.jpg", out.Name)
	assert.Equal(t, "image/jpeg", out.ContentType)

	img, format, err := image.Decode(bytes.NewReader(out.Content))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())
}

func TestNormalizeBoundsLargeImages(t *testing.T) {
	n := &Normalizer{}
	f := File{Name: "pano.webp", ContentType: "image/webp", Content: pngBytes(t, 4096, 64)}

	out, err := n.Normalize(context.Background(), f)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out.Content))
	require.NoError(t, err)
	assert.Equal(t, 2048, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestNormalizeUndecodableFailsTyped(t *testing.T) {
	n := &Normalizer{}
	f := File{Name: "IMG_0001.heic", ContentType: "image/heic", Content: []byte("not an image at all")}

	_, err := n.Normalize(context.Background(), f)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "TRANSCODE_FAILED", appErr.Code)
	assert.Contains(t, appErr.Message, "IMG_0001.heic")
}

func TestNormalizeUsesConverterForUndecodableFormats(t *testing.T) {
	converted := File{Name: "IMG_0001.jpg", ContentType: "image/jpeg", Content: []byte("converted")}
	n := &Normalizer{
		Convert: func(_ context.Context, f File) (File, error) {
			return converted, nil
		},
	}
	f := File{Name: "IMG_0001.heic", ContentType: "image/heic", Content: []byte("opaque heic bytes")}

	out, err := n.Normalize(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, converted, out)
}

func TestNormalizeConverterFailureIsTerminal(t *testing.T) {
	n := &Normalizer{
		Convert: func(_ context.Context, _ File) (File, error) {
			return File{}, errors.New("conversion service down")
		},
	}
	f := File{Name: "IMG_0001.heic", ContentType: "image/heic", Content: []byte("opaque heic bytes")}

	_, err := n.Normalize(context.Background(), f)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "TRANSCODE_FAILED", appErr.Code)
}
