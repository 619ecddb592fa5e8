package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"

	"worklink/internal/models"
)

const (
	// normalizedMaxSize bounds the longest edge of a transcoded image.
	normalizedMaxSize = 2048
	jpegQuality       = 82
)

// ConvertFunc hands a file to an external conversion service for formats
// this process cannot decode (camera-native containers like HEIC). The
// service itself is an opaque collaborator.
type ConvertFunc func(ctx context.Context, f File) (File, error)

// Normalizer transcodes image containers the rendering surface cannot
// display inline into plain JPEG.
type Normalizer struct {
	// Convert is consulted for undecodable formats; nil means such files
	// fail with a typed transcode error.
	Convert ConvertFunc
}

// NeedsNormalization reports whether the file's extension indicates a
// container that must be transcoded before upload.
func NeedsNormalization(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".heic", ".heif", ".webp":
		return true
	default:
		return false
	}
}

// Normalize returns the file unchanged when no transcoding is needed.
// Otherwise it decodes, bounds the dimensions, and re-encodes as JPEG.
// Failure is a typed transcode error naming the file; the caller skips
// the file and continues the batch.
func (n *Normalizer) Normalize(ctx context.Context, f File) (File, error) {
	if !NeedsNormalization(f.Name) {
		return f, nil
	}

	decoded, err := decodeImage(f)
	if err != nil {
		if n.Convert != nil {
			converted, convErr := n.Convert(ctx, f)
			if convErr == nil {
				return converted, nil
			}
			err = convErr
		}
		return File{}, &models.AppError{
			Code:    "TRANSCODE_FAILED",
			Kind:    models.KindPermanent,
			Message: fmt.Sprintf("Could not convert %s to a displayable format", f.Name),
			Err:     err,
		}
	}

	bounded := resizeToFit(decoded, normalizedMaxSize, normalizedMaxSize)
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, bounded, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return File{}, models.NewInternalError(err)
	}

	base := strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
	return File{
		Name:        base + ".jpg",
		ContentType: "image/jpeg",
		Content:     buf.Bytes(),
	}, nil
}

func decodeImage(f File) (image.Image, error) {
	if strings.ToLower(filepath.Ext(f.Name)) == ".webp" {
		img, err := webp.Decode(bytes.NewReader(f.Content))
		if err == nil {
			return img, nil
		}
		// Fall through: some .webp files are mislabeled containers the
		// generic decoder may still handle.
	}
	img, _, err := image.Decode(bytes.NewReader(f.Content))
	return img, err
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
