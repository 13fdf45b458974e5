package avatar

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/JonMunkholm/userimport/internal/logging"
)

// generateSize writes a size x size center crop of the full image and
// returns its URL. Any failure, or an original no larger than size, yields
// fullURL.
func (s *Service) generateSize(ctx context.Context, fullURL string, size int) string {
	src, err := s.files.PathFor(fullURL)
	if err != nil {
		return fullURL
	}
	ext := filepath.Ext(src)
	dst := strings.TrimSuffix(src, ext) + fmt.Sprintf("-%dx%d", size, size) + ext

	if err := resizeFile(src, dst, size); err != nil {
		logging.FromContext(ctx).Debug("avatar size not generated", "size", size, "reason", err)
		return fullURL
	}
	return s.files.URLFor(filepath.Base(dst))
}

// errNoResize means the original is already within the requested size.
var errNoResize = errors.New("original is not larger than requested size")

func resizeFile(src, dst string, size int) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	img, format, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= size && b.Dy() <= size {
		return errNoResize
	}

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(out, out.Bounds(), img, centerSquare(b), draw.Src, nil)

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	switch format {
	case "jpeg":
		err = jpeg.Encode(f, out, &jpeg.Options{Quality: 90})
	case "gif":
		err = gif.Encode(f, out, nil)
	default:
		err = png.Encode(f, out)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}

// centerSquare returns the largest square centered in b.
func centerSquare(b image.Rectangle) image.Rectangle {
	side := min(b.Dx(), b.Dy())
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2
	return image.Rect(x, y, x+side, y+side)
}
