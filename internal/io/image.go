package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"

	// Decoders for the formats mirrors serve photo posts in
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageService provides image processing operations for photo posts.
//
// Mirrors do not always serve JPEG even though photo files are saved with
// a .jpeg extension. ImageService is used to:
//   - Convert WebP, PNG and GIF images to JPEG
//   - Downsize very large images to a maximum edge length
//
// Example usage:
//
//	svc := NewImageService()
//	out, changed, err := svc.NormalizePhoto(ctx, data, 0)
//	if changed {
//	    // write out
//	}
type ImageService struct {
	// Quality is the JPEG quality used when re-encoding.
	Quality int
}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{Quality: 90}
}

// NormalizePhoto returns data as a JPEG no larger than maxSize on either
// edge. maxSize <= 0 means no size limit.
//
// JPEG input that already fits is returned untouched with changed=false,
// so re-running over a folder does not degrade the files.
func (s *ImageService) NormalizePhoto(ctx context.Context, data []byte, maxSize int) ([]byte, bool, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}

	fits := maxSize <= 0 || (cfg.Width <= maxSize && cfg.Height <= maxSize)
	if format == "jpeg" && fits {
		return data, false, nil
	}

	if fits {
		out, err := s.ConvertToJPEG(ctx, data)
		return out, err == nil, err
	}

	out, err := s.ResizeImage(ctx, data, maxSize, maxSize)
	return out, err == nil, err
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved. If the image is already smaller than the
// maximum dimensions, it will still be processed (re-encoded as JPEG).
//
// The Catmull-Rom algorithm is used for high-quality resizing.
//
// Example:
//
//	// Resize to fit within 1000x1000, maintaining aspect ratio
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
//	// A 1500x1000 image becomes 1000x667
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxWidth || height > maxHeight {
		ratio := float64(width) / float64(height)
		if float64(maxWidth)/float64(maxHeight) > ratio {
			// Height is the limiting factor
			width = int(float64(maxHeight) * ratio)
			height = maxHeight
		} else {
			height = int(float64(maxWidth) / ratio)
			width = maxWidth
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return s.encode(dst)
}

// ConvertToJPEG converts an image to JPEG format.
//
// If the input is already JPEG, it will be re-encoded, which may
// slightly change file size but ensures consistent encoding.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return s.encode(img)
}

func (s *ImageService) encode(img image.Image) ([]byte, error) {
	quality := s.Quality
	if quality <= 0 {
		quality = 90
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
