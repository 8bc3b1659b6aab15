package helpers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	"intrusion-worker-go/internal/models"
)

const (
	// JPEG quality settings
	HighQuality   = 95
	MediumQuality = 75

	// Minimum crop edge in pixels so tiny detections stay visible
	minCropSize = 10

	jpegDataURIPrefix = "data:image/jpeg;base64,"
)

// DecodeImage decodes JPEG or PNG bytes.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// ImageSize reads the pixel dimensions of JPEG or PNG bytes without decoding the image.
func ImageSize(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// EncodeJPEG encodes img as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = HighQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// JPEGDataURI wraps JPEG bytes into a data URI.
func JPEGDataURI(data []byte) string {
	return jpegDataURIPrefix + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI returns the decoded payload and MIME type of a base64 data URI.
func ParseDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("not a data URI")
	}
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URI")
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode data URI payload: %w", err)
	}
	if mime == "" {
		mime = "text/plain"
	}
	return data, mime, nil
}

// CropRect converts a pixel box to a rectangle clamped to bounds with a minimum size.
func CropRect(box models.BoundingBox, bounds image.Rectangle) image.Rectangle {
	x1 := bounds.Min.X + int(box.X)
	y1 := bounds.Min.Y + int(box.Y)
	x2 := bounds.Min.X + int(box.X+box.Width)
	y2 := bounds.Min.Y + int(box.Y+box.Height)

	x1 = max(bounds.Min.X, min(bounds.Max.X-1, x1))
	y1 = max(bounds.Min.Y, min(bounds.Max.Y-1, y1))
	x2 = max(bounds.Min.X, min(bounds.Max.X, x2))
	y2 = max(bounds.Min.Y, min(bounds.Max.Y, y2))

	if x2-x1 < minCropSize {
		x2 = min(bounds.Max.X, x1+minCropSize)
		x1 = max(bounds.Min.X, x2-minCropSize)
	}
	if y2-y1 < minCropSize {
		y2 = min(bounds.Max.Y, y1+minCropSize)
		y1 = max(bounds.Min.Y, y2-minCropSize)
	}
	return image.Rect(x1, y1, x2, y2)
}

// CropToDataURI crops box (in pixels of img) and returns it as a JPEG data URI.
func CropToDataURI(img image.Image, box models.BoundingBox, quality int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no image to crop")
	}
	rect := CropRect(box, img.Bounds())
	if rect.Empty() {
		return "", fmt.Errorf("crop %v is empty for image bounds %v", box, img.Bounds())
	}

	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Copy(cropped, image.Point{}, img, rect, draw.Src, nil)

	data, err := EncodeJPEG(cropped, quality)
	if err != nil {
		return "", err
	}

	log.Debug().
		Int("width", rect.Dx()).
		Int("height", rect.Dy()).
		Int("bytes", len(data)).
		Msg("Snapshot cropped")

	return JPEGDataURI(data), nil
}

// Thumbnail scales img to fit inside maxSize x maxSize, never upscaling.
func Thumbnail(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}

	scale := float64(maxSize) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// PreviewDataURI turns an uploaded image data URI into a small JPEG thumbnail data URI.
func PreviewDataURI(uri string, maxSize int) (string, error) {
	data, _, err := ParseDataURI(uri)
	if err != nil {
		return "", err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return "", err
	}
	out, err := EncodeJPEG(Thumbnail(img, maxSize), MediumQuality)
	if err != nil {
		return "", err
	}
	return JPEGDataURI(out), nil
}
