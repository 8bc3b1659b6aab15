package models

import (
	"fmt"
	"math"
	"time"
)

// BoundingBox is an axis-aligned face box. Boxes returned by the detector are in frame pixels;
// once they leave the detection loop they are in display coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scale multiplies the box by independent horizontal and vertical factors.
func (b BoundingBox) Scale(sx, sy float64) BoundingBox {
	return BoundingBox{X: b.X * sx, Y: b.Y * sy, Width: b.Width * sx, Height: b.Height * sy}
}

func (b BoundingBox) Valid() bool {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Width > 0 && b.Height > 0
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%.0f,%.0f %.0fx%.0f)", b.X, b.Y, b.Width, b.Height)
}

// Detection is a single face found in one frame.
type Detection struct {
	Box       BoundingBox `json:"box"`
	Score     float64     `json:"score"`
	Embedding []float64   `json:"embedding,omitempty"`
}

// HasEmbedding reports whether the detection carries an embedding the matcher can use.
func (d Detection) HasEmbedding() bool {
	return ValidEmbedding(d.Embedding)
}

// ValidEmbedding reports whether emb has the model's dimension and only finite components.
func ValidEmbedding(emb []float64) bool {
	if len(emb) != EmbeddingSize {
		return false
	}
	for _, v := range emb {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MatchResult is the outcome of classifying one embedding against the gallery.
type MatchResult struct {
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
}

func (m MatchResult) Known() bool {
	return m.Label != UnknownLabel
}

// UnclassifiedLabel marks a detection that arrived without a usable embedding.
const UnclassifiedLabel = "unclassified"

// ClassifiedDetection is a detection after matching, kept as the per-camera overlay.
type ClassifiedDetection struct {
	Box      BoundingBox `json:"box"`
	Score    float64     `json:"score"`
	Label    string      `json:"label"`
	Distance float64     `json:"distance"`
}

// Frame is the most recent image available for a camera.
type Frame struct {
	CameraID      string
	Data          []byte // JPEG
	Width         int
	Height        int
	DisplayWidth  int
	DisplayHeight int
	Timestamp     time.Time
}

// DisplaySize returns the dimensions boxes are reported in, falling back to the native size.
func (f *Frame) DisplaySize() (int, int) {
	if f.DisplayWidth > 0 && f.DisplayHeight > 0 {
		return f.DisplayWidth, f.DisplayHeight
	}
	return f.Width, f.Height
}

// TickResult summarizes one detection tick.
type TickResult struct {
	TotalDetections int
	Known           int
	Unknown         int
	Unclassified    int
	AlertsCreated   int
	Errors          []string
}

// MessagePublisher publishes JSON-encodable events on a subject or topic.
type MessagePublisher interface {
	Publish(subject string, data interface{}) error
}
