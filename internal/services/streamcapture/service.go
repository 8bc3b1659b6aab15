package streamcapture

import (
	"context"
	"fmt"
	"image"
	"math"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/models"
)

// FrameSink receives the latest captured frame of a camera.
type FrameSink interface {
	Put(frame *models.Frame)
}

// Service captures camera streams with OpenCV and publishes JPEG frames into a FrameSink.
type Service struct {
	cfg  *config.Config
	sink FrameSink
}

func NewService(cfg *config.Config, sink FrameSink) *Service {
	configureFFmpegOptions()
	return &Service{
		cfg:  cfg,
		sink: sink,
	}
}

// Run captures from url until ctx is cancelled, reopening the stream with jittered
// exponential backoff whenever it fails.
func (s *Service) Run(ctx context.Context, cameraID, url string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("camera_id", cameraID).
				Interface("panic", r).
				Msg("Stream capture panic recovered")
		}
	}()

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frames, err := s.capture(ctx, cameraID, url)
		if ctx.Err() != nil {
			log.Info().Str("camera_id", cameraID).Msg("Stream capture stopped")
			return
		}
		if frames > 0 {
			attempt = 0
		}

		delay := s.backoffDelay(attempt)
		attempt++
		log.Warn().
			Err(err).
			Str("camera_id", cameraID).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("Video capture failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// capture reads frames from one opened stream and returns how many were delivered.
func (s *Service) capture(ctx context.Context, cameraID, url string) (int, error) {
	cap, err := openCapture(url)
	if err != nil {
		return 0, err
	}
	defer cap.Close()

	if !cap.IsOpened() {
		return 0, fmt.Errorf("video capture is not opened for camera %s", cameraID)
	}

	log.Info().
		Str("camera_id", cameraID).
		Float64("fps", cap.Get(gocv.VideoCaptureFPS)).
		Float64("width", cap.Get(gocv.VideoCaptureFrameWidth)).
		Float64("height", cap.Get(gocv.VideoCaptureFrameHeight)).
		Msg("VideoCapture opened")

	img := gocv.NewMat()
	defer img.Close()
	resized := gocv.NewMat()
	defer resized.Close()

	interval := time.Second / time.Duration(max(1, s.cfg.CaptureFPS))
	lastSent := time.Time{}
	delivered := 0
	consecutiveErrors := 0
	const maxConsecutiveErrors = 10

	for {
		select {
		case <-ctx.Done():
			return delivered, nil
		default:
		}

		if ok := cap.Read(&img); !ok || img.Empty() {
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveErrors {
				return delivered, fmt.Errorf("too many consecutive read errors (%d)", consecutiveErrors)
			}
			select {
			case <-ctx.Done():
				return delivered, nil
			case <-time.After(time.Duration(consecutiveErrors*50) * time.Millisecond):
			}
			continue
		}
		consecutiveErrors = 0

		// Keep draining the decoder but only encode at the capture rate.
		if time.Since(lastSent) < interval {
			continue
		}
		lastSent = time.Now()

		frame, err := s.encode(cameraID, img, &resized)
		if err != nil {
			log.Debug().Err(err).Str("camera_id", cameraID).Msg("Frame encode failed")
			continue
		}
		s.sink.Put(frame)
		delivered++
	}
}

func (s *Service) encode(cameraID string, img gocv.Mat, resized *gocv.Mat) (*models.Frame, error) {
	src := img
	if s.cfg.OutputWidth > 0 && s.cfg.OutputHeight > 0 &&
		(img.Cols() != s.cfg.OutputWidth || img.Rows() != s.cfg.OutputHeight) {
		gocv.Resize(img, resized, image.Pt(s.cfg.OutputWidth, s.cfg.OutputHeight), 0, 0, gocv.InterpolationLinear)
		src = *resized
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, src, []int{gocv.IMWriteJpegQuality, s.cfg.CaptureJPEGQuality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame as JPEG: %w", err)
	}
	defer buf.Close()

	data := append([]byte(nil), buf.GetBytes()...)
	return &models.Frame{
		CameraID:      cameraID,
		Data:          data,
		Width:         src.Cols(),
		Height:        src.Rows(),
		DisplayWidth:  src.Cols(),
		DisplayHeight: src.Rows(),
		Timestamp:     time.Now(),
	}, nil
}

func openCapture(url string) (*gocv.VideoCapture, error) {
	// Local webcams are addressed by index
	if id, err := parseDeviceID(url); err == nil {
		cap, err := gocv.OpenVideoCapture(id)
		if err != nil {
			return nil, fmt.Errorf("failed to open device %d: %w", id, err)
		}
		return cap, nil
	}

	cap, err := gocv.OpenVideoCaptureWithAPI(url, gocv.VideoCaptureFFmpeg)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream %s: %w", url, err)
	}
	return cap, nil
}

func parseDeviceID(url string) (int, error) {
	var id int
	if _, err := fmt.Sscanf(strings.TrimPrefix(url, "device://"), "%d", &id); err != nil {
		return 0, err
	}
	if fmt.Sprint(id) != strings.TrimPrefix(url, "device://") {
		return 0, fmt.Errorf("not a device id")
	}
	return id, nil
}

// backoffDelay returns a jittered exponential delay clamped to the configured range.
func (s *Service) backoffDelay(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(min(attempt, 10)))) * time.Second
	if base < s.cfg.ReconnectBackoffMin {
		base = s.cfg.ReconnectBackoffMin
	}
	if base > s.cfg.ReconnectBackoffMax {
		base = s.cfg.ReconnectBackoffMax
	}
	jitter := time.Duration(float64(base) * 0.2 * (rand.Float64()*2 - 1))
	return base + jitter
}

// configureFFmpegOptions tunes the FFmpeg backend OpenCV uses for network streams.
func configureFFmpegOptions() {
	if os.Getenv("OPENCV_FFMPEG_CAPTURE_OPTIONS") != "" {
		return
	}
	opts := []string{
		"rtsp_transport;tcp",
		"fflags;nobuffer",
		"flags;low_delay",
		"max_delay;500000",
		"stimeout;5000000",
	}
	_ = os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", strings.Join(opts, "|"))
}
