package camera

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"intrusion-worker-go/internal/logging"
	"intrusion-worker-go/internal/models"
)

// CameraState represents the atomic state of a camera loop
type CameraState int32

const (
	StateStopped CameraState = iota
	StateRunning
	StateStopping
)

func (s CameraState) String() string {
	return s.Status().String()
}

// Status maps the loop state onto the API status.
func (s CameraState) Status() models.CameraStatus {
	switch s {
	case StateRunning:
		return models.CameraStatusRunning
	case StateStopping:
		return models.CameraStatusStopping
	default:
		return models.CameraStatusStopped
	}
}

// CameraLifecycle owns the detection loop of a single camera
type CameraLifecycle struct {
	camera *models.Camera
	cm     *CameraManager
	logger zerolog.Logger

	state int32
	// opMu serializes Start and Stop
	opMu sync.Mutex

	cancel context.CancelFunc
	// loopDone is closed when the tick goroutine returns
	loopDone chan struct{}
	// streamDone is closed when the capture goroutine returns, nil without a URL
	streamDone chan struct{}

	// mu guards camera statistics and the overlay
	mu sync.RWMutex
}

func NewCameraLifecycle(camera *models.Camera, cm *CameraManager) *CameraLifecycle {
	cl := &CameraLifecycle{
		camera: camera,
		cm:     cm,
		logger: logging.WithCamera(cm.logger, camera.ID),
	}
	cl.setState(StateStopped)
	return cl
}

func (cl *CameraLifecycle) setState(state CameraState) {
	atomic.StoreInt32(&cl.state, int32(state))
}

func (cl *CameraLifecycle) getState() CameraState {
	return CameraState(atomic.LoadInt32(&cl.state))
}

// Start launches the tick loop and, when the camera has a URL, its stream capture.
func (cl *CameraLifecycle) Start() error {
	cl.opMu.Lock()
	defer cl.opMu.Unlock()

	if !atomic.CompareAndSwapInt32(&cl.state, int32(StateStopped), int32(StateRunning)) {
		return fmt.Errorf("camera %s cannot start from state %s", cl.camera.ID, cl.getState())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl.cancel = cancel
	cl.loopDone = make(chan struct{})
	cl.streamDone = nil

	cl.mu.Lock()
	cl.camera.TickCount = 0
	cl.camera.ErrorCount = 0
	cl.camera.LastError = ""
	cl.camera.Overlay = nil
	cl.mu.Unlock()

	if cl.camera.URL != "" && cl.cm.streams != nil {
		cl.streamDone = make(chan struct{})
		go func(done chan struct{}) {
			defer close(done)
			cl.cm.streams.Run(ctx, cl.camera.ID, cl.camera.URL)
		}(cl.streamDone)
	}

	go cl.runLoop(ctx, cl.loopDone)

	cl.logger.Info().
		Str("camera_name", cl.camera.Name).
		Bool("capture", cl.streamDone != nil).
		Dur("tick_interval", cl.cm.cfg.TickInterval).
		Msg("Camera detection loop started")

	return nil
}

// Stop cancels the loop and waits up to StopTimeout for an in-flight tick to finish.
// Stopping a camera that is not running is a no-op. The camera stays in StateStopping until
// its goroutines have returned; only then are the overlay, the frame and the camera's tracker
// buckets cleared. The camera cooldown is kept.
func (cl *CameraLifecycle) Stop() error {
	cl.opMu.Lock()
	defer cl.opMu.Unlock()

	if !atomic.CompareAndSwapInt32(&cl.state, int32(StateRunning), int32(StateStopping)) {
		return nil
	}

	cl.logger.Info().Msg("Stopping camera")

	if cl.cancel != nil {
		cl.cancel()
	}

	stopped := make(chan struct{})
	go cl.finishStop(stopped, cl.loopDone, cl.streamDone)

	timeout := time.NewTimer(cl.cm.cfg.StopTimeout)
	defer timeout.Stop()

	select {
	case <-stopped:
	case <-timeout.C:
		cl.logger.Warn().
			Dur("timeout", cl.cm.cfg.StopTimeout).
			Msg("Shutdown timeout, camera stays stopping until its tick returns")
	}
	return nil
}

// finishStop waits for the camera goroutines, then clears per-camera state and marks the
// camera stopped.
func (cl *CameraLifecycle) finishStop(stopped chan struct{}, dones ...chan struct{}) {
	defer close(stopped)

	for _, done := range dones {
		if done != nil {
			<-done
		}
	}

	cl.mu.Lock()
	cl.camera.Overlay = nil
	cl.mu.Unlock()

	cl.cm.tracker.Reset(cl.camera.ID)
	cl.cm.frames.Drop(cl.camera.ID)
	cl.setState(StateStopped)

	cl.logger.Info().Msg("Camera stopped successfully")
}

// runLoop drives one tick per interval until ctx is cancelled. A slow tick makes the
// ticker drop ticks instead of queueing them.
func (cl *CameraLifecycle) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(cl.cm.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cl.logger.Debug().Msg("Camera context cancelled")
			return
		case now := <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			cl.tick(ctx, now)
		}
	}
}

// tick runs one detection pass and absorbs any panic so the loop keeps going.
func (cl *CameraLifecycle) tick(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			cl.logger.Error().
				Interface("panic", r).
				Msg("Detection tick panic recovered")
			cl.recordError("panic", fmt.Sprint(r))
		}
	}()

	result := cl.processTick(ctx, now)
	if len(result.Errors) > 0 {
		cl.logger.Warn().
			Strs("errors", result.Errors).
			Msg("Detection tick had errors")
	}
}

func (cl *CameraLifecycle) recordError(stage, msg string) {
	cl.mu.Lock()
	cl.camera.ErrorCount++
	cl.camera.LastError = msg
	cl.mu.Unlock()
	cl.cm.metrics.RecordTickError(cl.camera.ID, stage)
}

// snapshot copies the camera state for status reporting.
func (cl *CameraLifecycle) snapshot() models.CameraResponse {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	c := cl.camera
	overlay := make([]models.ClassifiedDetection, len(c.Overlay))
	copy(overlay, c.Overlay)

	return models.CameraResponse{
		CameraID:      c.ID,
		Name:          c.Name,
		URL:           c.URL,
		Status:        cl.getState().Status(),
		TickCount:     c.TickCount,
		ErrorCount:    c.ErrorCount,
		AlertCount:    c.AlertCount,
		LastTickTime:  c.LastTickTime,
		LastDetectMs:  c.LastDetectTime.Milliseconds(),
		LastError:     c.LastError,
		DisplayWidth:  c.DisplayWidth,
		DisplayHeight: c.DisplayHeight,
		Detections:    overlay,
		CreatedAt:     c.CreatedAt,
	}
}
