package camera

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/helpers"
	"intrusion-worker-go/internal/logging"
	"intrusion-worker-go/internal/metrics"
	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/services/detection"
	"intrusion-worker-go/internal/services/matcher"
	"intrusion-worker-go/internal/services/tracker"
)

var (
	ErrCameraNotFound  = errors.New("camera not found")
	ErrTooManyCameras  = errors.New("maximum number of running cameras reached")
	ErrCameraStopping  = errors.New("camera is stopping")
	ErrInvalidFrame    = errors.New("invalid frame")
	ErrMissingCameraID = errors.New("camera id is required")
)

// FrameStore holds the latest frame per camera.
type FrameStore interface {
	Put(frame *models.Frame)
	Latest(cameraID string) (*models.Frame, bool)
	Drop(cameraID string)
}

// Dispatcher persists and announces confirmed intrusions.
type Dispatcher interface {
	DispatchFor(ctx context.Context, cameraID, snapshot, cameraName string) (models.IntrusionLogEntry, error)
}

// GalleryLister loads the known faces the matcher is built from.
type GalleryLister interface {
	List(ctx context.Context) ([]models.Identity, error)
}

// StreamRunner captures a camera URL into the frame store until ctx is cancelled.
type StreamRunner interface {
	Run(ctx context.Context, cameraID, url string)
}

// Dependencies are the collaborators of the camera manager. Streams and Metrics are optional.
type Dependencies struct {
	Detector   detection.Detector
	Frames     FrameStore
	Tracker    *tracker.Tracker
	Dispatcher Dispatcher
	Gallery    GalleryLister
	Streams    StreamRunner
	Metrics    *metrics.PipelineMetrics
}

// CameraManager runs one detection loop per camera against a shared, swappable matcher.
type CameraManager struct {
	cfg    *config.Config
	logger zerolog.Logger

	detector   detection.Detector
	frames     FrameStore
	tracker    *tracker.Tracker
	dispatcher Dispatcher
	gallery    GalleryLister
	streams    StreamRunner
	metrics    *metrics.PipelineMetrics

	matcher atomic.Pointer[matcher.Matcher]

	cameras map[string]*CameraLifecycle
	mutex   sync.RWMutex

	stopChannel  chan struct{}
	watchdogDone chan struct{}
	shutdownOnce sync.Once
}

func NewCameraManager(cfg *config.Config, deps Dependencies) (*CameraManager, error) {
	if deps.Detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if deps.Frames == nil {
		return nil, fmt.Errorf("frame store is required")
	}
	if deps.Tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("alert dispatcher is required")
	}

	cm := &CameraManager{
		cfg:          cfg,
		logger:       logging.NewServiceLogger(cfg, "camera"),
		detector:     deps.Detector,
		frames:       deps.Frames,
		tracker:      deps.Tracker,
		dispatcher:   deps.Dispatcher,
		gallery:      deps.Gallery,
		streams:      deps.Streams,
		metrics:      deps.Metrics,
		cameras:      make(map[string]*CameraLifecycle),
		stopChannel:  make(chan struct{}),
		watchdogDone: make(chan struct{}),
	}
	cm.matcher.Store(matcher.Build(nil, cfg.MatchThreshold))

	tc := cm.tracker.Config()
	log.Info().
		Dur("tick_interval", cfg.TickInterval).
		Int("max_cameras", cfg.MaxCameras).
		Float64("match_threshold", cfg.MatchThreshold).
		Int("confirm_threshold", tc.ConfirmThreshold).
		Dur("alert_cooldown", tc.Cooldown).
		Dur("tracker_ttl", tc.TTL).
		Msg("Camera manager initialized")

	go cm.runWatchdog()

	return cm, nil
}

// StartCamera starts the detection loop of a camera. Starting a running camera changes nothing
// and returns its current status.
func (cm *CameraManager) StartCamera(req *models.CameraRequest) (*models.CameraResponse, error) {
	if req == nil || req.CameraID == "" {
		return nil, ErrMissingCameraID
	}

	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	lifecycle, exists := cm.cameras[req.CameraID]
	if exists {
		switch lifecycle.getState() {
		case StateRunning:
			log.Debug().Str("camera_id", req.CameraID).Msg("Camera already running")
			return cm.response(lifecycle), nil
		case StateStopping:
			return nil, fmt.Errorf("%w: %s", ErrCameraStopping, req.CameraID)
		}
	}

	if cm.cfg.MaxCameras > 0 && cm.runningLocked() >= cm.cfg.MaxCameras {
		return nil, fmt.Errorf("%w (%d)", ErrTooManyCameras, cm.cfg.MaxCameras)
	}

	if exists {
		lifecycle.mu.Lock()
		lifecycle.camera.Name = req.Name
		lifecycle.camera.URL = req.URL
		lifecycle.mu.Unlock()
	} else {
		lifecycle = NewCameraLifecycle(&models.Camera{
			ID:        req.CameraID,
			Name:      req.Name,
			URL:       req.URL,
			CreatedAt: time.Now(),
		}, cm)
		cm.cameras[req.CameraID] = lifecycle
	}

	if err := lifecycle.Start(); err != nil {
		return nil, fmt.Errorf("failed to start camera %s: %w", req.CameraID, err)
	}
	cm.metrics.SetActiveCameras(cm.runningLocked())

	return cm.response(lifecycle), nil
}

// StopCamera stops a camera's detection loop. Unknown and already stopped cameras are not an error.
func (cm *CameraManager) StopCamera(cameraID string) error {
	cm.mutex.RLock()
	lifecycle, exists := cm.cameras[cameraID]
	cm.mutex.RUnlock()

	if !exists {
		log.Debug().Str("camera_id", cameraID).Msg("Stop requested for unknown camera")
		return nil
	}

	if err := lifecycle.Stop(); err != nil {
		return fmt.Errorf("failed to stop camera %s: %w", cameraID, err)
	}

	cm.mutex.RLock()
	cm.metrics.SetActiveCameras(cm.runningLocked())
	cm.mutex.RUnlock()
	return nil
}

// SubmitFrame stores an uploaded JPEG as the camera's latest frame. Display dimensions of zero
// mean boxes are reported in frame pixels.
func (cm *CameraManager) SubmitFrame(cameraID string, data []byte, displayWidth, displayHeight int) error {
	cm.mutex.RLock()
	_, exists := cm.cameras[cameraID]
	cm.mutex.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrCameraNotFound, cameraID)
	}

	w, h, err := helpers.ImageSize(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if displayWidth < 0 || displayHeight < 0 {
		return fmt.Errorf("%w: negative display size", ErrInvalidFrame)
	}

	cm.frames.Put(&models.Frame{
		CameraID:      cameraID,
		Data:          data,
		Width:         w,
		Height:        h,
		DisplayWidth:  displayWidth,
		DisplayHeight: displayHeight,
		Timestamp:     time.Now(),
	})
	return nil
}

// ReloadGallery rebuilds the matcher from the gallery and swaps it in for subsequent ticks.
func (cm *CameraManager) ReloadGallery(ctx context.Context) (int, error) {
	if cm.gallery == nil {
		return 0, fmt.Errorf("no gallery configured")
	}

	identities, err := cm.gallery.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load gallery: %w", err)
	}

	m := matcher.Build(identities, cm.cfg.MatchThreshold)
	cm.matcher.Store(m)
	cm.metrics.SetGallerySize(m.Size())

	log.Info().
		Int("identities", m.Size()).
		Strs("labels", m.Labels()).
		Msg("Matcher rebuilt from gallery")

	return m.Size(), nil
}

// Matcher returns the matcher used by new ticks.
func (cm *CameraManager) Matcher() *matcher.Matcher {
	return cm.matcher.Load()
}

// GallerySize is the number of identities the active matcher knows.
func (cm *CameraManager) GallerySize() int {
	return cm.matcher.Load().Size()
}

func (cm *CameraManager) GetCamera(cameraID string) (*models.CameraResponse, error) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	lifecycle, exists := cm.cameras[cameraID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, cameraID)
	}
	return cm.response(lifecycle), nil
}

// ListCameras returns all known cameras ordered by id.
func (cm *CameraManager) ListCameras() []*models.CameraResponse {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	cameras := make([]*models.CameraResponse, 0, len(cm.cameras))
	for _, lifecycle := range cm.cameras {
		cameras = append(cameras, cm.response(lifecycle))
	}
	sort.Slice(cameras, func(i, j int) bool { return cameras[i].CameraID < cameras[j].CameraID })
	return cameras
}

// GetStats returns the number of running cameras and the total known.
func (cm *CameraManager) GetStats() (int, int) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return cm.runningLocked(), len(cm.cameras)
}

// Shutdown stops every camera and the watchdog.
func (cm *CameraManager) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down camera manager")

	cm.mutex.RLock()
	lifecycles := make([]*CameraLifecycle, 0, len(cm.cameras))
	for _, lifecycle := range cm.cameras {
		lifecycles = append(lifecycles, lifecycle)
	}
	cm.mutex.RUnlock()

	var wg sync.WaitGroup
	for _, lifecycle := range lifecycles {
		wg.Add(1)
		go func(cl *CameraLifecycle) {
			defer wg.Done()
			if err := cl.Stop(); err != nil {
				log.Error().Err(err).Str("camera_id", cl.camera.ID).Msg("Failed to stop camera during shutdown")
			}
		}(lifecycle)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	cm.shutdownOnce.Do(func() { close(cm.stopChannel) })

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("camera manager shutdown: %w", ctx.Err())
	}

	select {
	case <-cm.watchdogDone:
	case <-ctx.Done():
		return fmt.Errorf("camera manager shutdown: %w", ctx.Err())
	}

	cm.metrics.SetActiveCameras(0)
	return nil
}

func (cm *CameraManager) response(lifecycle *CameraLifecycle) *models.CameraResponse {
	resp := lifecycle.snapshot()
	resp.TrackedBuckets = len(cm.tracker.Entries(resp.CameraID))
	return &resp
}

// runningLocked counts running loops. Callers hold cm.mutex.
func (cm *CameraManager) runningLocked() int {
	running := 0
	for _, lifecycle := range cm.cameras {
		if lifecycle.getState() == StateRunning {
			running++
		}
	}
	return running
}

// runWatchdog sweeps expired tracker entries of every camera, including stopped ones.
func (cm *CameraManager) runWatchdog() {
	defer close(cm.watchdogDone)

	interval := cm.tracker.Config().TTL
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-cm.stopChannel:
			return
		case now := <-ticker.C:
			if removed := cm.tracker.Sweep(now); removed > 0 {
				log.Debug().Int("removed", removed).Msg("Expired tracker entries swept")
			}
		}
	}
}
