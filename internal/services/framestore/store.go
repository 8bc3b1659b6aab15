package framestore

import (
	"sync"
	"time"

	"intrusion-worker-go/internal/models"
)

// Store keeps only the most recent frame per camera. Writers overwrite, readers never block
// on writers and never see a queue of stale frames.
type Store struct {
	mu     sync.RWMutex
	frames map[string]*models.Frame
}

func New() *Store {
	return &Store{frames: make(map[string]*models.Frame)}
}

// Put replaces the camera's latest frame. A zero timestamp is set to now.
func (s *Store) Put(frame *models.Frame) {
	if frame == nil || frame.CameraID == "" {
		return
	}
	if frame.Timestamp.IsZero() {
		frame.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.frames[frame.CameraID] = frame
	s.mu.Unlock()
}

// Latest returns the camera's most recent frame. Frames are treated as immutable once stored.
func (s *Store) Latest(cameraID string) (*models.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.frames[cameraID]
	return f, ok
}

func (s *Store) Drop(cameraID string) {
	s.mu.Lock()
	delete(s.frames, cameraID)
	s.mu.Unlock()
}
