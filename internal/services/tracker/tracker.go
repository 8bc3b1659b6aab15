package tracker

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/models"
)

// Config controls debouncing of unknown faces into alerts.
type Config struct {
	// ConfirmThreshold is the number of consecutive ticks a bucket must be seen as unknown.
	ConfirmThreshold int
	// Cooldown is the minimum spacing between two alerts of the same camera.
	Cooldown time.Duration
	// TTL is how long an entry survives without being observed.
	TTL time.Duration
	// CellSize quantizes box coordinates into buckets, in display pixels.
	CellSize float64
}

func DefaultConfig() Config {
	return Config{
		ConfirmThreshold: 2,
		Cooldown:         30 * time.Second,
		TTL:              60 * time.Second,
		CellSize:         20,
	}
}

// BucketKey identifies a coarse spatial cell. Boxes whose coordinates round to the same cell
// are treated as the same person across ticks.
type BucketKey struct {
	X, Y, W, H int
}

func KeyFor(box models.BoundingBox, cellSize float64) BucketKey {
	if cellSize <= 0 {
		cellSize = 1
	}
	q := func(v float64) int { return int(math.Round(v / cellSize)) }
	return BucketKey{X: q(box.X), Y: q(box.Y), W: q(box.Width), H: q(box.Height)}
}

func (k BucketKey) String() string {
	return fmt.Sprintf("%d_%d_%d_%d", k.X, k.Y, k.W, k.H)
}

// Entry is the debounce state of one bucket.
type Entry struct {
	Key       BucketKey
	Box       models.BoundingBox
	Count     int
	FirstSeen time.Time
	LastSeen  time.Time
	Alerted   bool
	Snapshot  string
}

// Observation is what one tick saw on a camera, in display coordinates.
type Observation struct {
	Known   []models.BoundingBox
	Unknown []models.BoundingBox
}

// SnapshotFunc extracts the evidentiary image for a confirmed box.
type SnapshotFunc func(box models.BoundingBox) (string, error)

// Alert is a confirmed unknown face that passed the camera cooldown.
type Alert struct {
	CameraID    string
	Key         BucketKey
	Box         models.BoundingBox
	Snapshot    string
	Count       int
	FirstSeen   time.Time
	ConfirmedAt time.Time
}

type cameraState struct {
	mu        sync.Mutex
	entries   map[BucketKey]*Entry
	lastAlert time.Time
}

// Tracker holds per-camera bucket maps and cooldown timestamps.
type Tracker struct {
	cfg Config

	mu      sync.RWMutex
	cameras map[string]*cameraState
}

func New(cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.ConfirmThreshold < 1 {
		cfg.ConfirmThreshold = def.ConfirmThreshold
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if cfg.CellSize <= 0 {
		cfg.CellSize = def.CellSize
	}
	return &Tracker{
		cfg:     cfg,
		cameras: make(map[string]*cameraState),
	}
}

func (t *Tracker) Config() Config {
	return t.cfg
}

func (t *Tracker) camera(cameraID string) *cameraState {
	t.mu.RLock()
	cs, ok := t.cameras[cameraID]
	t.mu.RUnlock()
	if ok {
		return cs
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cs, ok = t.cameras[cameraID]; !ok {
		cs = &cameraState{entries: make(map[BucketKey]*Entry)}
		t.cameras[cameraID] = cs
	}
	return cs
}

// Observe applies one tick of observations for a camera and returns the alerts to dispatch.
// At most one alert is returned per camera per cooldown window.
func (t *Tracker) Observe(cameraID string, now time.Time, obs Observation, capture SnapshotFunc) []Alert {
	cs := t.camera(cameraID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	// Known faces clear their bucket; a stranger there must start over.
	for _, box := range obs.Known {
		delete(cs.entries, KeyFor(box, t.cfg.CellSize))
	}

	seen := make(map[BucketKey]bool, len(obs.Unknown))
	order := make([]BucketKey, 0, len(obs.Unknown))
	for _, box := range obs.Unknown {
		key := KeyFor(box, t.cfg.CellSize)
		if seen[key] {
			continue
		}
		seen[key] = true
		order = append(order, key)

		entry, ok := cs.entries[key]
		if !ok {
			entry = &Entry{Key: key, FirstSeen: now}
			cs.entries[key] = entry
		}
		entry.Box = box
		entry.Count++
		entry.LastSeen = now
	}

	for key, entry := range cs.entries {
		if seen[key] {
			continue
		}
		entry.Count = 0
		if now.Sub(entry.LastSeen) > t.cfg.TTL {
			delete(cs.entries, key)
		}
	}

	var alerts []Alert
	for _, key := range order {
		entry := cs.entries[key]
		if entry.Alerted || entry.Count < t.cfg.ConfirmThreshold {
			continue
		}

		if entry.Snapshot == "" && capture != nil {
			snap, err := capture(entry.Box)
			if err != nil {
				log.Warn().
					Err(err).
					Str("camera_id", cameraID).
					Str("bucket", key.String()).
					Msg("Snapshot capture failed, will retry next tick")
				continue
			}
			entry.Snapshot = snap
		}

		if !cs.lastAlert.IsZero() && now.Sub(cs.lastAlert) <= t.cfg.Cooldown {
			log.Debug().
				Str("camera_id", cameraID).
				Str("bucket", key.String()).
				Dur("since_last_alert", now.Sub(cs.lastAlert)).
				Msg("Confirmed unknown face blocked by cooldown")
			continue
		}

		entry.Alerted = true
		cs.lastAlert = now
		alerts = append(alerts, Alert{
			CameraID:    cameraID,
			Key:         key,
			Box:         entry.Box,
			Snapshot:    entry.Snapshot,
			Count:       entry.Count,
			FirstSeen:   entry.FirstSeen,
			ConfirmedAt: now,
		})
	}

	return alerts
}

// Sweep removes expired entries on every camera and returns how many were dropped.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.RLock()
	states := make([]*cameraState, 0, len(t.cameras))
	for _, cs := range t.cameras {
		states = append(states, cs)
	}
	t.mu.RUnlock()

	removed := 0
	for _, cs := range states {
		cs.mu.Lock()
		for key, entry := range cs.entries {
			if now.Sub(entry.LastSeen) > t.cfg.TTL {
				delete(cs.entries, key)
				removed++
			}
		}
		cs.mu.Unlock()
	}
	return removed
}

// Reset drops every bucket of a camera. The camera's cooldown is kept.
func (t *Tracker) Reset(cameraID string) {
	t.mu.RLock()
	cs, ok := t.cameras[cameraID]
	t.mu.RUnlock()
	if !ok {
		return
	}
	cs.mu.Lock()
	cs.entries = make(map[BucketKey]*Entry)
	cs.mu.Unlock()
}

// Entries returns a copy of a camera's current entries.
func (t *Tracker) Entries(cameraID string) []Entry {
	t.mu.RLock()
	cs, ok := t.cameras[cameraID]
	t.mu.RUnlock()
	if !ok {
		return nil
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]Entry, 0, len(cs.entries))
	for _, entry := range cs.entries {
		out = append(out, *entry)
	}
	return out
}

func (t *Tracker) LastAlert(cameraID string) time.Time {
	t.mu.RLock()
	cs, ok := t.cameras[cameraID]
	t.mu.RUnlock()
	if !ok {
		return time.Time{}
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.lastAlert
}
