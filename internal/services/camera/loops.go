package camera

import (
	"context"
	"image"
	"time"

	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/helpers"
	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/services/tracker"
)

// processTick reads the latest frame, detects and classifies faces, feeds the tracker and
// dispatches confirmed alerts. It runs on the camera's loop goroutine only. Once ctx is
// cancelled the tick returns without touching the overlay, the tracker or the dispatcher.
func (cl *CameraLifecycle) processTick(ctx context.Context, now time.Time) models.TickResult {
	var result models.TickResult
	cameraID := cl.camera.ID

	cl.mu.Lock()
	cl.camera.TickCount++
	cl.camera.LastTickTime = now
	cl.mu.Unlock()
	cl.cm.metrics.RecordTick(cameraID)

	frame, ok := cl.cm.frames.Latest(cameraID)
	if !ok || frame == nil || len(frame.Data) == 0 {
		return result
	}

	displayW, displayH := frame.DisplaySize()
	cl.updateDisplaySize(displayW, displayH)

	detectCtx, cancel := context.WithTimeout(ctx, cl.cm.cfg.DetectTimeout)
	detectStart := time.Now()
	detections, err := cl.cm.detector.Detect(detectCtx, frame)
	cancel()
	detectTime := time.Since(detectStart)
	cl.cm.metrics.ObserveDetectLatency(cameraID, detectTime)

	if ctx.Err() != nil {
		return result
	}
	if err != nil {
		cl.recordError("detect", err.Error())
		result.Errors = append(result.Errors, "detect: "+err.Error())
		return result
	}

	sx, sy := 1.0, 1.0
	if frame.Width > 0 && frame.Height > 0 {
		sx = float64(displayW) / float64(frame.Width)
		sy = float64(displayH) / float64(frame.Height)
	}

	m := cl.cm.matcher.Load()
	overlay := make([]models.ClassifiedDetection, 0, len(detections))
	var obs tracker.Observation

	for _, det := range detections {
		box := det.Box.Scale(sx, sy)
		if !box.Valid() {
			continue
		}
		result.TotalDetections++

		if !det.HasEmbedding() {
			result.Unclassified++
			overlay = append(overlay, models.ClassifiedDetection{
				Box:   box,
				Score: det.Score,
				Label: models.UnclassifiedLabel,
			})
			continue
		}

		match := m.BestMatch(det.Embedding)
		overlay = append(overlay, models.ClassifiedDetection{
			Box:      box,
			Score:    det.Score,
			Label:    match.Label,
			Distance: match.Distance,
		})

		if match.Known() {
			result.Known++
			obs.Known = append(obs.Known, box)
		} else {
			result.Unknown++
			obs.Unknown = append(obs.Unknown, box)
		}
	}

	cl.cm.metrics.RecordDetections(cameraID, "known", result.Known)
	cl.cm.metrics.RecordDetections(cameraID, "unknown", result.Unknown)
	cl.cm.metrics.RecordDetections(cameraID, "unclassified", result.Unclassified)

	alerts := cl.cm.tracker.Observe(cameraID, now, obs, cl.snapshotFunc(frame, sx, sy))
	for _, alert := range alerts {
		if err := cl.dispatch(alert); err != nil {
			result.Errors = append(result.Errors, "dispatch: "+err.Error())
			continue
		}
		result.AlertsCreated++
	}

	cl.mu.Lock()
	cl.camera.Overlay = overlay
	cl.camera.LastDetectTime = detectTime
	cl.mu.Unlock()

	if result.TotalDetections > 0 {
		log.Debug().
			Str("camera_id", cameraID).
			Int("faces", result.TotalDetections).
			Int("known", result.Known).
			Int("unknown", result.Unknown).
			Int("unclassified", result.Unclassified).
			Int("alerts", result.AlertsCreated).
			Dur("detect_time", detectTime).
			Msg("Detection tick")
	}

	return result
}

func (cl *CameraLifecycle) updateDisplaySize(w, h int) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.camera.DisplayWidth == w && cl.camera.DisplayHeight == h {
		return
	}
	cl.camera.DisplayWidth = w
	cl.camera.DisplayHeight = h
	log.Debug().
		Str("camera_id", cl.camera.ID).
		Int("width", w).
		Int("height", h).
		Msg("Display size changed")
}

// snapshotFunc crops a display-space box out of the frame. The frame is decoded at most once
// per tick and only when the tracker actually needs a snapshot.
func (cl *CameraLifecycle) snapshotFunc(frame *models.Frame, sx, sy float64) tracker.SnapshotFunc {
	var decoded image.Image
	return func(box models.BoundingBox) (string, error) {
		if decoded == nil {
			img, err := helpers.DecodeImage(frame.Data)
			if err != nil {
				return "", err
			}
			decoded = img
		}
		return helpers.CropToDataURI(decoded, box.Scale(1/sx, 1/sy), cl.cm.cfg.SnapshotQuality)
	}
}

// dispatch hands a confirmed alert to the dispatcher. The tracker has already marked the
// bucket alerted, so a failure here is logged and not retried.
func (cl *CameraLifecycle) dispatch(alert tracker.Alert) error {
	name := cl.camera.Name
	if name == "" {
		name = cl.camera.ID
	}

	ctx, cancel := context.WithTimeout(context.Background(), cl.cm.cfg.PersistTimeout)
	defer cancel()

	entry, err := cl.cm.dispatcher.DispatchFor(ctx, cl.camera.ID, alert.Snapshot, name)
	if err != nil {
		cl.recordError("dispatch", err.Error())
		log.Error().
			Err(err).
			Str("camera_id", cl.camera.ID).
			Str("bucket", alert.Key.String()).
			Msg("Failed to dispatch intrusion alert")
		return err
	}

	cl.mu.Lock()
	cl.camera.AlertCount++
	cl.mu.Unlock()

	log.Info().
		Str("camera_id", cl.camera.ID).
		Str("log_id", entry.ID).
		Str("bucket", alert.Key.String()).
		Str("box", alert.Box.String()).
		Int("count", alert.Count).
		Msg("Unknown face confirmed")

	return nil
}
