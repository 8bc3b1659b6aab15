package tracker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrusion-worker-go/internal/models"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const tick = 500 * time.Millisecond

type captureCounter struct {
	calls int
	err   error
}

func (c *captureCounter) capture(box models.BoundingBox) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "data:image/jpeg;base64,snap" + box.String(), nil
}

func box(x, y float64) models.BoundingBox {
	return models.BoundingBox{X: x, Y: y, Width: 80, Height: 80}
}

func unknown(boxes ...models.BoundingBox) Observation {
	return Observation{Unknown: boxes}
}

func newTracker() *Tracker {
	return New(DefaultConfig())
}

func TestKeyFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b models.BoundingBox
		same bool
	}{
		{name: "identical", a: box(100, 100), b: box(100, 100), same: true},
		{name: "small jitter", a: box(100, 100), b: box(104, 97), same: true},
		{name: "crosses cell boundary", a: box(109, 100), b: box(111, 100), same: false},
		{name: "far apart", a: box(100, 100), b: box(400, 100), same: false},
		{name: "size change", a: box(100, 100), b: models.BoundingBox{X: 100, Y: 100, Width: 160, Height: 160}, same: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.same, KeyFor(tt.a, 20) == KeyFor(tt.b, 20))
		})
	}

	assert.Equal(t, "5_5_4_4", KeyFor(box(100, 100), 20).String())
}

func TestObserveRequiresConsecutiveTicks(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	snaps := &captureCounter{}

	alerts := tr.Observe("cam", t0, unknown(box(100, 100)), snaps.capture)
	assert.Empty(t, alerts, "a single sighting is not confirmed")

	alerts = tr.Observe("cam", t0.Add(tick), unknown(box(102, 99)), snaps.capture)
	require.Len(t, alerts, 1)
	assert.Equal(t, "cam", alerts[0].CameraID)
	assert.Equal(t, 2, alerts[0].Count)
	assert.Equal(t, t0, alerts[0].FirstSeen)
	assert.NotEmpty(t, alerts[0].Snapshot)
	assert.Equal(t, 1, snaps.calls)
}

func TestObserveMissResetsCount(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	snaps := &captureCounter{}

	assert.Empty(t, tr.Observe("cam", t0, unknown(box(100, 100)), snaps.capture))
	assert.Empty(t, tr.Observe("cam", t0.Add(tick), Observation{}, snaps.capture))

	entries := tr.Entries("cam")
	require.Len(t, entries, 1, "entry survives a miss within the TTL")
	assert.Equal(t, 0, entries[0].Count)

	assert.Empty(t, tr.Observe("cam", t0.Add(2*tick), unknown(box(100, 100)), snaps.capture))
	assert.Len(t, tr.Observe("cam", t0.Add(3*tick), unknown(box(100, 100)), snaps.capture), 1)
}

func TestObserveHigherThreshold(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ConfirmThreshold = 4
	tr := New(cfg)

	for i := 0; i < 3; i++ {
		assert.Empty(t, tr.Observe("cam", t0.Add(time.Duration(i)*tick), unknown(box(100, 100)), nil))
	}
	assert.Len(t, tr.Observe("cam", t0.Add(3*tick), unknown(box(100, 100)), nil), 1)
}

func TestObserveKnownClearsBucket(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	snaps := &captureCounter{}

	assert.Empty(t, tr.Observe("cam", t0, unknown(box(100, 100)), snaps.capture))
	assert.Empty(t, tr.Observe("cam", t0.Add(tick), Observation{Known: []models.BoundingBox{box(100, 100)}}, snaps.capture))
	assert.Empty(t, tr.Entries("cam"))

	assert.Empty(t, tr.Observe("cam", t0.Add(2*tick), unknown(box(100, 100)), snaps.capture), "count restarts at one")
	assert.Len(t, tr.Observe("cam", t0.Add(3*tick), unknown(box(100, 100)), snaps.capture), 1)
}

func TestObserveCooldownIsCameraWide(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	snaps := &captureCounter{}
	a, b := box(100, 100), box(400, 100)

	tr.Observe("cam", t0, unknown(a, b), snaps.capture)
	alerts := tr.Observe("cam", t0.Add(tick), unknown(a, b), snaps.capture)
	require.Len(t, alerts, 1, "two confirmed buckets in one window yield one alert")
	assert.Equal(t, KeyFor(a, 20), alerts[0].Key)
	assert.Equal(t, 2, snaps.calls, "both confirmed entries capture a snapshot once")

	// Exactly at the cooldown boundary is still inside the window.
	at := t0.Add(tick).Add(30 * time.Second)
	assert.Empty(t, tr.Observe("cam", at, unknown(a, b), snaps.capture))

	alerts = tr.Observe("cam", at.Add(time.Millisecond), unknown(a, b), snaps.capture)
	require.Len(t, alerts, 1)
	assert.Equal(t, KeyFor(b, 20), alerts[0].Key)
	assert.Equal(t, 2, snaps.calls, "cached snapshot is reused")

	// Other cameras are independent.
	tr.Observe("other", t0, unknown(a), nil)
	assert.Len(t, tr.Observe("other", t0.Add(tick), unknown(a), nil), 1)
}

func TestObserveAlertedEntryDoesNotRealert(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	now := t0
	tr.Observe("cam", now, unknown(box(100, 100)), nil)
	now = now.Add(tick)
	require.Len(t, tr.Observe("cam", now, unknown(box(100, 100)), nil), 1)

	for i := 0; i < 100; i++ {
		now = now.Add(tick)
		assert.Empty(t, tr.Observe("cam", now, unknown(box(100, 100)), nil))
	}

	// A miss resets the count but not the alerted flag.
	now = now.Add(tick)
	tr.Observe("cam", now, Observation{}, nil)
	for i := 0; i < 3; i++ {
		now = now.Add(tick)
		assert.Empty(t, tr.Observe("cam", now, unknown(box(100, 100)), nil))
	}
}

func TestObserveTTLExpiry(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	tr.Observe("cam", t0, unknown(box(100, 100)), nil)
	require.Len(t, tr.Observe("cam", t0.Add(tick), unknown(box(100, 100)), nil), 1)

	tr.Observe("cam", t0.Add(tick+60*time.Second), Observation{}, nil)
	assert.Len(t, tr.Entries("cam"), 1, "exactly TTL old is kept")

	tr.Observe("cam", t0.Add(tick+61*time.Second), Observation{}, nil)
	assert.Empty(t, tr.Entries("cam"))

	// The same bucket is fresh again and may alert once the cooldown has passed.
	later := t0.Add(2 * time.Minute)
	tr.Observe("cam", later, unknown(box(100, 100)), nil)
	assert.Len(t, tr.Observe("cam", later.Add(tick), unknown(box(100, 100)), nil), 1)
}

func TestObserveSnapshotFailureRetries(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	snaps := &captureCounter{err: errors.New("decode failed")}

	tr.Observe("cam", t0, unknown(box(100, 100)), snaps.capture)
	assert.Empty(t, tr.Observe("cam", t0.Add(tick), unknown(box(100, 100)), snaps.capture))
	assert.True(t, tr.LastAlert("cam").IsZero())

	snaps.err = nil
	alerts := tr.Observe("cam", t0.Add(2*tick), unknown(box(100, 100)), snaps.capture)
	require.Len(t, alerts, 1)
	assert.Equal(t, 2, snaps.calls)
}

func TestSweep(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	tr.Observe("a", t0, unknown(box(100, 100)), nil)
	tr.Observe("b", t0.Add(30*time.Second), unknown(box(100, 100)), nil)

	assert.Equal(t, 1, tr.Sweep(t0.Add(61*time.Second)))
	assert.Empty(t, tr.Entries("a"))
	assert.Len(t, tr.Entries("b"), 1)
}

func TestResetKeepsCooldown(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	tr.Observe("cam", t0, unknown(box(100, 100)), nil)
	require.Len(t, tr.Observe("cam", t0.Add(tick), unknown(box(100, 100)), nil), 1)

	tr.Reset("cam")
	assert.Empty(t, tr.Entries("cam"))
	assert.Equal(t, t0.Add(tick), tr.LastAlert("cam"))

	tr.Observe("cam", t0.Add(2*tick), unknown(box(300, 300)), nil)
	assert.Empty(t, tr.Observe("cam", t0.Add(3*tick), unknown(box(300, 300)), nil))

	tr.Reset("missing")
}
