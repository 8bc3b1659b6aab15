package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrusion-worker-go/internal/models"
)

type recordingPublisher struct {
	subjects []string
	payloads []interface{}
	err      error
}

func (r *recordingPublisher) Publish(subject string, data interface{}) error {
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, data)
	return r.err
}

func TestFanoutPublishesToEveryRoute(t *testing.T) {
	nats := &recordingPublisher{}
	mqtt := &recordingPublisher{err: errors.New("broker offline")}

	f := NewFanout().
		Add("nats", nats, "intrusions").
		Add("mqtt", mqtt, "/intrusion-alert").
		Add("disabled", nil, "ignored").
		Add("no-subject", &recordingPublisher{}, "")
	require.Equal(t, 2, f.Len())

	event := models.IntrusionEvent{LogID: "log-1", CameraName: "Front Door", Timestamp: time.Now()}
	err := f.PublishIntrusion(event)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt: broker offline")
	assert.Equal(t, []string{"intrusions"}, nats.subjects)
	assert.Equal(t, []string{"/intrusion-alert"}, mqtt.subjects)
	assert.Equal(t, event, nats.payloads[0])
}

func TestEmptyFanout(t *testing.T) {
	assert.NoError(t, NewFanout().PublishIntrusion(models.IntrusionEvent{}))
}
