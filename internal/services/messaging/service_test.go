package messaging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrusion-worker-go/internal/models"
)

func TestIntrusionMsg(t *testing.T) {
	event := models.IntrusionEvent{
		LogID:      "log-42",
		CameraID:   "gate.north",
		CameraName: "North Gate",
		Timestamp:  time.Date(2026, 3, 1, 22, 15, 0, 0, time.UTC),
		WorkerID:   "worker-1",
	}

	msg, err := IntrusionMsg("intrusions", event)
	require.NoError(t, err)

	assert.Equal(t, "intrusions.gate_north", msg.Subject)
	assert.Equal(t, "log-42", msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, "gate.north", msg.Header.Get(HeaderCameraID))
	assert.Equal(t, "worker-1", msg.Header.Get(HeaderWorkerID))
	assert.Equal(t, "application/json", msg.Header.Get("Content-Type"))

	var decoded models.IntrusionEvent
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "North Gate", decoded.CameraName)
	assert.True(t, event.Timestamp.Equal(decoded.Timestamp))
}

func TestIntrusionMsgWithoutIDs(t *testing.T) {
	msg, err := IntrusionMsg("intrusions", models.IntrusionEvent{CameraName: "Lobby"})
	require.NoError(t, err)

	assert.Equal(t, "intrusions._", msg.Subject)
	assert.Empty(t, msg.Header.Get(nats.MsgIdHdr))
	assert.Empty(t, msg.Header.Get(HeaderWorkerID))
}

func TestSubjectToken(t *testing.T) {
	tests := map[string]string{
		"cam-1":       "cam-1",
		"front door":  "front_door",
		"a.b*c>d":     "a_b_c_d",
		"":            "_",
		"lobby\tleft": "lobby_left",
	}
	for in, want := range tests {
		assert.Equal(t, want, SubjectToken(in), in)
	}
}
