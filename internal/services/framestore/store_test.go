package framestore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrusion-worker-go/internal/models"
)

func TestStoreKeepsLatest(t *testing.T) {
	s := New()

	_, ok := s.Latest("cam")
	assert.False(t, ok)

	s.Put(&models.Frame{CameraID: "cam", Width: 1})
	s.Put(&models.Frame{CameraID: "cam", Width: 2})
	s.Put(&models.Frame{Width: 3})
	s.Put(nil)

	f, ok := s.Latest("cam")
	require.True(t, ok)
	assert.Equal(t, 2, f.Width)
	assert.False(t, f.Timestamp.IsZero())

	s.Drop("cam")
	_, ok = s.Latest("cam")
	assert.False(t, ok)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Put(&models.Frame{CameraID: "cam", Width: i*100 + j})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Latest("cam")
			}
		}()
	}
	wg.Wait()

	_, ok := s.Latest("cam")
	assert.True(t, ok)
}
