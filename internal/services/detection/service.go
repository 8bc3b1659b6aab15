package detection

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"intrusion-worker-go/internal/models"
)

const (
	// ServiceName is the gRPC service exposed by the face model server.
	ServiceName  = "facewatch.v1.FaceDetector"
	DetectMethod = "/" + ServiceName + "/Detect"
)

// Detector finds faces (and their embeddings) in a frame.
type Detector interface {
	Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error)
}

// Service is a gRPC client for the face model server. Requests and responses are
// google.protobuf.Struct messages:
//
//	request:  {camera_id, image (base64 JPEG), width, height, with_embeddings}
//	response: {faces: [{x, y, width, height, score, embedding: [128]number}]}
type Service struct {
	endpoint    string
	dialOptions []grpc.DialOption

	mu        sync.RWMutex
	conn      *grpc.ClientConn
	isHealthy bool

	// Retry management
	lastFailTime     time.Time
	consecutiveFails int
	maxRetryBackoff  time.Duration
}

func NewService(endpoint string, opts ...grpc.DialOption) (*Service, error) {
	log.Info().Str("url", endpoint).Msg("Initializing face detection service")

	s := &Service{
		endpoint:        endpoint,
		dialOptions:     opts,
		maxRetryBackoff: 30 * time.Second,
	}

	// Try to connect, but don't fail if the model server is not up yet
	if err := s.connect(); err != nil {
		log.Warn().Err(err).Msg("Face detection service not available, will retry later")
	}

	return s, nil
}

func (s *Service) connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}

	target, creds, err := parseEndpoint(s.endpoint)
	if err != nil {
		return err
	}

	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, s.dialOptions...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to detection service: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName}); err != nil {
		_ = conn.Close()
		s.isHealthy = false
		return fmt.Errorf("detection service health check failed: %w", err)
	}

	s.conn = conn
	s.isHealthy = true
	s.consecutiveFails = 0

	log.Info().Str("target", target).Msg("Successfully connected to face detection service")
	return nil
}

func (s *Service) ensureConnection() (*grpc.ClientConn, error) {
	s.mu.RLock()
	conn, healthy := s.conn, s.isHealthy
	s.mu.RUnlock()
	if healthy && conn != nil {
		return conn, nil
	}

	if !s.shouldRetry() {
		return nil, fmt.Errorf("in backoff period after consecutive failures")
	}
	if err := s.connect(); err != nil {
		s.recordFailure()
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn, nil
}

// Detect sends one frame to the model server and returns the faces found, in frame pixels.
func (s *Service) Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	if frame == nil || len(frame.Data) == 0 {
		return nil, fmt.Errorf("no frame data")
	}

	conn, err := s.ensureConnection()
	if err != nil {
		return nil, fmt.Errorf("detection service unavailable: %w", err)
	}

	req, err := structpb.NewStruct(map[string]interface{}{
		"camera_id":       frame.CameraID,
		"image":           base64.StdEncoding.EncodeToString(frame.Data),
		"width":           frame.Width,
		"height":          frame.Height,
		"with_embeddings": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build detect request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, DetectMethod, req, resp); err != nil {
		s.mu.Lock()
		s.isHealthy = false
		s.mu.Unlock()
		return nil, fmt.Errorf("detect call failed: %w", err)
	}

	detections := ParseDetections(resp)
	log.Debug().
		Str("camera_id", frame.CameraID).
		Int("faces", len(detections)).
		Msg("Detection response")
	return detections, nil
}

// ParseDetections converts a detect response into detections. Faces with an invalid box are
// dropped; a malformed embedding is dropped but the face is kept.
func ParseDetections(resp *structpb.Struct) []models.Detection {
	faces := resp.GetFields()["faces"].GetListValue().GetValues()
	out := make([]models.Detection, 0, len(faces))

	for _, v := range faces {
		face := v.GetStructValue().GetFields()
		if face == nil {
			continue
		}
		det := models.Detection{
			Box: models.BoundingBox{
				X:      face["x"].GetNumberValue(),
				Y:      face["y"].GetNumberValue(),
				Width:  face["width"].GetNumberValue(),
				Height: face["height"].GetNumberValue(),
			},
			Score: face["score"].GetNumberValue(),
		}
		if !det.Box.Valid() {
			continue
		}

		det.Embedding = parseEmbedding(face["embedding"])
		out = append(out, det)
	}
	return out
}

// parseEmbedding returns nil unless v is a list of exactly EmbeddingSize finite numbers.
func parseEmbedding(v *structpb.Value) []float64 {
	values := v.GetListValue().GetValues()
	if len(values) != models.EmbeddingSize {
		return nil
	}
	emb := make([]float64, len(values))
	for i, n := range values {
		num, ok := n.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil
		}
		emb[i] = num.NumberValue
	}
	if !models.ValidEmbedding(emb) {
		return nil
	}
	return emb
}

func (s *Service) HealthCheck(ctx context.Context) error {
	conn, err := s.ensureConnection()
	if err != nil {
		return err
	}

	_, err = healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		s.mu.Lock()
		s.isHealthy = false
		s.mu.Unlock()
	}
	return err
}

func (s *Service) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isHealthy
}

// shouldRetry applies exponential backoff between reconnects: 1s, 2s, 4s ... capped.
func (s *Service) shouldRetry() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.consecutiveFails == 0 {
		return true
	}

	backoff := time.Duration(1<<uint(min(s.consecutiveFails-1, 10))) * time.Second
	if backoff > s.maxRetryBackoff {
		backoff = s.maxRetryBackoff
	}
	return time.Since(s.lastFailTime) >= backoff
}

func (s *Service) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consecutiveFails++
	s.lastFailTime = time.Now()

	if s.consecutiveFails <= 5 {
		log.Warn().
			Int("consecutive_fails", s.consecutiveFails).
			Msg("Detection service connection failure recorded")
	}
}

func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.isHealthy = false
}
