package detection

import (
	"context"
	"encoding/base64"
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"intrusion-worker-go/internal/models"
)

type detectFunc func(req *structpb.Struct) (*structpb.Struct, error)

func startFakeModelServer(t *testing.T, fn detectFunc) *Service {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	srv.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Detect",
			Handler: func(_ interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				req := &structpb.Struct{}
				if err := dec(req); err != nil {
					return nil, err
				}
				return fn(req)
			},
		}},
	}, struct{}{})

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	svc, err := NewService("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })
	return svc
}

func embeddingValues(fill float64) []interface{} {
	out := make([]interface{}, models.EmbeddingSize)
	for i := range out {
		out[i] = fill
	}
	return out
}

func TestDetect(t *testing.T) {
	var got *structpb.Struct
	svc := startFakeModelServer(t, func(req *structpb.Struct) (*structpb.Struct, error) {
		got = req
		return structpb.NewStruct(map[string]interface{}{
			"faces": []interface{}{
				map[string]interface{}{"x": 10.0, "y": 20.0, "width": 50.0, "height": 60.0, "score": 0.98, "embedding": embeddingValues(0.25)},
				map[string]interface{}{"x": 200.0, "y": 20.0, "width": 40.0, "height": 40.0, "score": 0.7},
				map[string]interface{}{"x": 1.0, "y": 1.0, "width": 0.0, "height": 10.0},
			},
		})
	})
	require.True(t, svc.IsHealthy())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frame := &models.Frame{CameraID: "cam-1", Data: []byte{0xFF, 0xD8, 0x01}, Width: 640, Height: 480}
	detections, err := svc.Detect(ctx, frame)
	require.NoError(t, err)

	require.Len(t, detections, 2, "zero-size boxes are dropped")
	assert.Equal(t, models.BoundingBox{X: 10, Y: 20, Width: 50, Height: 60}, detections[0].Box)
	assert.InDelta(t, 0.98, detections[0].Score, 1e-9)
	assert.True(t, detections[0].HasEmbedding())
	assert.False(t, detections[1].HasEmbedding())

	require.NotNil(t, got)
	assert.Equal(t, "cam-1", got.Fields["camera_id"].GetStringValue())
	assert.Equal(t, base64.StdEncoding.EncodeToString(frame.Data), got.Fields["image"].GetStringValue())
	assert.Equal(t, 640.0, got.Fields["width"].GetNumberValue())
}

func TestDetectRejectsEmptyFrame(t *testing.T) {
	svc := startFakeModelServer(t, func(*structpb.Struct) (*structpb.Struct, error) {
		return &structpb.Struct{}, nil
	})

	_, err := svc.Detect(context.Background(), &models.Frame{CameraID: "cam-1"})
	assert.Error(t, err)
}

func TestParseDetectionsDropsMalformedEmbedding(t *testing.T) {
	resp, err := structpb.NewStruct(map[string]interface{}{
		"faces": []interface{}{
			map[string]interface{}{"x": 1.0, "y": 2.0, "width": 3.0, "height": 4.0, "embedding": []interface{}{0.1, 0.2}},
		},
	})
	require.NoError(t, err)

	detections := ParseDetections(resp)
	require.Len(t, detections, 1)
	assert.Nil(t, detections[0].Embedding)

	assert.Empty(t, ParseDetections(&structpb.Struct{}))
}

func TestParseDetectionsRejectsNonFiniteOrNonNumericEmbedding(t *testing.T) {
	withString := embeddingValues(0.1)
	withString[5] = "0.3"

	resp, err := structpb.NewStruct(map[string]interface{}{
		"faces": []interface{}{
			map[string]interface{}{"x": 1.0, "y": 2.0, "width": 30.0, "height": 40.0, "embedding": withString},
			map[string]interface{}{"x": 50.0, "y": 2.0, "width": 30.0, "height": 40.0, "embedding": embeddingValues(0.1)},
		},
	})
	require.NoError(t, err)

	nanValues := resp.Fields["faces"].GetListValue().Values[1].GetStructValue().Fields["embedding"].GetListValue().Values
	nanValues[7] = structpb.NewNumberValue(math.NaN())

	detections := ParseDetections(resp)
	require.Len(t, detections, 2, "the faces are kept")
	for _, det := range detections {
		assert.Nil(t, det.Embedding)
		assert.False(t, det.HasEmbedding())
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		target   string
		tls      bool
		wantErr  bool
	}{
		{endpoint: "localhost:50052", target: "localhost:50052"},
		{endpoint: "models.example.com:443", target: "models.example.com:443", tls: true},
		{endpoint: "models.example.com", target: "models.example.com:443", tls: true},
		{endpoint: "http://10.0.0.2", target: "10.0.0.2:80"},
		{endpoint: "passthrough:///bufnet", target: "passthrough:///bufnet"},
		{endpoint: "ftp://x:21", wantErr: true},
		{endpoint: " ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			target, creds, err := parseEndpoint(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, target)
			assert.Equal(t, tt.tls, creds.Info().SecurityProtocol == "tls")
		})
	}
}
