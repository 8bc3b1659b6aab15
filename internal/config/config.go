package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Storage
	// DBDriver is "sqlite" or "mysql"
	DBDriver string
	DBDSN    string

	// Face detection model (gRPC)
	DetectorGRPCURL string
	DetectTimeout   time.Duration

	// Detection loop
	TickInterval   time.Duration
	MaxCameras     int
	StopTimeout    time.Duration
	PersistTimeout time.Duration

	// Recognition and debounce
	MatchThreshold        float64
	ConfirmationThreshold int
	AlertCooldown         time.Duration
	TrackerTTL            time.Duration
	BucketCellSize        float64

	// Frame capture (OpenCV)
	CaptureFPS          int
	CaptureJPEGQuality  int
	OutputWidth         int
	OutputHeight        int
	ReconnectBackoffMin time.Duration
	ReconnectBackoffMax time.Duration

	// Snapshots
	SnapshotQuality int
	PreviewMaxSize  int

	// Email (SMTP)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	EmailTimeout time.Duration

	// Extra push channels (shoutrrr URLs, comma separated)
	PushURLs    []string
	PushTimeout time.Duration

	// NATS (intrusion events)
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	IntrusionSubject   string

	// MQTT (intrusion events)
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string

	// Settings / logs
	SettingsCacheTTL   time.Duration
	LogPageSizeDefault int
	LogPageSizeMax     int
	DefaultAlertEmail  string

	// Swagger Configuration
	SwaggerHost string
	SwaggerPort int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "worker-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "intrusion.db"),

		DetectorGRPCURL: getEnv("DETECTOR_GRPC_URL", "localhost:50052"),
		DetectTimeout:   getEnvDuration("DETECT_TIMEOUT", 2*time.Second),

		TickInterval:   getEnvDuration("TICK_INTERVAL", 500*time.Millisecond),
		MaxCameras:     getEnvInt("MAX_CAMERAS", 16),
		StopTimeout:    getEnvDuration("STOP_TIMEOUT", 5*time.Second),
		PersistTimeout: getEnvDuration("PERSIST_TIMEOUT", 5*time.Second),

		MatchThreshold:        getEnvFloat("MATCH_THRESHOLD", 0.55),
		ConfirmationThreshold: getEnvInt("CONFIRMATION_THRESHOLD", 2),
		AlertCooldown:         getEnvDuration("ALERT_COOLDOWN", 30*time.Second),
		TrackerTTL:            getEnvDuration("TRACKER_TTL", 60*time.Second),
		BucketCellSize:        getEnvFloat("BUCKET_CELL_SIZE", 20),

		CaptureFPS:          getEnvInt("CAPTURE_FPS", 5),
		CaptureJPEGQuality:  getEnvInt("CAPTURE_JPEG_QUALITY", 85),
		OutputWidth:         getEnvInt("OUTPUT_WIDTH", 1280),
		OutputHeight:        getEnvInt("OUTPUT_HEIGHT", 720),
		ReconnectBackoffMin: getEnvDuration("RECONNECT_BACKOFF_MIN", 1*time.Second),
		ReconnectBackoffMax: getEnvDuration("RECONNECT_BACKOFF_MAX", 30*time.Second),

		SnapshotQuality: getEnvInt("SNAPSHOT_QUALITY", 95),
		PreviewMaxSize:  getEnvInt("PREVIEW_MAX_SIZE", 160),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		EmailTimeout: getEnvDuration("EMAIL_TIMEOUT", 15*time.Second),

		PushURLs:    getEnvList("PUSH_URLS"),
		PushTimeout: getEnvDuration("PUSH_TIMEOUT", 10*time.Second),

		NatsURL:            getEnv("NATS_URL", ""),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		IntrusionSubject:   getEnv("INTRUSION_SUBJECT", "intrusions"),

		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "intrusion-worker"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),
		MQTTTopic:    getEnv("MQTT_TOPIC", "/intrusion-alert"),

		SettingsCacheTTL:   getEnvDuration("SETTINGS_CACHE_TTL", 2*time.Second),
		LogPageSizeDefault: getEnvInt("LOG_PAGE_SIZE_DEFAULT", 10),
		LogPageSizeMax:     getEnvInt("LOG_PAGE_SIZE_MAX", 100),
		DefaultAlertEmail:  getEnv("ALERT_RECIPIENT_EMAIL", ""),

		SwaggerHost: getEnv("SWAGGER_HOST", "localhost"),
		SwaggerPort: getEnvInt("SWAGGER_PORT", 8000),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
