package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/metrics"
	"intrusion-worker-go/internal/services/camera"
	"intrusion-worker-go/internal/services/detection"
	"intrusion-worker-go/internal/services/framestore"
	"intrusion-worker-go/internal/services/messaging"
	"intrusion-worker-go/internal/services/notification"
	"intrusion-worker-go/internal/services/postprocessing"
	"intrusion-worker-go/internal/services/settings"
	"intrusion-worker-go/internal/services/streamcapture"
	"intrusion-worker-go/internal/services/tracker"
	"intrusion-worker-go/internal/storage"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config *config.Config

	DB       *gorm.DB
	Gallery  *storage.GalleryStore
	Logs     *storage.IntrusionLogStore
	Settings *settings.Service

	Registry *prometheus.Registry
	Metrics  *metrics.PipelineMetrics

	DetectionSvc  *detection.Service
	Frames        *framestore.Store
	Tracker       *tracker.Tracker
	Dispatcher    *postprocessing.Service
	CameraManager *camera.CameraManager

	Nats *messaging.Service
	MQTT *messaging.MQTTPublisher
}

// OpenStores opens the database and the stores on top of it. It is enough for read-only tools.
func OpenStores(cfg *config.Config) (*ServiceContainer, error) {
	db, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	settingsStore := storage.NewSettingsStore(db)
	return &ServiceContainer{
		Config:   cfg,
		DB:       db,
		Gallery:  storage.NewGalleryStore(db),
		Logs:     storage.NewIntrusionLogStore(db, cfg.LogPageSizeDefault, cfg.LogPageSizeMax),
		Settings: settings.NewService(settingsStore, cfg.SettingsCacheTTL, cfg.DefaultAlertEmail),
	}, nil
}

// NewServiceContainer creates every service of the worker and loads the gallery.
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	sc, err := OpenStores(cfg)
	if err != nil {
		return nil, err
	}

	if err := sc.init(cfg); err != nil {
		_ = sc.Shutdown(context.Background())
		return nil, err
	}
	return sc, nil
}

func (sc *ServiceContainer) init(cfg *config.Config) error {
	sc.Registry = prometheus.NewRegistry()
	sc.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.NewPipelineMetrics(sc.Registry)
	if err != nil {
		return err
	}
	sc.Metrics = m

	sc.DetectionSvc, err = detection.NewService(cfg.DetectorGRPCURL)
	if err != nil {
		return fmt.Errorf("failed to create detector client: %w", err)
	}

	opts := postprocessing.Options{
		WorkerID:    cfg.WorkerID,
		Mailer:      notification.NewSMTPMailer(cfg),
		Recipients:  sc.Settings,
		Metrics:     sc.Metrics,
		SendTimeout: cfg.EmailTimeout,
	}

	push, err := notification.NewPushNotifier(cfg.PushURLs, cfg.PushTimeout)
	if err != nil {
		log.Warn().Err(err).Msg("Push notifications disabled")
	} else if push.Enabled() {
		opts.Push = push
	}

	if fanout := sc.connectEventBus(cfg); fanout.Len() > 0 {
		opts.Events = fanout
	}

	sc.Dispatcher, err = postprocessing.NewService(sc.Logs, opts)
	if err != nil {
		return err
	}

	sc.Frames = framestore.New()
	sc.Tracker = tracker.New(tracker.Config{
		ConfirmThreshold: cfg.ConfirmationThreshold,
		Cooldown:         cfg.AlertCooldown,
		TTL:              cfg.TrackerTTL,
		CellSize:         cfg.BucketCellSize,
	})

	sc.CameraManager, err = camera.NewCameraManager(cfg, camera.Dependencies{
		Detector:   sc.DetectionSvc,
		Frames:     sc.Frames,
		Tracker:    sc.Tracker,
		Dispatcher: sc.Dispatcher,
		Gallery:    sc.Gallery,
		Streams:    streamcapture.NewService(cfg, sc.Frames),
		Metrics:    sc.Metrics,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PersistTimeout)
	defer cancel()
	if _, err := sc.CameraManager.ReloadGallery(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to load gallery, everyone is unknown until it is reloaded")
	}

	return nil
}

// connectEventBus connects the optional NATS and MQTT transports. A transport that fails to
// connect is logged and left out.
func (sc *ServiceContainer) connectEventBus(cfg *config.Config) *messaging.Fanout {
	fanout := messaging.NewFanout()

	if cfg.NatsURL != "" {
		nc, err := messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("NATS unavailable, intrusion events will not be published there")
		} else {
			sc.Nats = nc
			fanout.Add("nats", nc, cfg.IntrusionSubject)
		}
	}

	if cfg.MQTTBroker != "" {
		mq, err := messaging.NewMQTTPublisher(cfg)
		if err != nil {
			log.Warn().Err(err).Str("broker", cfg.MQTTBroker).Msg("MQTT unavailable, intrusion events will not be published there")
		} else {
			sc.MQTT = mq
			fanout.Add("mqtt", mq, cfg.MQTTTopic)
		}
	}

	return fanout
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error

	if sc.CameraManager != nil {
		if err := sc.CameraManager.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.Dispatcher != nil {
		if err := sc.Dispatcher.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.DetectionSvc != nil {
		sc.DetectionSvc.Shutdown(ctx)
	}

	if sc.Nats != nil {
		if err := sc.Nats.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.MQTT != nil {
		if err := sc.MQTT.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.DB != nil {
		if err := storage.Close(sc.DB); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
