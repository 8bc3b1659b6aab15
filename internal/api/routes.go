package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	if s.registry != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		})))
	}

	cameras := s.router.Group("/cameras")
	{
		cameras.GET("", s.cameraHandler.ListCameras)
		cameras.POST("", s.cameraHandler.StartCamera)
		cameras.GET("/:id", s.cameraHandler.GetCamera)
		cameras.DELETE("/:id", s.cameraHandler.StopCamera)
		cameras.PUT("/:id/frame", s.cameraHandler.SubmitFrame)
	}

	knownFaces := s.router.Group("/known-faces")
	{
		knownFaces.GET("", s.galleryHandler.ListKnownFaces)
		knownFaces.POST("", s.galleryHandler.UpsertKnownFace)
		knownFaces.DELETE("/:id", s.galleryHandler.DeleteKnownFace)
	}

	logs := s.router.Group("/intrusion-logs")
	{
		logs.GET("", s.logsHandler.ListIntrusionLogs)
		logs.POST("", s.logsHandler.CreateIntrusionLog)
	}

	settings := s.router.Group("/settings")
	{
		settings.GET("/alert-email", s.settingsHandler.GetAlertEmail)
		settings.PUT("/alert-email", s.settingsHandler.SetAlertEmail)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}
