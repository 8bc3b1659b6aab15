package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"intrusion-worker-go/internal/api"
	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/logging"
)

// @title Intrusion Worker API
// @version 1.0.0
// @description Unknown-face intrusion detection worker: camera detection loops, known-face gallery, intrusion log and alert settings.
// @BasePath /
func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:          "intrusion-worker",
		Short:        "Unknown-face intrusion detection worker",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "Database driver (sqlite or mysql)")
	rootCmd.PersistentFlags().StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "Database DSN")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")

	rootCmd.AddCommand(
		serveCommand(cfg),
		galleryCommand(cfg),
		logsCommand(cfg),
		settingsCommand(cfg),
	)
	return rootCmd
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the camera detection loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg)
		},
	}
	cmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	cmd.Flags().StringVar(&cfg.WorkerID, "worker-id", cfg.WorkerID, "Worker ID")
	return cmd
}

func serve(cfg *config.Config) error {
	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("detector", cfg.DetectorGRPCURL).
		Msg("Starting intrusion worker")

	server, err := api.NewServer(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create server")
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("Server failed")
		}
		shutdown(server, cfg)
		return err
	}

	shutdown(server, cfg)
	return nil
}

func shutdown(server *api.Server, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	} else {
		log.Info().Msg("Server shutdown complete")
	}
}
