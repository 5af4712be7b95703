// Package app wires one worker process: configuration, logging,
// tracing, transport, the analytics pipeline and the HTTP endpoints.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"streamteam/internal/config"
	"streamteam/internal/scheduler"
	"streamteam/pkg/clock"
	"streamteam/pkg/compression"
	"streamteam/pkg/deduplication"
	"streamteam/pkg/dlq"
	"streamteam/pkg/tracing"
	"streamteam/pkg/transport"
	"streamteam/pkg/types"
)

// App is the assembled worker.
type App struct {
	cfg    *config.Config
	logger *logrus.Logger

	pipeline   *Pipeline
	ingress    transport.Ingress
	egress     transport.Egress
	deadLetter *dlq.DeadLetterQueue
	tracing    *tracing.Manager
	worker     *scheduler.Worker

	httpServer *http.Server
	startTime  time.Time
}

// New loads the configuration and wires every component. It returns an
// error for configuration problems and for failures to set up tracing,
// the pipeline or the Kafka ingress and egress.
func New(configFile string) (*App, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, perr := logrus.ParseLevel(cfg.App.LogLevel); perr == nil {
		logger.SetLevel(level)
	}

	tracer, err := tracing.NewManager(cfg.Tracing, logger)
	if err != nil {
		return nil, err
	}

	pipeline, err := buildPipeline(cfg.StreamTeam, clock.Real{}, logger)
	if err != nil {
		return nil, err
	}

	deadLetter := dlq.New(cfg.DLQ, logger)
	compressor := compression.NewCompressor(cfg.Compression, logger)

	ingress, err := transport.NewKafkaIngress(cfg.Kafka, logger)
	if err != nil {
		return nil, err
	}
	egress, err := transport.NewKafkaEgress(cfg.Kafka, logger, compressor, deadLetter)
	if err != nil {
		ingress.Close()
		return nil, err
	}

	app := &App{
		cfg:        cfg,
		logger:     logger,
		pipeline:   pipeline,
		ingress:    ingress,
		egress:     egress,
		deadLetter: deadLetter,
		tracing:    tracer,
		worker: &scheduler.Worker{
			Ingress:                 ingress,
			Egress:                  egress,
			Graph:                   pipeline.Graph,
			Window:                  pipeline.Window,
			Dedup:                   deduplication.New(cfg.Deduplication, logger),
			Clock:                   clock.Real{},
			Logger:                  logger,
			Tracing:                 tracer,
			TickInterval:            cfg.App.TickIntervalDuration,
			LogProcessingTimestamps: cfg.StreamTeam.LogProcessingTimestamps,
		},
	}
	return app, nil
}

// Run serves HTTP and drives the worker loop until SIGINT/SIGTERM. The
// in-flight element finishes before shutdown proceeds.
func (a *App) Run() error {
	a.startTime = time.Now()
	a.startHTTP()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		a.logger.Info("shutdown signal received, draining")
		a.ingress.Close()
	}()

	err := a.worker.Run(ctx)

	a.shutdown()
	return err
}

func (a *App) startHTTP() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "healthy",
			"uptime": time.Since(a.startTime).String(),
		})
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		lastBall := map[string][]float64{}
		a.pipeline.LastBall.ForEach(func(key, _ string, v types.Value) {
			lastBall[key] = []float64{v.Vector3.X, v.Vector3.Y, v.Vector3.Z}
		})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"uptime":   time.Since(a.startTime).String(),
			"lastBall": lastBall,
		})
	})

	a.httpServer = &http.Server{Addr: a.cfg.App.MetricsListen, Handler: mux}
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("metrics server failed")
		}
	}()
	a.logger.WithField("listen", a.cfg.App.MetricsListen).Info("metrics server started")
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.httpServer != nil {
		a.httpServer.Shutdown(ctx)
	}
	if err := a.egress.Close(); err != nil {
		a.logger.WithError(err).Warn("egress close failed")
	}
	a.deadLetter.Close()
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("tracing shutdown failed")
	}
	a.logger.Info("worker stopped")
}

// String describes the app for logs.
func (a *App) String() string {
	return fmt.Sprintf("streamteam worker (teams=%v)", a.cfg.StreamTeam.Teams)
}
