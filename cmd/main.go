package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/wes-io-live/turn-service/internal/config"
	"github.com/weiawesome/wes-io-live/turn-service/internal/directory"
	turngrpc "github.com/weiawesome/wes-io-live/turn-service/internal/grpc"
	"github.com/weiawesome/wes-io-live/turn-service/internal/handler"
	"github.com/weiawesome/wes-io-live/turn-service/internal/hub"
	"github.com/weiawesome/wes-io-live/turn-service/internal/kafka"
	"github.com/weiawesome/wes-io-live/turn-service/internal/metrics"
	"github.com/weiawesome/wes-io-live/turn-service/internal/notice"
	"github.com/weiawesome/wes-io-live/turn-service/internal/room"
	"github.com/weiawesome/wes-io-live/turn-service/internal/service"
	pkglog "github.com/weiawesome/wes-io-live/turn-service/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := run(cfg); err != nil {
		l := pkglog.L()
		l.Error().Err(err).Msg("turn-service exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "turn-service"})
	logger := pkglog.L()
	gin.SetMode(gin.ReleaseMode)

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting turn-service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = pkglog.WithLogger(ctx, logger)

	notices, err := notice.New(cfg.Notice.Locale)
	if err != nil {
		return fmt.Errorf("notice catalog: %w", err)
	}

	// Kafka is optional; the service works without the turn event stream.
	var producer kafka.TurnEventProducer
	if cfg.Kafka.Enabled {
		cp, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka producer, turn events disabled")
		} else {
			producer = cp
			defer cp.Close()
			logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("connected to kafka")
		}
	}

	var dir directory.Directory = directory.Nop{}
	if cfg.Redis.Enabled {
		if cfg.Redis.AdvertiseAddress == "" {
			cfg.Redis.AdvertiseAddress = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		}
		rd, err := directory.NewRedisDirectory(cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to connect to redis, room directory disabled")
		} else {
			dir = rd
			defer rd.Close()
			logger.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")
		}
	}

	recorder := metrics.New()
	wsHub := hub.NewHub(cfg.WebSocket)
	registry := room.NewRegistry(room.Options{
		Publisher:         wsHub,
		Notices:           notices,
		Observer:          room.Observers{recorder, service.NewEventRelay(ctx, producer, dir)},
		InactivityTimeout: cfg.Turn.InactivityTimeout,
		SweepInterval:     cfg.Turn.SweepInterval,
		EmptyRoomTTL:      cfg.Turn.EmptyRoomTTL,
	})
	recorder.RegisterGauges(registry.Stats, wsHub.ClientCount)

	turnSvc := service.NewTurnService(wsHub, registry)
	httpHandler := handler.NewHandler(registry, recorder.Handler())
	wsHandler := handler.NewWSHandler(wsHub, turnSvc, cfg.Turn.MaxBufferBytes)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     handler.NewRouter(logger, httpHandler, wsHandler),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	grpcServer, err := turngrpc.NewServer(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.GRPC.Port), logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return wsHub.Run(gctx) })
	g.Go(func() error { return registry.Reaper().Run(gctx) })
	g.Go(func() error { return dir.Run(gctx) })
	g.Go(grpcServer.Serve)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("turn-service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down turn-service")

		httpHandler.SetDraining(true)
		grpcServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("turn-service stopped")
	return nil
}
