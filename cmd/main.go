package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/cache"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/config"
	gatewaygrpc "github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/grpc"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/handler"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/hub"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/relay"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/repository"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/service"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/database"
	pkglog "github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("db_driver", cfg.Database.Driver).
		Str("pubsub_driver", cfg.PubSub.Driver).
		Msg("starting chat-gateway")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db, repository.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Room list cache (optional)
	var roomCache cache.RoomCache
	if cfg.Cache.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, room cache disabled")
		} else {
			rc := cache.NewRedisRoomCache(client, cfg.Cache.Prefix)
			defer rc.Close()
			roomCache = rc
		}
	}

	roomService := service.NewRoomService(repository.NewGormRoomRepository(db), roomCache, cfg.Cache.TTL)
	messageService := service.NewMessageService(repository.NewGormMessageRepository(db))

	// Hub runs until shutdown has drained the HTTP servers.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	h := hub.NewHub(cfg.WebSocket)
	go h.Run(hubCtx)

	gateway := service.NewGateway(roomService, messageService, h, cfg.Gateway)
	startCtx, startCancel := context.WithTimeout(ctx, 30*time.Second)
	err = gateway.Start(startCtx)
	startCancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to bootstrap rooms")
	}

	// Cross-instance relay (optional)
	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	var rel *relay.Relay
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	switch {
	case errors.Is(err, pubsub.ErrDisabled):
		logger.Info().Msg("pubsub disabled, running as a single instance")
	case err != nil:
		logger.Warn().Err(err).Msg("failed to create pubsub, relay disabled")
	default:
		defer bus.Close()
		rel = relay.New(bus, cfg.PubSub.ChannelPrefix, cfg.Gateway.InstanceID, h)
		gateway.SetRelay(rel)
		go rel.Run(relayCtx)
		logger.Info().Str("driver", cfg.PubSub.Driver).Msg("relay started")
	}

	// REST API
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), pkglog.GinMiddleware(*logger))
	handler.NewHandler(roomService, messageService, gateway).RegisterRoutes(engine)

	// Routes: /api/* goes to gin, everything else through the mux access log.
	router := mux.NewRouter()
	router.PathPrefix("/api/").Handler(engine)
	wsRouter := router.NewRoute().Subrouter()
	wsRouter.Use(pkglog.HTTPMiddleware(*logger))
	handler.NewWSHandler(h, gateway, cfg.WebSocket).RegisterRoutes(wsRouter)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var grpcServer *gatewaygrpc.Server
	if cfg.GRPC.Enabled {
		grpcServer, err = gatewaygrpc.NewServer(fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port), *logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start grpc server")
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("chat-gateway listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcServer != nil {
		g.Go(grpcServer.Serve)
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down chat-gateway")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// 1. report NOT_SERVING while connections drain
		if grpcServer != nil {
			grpcServer.SetServing(false)
		}

		// 2. stop accepting HTTP and WebSocket connections
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http server shutdown error")
		}

		// 3. stop relaying remote events
		if rel != nil {
			stopRelay()
			<-rel.Done()
		}

		// 4. close all WS clients, stop Hub.Run()
		stopHub()
		<-h.Done()

		// 5. flush in-flight message writes
		if err := gateway.Stop(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("pending message writes abandoned")
		}

		if grpcServer != nil {
			grpcServer.Stop(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("chat-gateway exited with error")
		return
	}
	logger.Info().Msg("chat-gateway stopped")
}
