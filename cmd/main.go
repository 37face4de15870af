package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huiqicai/hci-social-backend/internal/config"
	"github.com/huiqicai/hci-social-backend/internal/handler"
	"github.com/huiqicai/hci-social-backend/internal/hub"
	"github.com/huiqicai/hci-social-backend/internal/registry"
	"github.com/huiqicai/hci-social-backend/internal/repository"
	"github.com/huiqicai/hci-social-backend/internal/service"
	"github.com/huiqicai/hci-social-backend/internal/tenant"
	"github.com/huiqicai/hci-social-backend/pkg/database"
	"github.com/huiqicai/hci-social-backend/pkg/jwt"
	"github.com/huiqicai/hci-social-backend/pkg/log"
	"github.com/huiqicai/hci-social-backend/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "hci-social-backend",
	})
	logger := log.L()

	// Tenant configuration is loaded once and immutable for the process
	// lifetime; a missing or malformed mapping is fatal.
	tenants, err := tenant.LoadTenants(cfg.Database.TenantsDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load tenants configuration")
	}
	logger.Info().Int("tenants", len(tenants)).Msg("tenants configuration loaded")

	tenantRegistry := tenant.NewRegistry(tenants, database.Options{
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	defer tenantRegistry.Close()

	gateway := repository.NewGateway(tenantRegistry)
	presence := registry.NewMemoryPresence()

	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	resolver := service.NewRoomResolver(gateway)
	chatSvc := service.NewChatService(wsHub, resolver, gateway, presence)
	historySvc := service.NewHistoryService(gateway)

	jwtManager, err := jwt.NewManager(cfg.Auth.TokenDuration, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise jwt manager")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.GinMiddleware(logger))

	wsHandler := handler.NewWSHandler(wsHub, chatSvc, tenantRegistry, cfg.WebSocket)
	wsHandler.RegisterRoutes(r)

	httpHandler := handler.NewHTTPHandler(historySvc)
	httpHandler.RegisterRoutes(r, middleware.Auth(jwtManager))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("chat backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("stopped")
}
