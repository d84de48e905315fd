package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-marketplace-api/cache"
	"food-marketplace-api/config"
	"food-marketplace-api/events"
	"food-marketplace-api/handlers"
	"food-marketplace-api/logger"
	"food-marketplace-api/middleware"
	"food-marketplace-api/routes"
	"food-marketplace-api/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	// Initialize database
	if err := config.InitDB(cfg); err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("initialize database")
	}

	var menus cache.MenuCache = cache.NopMenuCache{}
	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		defer client.Close()
		menus = cache.NewRedisMenuCache(client, cfg.MenuCacheTTL)
		log.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.MenuCacheTTL).Msg("menu cache enabled")
	}

	var publisher events.Publisher = events.LogPublisher{Log: log}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("order events go to kafka")
	}
	defer publisher.Close()

	svc := services.New(config.DB, publisher, menus, log, services.Options{
		TaxRate:             cfg.TaxRate,
		DeliveryFee:         cfg.DeliveryFee,
		StrictTransitions:   cfg.StrictTransitions,
		AggregateMaxRetries: cfg.AggregateMaxRetries,
	})
	h := handlers.New(svc, middleware.NewAuth(cfg.JWTSecret, cfg.JWTTTL))

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           newRouter(cfg, h, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
	log.Info().Msg("server exited")
}

// newRouter builds the gin engine with recovery, request logging, CORS and every API route.
func newRouter(cfg *config.Config, h *handlers.Handler, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log))
	corsConfig := cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	// Register all routes
	routes.SetupRoutes(r, h)
	return r
}
