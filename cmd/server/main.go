package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/skvortsovm/storefront/internal/broadcast"
	"github.com/skvortsovm/storefront/internal/config"
	"github.com/skvortsovm/storefront/internal/es"
	"github.com/skvortsovm/storefront/internal/events"
	"github.com/skvortsovm/storefront/internal/handlers"
	"github.com/skvortsovm/storefront/internal/httpserver"
	"github.com/skvortsovm/storefront/internal/logging"
	loggingmw "github.com/skvortsovm/storefront/internal/middleware/logging"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(context.Background(), configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	var prod *events.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod = events.NewProducer(strings.Split(configuration.KAFKA_ADDRESS, ","))
	} else {
		logger.Warn("KAFKA_ADDRESS not set, event stream disabled")
	}

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		esClient, err = es.NewClient(configuration, logger)
		if err != nil {
			logger.Warn("elasticsearch unavailable, search disabled", "error", err)
			esClient = nil
		}
	} else {
		logger.Warn("ES_URL not set, search disabled")
	}

	hub := broadcast.NewHub(logger)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	var publisher events.Publisher
	if prod != nil {
		publisher = prod
	}

	deps := httpserver.Deps{
		JWTSecret:       jwtSecret,
		Hub:             hub,
		AuthHandler:     &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: publisher},
		ProductHandler:  &handlers.ProductHandler{DB: db, Hub: hub, Producer: publisher, ES: esClient, Index: configuration.ES_INDEX},
		CartHandler:     &handlers.CartHandler{DB: db, Hub: hub, Producer: publisher},
		WishlistHandler: &handlers.WishlistHandler{DB: db, Hub: hub, Producer: publisher},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: configuration.ES_INDEX},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
