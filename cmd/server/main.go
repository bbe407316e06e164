package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/giftnest/shop/internal/config"
	"github.com/giftnest/shop/internal/es"
	"github.com/giftnest/shop/internal/events"
	"github.com/giftnest/shop/internal/gateway"
	"github.com/giftnest/shop/internal/handlers"
	"github.com/giftnest/shop/internal/logging"
	"github.com/giftnest/shop/internal/rdx"
	"github.com/giftnest/shop/internal/service/checkout"
	"github.com/giftnest/shop/internal/service/token"
	httpserver "github.com/giftnest/shop/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(os.Getenv("LOG_LEVEL"))

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	brokers := []string{configuration.KAFKA_ADDRESS}
	topics := []string{
		events.TopicUserEvents,
		events.TopicProductEvents,
		events.TopicCartEvents,
		events.TopicOrderEvents,
		events.TopicPaymentEvents,
	}
	producer, err := events.NewProducer(brokers, topics)
	if err != nil {
		log.Fatalf("kafka init error: %v", err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatalf("elasticsearch init error: %v", err)
	}
	indexer := &es.Indexer{ES: esClient, Index: es.ProductIndex}

	redisStore, err := rdx.New(configuration.REDIS_ADDR, configuration.REDIS_PASSWORD)
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}

	gateways := map[string]gateway.Gateway{
		"razorpay": gateway.NewRazorpay(
			configuration.RAZORPAY_KEY_ID,
			configuration.RAZORPAY_KEY_SECRET,
			configuration.RAZORPAY_WEBHOOK_SECRET,
		),
		"cashfree": gateway.NewCashfree(
			configuration.CASHFREE_APP_ID,
			configuration.CASHFREE_SECRET_KEY,
			configuration.CASHFREE_WEBHOOK_SECRET,
			configuration.CASHFREE_BASE_URL,
		),
	}

	deliveryCharge, _ := strconv.ParseFloat(configuration.DELIVERY_CHARGE, 64)
	checkoutSvc := &checkout.Service{
		DB:             db,
		Gateways:       gateways,
		Producer:       producer,
		Locks:          redisStore,
		DeliveryCharge: deliveryCharge,
	}

	tokenSvc := &token.TokenService{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.RequestLogger(logger))

	deps := httpserver.Deps{
		DB: db,
		AuthHandler: &handlers.AuthHandler{
			DB:            db,
			JWTSecret:     jwtSecret,
			RefreshSecret: refreshSecret,
			Producer:      producer,
			OTP:           redisStore,
		},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: producer, Indexer: indexer},
		CategoryHandler: &handlers.CategoryHandler{DB: db},
		BannerHandler:   &handlers.BannerHandler{DB: db},
		CartHandler:     &handlers.CartHandler{DB: db, Producer: producer},
		HamperHandler:   &handlers.HamperHandler{DB: db},
		WishlistHandler: &handlers.WishlistHandler{DB: db},
		OrderHandler:    &handlers.OrderHandler{DB: db, Checkout: checkoutSvc},
		PaymentHandler:  &handlers.PaymentHandler{Checkout: checkoutSvc},
		SearchHandler:   &handlers.SearchHandler{Indexer: indexer},
		TokenService:    tokenSvc,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}
	if err := redisStore.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}

	log.Println("shutdown complete")
}
