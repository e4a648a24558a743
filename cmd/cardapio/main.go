package main

import (
	"context"
	"encoding/hex"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/cardapioweb/cardapio/config"
	handler "github.com/cardapioweb/cardapio/internal/handler/http"
	"github.com/cardapioweb/cardapio/internal/hub"
	"github.com/cardapioweb/cardapio/internal/logger"
	"github.com/cardapioweb/cardapio/internal/mercadopago"
	"github.com/cardapioweb/cardapio/internal/middleware"
	"github.com/cardapioweb/cardapio/internal/pricing"
	"github.com/cardapioweb/cardapio/internal/repository"
	"github.com/cardapioweb/cardapio/internal/repository/postgres"
	"github.com/cardapioweb/cardapio/internal/service"
	"github.com/cardapioweb/cardapio/internal/worker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func main() {

	// create new config
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Log.Sync()

	// create context cancelled on shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// initialize database
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Log.Fatal("Error initializing database", zap.Error(err))
	}
	defer db.Close()

	// migrate database
	if err := db.Migrate(); err != nil {
		logger.Log.Fatal("Error migrating database", zap.Error(err))
	}

	tokenKey, err := hex.DecodeString(cfg.AuthTokenKey)
	if err != nil || len(tokenKey) == 0 {
		logger.Log.Fatal("Error extracting token key", zap.Error(err))
	}
	token := service.NewJWTToken(tokenKey)

	// the notification hub is shared by every mutation path
	notifications := hub.New()

	// payment provider
	provider := mercadopago.NewClient(cfg.MPBaseURL, cfg.MPAccessToken)

	// dependency injection
	storeRepo := repository.NewStoreRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	staffRepo := repository.NewStaffRepository(db)

	engine := pricing.NewEngine(catalogRepo)

	catalogService := service.NewCatalogService(storeRepo, catalogRepo)
	orderService := service.NewOrderService(orderRepo, storeRepo, engine, notifications)
	paymentService := service.NewPaymentService(orderRepo, provider, notifications)
	authService := service.NewAuthService(staffRepo, token)

	publicHandler := handler.NewPublicHandler(catalogService, orderService)
	paymentHandler := handler.NewPaymentHandler(paymentService, cfg.MPPublicKey)
	webhookHandler := handler.NewWebhookHandler(paymentService, cfg.MPWebhookSecret)
	staffHandler := handler.NewStaffHandler(authService, orderService)
	streamHandler := handler.NewStreamHandler(notifications)

	// re-reconcile payments whose webhooks got lost
	poller := worker.NewPaymentPoller(paymentService, cfg.PollInterval)
	go poller.Run(ctx)

	router := chi.NewRouter()

	router.Use(middleware.Logging(logger.Log))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	router.Get("/orders/{publicId}", publicHandler.GetOrder())
	router.Get("/orders/{publicId}/stream", streamHandler.OrderStream())
	router.Post("/payments/mercadopago/intent", paymentHandler.CreateIntent())
	router.Post("/payments/mercadopago/card", paymentHandler.ChargeCard())
	router.Post("/webhooks/mercadopago", webhookHandler.Receive())
	router.Post("/admin/login", staffHandler.Login())

	// routes that require staff authentication
	router.Group(func(group chi.Router) {
		group.Use(middleware.Auth(token))
		group.Get("/admin/orders", staffHandler.ListOrders())
		group.Put("/admin/orders/{orderId}/status", staffHandler.UpdateOrderStatus())
		group.Get("/admin/orders/stream", streamHandler.StoreStream())
	})

	// slug routes go last so fixed prefixes keep priority
	router.Get("/{storeSlug}/menu", publicHandler.Menu())
	router.Post("/{storeSlug}/checkout/quote", publicHandler.Quote())
	router.Post("/{storeSlug}/orders", publicHandler.Checkout())

	logger.Log.Info("Running server", zap.String("addr", cfg.ServerAddr))

	if err := http.ListenAndServe(cfg.ServerAddr, router); err != nil {
		logger.Log.Fatal("Error starting server", zap.Error(err))
	}
}
