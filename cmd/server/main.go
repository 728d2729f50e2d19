package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/canteenpay/backend/docs"
	"github.com/canteenpay/backend/internal/config"
	"github.com/canteenpay/backend/internal/database"
	"github.com/canteenpay/backend/internal/handlers"
	mW "github.com/canteenpay/backend/internal/middleware"
	"github.com/canteenpay/backend/internal/models"
	"github.com/canteenpay/backend/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Canteen Pre-Purchase API
// @version 1.0
// @description API for the school canteen meal pre-purchase system
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	canteenCfg := config.LoadCanteenConfig()

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Canteen Pre-Purchase API"
	docs.SwaggerInfo.Description = "API for the school canteen meal pre-purchase system"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	ledgerService := services.NewLedgerService(db)
	ledgerService.SetMaxTopUp(canteenCfg.MaxTopUpAmount)
	stockService := services.NewStockService(db)
	orderService := services.NewOrderService(db, ledgerService, stockService, canteenCfg.MaxPaidOrders)
	menuService := services.NewMenuService(db, redisClient, stockService, canteenCfg.MenuCacheTTL)
	procurementService := services.NewProcurementService(db)
	reportService := services.NewReportService(db)
	reviewService := services.NewReviewService(db)
	authService := services.NewAuthService(db, redisClient)
	qrService := services.NewQRService(db, redisClient, canteenCfg.TicketTimeout)
	qrHandler := handlers.NewQRHandler(qrService, orderService)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/account", authService.GetUserAccount)
			r.Get("/balance", ledgerService.BalanceEnquiry)
			r.Get("/menu", menuService.ListMenu)
			r.Get("/menu/{itemId}/stock", stockService.StockEnquiry)
			r.Get("/reviews/{itemId}", reviewService.ListReviews)

			// Student endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleStudent))

				r.Post("/student/orders", orderService.PurchaseOrder)
				r.Get("/student/orders", orderService.ListMyOrders)
				r.Post("/student/orders/{orderId}/redeem", orderService.RedeemOrder)
				r.Post("/student/reviews", reviewService.AddReview)
				r.Post("/student/tickets", qrHandler.GenerateTicket)
			})

			// Kitchen endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleCook, models.RoleAdmin))

				r.Post("/cook/menu", menuService.AddMenuItem)
				r.Put("/cook/menu/{itemId}/restock", menuService.RestockItem)
			})

			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleCook))

				r.Post("/cook/requests", procurementService.CreateRequest)
				r.Get("/cook/served", orderService.ServedOrders)
				r.Post("/cook/tickets/process", qrHandler.ProcessTicket)
			})

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleAdmin))

				r.Get("/admin/stats", reportService.Stats)
				r.Get("/admin/dishes-report", reportService.DishesReport)
				r.Get("/admin/expenses", reportService.Expenses)
				r.Get("/admin/requests", procurementService.ListPending)
				r.Put("/admin/requests/{requestId}/approve", procurementService.ApproveRequest)
				r.Post("/admin/topup", ledgerService.TopUp)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
