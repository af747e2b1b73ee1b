package main

import (
	"context"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tropicaldog17/ledger/internal/db"
	"github.com/tropicaldog17/ledger/internal/handlers"
	"github.com/tropicaldog17/ledger/internal/logger"
	"github.com/tropicaldog17/ledger/internal/repositories"
	"github.com/tropicaldog17/ledger/internal/services"
	"github.com/tropicaldog17/ledger/internal/store"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Database connection
	config := db.NewConfig()
	database, err := db.Connect(config)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Health(); err != nil {
		log.Fatal("database health check failed", zap.Error(err))
	}
	if err := database.Migrate(); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}
	log.Info("database connection established")

	// Repositories and services
	ledgerRepo := repositories.NewLedgerRepository(database)
	priceRepo := repositories.NewPriceRepository(database)
	accountRepo := repositories.NewAccountRepository(database)
	securityRepo := repositories.NewSecurityRepository(database)

	txStore := store.New()
	holdingsService := services.NewHoldingsService(txStore, ledgerRepo, priceRepo, accountRepo, securityRepo, log)
	alterService := services.NewAlterService(database, ledgerRepo, priceRepo, accountRepo, holdingsService, txStore, log)

	// Bulk load all transactions into memory before serving
	if err := alterService.Reload(context.Background()); err != nil {
		log.Fatal("initial store load failed", zap.Error(err))
	}

	// Handlers
	transactionHandler := handlers.NewTransactionHandler(alterService, txStore, log)
	holdingsHandler := handlers.NewHoldingsHandler(holdingsService, log)
	adminHandler := handlers.NewAdminHandler(accountRepo, securityRepo, priceRepo, alterService, log)

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"ledger"}`))
	})

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/transactions", transactionHandler.HandleTransactions)
	api.HandleFunc("/transactions/{id}", transactionHandler.HandleTransaction)
	api.HandleFunc("/accounts/{id}/holdings", holdingsHandler.HandleHoldings)
	api.HandleFunc("/accounts/{id}/ledger", holdingsHandler.HandleLedger)
	api.HandleFunc("/admin/accounts", adminHandler.HandleAccounts)
	api.HandleFunc("/admin/accounts/{id}", adminHandler.HandleAccount)
	api.HandleFunc("/admin/securities", adminHandler.HandleSecurities)
	api.HandleFunc("/admin/prices", adminHandler.HandlePrices)
	api.HandleFunc("/admin/reload", adminHandler.HandleReload)

	handler := corsMiddleware(requestIDMiddleware(log)(router))

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Info("server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware tags every request with an id for log correlation.
func requestIDMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			log.Debug("request",
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
		})
	}
}
