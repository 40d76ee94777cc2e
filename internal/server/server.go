package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/alpaii/WhereDidAllMyMoney/internal/config"
	"github.com/alpaii/WhereDidAllMyMoney/internal/events"
	eventskafka "github.com/alpaii/WhereDidAllMyMoney/internal/events/kafka"
	"github.com/alpaii/WhereDidAllMyMoney/internal/handler"
	"github.com/alpaii/WhereDidAllMyMoney/internal/repository"
	"github.com/alpaii/WhereDidAllMyMoney/internal/service"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// Server represents the HTTP server
type Server struct {
	router    *mux.Router
	server    *http.Server
	db        *sql.DB
	publisher events.Publisher
	logger    *slog.Logger
	port      string
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.AutoMigrate {
		if err := repository.RunMigrations(cfg.GetDBConnectionString()); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("Successfully connected to database")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = eventskafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	// Initialize store (Unit of Work)
	store := repository.NewStore(db, logger)

	// Initialize services
	balanceService := service.NewBalanceService(logger)
	accountService := service.NewAccountService(store, logger)
	expenseService := service.NewExpenseService(store, balanceService, logger)
	transferService := service.NewTransferService(store, balanceService, publisher, logger)
	feeService := service.NewMaintenanceFeeService(store, balanceService, logger)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountService)
	expenseHandler := handler.NewExpenseHandler(expenseService)
	transferHandler := handler.NewTransferHandler(transferService)
	feeHandler := handler.NewMaintenanceFeeHandler(feeService)

	// Setup router
	router := mux.NewRouter()

	router.Use(loggingMiddleware(logger))

	// Account routes
	router.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	router.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	router.HandleFunc("/accounts/{account_id}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{account_id}", accountHandler.DeleteAccount).Methods("DELETE")

	// Expense routes
	router.HandleFunc("/expenses", expenseHandler.CreateExpense).Methods("POST")
	router.HandleFunc("/expenses", expenseHandler.ListExpenses).Methods("GET")
	router.HandleFunc("/expenses/{expense_id}", expenseHandler.GetExpense).Methods("GET")
	router.HandleFunc("/expenses/{expense_id}", expenseHandler.UpdateExpense).Methods("PATCH")
	router.HandleFunc("/expenses/{expense_id}", expenseHandler.DeleteExpense).Methods("DELETE")

	// Transfer routes
	router.HandleFunc("/transfers", transferHandler.CreateTransfer).Methods("POST")
	router.HandleFunc("/transfers", transferHandler.ListTransfers).Methods("GET")
	router.HandleFunc("/transfers/{transfer_id}", transferHandler.GetTransfer).Methods("GET")
	router.HandleFunc("/transfers/{transfer_id}", transferHandler.DeleteTransfer).Methods("DELETE")

	// Maintenance fee routes
	router.HandleFunc("/maintenance-fees", feeHandler.CreateRecord).Methods("POST")
	router.HandleFunc("/maintenance-fees", feeHandler.ListRecords).Methods("GET")
	router.HandleFunc("/maintenance-fees/{record_id}", feeHandler.GetRecord).Methods("GET")
	router.HandleFunc("/maintenance-fees/{record_id}", feeHandler.DeleteRecord).Methods("DELETE")
	router.HandleFunc("/maintenance-fees/{record_id}/pay", feeHandler.PayRecord).Methods("POST")
	router.HandleFunc("/maintenance-fees/{record_id}/unpay", feeHandler.UnpayRecord).Methods("POST")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	return &Server{
		router:    router,
		db:        db,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.logger != nil {
		s.logger.Info("Starting server", "port", s.port)
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Error("Server failed to start", "error", err)
			}
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("Shutting down server")
	}

	if s.publisher != nil {
		s.publisher.Close()
	}

	if s.db != nil {
		s.db.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	// Tests pass port 0 and do not want log output
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		return nil, "", err
	}

	return server, port, nil
}
