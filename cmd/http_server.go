package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/spendflow/expense-approval/internal"
	"github.com/spendflow/expense-approval/internal/approval"
	approvalPostgres "github.com/spendflow/expense-approval/internal/approval/postgres"
	"github.com/spendflow/expense-approval/internal/auth"
	authPostgres "github.com/spendflow/expense-approval/internal/auth/postgres"
	"github.com/spendflow/expense-approval/internal/core/events"
	"github.com/spendflow/expense-approval/internal/effects"
	"github.com/spendflow/expense-approval/internal/expense"
	expensePostgres "github.com/spendflow/expense-approval/internal/expense/postgres"
	"github.com/spendflow/expense-approval/internal/ledger"
	"github.com/spendflow/expense-approval/internal/marketplace"
	"github.com/spendflow/expense-approval/internal/notification"
	"github.com/spendflow/expense-approval/internal/rule"
	rulePostgres "github.com/spendflow/expense-approval/internal/rule/postgres"
	"github.com/spendflow/expense-approval/internal/transport"
	"github.com/spendflow/expense-approval/internal/transport/rest"
	"github.com/spendflow/expense-approval/internal/user"
	userPostgres "github.com/spendflow/expense-approval/internal/user/postgres"
	"github.com/spendflow/expense-approval/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config      *internal.Config
	DB          *sqlx.DB
	Router      *chi.Mux
	Marketplace *marketplace.Client
	Logger      *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.Marketplace.Shutdown()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Environment, config.Observability.Logging.Level)
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	eventBus := events.NewEventBus(log)

	notifyClient := notification.NewClient(notification.ClientConfig{
		APIURL:      config.Notification.APIURL,
		FromAddress: config.Notification.FromAddress,
		Timeout:     config.Notification.Timeout,
	}, log)
	notifyTrigger := notification.NewTrigger(notifyClient, log)

	ledgerClient := ledger.NewClient(ledger.Config{
		APIURL:         config.Ledger.APIURL,
		APIKey:         config.Ledger.APIKey,
		AccountMapping: config.Ledger.ParseAccountMapping(),
		Timeout:        config.Ledger.Timeout,
	}, log)

	marketplaceClient := marketplace.NewClient(marketplace.Config{
		APIURL:         config.Marketplace.APIURL,
		APIKey:         config.Marketplace.APIKey,
		BuyerCookie:    config.Marketplace.BuyerCookie,
		CallbackURL:    config.Marketplace.CallbackURL,
		OrderTimeout:   config.Marketplace.OrderTimeout,
		MaxWorkers:     config.Marketplace.MaxWorkers,
		JobQueueSize:   config.Marketplace.JobQueueSize,
		WorkerPoolSize: config.Marketplace.WorkerPoolSize,
	}, log)

	userService := user.NewService(userPostgres.NewUserRepository(gormDB), log)

	matcher := approval.NewMatcher(approvalPostgres.NewRuleRepository(gormDB), log)
	resolver := approval.NewResolver(userService, log)
	builder := approval.NewBuilder(matcher, resolver, log)

	approvalService := approval.NewService(
		approvalPostgres.NewExpenseStore(gormDB),
		userService,
		eventBus,
		notifyTrigger,
		log,
	)

	expenseRepo := expensePostgres.NewExpenseRepository(gormDB)
	expenseService := expense.NewService(expenseRepo, builder, userService, eventBus, notifyTrigger, log)

	ruleService := rule.NewService(rulePostgres.NewRuleRepository(gormDB), log)

	tokenGenerator := &auth.JWTTokenGenerator{
		AccessTokenSecret:  []byte(config.Security.AccessTokenSecret),
		RefreshTokenSecret: []byte(config.Security.RefreshTokenSecret),
		AccessTokenTTL:     config.Security.AccessTokenDuration,
		RefreshTokenTTL:    config.Security.RefreshTokenDuration,
	}
	authService := auth.NewService(authPostgres.NewAuthRepository(gormDB), tokenGenerator, log)

	dispatcher := effects.NewDispatcher(expenseRepo, ledgerClient, marketplaceClient, log)
	dispatcher.RegisterEventHandlers(eventBus)

	baseHandler := transport.NewBaseHandler(log)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(
		router,
		db.DB,
		auth.NewHandler(authService),
		user.NewHandler(userService),
		expense.NewHandler(expenseService),
		approval.NewHandler(approvalService, builder),
		rule.NewHandler(baseHandler, ruleService, log),
		marketplace.NewCallbackHandler(baseHandler, expenseRepo, log),
		log,
	)

	return &Dependencies{
		Config:      config,
		Logger:      log,
		DB:          db,
		Router:      router,
		Marketplace: marketplaceClient,
	}, nil
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
