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
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/audit"
	auditpg "github.com/leavedesk/leave-management/internal/audit/postgres"
	"github.com/leavedesk/leave-management/internal/balance"
	"github.com/leavedesk/leave-management/internal/calendar"
	"github.com/leavedesk/leave-management/internal/core/events"
	"github.com/leavedesk/leave-management/internal/department"
	departmentpg "github.com/leavedesk/leave-management/internal/department/postgres"
	"github.com/leavedesk/leave-management/internal/employee"
	employeepg "github.com/leavedesk/leave-management/internal/employee/postgres"
	"github.com/leavedesk/leave-management/internal/leave"
	leavepg "github.com/leavedesk/leave-management/internal/leave/postgres"
	"github.com/leavedesk/leave-management/internal/settings"
	settingspg "github.com/leavedesk/leave-management/internal/settings/postgres"
	"github.com/leavedesk/leave-management/internal/transport/rest"
	"github.com/leavedesk/leave-management/pkg/logger"
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
	Config *internal.Config
	DB     *sqlx.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
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

func setupRoutes(deps *Dependencies) error {
	publicKey, err := deps.Config.Security.PublicKey()
	if err != nil {
		return fmt.Errorf("failed to load JWT public key: %w", err)
	}

	clock := calendar.SystemClock()
	bus := events.NewBus(deps.Logger)
	subscribeNotifications(bus, deps.Logger)

	leaveStore := leavepg.NewLeaveStore(deps.GormDB)
	auditRepo := auditpg.NewAuditRepository(deps.GormDB)
	settingsStore := settingspg.NewSettingsStore(deps.GormDB)
	employeeStore := employeepg.NewEmployeeStore(deps.GormDB)
	departmentRepo := departmentpg.NewDepartmentRepository(deps.GormDB)

	auditService := audit.NewService(auditRepo, deps.Logger)
	settingsService := settings.NewService(settingsStore, clock, deps.Logger)
	leaveService := leave.NewService(leaveStore, employeeStore, settingsService, bus, clock, deps.Logger)
	balanceService := balance.NewService(leaveStore, employeeStore, settingsService, clock, deps.Logger)
	departmentService := department.NewService(departmentRepo, clock, deps.Logger)
	employeeService := employee.NewService(
		employeeStore,
		departmentRepo,
		settingsService,
		clock,
		deps.Config.Security.BCryptCost,
		deps.Logger,
	)

	handlers := rest.Handlers{
		Leave:      leave.NewHandler(leaveService),
		Balance:    balance.NewHandler(balanceService),
		Employee:   employee.NewHandler(employeeService),
		Department: department.NewHandler(departmentService),
		Settings:   settings.NewHandler(settingsService),
		Audit:      audit.NewHandler(auditService),
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB, handlers, publicKey, deps.Config.Server.AllowedOrigins, deps.Logger)
	return nil
}

// subscribeNotifications attaches the delivery side of the event bus. Until
// a real mail or chat channel exists the handler just records the event.
func subscribeNotifications(bus *events.Bus, lg *slog.Logger) {
	notify := func(ctx context.Context, event events.Event) error {
		lg.Info("notification dispatched",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	}

	bus.Subscribe(leave.EventRequestCreated, notify)
	bus.Subscribe(leave.EventRequestApproved, notify)
	bus.Subscribe(leave.EventRequestRejected, notify)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(getEnvOrDefault("APP_ENV", "development"))
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(config.Database, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ORM: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		GormDB: gormDB,
		Router: chi.NewRouter(),
	}, nil
}

// initDB opens the raw connection pool used for health checks and shares
// its handle with the ORM.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	dbConn, err := sqlx.Connect(cfg.SQLDriverName(), cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initGorm(cfg internal.DatabaseConfig, pool *sqlx.DB) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	switch cfg.Driver {
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.Source), gormCfg)
	default:
		return gorm.Open(postgres.New(postgres.Config{Conn: pool.DB}), gormCfg)
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
