package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/clearledger/expense-approval/internal/application/service"
	"github.com/clearledger/expense-approval/internal/config"
	"github.com/clearledger/expense-approval/internal/domain/approval"
	"github.com/clearledger/expense-approval/internal/infrastructure/persistence/repository"
	"github.com/clearledger/expense-approval/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/clearledger/expense-approval/internal/interfaces/http"
	"github.com/clearledger/expense-approval/pkg/database"
	"github.com/clearledger/expense-approval/pkg/utils"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense approval service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer sqlDB.Close()

	// Run migrations
	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	txManager := sqlite.NewDB(sqlDB, logger)
	userRepo := repository.NewUserRepository(sqlDB, logger)
	claimRepo := repository.NewClaimRepository(sqlDB, logger)
	workflowRepo := repository.NewWorkflowRepository(sqlDB, txManager, logger)
	historyRepo := repository.NewHistoryRepository(sqlDB, logger)

	// Initialize decision engine over the repository-backed collaborators
	engine := approval.NewEngine(userRepo, workflowRepo, historyRepo, logger)

	// Initialize services
	serviceLogger := utils.NewSugarAdapter(logger)
	claimService := service.NewClaimService(claimRepo, workflowRepo, historyRepo, txManager, engine, serviceLogger)
	workflowService := service.NewWorkflowService(workflowRepo, serviceLogger)
	userService := service.NewUserService(userRepo, serviceLogger)

	// Initialize HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, claimService, workflowService, userService, serviceLogger)

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server exited")
}
