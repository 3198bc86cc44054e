package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/clearledger/claimflow/internal/api"
	"github.com/clearledger/claimflow/internal/application/service"
	"github.com/clearledger/claimflow/internal/config"
	"github.com/clearledger/claimflow/internal/document"
	"github.com/clearledger/claimflow/internal/domain/entity"
	"github.com/clearledger/claimflow/internal/export"
	"github.com/clearledger/claimflow/internal/infrastructure/external/lark"
	"github.com/clearledger/claimflow/internal/infrastructure/external/openai"
	"github.com/clearledger/claimflow/internal/infrastructure/persistence/repository"
	"github.com/clearledger/claimflow/pkg/database"
	"github.com/clearledger/claimflow/pkg/utils"
)

func main() {
	// Load .env if present; real deployments set environment variables
	// directly.
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
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

	logger.Info("Starting claim workflow service",
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Path))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.ExportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("Failed to create storage directory",
				zap.String("dir", dir), zap.Error(err))
		}
	}

	// Repositories
	claimRepo := repository.NewClaimRepository(db.DB, logger)
	categoryRepo := repository.NewCategoryRepository(db.DB, logger)
	commentRepo := repository.NewCommentRepository(db.DB, logger)
	documentRepo := repository.NewDocumentRepository(db.DB, logger)
	approvalRepo := repository.NewApprovalRepository(db.DB, logger)
	notificationRepo := repository.NewNotificationRepository(db.DB, logger)
	settingsRepo := repository.NewSettingsRepository(db.DB, logger)
	txManager := repository.NewTxManager(db)

	// External adapters
	extractor := openai.NewExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature, logger)
	renderer := document.NewPDFRenderer(logger)
	larkSDK := lark.NewSDKClient(lark.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
	}, logger)
	notifier := lark.NewNotifier(larkSDK, logger)

	serviceLogger := &zapLoggerAdapter{logger: logger}

	// Workflow defaults for tenants without a saved settings row
	tenantDefaults := entity.TenantSettings{
		FiscalYearStartMonth: cfg.Tenant.FiscalYearStartMonth(),
		AutoApproval: entity.AutoApprovalConfig{
			Enabled:               cfg.Tenant.AutoApprovalEnabled,
			Threshold:             cfg.Tenant.AutoApprovalThreshold,
			MaxAutoApprovalAmount: cfg.Tenant.MaxAutoApprovalAmount,
			AutoSkipAfterManager:  cfg.Tenant.AutoSkipAfterManager,
		},
	}

	// Application services
	claimService := service.NewClaimService(
		claimRepo, categoryRepo, commentRepo, documentRepo,
		approvalRepo, notificationRepo, settingsRepo,
		txManager, tenantDefaults, serviceLogger,
	)
	intakeService := service.NewIntakeService(
		renderer, extractor, documentRepo, claimRepo, txManager, serviceLogger,
	)
	dispatcher := service.NewNotificationDispatcher(
		notificationRepo, notifier, serviceLogger, cfg.Lark.DispatchInterval,
	)
	reporter := export.NewSettlementReporter(claimRepo, logger)

	server := api.NewServer(api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		UploadDir:    cfg.Storage.UploadDir,
		ExportDir:    cfg.Storage.ExportDir,
	}, claimService, intakeService, reporter, serviceLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go dispatcher.Run(ctx)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// zapLoggerAdapter adapts zap.Logger to the service and api Logger
// interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
