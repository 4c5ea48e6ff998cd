package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "recon-engine/docs"
	"recon-engine/internal/bankadapter"
	"recon-engine/internal/bankhybrid"
	"recon-engine/internal/config"
	"recon-engine/internal/docparser"
	"recon-engine/internal/handler"
	"recon-engine/internal/middleware"
	"recon-engine/internal/ocr"
	"recon-engine/internal/orchestrator"
	"recon-engine/internal/progressbus"
	"recon-engine/internal/repository"
	"recon-engine/internal/security"
	"recon-engine/internal/service"
	"recon-engine/internal/smartmapper"
	"recon-engine/internal/vault"
	"recon-engine/pkg/logger"
)

// @title Tax Document Ingestion & Reconciliation API
// @version 1.0
// @description Multi-tenant document ingestion and reconciliation service for Indonesian tax artifacts
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@recon-engine.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel)
	logger.GetLogger().Info("Starting tax document ingestion & reconciliation service")

	// Startup contract: refuse to start if storage directories are
	// not writable, the database is unreachable, or no OCR provider loaded.
	if err := ensureWritableDirs(cfg.Storage.UploadDir, cfg.Storage.ResultsDir, cfg.Storage.ExportsDir); err != nil {
		logger.GetLogger().WithError(err).Fatal("storage directories not writable")
	}

	db, err := connectDB(cfg.Database)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	logger.GetLogger().Info("database connection established")

	v := vault.New(cfg.Storage.UploadDir)
	if err := v.EnsureWritable(); err != nil {
		logger.GetLogger().WithError(err).Fatal("file vault not writable")
	}

	validator := security.New(cfg.Security)

	ocrGateway, err := buildOCRGateway(cfg)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("no OCR provider available")
	}

	mapper := buildSmartMapper(cfg)
	parsers := docparser.NewRegistry()
	bankDetector := bankadapter.NewDetector()
	hybridCfg := bankhybrid.Config{
		ChunkSize:           cfg.App.HybridChunkSize,
		SaldoTolerance:      decimalFromFloat(cfg.App.SaldoTolerance),
		ConfidenceThreshold: cfg.App.ConfidenceThreshold,
	}
	hybrid := bankhybrid.NewProcessor(hybridCfg, mapper)

	bus := progressbus.NewBus()

	batchRepo := repository.NewBatchRepository(db)
	userRepo := repository.NewUserRepository(db)
	reconRepo := repository.NewReconciliationRepository(db)

	orc := orchestrator.New(
		batchRepo, v, validator, ocrGateway, parsers, bankDetector, hybrid, mapper, bus,
		cfg.App.MaxBatchFiles, cfg.App.UseSmartMapper,
	)

	authService := service.NewAuthService(userRepo)
	reconService := service.NewReconciliationService(reconRepo, batchRepo, mapper)

	authHandler := handler.NewAuthHandler(authService)
	batchHandler := handler.NewBatchHandler(orc)
	wsHandler := handler.NewWSHandler(orc, bus)
	reconHandler := handler.NewReconciliationHandler(reconService)

	router := setupRouter(cfg, authService, authHandler, batchHandler, wsHandler, reconHandler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.GetLogger().WithField("address", addr).Info("server starting")
	if err := router.Run(addr); err != nil {
		logger.GetLogger().WithError(err).Fatal("failed to start server")
	}
}

func connectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return db, nil
}

// ensureWritableDirs requires every listed directory to exist (or be
// creatable) and accept a write.
func ensureWritableDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
		probe := filepath.Join(dir, ".write-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			return fmt.Errorf("directory %s not writable: %w", dir, err)
		}
		_ = os.Remove(probe)
	}
	return nil
}

// buildOCRGateway wires the cloud primary (when configured) ahead of the
// always-available local fallback.
func buildOCRGateway(cfg *config.Config) (*ocr.Gateway, error) {
	var providers []ocr.Provider
	if cfg.Provider.OCRCloudEndpoint != "" && cfg.Provider.OCRCloudAPIKey != "" {
		providers = append(providers, ocr.NewCloudProvider(cfg.Provider.OCRCloudEndpoint, cfg.Provider.OCRCloudAPIKey))
	}
	providers = append(providers, ocr.NewLocalProvider())
	return ocr.NewGateway(providers...)
}

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func buildSmartMapper(cfg *config.Config) smartmapper.Mapper {
	if cfg.Provider.SmartMapperURL == "" || cfg.Provider.SmartMapperKey == "" {
		return smartmapper.NullMapper{}
	}
	return smartmapper.NewClient(cfg.Provider.SmartMapperURL, cfg.Provider.SmartMapperKey)
}

func setupRouter(
	cfg *config.Config,
	authService service.AuthService,
	authHandler *handler.AuthHandler,
	batchHandler *handler.BatchHandler,
	wsHandler *handler.WSHandler,
	reconHandler *handler.ReconciliationHandler,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(cfg.App.CORSOrigins))
	router.Use(middleware.SecurityHeaders(cfg.App.Environment))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	authed := v1.Group("/")
	authed.Use(middleware.Auth(authService))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/upload", batchHandler.Upload)
		authed.GET("/batches", batchHandler.ListBatches)
		authed.GET("/batches/:id", batchHandler.GetBatch)
		authed.GET("/batches/:id/results", batchHandler.GetResults)
		authed.GET("/batches/:id/export/csv", batchHandler.ExportCSV)
		authed.POST("/batches/:id/cancel", batchHandler.Cancel)

		recon := authed.Group("/reconciliation/projects")
		{
			recon.POST("", reconHandler.CreateProject)
			recon.GET("", reconHandler.ListProjects)
			recon.GET("/:id", reconHandler.GetProject)
			recon.POST("/:id/import/invoices", reconHandler.ImportInvoices)
			recon.POST("/:id/import/transactions", reconHandler.ImportTransactions)
			recon.POST("/:id/ai/extract-vendor", reconHandler.AIExtractVendors)
			recon.POST("/:id/ai/extract-invoice", reconHandler.AIExtractInvoiceNumbers)
			recon.POST("/:id/auto-match", reconHandler.AutoMatch)
			recon.GET("/:id/invoices/:invoiceId/suggestions", reconHandler.SuggestMatches)
			recon.POST("/:id/matches", reconHandler.ManualMatch)
		}
		authed.DELETE("/reconciliation/matches/:matchId", reconHandler.Unmatch)
		authed.GET("/batches/:id/ws", wsHandler.Stream)
	}

	return router
}
