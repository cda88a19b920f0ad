// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	appctx "simbapos/internal/core/context"
	"simbapos/internal/core/sequence"
	"simbapos/internal/domain/barcodes"
	"simbapos/internal/domain/ledger"
	"simbapos/internal/domain/reports"
	"simbapos/internal/domain/sales"
	"simbapos/internal/domain/stock"
	"simbapos/internal/infrastructure/http/v1/handlers"
	"simbapos/internal/infrastructure/http/v1/middleware"
	"simbapos/internal/infrastructure/storage/postgres"
	"simbapos/internal/infrastructure/storage/postgres/barcode_repo"
	"simbapos/internal/infrastructure/storage/postgres/catalog_repo"
	"simbapos/internal/infrastructure/storage/postgres/ledger_repo"
	"simbapos/internal/infrastructure/storage/postgres/sales_repo"
	"simbapos/internal/infrastructure/storage/postgres/stock_repo"
	"simbapos/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	Logger    *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Sequences allocates document numbers
	Sequences sequence.Generator

	// AuditSink records and serves entity change history
	AuditSink *postgres.AuditSink

	// AllowNegativeStock disables availability checks on outbound movements
	AllowNegativeStock bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Liveness)
		health.GET("/ready", healthHandler.Readiness)
	}

	// Domain services share one wiring: repos bind to the tx manager,
	// services compose repos and each other.
	stockRepo := stock_repo.NewStockRepo(cfg.TxManager)
	stockService := stock.NewService(stockRepo, cfg.Sequences, cfg.AuditSink, cfg.TxManager, stock.Config{
		AllowNegativeStock: cfg.AllowNegativeStock,
	})

	ledgerService := ledger.NewService(ledger_repo.NewLedgerRepo(cfg.TxManager))
	variantRepo := catalog_repo.NewVariantRepo(cfg.TxManager)

	salesService := sales.NewService(
		sales_repo.NewSaleRepo(cfg.TxManager),
		sales_repo.NewClosingRepo(cfg.TxManager),
		stockService,
		ledgerService,
		variantRepo,
		cfg.Sequences,
		cfg.AuditSink,
		cfg.TxManager,
	)

	barcodeService := barcodes.NewService(
		barcode_repo.NewBarcodeRepo(cfg.TxManager),
		variantRepo,
		cfg.Sequences,
		cfg.AuditSink,
		cfg.TxManager,
	)

	reportsService := reports.NewService(stockService, salesService, ledgerService)

	stockHandler := handlers.NewStockHandler(stockService)
	salesHandler := handlers.NewSalesHandler(salesService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService)
	barcodeHandler := handlers.NewBarcodeHandler(barcodeService)
	reportsHandler := handlers.NewReportsHandler(reportsService)

	// API v1 (JWT required)
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	{
		registerStockRoutes(api, stockHandler)
		registerSalesRoutes(api, salesHandler)
		registerLedgerRoutes(api, ledgerHandler)
		registerBarcodeRoutes(api, barcodeHandler)
		registerReportRoutes(api, reportsHandler)

		auditHandler := handlers.NewAuditHandler(cfg.AuditSink)
		api.GET("/audit/:entityType/:entityId",
			middleware.RequireRole(appctx.RoleAdmin, appctx.RoleManager),
			auditHandler.History)
	}

	return router
}

func registerStockRoutes(rg *gin.RouterGroup, h *handlers.StockHandler) {
	stockGroup := rg.Group("/stock")

	stockGroup.POST("/receipts",
		middleware.RequireRole(appctx.RoleAdmin, appctx.RoleManager, appctx.RoleWarehouse),
		h.Receive)
	stockGroup.POST("/transfers",
		middleware.RequireRole(appctx.RoleAdmin, appctx.RoleManager, appctx.RoleWarehouse),
		h.Transfer)
	stockGroup.POST("/adjustments",
		middleware.RequireRole(appctx.RoleAdmin, appctx.RoleManager, appctx.RoleWarehouse),
		h.Adjust)
	stockGroup.POST("/stocktakes",
		middleware.RequireRole(appctx.RoleAdmin, appctx.RoleManager, appctx.RoleWarehouse),
		h.StartStocktake)
	stockGroup.POST("/stocktakes/finalize",
		middleware.RequireRole(appctx.RoleAdmin, appctx.RoleManager, appctx.RoleWarehouse),
		h.FinalizeStocktake)

	stockGroup.GET("/quantity", h.Quantity)
	stockGroup.GET("/locations/:locationId", h.ByLocation)
	stockGroup.GET("/variants/:variantId", h.ByVariant)
	stockGroup.GET("/movements", h.Movements)
	stockGroup.GET("/movements/:refType/:refId", h.MovementsByReference)
}

func registerSalesRoutes(rg *gin.RouterGroup, h *handlers.SalesHandler) {
	salesGroup := rg.Group("/sales")

	salesGroup.POST("", h.Create)
	salesGroup.GET("", h.List)
	salesGroup.GET("/by-no/:saleNo", h.GetByNo)
	salesGroup.GET("/:id", h.Get)
	salesGroup.POST("/:id/void",
		middleware.RequireRole(appctx.RoleAdmin, appctx.RoleManager),
		h.Void)

	closings := rg.Group("/cash-closings")
	closings.POST("", h.CreateCashClosing)
	closings.GET("", h.ListCashClosings)
}

func registerLedgerRoutes(rg *gin.RouterGroup, h *handlers.LedgerHandler) {
	ledgerGroup := rg.Group("/ledger")

	ledgerGroup.POST("/payments", h.RecordPayment)
	ledgerGroup.GET("/entries", h.Entries)
	ledgerGroup.GET("/:partyType/:partyId/balance", h.Balance)
}

func registerBarcodeRoutes(rg *gin.RouterGroup, h *handlers.BarcodeHandler) {
	barcodesGroup := rg.Group("/barcodes")
	barcodesGroup.POST("", h.Create)
	barcodesGroup.GET("/lookup/:value", h.Lookup)
	barcodesGroup.PUT("/:id/primary", h.SetPrimary)
	barcodesGroup.DELETE("/:id", h.Delete)

	variants := rg.Group("/variants")
	variants.POST("/:variantId/barcodes/internal", h.GenerateInternal)
	variants.GET("/:variantId/barcodes", h.ListByVariant)
}

func registerReportRoutes(rg *gin.RouterGroup, h *handlers.ReportsHandler) {
	reportsGroup := rg.Group("/reports")
	reportsGroup.Use(middleware.RequireRole(appctx.RoleAdmin, appctx.RoleManager))

	reportsGroup.GET("/sales-by-cashier", h.SalesByCashier)
	reportsGroup.GET("/sales-by-location", h.SalesByLocation)
	reportsGroup.GET("/day-summary", h.DaySummary)
	reportsGroup.GET("/low-stock", h.LowStock)
	reportsGroup.GET("/top-debtors", h.TopDebtors)
}
