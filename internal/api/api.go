package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/salesledger/internal/api/handlers"
	"github.com/andresuchdata/salesledger/internal/api/middleware"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/service"
)

type Services struct {
	Sales          *service.SalesService
	Catalog        *service.CatalogService
	Reconciliation *service.ReconciliationService
	Reports        *service.ReportService
	Users          *service.UserService
	Exports        *service.ExportService
	Backup         *service.BackupService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services == nil || services.Users == nil {
		return router
	}

	apiGroup := router.Group("/api/v1")
	users := handlers.NewUserHandler(services.Users)
	apiGroup.POST("/auth/login", users.Login)

	authed := apiGroup.Group("")
	authed.Use(middleware.Auth(services.Users))
	authed.GET("/auth/me", users.Me)

	perm := middleware.RequirePermission

	if services.Catalog != nil {
		catalog := handlers.NewCatalogHandler(services.Catalog)
		manage := perm(domain.PermManageBranches)

		authed.GET("/branches", catalog.ListBranches)
		authed.POST("/branches", manage, catalog.SaveBranch)
		authed.PUT("/branches/:id", manage, catalog.SaveBranch)
		authed.DELETE("/branches/:id", manage, catalog.DeleteBranch)

		authed.GET("/products", catalog.ListProducts)
		authed.POST("/products", manage, catalog.SaveProduct)
		authed.PUT("/products/:id", manage, catalog.SaveProduct)
		authed.DELETE("/products/:id", manage, catalog.DeleteProduct)

		authed.GET("/units", catalog.ListUnits)
		authed.POST("/units", manage, catalog.SaveUnit)
		authed.PUT("/units/:id", manage, catalog.SaveUnit)
		authed.DELETE("/units/:id", manage, catalog.DeleteUnit)

		authed.GET("/lists", catalog.ListProductLists)
		authed.POST("/lists", manage, catalog.SaveProductList)
		authed.PUT("/lists/:id", manage, catalog.SaveProductList)
		authed.DELETE("/lists/:id", manage, catalog.DeleteProductList)

		authed.GET("/pos-terminals", catalog.ListPOS)
		authed.POST("/pos-terminals", manage, catalog.SavePOS)
		authed.PUT("/pos-terminals/:id", manage, catalog.SavePOS)
		authed.DELETE("/pos-terminals/:id", manage, catalog.DeletePOS)

		authed.GET("/cashiers", catalog.ListCashiers)
		authed.POST("/cashiers", manage, catalog.SaveCashier)
		authed.PUT("/cashiers/:id", manage, catalog.SaveCashier)
		authed.DELETE("/cashiers/:id", manage, catalog.DeleteCashier)

		authed.GET("/treasury-definitions", catalog.TreasuryDefinitions)
		authed.PUT("/treasury-definitions", manage, catalog.SaveTreasuryDefinitions)

		if services.Sales != nil {
			sales := handlers.NewSalesHandler(services.Sales, services.Catalog)
			salesGroup := authed.Group("/sales")
			{
				salesGroup.GET("", sales.List)
				salesGroup.GET("/:id", sales.Get)
				salesGroup.POST("", perm(domain.PermAddSales), sales.Create)
				salesGroup.POST("/import", perm(domain.PermAddSales), sales.Import)
				salesGroup.PUT("/:id", perm(domain.PermEditSales), sales.Update)
				salesGroup.DELETE("/:id", perm(domain.PermDeleteSales), sales.Delete)
			}
		}

		if services.Reports != nil {
			reports := handlers.NewReportHandler(services.Reports, services.Catalog)
			reportGroup := authed.Group("/reports", perm(domain.PermViewReports))
			{
				reportGroup.GET("/dashboard", reports.Dashboard)
				reportGroup.GET("/daily", reports.Daily)
				reportGroup.GET("/custom", reports.Custom)
				reportGroup.GET("/monthly", reports.Monthly)
				reportGroup.GET("/yearly", reports.Yearly)
				reportGroup.GET("/branches", reports.Branches)
				reportGroup.GET("/branches/:name", reports.BranchDetail)
				reportGroup.GET("/peak", reports.Peak)
				reportGroup.GET("/branch-trends", reports.BranchTrends)
				reportGroup.GET("/matrix", reports.Matrix)
				reportGroup.GET("/products", reports.Products)
				reportGroup.GET("/categories", reports.Categories)

				aiGroup := reportGroup.Group("/ai")
				{
					aiGroup.GET("/analysis", reports.Analysis)
					aiGroup.GET("/scenario", reports.Scenario)
					aiGroup.POST("/ask", reports.Ask)
				}
			}
		}

		if services.Exports != nil {
			exports := handlers.NewExportHandler(services.Exports, services.Catalog)
			exportGroup := authed.Group("/exports", perm(domain.PermExportReports))
			{
				exportGroup.GET("/sales", exports.Sales)
				exportGroup.GET("/matrix", exports.Matrix)
				exportGroup.GET("/treasury", exports.Treasury)
				exportGroup.GET("/pos", exports.POS)
				exportGroup.GET("/uploaded", exports.Uploaded)
			}
		}
	}

	if services.Reconciliation != nil {
		recon := handlers.NewReconciliationHandler(services.Reconciliation)
		reconGroup := authed.Group("/reconciliation")
		{
			posGroup := reconGroup.Group("/pos")
			posGroup.POST("/preview", recon.PreviewPOS)
			posGroup.GET("", perm(domain.PermViewReports), recon.ListPOS)
			posGroup.GET("/daily/:date", perm(domain.PermViewReports), recon.DailyPOS)
			posGroup.POST("", perm(domain.PermAddSales), recon.SavePOS)
			posGroup.PUT("/:id", perm(domain.PermEditSales), recon.SavePOS)
			posGroup.DELETE("/:id", perm(domain.PermDeleteSales), recon.DeletePOS)

			treasury := reconGroup.Group("/treasury")
			treasury.POST("/preview", recon.PreviewTreasury)
			treasury.GET("", perm(domain.PermViewReports), recon.ListTreasury)
			treasury.GET("/report", perm(domain.PermViewReports), recon.TreasuryReport)
			treasury.GET("/chain-breaks", perm(domain.PermViewReports), recon.ChainBreaks)
			treasury.GET("/draft/:date", perm(domain.PermAddSales), recon.DraftTreasury)
			treasury.GET("/opening/:date", perm(domain.PermAddSales), recon.SuggestOpening)
			treasury.GET("/:id", perm(domain.PermViewReports), recon.GetTreasury)
			treasury.POST("", perm(domain.PermAddSales), recon.SaveTreasury)
			treasury.PUT("/:id", perm(domain.PermEditSales), recon.SaveTreasury)
			treasury.DELETE("/:id", perm(domain.PermDeleteSales), recon.DeleteTreasury)
		}
	}

	userGroup := authed.Group("/users", perm(domain.PermManageUsers))
	{
		userGroup.GET("", users.List)
		userGroup.POST("", users.Create)
		userGroup.PUT("/:id", users.Update)
		userGroup.DELETE("/:id", users.Delete)
	}

	if services.Backup != nil {
		backups := handlers.NewBackupHandler(services.Backup)
		admin := authed.Group("", middleware.RequireAdmin())
		admin.GET("/backup", backups.Download)
		admin.POST("/restore", backups.Restore)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
