package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/tokencart/settlement/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	auth := middleware.Auth(authCfg)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Token endpoints. Deposits and withdrawals authenticate as the
		// payment processor identity; the ledger rejects any other caller.
		v1.POST("/token/deposits", auth, handler.Deposit)
		v1.POST("/token/withdrawals", auth, handler.Withdraw)
		v1.POST("/token/transfers", auth, handler.Transfer)
		v1.POST("/token/approvals", auth, handler.Approve)

		// Token read endpoints (public read access)
		v1.GET("/token/balances/:address", handler.GetBalance)
		v1.GET("/token/allowances/:owner/:spender", handler.GetAllowance)

		// Company registry. Registration and deactivation authenticate as
		// the administrator identity.
		v1.POST("/companies", auth, handler.RegisterCompany)
		v1.PATCH("/companies/:address/active", auth, handler.SetCompanyActive)
		v1.GET("/companies", handler.ListCompanies)
		v1.GET("/companies/:address", handler.GetCompany)

		// Product catalog. Writes authenticate as the owning company.
		v1.POST("/companies/:address/products", auth, handler.CreateProduct)
		v1.PATCH("/companies/:address/products/:id/active", auth, handler.SetProductActive)
		v1.GET("/companies/:address/products", handler.ListProducts)
		v1.GET("/companies/:address/products/:id", handler.GetProduct)

		// Purchases settle atomically for the authenticated buyer
		v1.POST("/purchases", auth, handler.ExecutePurchase)

		// Invoices. Marking paid authenticates as the owning company.
		v1.GET("/companies/:address/invoices", handler.ListInvoices)
		v1.GET("/companies/:address/invoices/:number", handler.GetInvoice)
		v1.POST("/companies/:address/invoices/:number/pay", auth, handler.MarkInvoicePaid)

		// Customer records. Registration authenticates as the owning company.
		v1.POST("/companies/:address/customers", auth, handler.RegisterCustomer)
		v1.GET("/companies/:address/customers/:customer", handler.GetCustomer)
	}
}
