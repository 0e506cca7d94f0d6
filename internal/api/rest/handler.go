package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tokencart/settlement/internal/api/middleware"
	"github.com/tokencart/settlement/internal/api/rest/dto"
	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/ledger/settlement"
	"github.com/tokencart/settlement/internal/ledger/token"
	"github.com/tokencart/settlement/internal/messaging"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
type Handler interface {
	// Deposit mints tokens for a buyer after an off-ledger card payment
	// POST /api/v1/token/deposits
	Deposit(c *gin.Context)

	// Withdraw burns a seller's tokens for an off-ledger payout
	// POST /api/v1/token/withdrawals
	Withdraw(c *gin.Context)

	// Transfer moves tokens from the caller to another account
	// POST /api/v1/token/transfers
	Transfer(c *gin.Context)

	// Approve sets the caller's allowance for a spender
	// POST /api/v1/token/approvals
	Approve(c *gin.Context)

	// GetBalance retrieves an account balance
	// GET /api/v1/token/balances/:address
	GetBalance(c *gin.Context)

	// GetAllowance retrieves an owner/spender allowance
	// GET /api/v1/token/allowances/:owner/:spender
	GetAllowance(c *gin.Context)

	// RegisterCompany registers a company (administrator only)
	// POST /api/v1/companies
	RegisterCompany(c *gin.Context)

	// SetCompanyActive activates or deactivates a company (administrator only)
	// PATCH /api/v1/companies/:address/active
	SetCompanyActive(c *gin.Context)

	// ListCompanies retrieves all registered companies
	// GET /api/v1/companies
	ListCompanies(c *gin.Context)

	// GetCompany retrieves a single company
	// GET /api/v1/companies/:address
	GetCompany(c *gin.Context)

	// CreateProduct adds a product to the caller's own catalog
	// POST /api/v1/companies/:address/products
	CreateProduct(c *gin.Context)

	// SetProductActive activates or deactivates a product in the caller's own catalog
	// PATCH /api/v1/companies/:address/products/:id/active
	SetProductActive(c *gin.Context)

	// ListProducts retrieves a company's catalog
	// GET /api/v1/companies/:address/products
	ListProducts(c *gin.Context)

	// GetProduct retrieves a single product
	// GET /api/v1/companies/:address/products/:id
	GetProduct(c *gin.Context)

	// ExecutePurchase settles a multi-company purchase for the caller
	// POST /api/v1/purchases
	ExecutePurchase(c *gin.Context)

	// ListInvoices retrieves a company's invoices
	// GET /api/v1/companies/:address/invoices
	ListInvoices(c *gin.Context)

	// GetInvoice retrieves a single invoice
	// GET /api/v1/companies/:address/invoices/:number
	GetInvoice(c *gin.Context)

	// MarkInvoicePaid marks one of the caller's own invoices as paid
	// POST /api/v1/companies/:address/invoices/:number/pay
	MarkInvoicePaid(c *gin.Context)

	// RegisterCustomer registers a customer relationship for the caller's own company
	// POST /api/v1/companies/:address/customers
	RegisterCustomer(c *gin.Context)

	// GetCustomer retrieves a (company, customer) record with its invoice history
	// GET /api/v1/companies/:address/customers/:customer
	GetCustomer(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	token        *token.Ledger
	orchestrator *settlement.Orchestrator
	dispatcher   *messaging.Dispatcher
}

// NewHandler creates a new REST API handler
func NewHandler(tok *token.Ledger, orchestrator *settlement.Orchestrator, dispatcher *messaging.Dispatcher) Handler {
	return &handler{
		token:        tok,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
	}
}

// Deposit mints tokens for a buyer after an off-ledger card payment
func (h *handler) Deposit(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondBadRequest(c, "Caller identity missing")
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	buyer, err := domain.NewIdentity(req.Buyer)
	if err != nil {
		respondBadRequest(c, "Invalid buyer address", err.Error())
		return
	}

	event, err := h.token.Deposit(c.Request.Context(), caller, buyer, req.GrossAmount)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.dispatcher.Dispatch(c.Request.Context(), event)
	c.JSON(http.StatusCreated, dto.NewTokenEventResponse(event))
}

// Withdraw burns a seller's tokens for an off-ledger payout
func (h *handler) Withdraw(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondBadRequest(c, "Caller identity missing")
		return
	}

	var req dto.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	seller, err := domain.NewIdentity(req.Seller)
	if err != nil {
		respondBadRequest(c, "Invalid seller address", err.Error())
		return
	}

	event, err := h.token.Withdraw(c.Request.Context(), caller, seller, req.TokenAmount)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.dispatcher.Dispatch(c.Request.Context(), event)
	c.JSON(http.StatusCreated, dto.NewTokenEventResponse(event))
}

// Transfer moves tokens from the caller to another account
func (h *handler) Transfer(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondBadRequest(c, "Caller identity missing")
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	to, err := domain.NewIdentity(req.To)
	if err != nil {
		respondBadRequest(c, "Invalid recipient address", err.Error())
		return
	}

	if err := h.token.Transfer(c.Request.Context(), caller, to, req.Amount); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Approve sets the caller's allowance for a spender
func (h *handler) Approve(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondBadRequest(c, "Caller identity missing")
		return
	}

	var req dto.ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	spender, err := domain.NewIdentity(req.Spender)
	if err != nil {
		respondBadRequest(c, "Invalid spender address", err.Error())
		return
	}

	if err := h.token.Approve(c.Request.Context(), caller, spender, req.Amount); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetBalance retrieves an account balance
func (h *handler) GetBalance(c *gin.Context) {
	address, err := domain.NewIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid address", err.Error())
		return
	}

	balance, err := h.token.BalanceOf(c.Request.Context(), address)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		Address: address.String(),
		Balance: balance,
	})
}

// GetAllowance retrieves an owner/spender allowance
func (h *handler) GetAllowance(c *gin.Context) {
	owner, err := domain.NewIdentity(c.Param("owner"))
	if err != nil {
		respondBadRequest(c, "Invalid owner address", err.Error())
		return
	}

	spender, err := domain.NewIdentity(c.Param("spender"))
	if err != nil {
		respondBadRequest(c, "Invalid spender address", err.Error())
		return
	}

	allowance, err := h.token.Allowance(c.Request.Context(), owner, spender)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AllowanceResponse{
		Owner:     owner.String(),
		Spender:   spender.String(),
		Allowance: allowance,
	})
}

// RegisterCompany registers a company (administrator only)
func (h *handler) RegisterCompany(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondBadRequest(c, "Caller identity missing")
		return
	}

	var req dto.RegisterCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	company, err := domain.NewIdentity(req.Company)
	if err != nil {
		respondBadRequest(c, "Invalid company address", err.Error())
		return
	}

	event, err := h.orchestrator.RegisterCompany(c.Request.Context(), caller, company, req.Name)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.dispatcher.Dispatch(c.Request.Context(), event)

	registered, err := h.orchestrator.CompanyInfo(c.Request.Context(), company)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewCompanyResponse(registered))
}

// SetCompanyActive activates or deactivates a company (administrator only)
func (h *handler) SetCompanyActive(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondBadRequest(c, "Caller identity missing")
		return
	}

	company, err := domain.NewIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid company address", err.Error())
		return
	}

	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := h.orchestrator.SetCompanyActive(c.Request.Context(), caller, company, *req.Active); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListCompanies retrieves all registered companies
func (h *handler) ListCompanies(c *gin.Context) {
	companies, err := h.orchestrator.Companies(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	responses := make([]dto.CompanyResponse, 0, len(companies))
	for i := range companies {
		responses = append(responses, dto.NewCompanyResponse(&companies[i]))
	}

	c.JSON(http.StatusOK, gin.H{"companies": responses})
}

// GetCompany retrieves a single company
func (h *handler) GetCompany(c *gin.Context) {
	company, err := domain.NewIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid company address", err.Error())
		return
	}

	record, err := h.orchestrator.CompanyInfo(c.Request.Context(), company)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCompanyResponse(record))
}

// CreateProduct adds a product to the caller's own catalog
func (h *handler) CreateProduct(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondBadRequest(c, "Caller identity missing")
		return
	}

	company, err := domain.NewIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid company address", err.Error())
		return
	}

	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	productID, event, err := h.orchestrator.CreateProduct(c.Request.Context(), caller, company, req.Name, req.Price, req.ContentRef)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.dispatcher.Dispatch(c.Request.Context(), event)

	product, err := h.orchestrator.ProductInfo(c.Request.Context(), company, productID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewProductResponse(product))
}

// SetProductActive activates or deactivates a product in the caller's own catalog
func (h *handler) SetProductActive(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondBadRequest(c, "Caller identity missing")
		return
	}

	company, err := domain.NewIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid company address", err.Error())
		return
	}

	productID, err := parseSequence(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid product ID", err.Error())
		return
	}

	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := h.orchestrator.SetProductActive(c.Request.Context(), caller, company, productID, *req.Active); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListProducts retrieves a company's catalog
func (h *handler) ListProducts(c *gin.Context) {
	company, err := domain.NewIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid company address", err.Error())
		return
	}

	products, err := h.orchestrator.Products(c.Request.Context(), company)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	responses := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, dto.NewProductResponse(&products[i]))
	}

	c.JSON(http.StatusOK, gin.H{"products": responses})
}

// GetProduct retrieves a single product
func (h *handler) GetProduct(c *gin.Context) {
	company, err := domain.NewIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid company address", err.Error())
		return
	}

	productID, err := parseSequence(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid product ID", err.Error())
		return
	}

	product, err := h.orchestrator.ProductInfo(c.Request.Context(), company, productID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewProductResponse(product))
}

// ExecutePurchase settles a multi-company purchase for the caller
func (h *handler) ExecutePurchase(c *gin.Context) {
	buyer, ok := middleware.CallerIdentity(c)
	if !ok {
		respondBadRequest(c, "Caller identity missing")
		return
	}

	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	items := make([]domain.PurchaseItem, 0, len(req.Items))
	for _, item := range req.Items {
		company, err := domain.NewIdentity(item.Company)
		if err != nil {
			respondBadRequest(c, "Invalid company address in items", err.Error())
			return
		}
		items = append(items, domain.PurchaseItem{
			Company:   company,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	receipt, err := h.orchestrator.ExecutePurchase(c.Request.Context(), buyer, items)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.dispatcher.Dispatch(c.Request.Context(), receipt.Events...)
	c.JSON(http.StatusCreated, dto.NewReceiptResponse(receipt))
}

// ListInvoices retrieves a company's invoices
func (h *handler) ListInvoices(c *gin.Context) {
	company, err := domain.NewIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid company address", err.Error())
		return
	}

	invoices, err := h.orchestrator.Invoices(c.Request.Context(), company)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	responses := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, dto.NewInvoiceResponse(&invoices[i]))
	}

	c.JSON(http.StatusOK, gin.H{"invoices": responses})
}

// GetInvoice retrieves a single invoice
func (h *handler) GetInvoice(c *gin.Context) {
	company, err := domain.NewIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid company address", err.Error())
		return
	}

	number, err := parseSequence(c.Param("number"))
	if err != nil {
		respondBadRequest(c, "Invalid invoice number", err.Error())
		return
	}

	invoice, err := h.orchestrator.InvoiceInfo(c.Request.Context(), company, number)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewInvoiceResponse(invoice))
}

// MarkInvoicePaid marks one of the caller's own invoices as paid
func (h *handler) MarkInvoicePaid(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondBadRequest(c, "Caller identity missing")
		return
	}

	company, err := domain.NewIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid company address", err.Error())
		return
	}

	number, err := parseSequence(c.Param("number"))
	if err != nil {
		respondBadRequest(c, "Invalid invoice number", err.Error())
		return
	}

	event, err := h.orchestrator.MarkInvoicePaid(c.Request.Context(), caller, company, number)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	h.dispatcher.Dispatch(c.Request.Context(), event)

	invoice, err := h.orchestrator.InvoiceInfo(c.Request.Context(), company, number)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewInvoiceResponse(invoice))
}

// RegisterCustomer registers a customer relationship for the caller's own company
func (h *handler) RegisterCustomer(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondBadRequest(c, "Caller identity missing")
		return
	}

	company, err := domain.NewIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid company address", err.Error())
		return
	}

	var req dto.RegisterCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	customer, err := domain.NewIdentity(req.Customer)
	if err != nil {
		respondBadRequest(c, "Invalid customer address", err.Error())
		return
	}

	if err := h.orchestrator.RegisterCustomer(c.Request.Context(), caller, company, customer); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

// GetCustomer retrieves a (company, customer) record with its invoice history
func (h *handler) GetCustomer(c *gin.Context) {
	company, err := domain.NewIdentity(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid company address", err.Error())
		return
	}

	customer, err := domain.NewIdentity(c.Param("customer"))
	if err != nil {
		respondBadRequest(c, "Invalid customer address", err.Error())
		return
	}

	account, err := h.orchestrator.CustomerInfo(c.Request.Context(), company, customer)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	invoices, err := h.orchestrator.PurchaseHistory(c.Request.Context(), company, customer)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCustomerResponse(account, invoices))
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// parseSequence parses a positive sequence number path parameter
func parseSequence(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}
