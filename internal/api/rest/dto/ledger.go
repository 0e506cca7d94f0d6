package dto

import (
	"time"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/ledger/settlement"
	"github.com/tokencart/settlement/internal/store/schema"
)

// DepositRequest asks the payment processor to mint tokens for a buyer
type DepositRequest struct {
	Buyer       string `json:"buyer" binding:"required"`
	GrossAmount int64  `json:"gross_amount" binding:"required"`
}

// WithdrawalRequest asks the payment processor to burn a seller's tokens
type WithdrawalRequest struct {
	Seller      string `json:"seller" binding:"required"`
	TokenAmount int64  `json:"token_amount" binding:"required"`
}

// TransferRequest moves tokens from the authenticated caller to another
// account. Amount carries no binding rule: zero is a valid transfer and
// negatives are rejected by the ledger.
type TransferRequest struct {
	To     string `json:"to" binding:"required"`
	Amount int64  `json:"amount"`
}

// ApprovalRequest sets the caller's allowance for a spender (absolute, not additive)
type ApprovalRequest struct {
	Spender string `json:"spender" binding:"required"`
	Amount  int64  `json:"amount"`
}

// BalanceResponse reports an account balance
type BalanceResponse struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

// AllowanceResponse reports an owner/spender allowance
type AllowanceResponse struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance int64  `json:"allowance"`
}

// TokenEventResponse reports the audit event recorded for a token operation
type TokenEventResponse struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Subject   string    `json:"subject"`
	Amount    int64     `json:"amount"`
	Fee       int64     `json:"fee,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTokenEventResponse maps a ledger event to its response shape
func NewTokenEventResponse(event *domain.LedgerEvent) TokenEventResponse {
	return TokenEventResponse{
		EventID:   event.EventID,
		EventType: string(event.EventType),
		Subject:   event.Subject.String(),
		Amount:    event.Amount,
		Fee:       event.Fee,
		Timestamp: event.Timestamp,
	}
}

// RegisterCompanyRequest registers a company under an identity
type RegisterCompanyRequest struct {
	Company string `json:"company" binding:"required"`
	Name    string `json:"name" binding:"required"`
}

// SetActiveRequest flips an activation flag
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// CompanyResponse represents a registered company
type CompanyResponse struct {
	Address   string    `json:"address"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCompanyResponse maps a company record to its response shape
func NewCompanyResponse(company *schema.Company) CompanyResponse {
	return CompanyResponse{
		Address:   company.Address,
		Name:      company.Name,
		Active:    company.Active,
		CreatedAt: company.CreatedAt,
	}
}

// CreateProductRequest adds a product to the caller's catalog. A zero price
// is valid; the catalog rejects negatives.
type CreateProductRequest struct {
	Name       string `json:"name" binding:"required"`
	Price      int64  `json:"price"`
	ContentRef string `json:"content_ref"`
}

// ProductResponse represents a catalog product
type ProductResponse struct {
	Company    string    `json:"company"`
	ProductID  uint64    `json:"product_id"`
	Name       string    `json:"name"`
	Price      int64     `json:"price"`
	ContentRef string    `json:"content_ref,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewProductResponse maps a product record to its response shape
func NewProductResponse(product *schema.Product) ProductResponse {
	return ProductResponse{
		Company:    product.CompanyAddress,
		ProductID:  product.ProductID,
		Name:       product.Name,
		Price:      product.Price,
		ContentRef: product.ContentRef,
		Active:     product.Active,
		CreatedAt:  product.CreatedAt,
	}
}

// PurchaseRequest submits a multi-company purchase for atomic settlement
type PurchaseRequest struct {
	Items []PurchaseItemRequest `json:"items" binding:"required"`
}

// PurchaseItemRequest is one line of a purchase. UnitPrice may be zero so
// that zero-price products remain purchasable; the orchestrator verifies it
// against the stored price.
type PurchaseItemRequest struct {
	Company   string `json:"company" binding:"required"`
	ProductID uint64 `json:"product_id" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required"`
	UnitPrice int64  `json:"unit_price"`
}

// ReceiptResponse is the definitive result of a settled purchase
type ReceiptResponse struct {
	Reference string                `json:"reference"`
	Buyer     string                `json:"buyer"`
	Lines     []ReceiptLineResponse `json:"lines"`
	Total     int64                 `json:"total"`
}

// ReceiptLineResponse is one per-company line of a receipt
type ReceiptLineResponse struct {
	Company       string `json:"company"`
	InvoiceNumber uint64 `json:"invoice_number"`
	Subtotal      int64  `json:"subtotal"`
	Fee           int64  `json:"fee,omitempty"`
}

// NewReceiptResponse maps a settlement receipt to its response shape
func NewReceiptResponse(receipt *settlement.Receipt) ReceiptResponse {
	lines := make([]ReceiptLineResponse, 0, len(receipt.Lines))
	for _, line := range receipt.Lines {
		lines = append(lines, ReceiptLineResponse{
			Company:       line.Company.String(),
			InvoiceNumber: line.InvoiceNumber,
			Subtotal:      line.Subtotal,
			Fee:           line.Fee,
		})
	}
	return ReceiptResponse{
		Reference: receipt.Reference,
		Buyer:     receipt.Buyer.String(),
		Lines:     lines,
		Total:     receipt.Total,
	}
}

// InvoiceResponse represents an issued invoice
type InvoiceResponse struct {
	Company     string    `json:"company"`
	Number      uint64    `json:"number"`
	Customer    string    `json:"customer"`
	TotalAmount int64     `json:"total_amount"`
	Paid        bool      `json:"paid"`
	IssuedAt    time.Time `json:"issued_at"`
}

// NewInvoiceResponse maps an invoice record to its response shape
func NewInvoiceResponse(invoice *schema.Invoice) InvoiceResponse {
	return InvoiceResponse{
		Company:     invoice.CompanyAddress,
		Number:      invoice.Number,
		Customer:    invoice.CustomerAddress,
		TotalAmount: invoice.TotalAmount,
		Paid:        invoice.Paid,
		IssuedAt:    invoice.IssuedAt,
	}
}

// RegisterCustomerRequest registers a customer relationship ahead of a purchase
type RegisterCustomerRequest struct {
	Customer string `json:"customer" binding:"required"`
}

// CustomerResponse represents a (company, customer) purchase record with history
type CustomerResponse struct {
	Company        string            `json:"company"`
	Customer       string            `json:"customer"`
	TotalPurchases int64             `json:"total_purchases"`
	Active         bool              `json:"active"`
	RegisteredAt   time.Time         `json:"registered_at"`
	Invoices       []InvoiceResponse `json:"invoices"`
}

// NewCustomerResponse maps a customer record and its invoice history
func NewCustomerResponse(account *schema.CustomerAccount, invoices []schema.Invoice) CustomerResponse {
	history := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		history = append(history, NewInvoiceResponse(&invoices[i]))
	}
	return CustomerResponse{
		Company:        account.CompanyAddress,
		Customer:       account.CustomerAddress,
		TotalPurchases: account.TotalPurchases,
		Active:         account.Active,
		RegisteredAt:   account.RegisteredAt,
		Invoices:       history,
	}
}
