package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/store/schema"
)

// memoryState holds all ledger state for the in-memory store. Atomically
// stages writes on a deep copy and swaps it in only when the whole
// transaction validated, so a failed transaction leaves no trace.
type memoryState struct {
	wirings    map[string]string
	accounts   map[string]*schema.Account
	allowances map[string]*schema.Allowance
	stats      schema.TokenStats
	companies  map[string]*schema.Company
	products   map[string][]*schema.Product
	customers  map[string]*schema.CustomerAccount
	invoices   map[string][]*schema.Invoice
	events     []*schema.LedgerEvent
	nextID     int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		wirings:    make(map[string]string),
		accounts:   make(map[string]*schema.Account),
		allowances: make(map[string]*schema.Allowance),
		stats:      schema.TokenStats{ID: 1},
		companies:  make(map[string]*schema.Company),
		products:   make(map[string][]*schema.Product),
		customers:  make(map[string]*schema.CustomerAccount),
		invoices:   make(map[string][]*schema.Invoice),
	}
}

func (st *memoryState) clone() *memoryState {
	out := newMemoryState()
	out.stats = st.stats
	out.nextID = st.nextID
	for k, v := range st.wirings {
		out.wirings[k] = v
	}
	for k, v := range st.accounts {
		c := *v
		out.accounts[k] = &c
	}
	for k, v := range st.allowances {
		c := *v
		out.allowances[k] = &c
	}
	for k, v := range st.companies {
		c := *v
		out.companies[k] = &c
	}
	for k, list := range st.products {
		copied := make([]*schema.Product, len(list))
		for i, p := range list {
			c := *p
			copied[i] = &c
		}
		out.products[k] = copied
	}
	for k, v := range st.customers {
		c := *v
		out.customers[k] = &c
	}
	for k, list := range st.invoices {
		copied := make([]*schema.Invoice, len(list))
		for i, inv := range list {
			c := *inv
			copied[i] = &c
		}
		out.invoices[k] = copied
	}
	out.events = make([]*schema.LedgerEvent, len(st.events))
	for i, ev := range st.events {
		c := *ev
		out.events[i] = &c
	}
	return out
}

func (st *memoryState) nextRowID() int64 {
	st.nextID++
	return st.nextID
}

type memoryStore struct {
	mu    *sync.Mutex
	state *memoryState
	// inTx marks a tx-scoped view operating on a staged clone
	inTx bool
}

// NewMemoryStore creates an in-memory store. It implements the same
// transactional contract as the Postgres store and is the store used by unit
// tests and local development.
func NewMemoryStore() Store {
	return &memoryStore{
		mu:    &sync.Mutex{},
		state: newMemoryState(),
	}
}

// Atomically stages fn's writes on a clone of the state and commits the clone
// only when fn succeeds.
func (s *memoryStore) Atomically(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		// Nested transactions join the enclosing staging scope.
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &memoryStore{mu: s.mu, state: s.state.clone(), inTx: true}
	if err := fn(staged); err != nil {
		return err
	}

	s.state = staged.state
	return nil
}

func (s *memoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func pairKey(a, b string) string {
	return a + "|" + b
}

// SetWiring records a set-once capability assignment
func (s *memoryStore) SetWiring(ctx context.Context, name string, identity domain.Identity) error {
	defer s.lock()()

	if _, ok := s.state.wirings[name]; ok {
		return fmt.Errorf("wiring %q: %w", name, domain.ErrAlreadyWired)
	}
	s.state.wirings[name] = identity.String()
	return nil
}

// GetWiring retrieves a capability assignment
func (s *memoryStore) GetWiring(ctx context.Context, name string) (domain.Identity, error) {
	defer s.lock()()

	identity, ok := s.state.wirings[name]
	if !ok {
		return "", fmt.Errorf("wiring %q: %w", name, domain.ErrNotWired)
	}
	return domain.Identity(identity), nil
}

// GetBalance retrieves an account balance, zero for unknown accounts
func (s *memoryStore) GetBalance(ctx context.Context, address domain.Identity) (int64, error) {
	defer s.lock()()

	account, ok := s.state.accounts[address.String()]
	if !ok {
		return 0, nil
	}
	return account.Balance, nil
}

// AddBalance applies a relative balance change
func (s *memoryStore) AddBalance(ctx context.Context, address domain.Identity, delta int64) error {
	defer s.lock()()

	now := time.Now().UTC()
	if account, ok := s.state.accounts[address.String()]; ok {
		updated, err := domain.CheckedAdd(account.Balance, delta)
		if err != nil {
			return err
		}
		if updated < 0 {
			return fmt.Errorf("account %s: %w", address, domain.ErrInsufficientBalance)
		}
		account.Balance = updated
		account.UpdatedAt = now
		return nil
	}
	if delta < 0 {
		return fmt.Errorf("account %s: %w", address, domain.ErrInsufficientBalance)
	}
	s.state.accounts[address.String()] = &schema.Account{
		ID:        s.state.nextRowID(),
		Address:   address.String(),
		Balance:   delta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// GetAllowance retrieves the remaining approved amount, zero when absent
func (s *memoryStore) GetAllowance(ctx context.Context, owner, spender domain.Identity) (int64, error) {
	defer s.lock()()

	allowance, ok := s.state.allowances[pairKey(owner.String(), spender.String())]
	if !ok {
		return 0, nil
	}
	return allowance.Amount, nil
}

// SetAllowance upserts the approved amount for (owner, spender)
func (s *memoryStore) SetAllowance(ctx context.Context, owner, spender domain.Identity, amount int64) error {
	defer s.lock()()

	key := pairKey(owner.String(), spender.String())
	now := time.Now().UTC()
	if allowance, ok := s.state.allowances[key]; ok {
		allowance.Amount = amount
		allowance.UpdatedAt = now
		return nil
	}
	s.state.allowances[key] = &schema.Allowance{
		ID:             s.state.nextRowID(),
		OwnerAddress:   owner.String(),
		SpenderAddress: spender.String(),
		Amount:         amount,
		UpdatedAt:      now,
	}
	return nil
}

// GetTokenStats retrieves the cumulative minted and burned totals
func (s *memoryStore) GetTokenStats(ctx context.Context) (int64, int64, error) {
	defer s.lock()()

	return s.state.stats.TotalMinted, s.state.stats.TotalBurned, nil
}

// AddTokenStats adds deltas to the cumulative minted and burned totals
func (s *memoryStore) AddTokenStats(ctx context.Context, mintedDelta, burnedDelta int64) error {
	defer s.lock()()

	s.state.stats.TotalMinted += mintedDelta
	s.state.stats.TotalBurned += burnedDelta
	s.state.stats.UpdatedAt = time.Now().UTC()
	return nil
}

// CreateCompany inserts a company record
func (s *memoryStore) CreateCompany(ctx context.Context, company *schema.Company) error {
	defer s.lock()()

	if _, ok := s.state.companies[company.Address]; ok {
		return fmt.Errorf("company %s: %w", company.Address, domain.ErrAlreadyExists)
	}
	company.ID = s.state.nextRowID()
	if company.CreatedAt.IsZero() {
		company.CreatedAt = time.Now().UTC()
	}
	c := *company
	s.state.companies[company.Address] = &c
	return nil
}

// GetCompany retrieves a company by identity
func (s *memoryStore) GetCompany(ctx context.Context, address domain.Identity) (*schema.Company, error) {
	defer s.lock()()

	company, ok := s.state.companies[address.String()]
	if !ok {
		return nil, nil
	}
	c := *company
	return &c, nil
}

// ListCompanies retrieves all companies in registration order
func (s *memoryStore) ListCompanies(ctx context.Context) ([]schema.Company, error) {
	defer s.lock()()

	companies := make([]schema.Company, 0, len(s.state.companies))
	for _, c := range s.state.companies {
		companies = append(companies, *c)
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].ID < companies[j].ID })
	return companies, nil
}

// SetCompanyActive flips a company's active flag
func (s *memoryStore) SetCompanyActive(ctx context.Context, address domain.Identity, active bool) error {
	defer s.lock()()

	company, ok := s.state.companies[address.String()]
	if !ok {
		return fmt.Errorf("company %s: %w", address, domain.ErrNotFound)
	}
	company.Active = active
	return nil
}

// CreateProduct inserts a product, assigning the next sequential id for its
// company
func (s *memoryStore) CreateProduct(ctx context.Context, product *schema.Product) (uint64, error) {
	defer s.lock()()

	list := s.state.products[product.CompanyAddress]
	var maxID uint64
	for _, p := range list {
		if p.ProductID > maxID {
			maxID = p.ProductID
		}
	}
	product.ID = s.state.nextRowID()
	product.ProductID = maxID + 1
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	p := *product
	s.state.products[product.CompanyAddress] = append(list, &p)
	return product.ProductID, nil
}

// GetProduct retrieves a product by (company, id)
func (s *memoryStore) GetProduct(ctx context.Context, company domain.Identity, productID uint64) (*schema.Product, error) {
	defer s.lock()()

	for _, p := range s.state.products[company.String()] {
		if p.ProductID == productID {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

// ListProducts retrieves a company's products in creation order
func (s *memoryStore) ListProducts(ctx context.Context, company domain.Identity) ([]schema.Product, error) {
	defer s.lock()()

	list := s.state.products[company.String()]
	products := make([]schema.Product, len(list))
	for i, p := range list {
		products[i] = *p
	}
	return products, nil
}

// SetProductActive flips a product's active flag
func (s *memoryStore) SetProductActive(ctx context.Context, company domain.Identity, productID uint64, active bool) error {
	defer s.lock()()

	for _, p := range s.state.products[company.String()] {
		if p.ProductID == productID {
			p.Active = active
			return nil
		}
	}
	return fmt.Errorf("product %s/%d: %w", company, productID, domain.ErrNotFound)
}

// GetCustomer retrieves the (company, customer) purchase record
func (s *memoryStore) GetCustomer(ctx context.Context, company, customer domain.Identity) (*schema.CustomerAccount, error) {
	defer s.lock()()

	account, ok := s.state.customers[pairKey(company.String(), customer.String())]
	if !ok {
		return nil, nil
	}
	c := *account
	return &c, nil
}

// SaveCustomer upserts the (company, customer) purchase record
func (s *memoryStore) SaveCustomer(ctx context.Context, customer *schema.CustomerAccount) error {
	defer s.lock()()

	key := pairKey(customer.CompanyAddress, customer.CustomerAddress)
	now := time.Now().UTC()
	if existing, ok := s.state.customers[key]; ok {
		existing.TotalPurchases = customer.TotalPurchases
		existing.Active = customer.Active
		existing.UpdatedAt = now
		return nil
	}
	customer.ID = s.state.nextRowID()
	if customer.RegisteredAt.IsZero() {
		customer.RegisteredAt = now
	}
	customer.UpdatedAt = now
	c := *customer
	s.state.customers[key] = &c
	return nil
}

// CreateInvoice inserts an invoice, assigning the next sequential number for
// its company
func (s *memoryStore) CreateInvoice(ctx context.Context, invoice *schema.Invoice) (uint64, error) {
	defer s.lock()()

	list := s.state.invoices[invoice.CompanyAddress]
	var maxNumber uint64
	for _, inv := range list {
		if inv.Number > maxNumber {
			maxNumber = inv.Number
		}
	}
	invoice.ID = s.state.nextRowID()
	invoice.Number = maxNumber + 1
	now := time.Now().UTC()
	if invoice.IssuedAt.IsZero() {
		invoice.IssuedAt = now
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = now
	}
	inv := *invoice
	s.state.invoices[invoice.CompanyAddress] = append(list, &inv)
	return invoice.Number, nil
}

// GetInvoice retrieves an invoice by (company, number)
func (s *memoryStore) GetInvoice(ctx context.Context, company domain.Identity, number uint64) (*schema.Invoice, error) {
	defer s.lock()()

	for _, inv := range s.state.invoices[company.String()] {
		if inv.Number == number {
			c := *inv
			return &c, nil
		}
	}
	return nil, nil
}

// ListInvoicesByCompany retrieves a company's invoices in creation order
func (s *memoryStore) ListInvoicesByCompany(ctx context.Context, company domain.Identity) ([]schema.Invoice, error) {
	defer s.lock()()

	list := s.state.invoices[company.String()]
	invoices := make([]schema.Invoice, len(list))
	for i, inv := range list {
		invoices[i] = *inv
	}
	return invoices, nil
}

// ListInvoicesByCustomer retrieves the invoices issued to a customer by a
// company, in creation order
func (s *memoryStore) ListInvoicesByCustomer(ctx context.Context, company, customer domain.Identity) ([]schema.Invoice, error) {
	defer s.lock()()

	var invoices []schema.Invoice
	for _, inv := range s.state.invoices[company.String()] {
		if inv.CustomerAddress == customer.String() {
			invoices = append(invoices, *inv)
		}
	}
	return invoices, nil
}

// UpdateInvoicePaid marks an invoice paid exactly once
func (s *memoryStore) UpdateInvoicePaid(ctx context.Context, company domain.Identity, number uint64) error {
	defer s.lock()()

	for _, inv := range s.state.invoices[company.String()] {
		if inv.Number == number {
			if inv.Paid {
				return fmt.Errorf("invoice %s/%d already paid: %w", company, number, domain.ErrInvalidState)
			}
			inv.Paid = true
			return nil
		}
	}
	return fmt.Errorf("invoice %s/%d: %w", company, number, domain.ErrNotFound)
}

// AppendEvent persists a ledger event row
func (s *memoryStore) AppendEvent(ctx context.Context, event *schema.LedgerEvent) error {
	defer s.lock()()

	event.ID = s.state.nextRowID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	ev := *event
	s.state.events = append(s.state.events, &ev)
	return nil
}
