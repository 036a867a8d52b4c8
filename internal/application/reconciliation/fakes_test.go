package reconciliation

import (
	"context"
	"sync"
	"time"

	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/ledger"
	domain "github.com/contaflow/backend/internal/domain/reconciliation"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// In-memory fakes backing the service tests. SaveWithLock mimics the
// optimistic version check of the real repositories.

type fakeClientRepo struct {
	clients map[uuid.UUID]*billing.Client
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{clients: make(map[uuid.UUID]*billing.Client)}
}

func (r *fakeClientRepo) add(c *billing.Client) { r.clients[c.GetID()] = c }

func (r *fakeClientRepo) Save(_ context.Context, c *billing.Client) error {
	r.clients[c.GetID()] = c
	return nil
}

func (r *fakeClientRepo) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*billing.Client, error) {
	if c, ok := r.clients[id]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeClientRepo) FindByDocument(_ context.Context, _ uuid.UUID, document string) (*billing.Client, error) {
	for _, c := range r.clients {
		if c.Document == document {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeClientRepo) FindByIDs(_ context.Context, _ uuid.UUID, ids []uuid.UUID) ([]*billing.Client, error) {
	out := make([]*billing.Client, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.clients[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeClientRepo) FindByGroup(_ context.Context, _ uuid.UUID, groupID uuid.UUID) ([]*billing.Client, error) {
	var out []*billing.Client
	for _, c := range r.clients {
		if c.EconomicGroupID != nil && *c.EconomicGroupID == groupID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeClientRepo) FindActive(_ context.Context, _ uuid.UUID) ([]*billing.Client, error) {
	var out []*billing.Client
	for _, c := range r.clients {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeClientRepo) List(_ context.Context, _ uuid.UUID, _ billing.ClientFilter) (shared.Paginated[*billing.Client], error) {
	return shared.Paginated[*billing.Client]{}, nil
}

func (r *fakeClientRepo) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	delete(r.clients, id)
	return nil
}

type fakeGroupRepo struct {
	groups map[uuid.UUID]*billing.EconomicGroup
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[uuid.UUID]*billing.EconomicGroup)}
}

func (r *fakeGroupRepo) add(g *billing.EconomicGroup) { r.groups[g.GetID()] = g }

func (r *fakeGroupRepo) Save(_ context.Context, g *billing.EconomicGroup) error {
	r.groups[g.GetID()] = g
	return nil
}

func (r *fakeGroupRepo) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*billing.EconomicGroup, error) {
	if g, ok := r.groups[id]; ok {
		return g, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeGroupRepo) FindAll(_ context.Context, _ uuid.UUID) ([]*billing.EconomicGroup, error) {
	out := make([]*billing.EconomicGroup, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	return out, nil
}

func (r *fakeGroupRepo) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	delete(r.groups, id)
	return nil
}

type fakeInvoiceRepo struct {
	mu        sync.Mutex
	invoices  map[uuid.UUID]*billing.Invoice
	versions  map[uuid.UUID]int
	failClaim map[uuid.UUID]bool
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices:  make(map[uuid.UUID]*billing.Invoice),
		versions:  make(map[uuid.UUID]int),
		failClaim: make(map[uuid.UUID]bool),
	}
}

func (r *fakeInvoiceRepo) add(inv *billing.Invoice) {
	r.invoices[inv.GetID()] = inv
	r.versions[inv.GetID()] = inv.GetVersion()
}

func (r *fakeInvoiceRepo) Save(_ context.Context, inv *billing.Invoice) error {
	r.invoices[inv.GetID()] = inv
	r.versions[inv.GetID()] = inv.GetVersion()
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(_ context.Context, inv *billing.Invoice, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failClaim[inv.GetID()] {
		return shared.ErrConcurrencyConflict
	}
	if committed, ok := r.versions[inv.GetID()]; ok && committed != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	r.invoices[inv.GetID()] = inv
	r.versions[inv.GetID()] = inv.GetVersion()
	return nil
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*billing.Invoice, error) {
	if inv, ok := r.invoices[id]; ok {
		return inv, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeInvoiceRepo) FindByIDs(_ context.Context, _ uuid.UUID, ids []uuid.UUID) ([]*billing.Invoice, error) {
	out := make([]*billing.Invoice, 0, len(ids))
	for _, id := range ids {
		if inv, ok := r.invoices[id]; ok {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindByClient(_ context.Context, _ uuid.UUID, _ uuid.UUID, _ billing.InvoiceFilter) (shared.Paginated[*billing.Invoice], error) {
	return shared.Paginated[*billing.Invoice]{}, nil
}

func (r *fakeInvoiceRepo) FindOpenByDueDate(_ context.Context, _ uuid.UUID, dueDate time.Time) ([]*billing.Invoice, error) {
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.Status.CanSettle() && sameDay(inv.DueDate, dueDate) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindOpenByClientsAndCompetence(_ context.Context, _ uuid.UUID, clientIDs []uuid.UUID, competence valueobject.Competence) ([]*billing.Invoice, error) {
	members := make(map[uuid.UUID]bool, len(clientIDs))
	for _, id := range clientIDs {
		members[id] = true
	}
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.Status.CanSettle() && members[inv.ClientID] && inv.Competence.Equals(competence) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindOpenByInvoiceNumber(_ context.Context, _ uuid.UUID, invoiceNumber string) (*billing.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.Status.CanSettle() && inv.InvoiceNumber == invoiceNumber {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeInvoiceRepo) FindPaidByPaidDate(_ context.Context, _ uuid.UUID, paidDate time.Time) ([]*billing.Invoice, error) {
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.Status == billing.InvoiceStatusPaid && inv.PaidDate != nil && sameDay(*inv.PaidDate, paidDate) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindBySettlementTransaction(_ context.Context, _ uuid.UUID, transactionID uuid.UUID) ([]*billing.Invoice, error) {
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.SettledByTransactionID != nil && *inv.SettledByTransactionID == transactionID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) List(_ context.Context, _ uuid.UUID, _ billing.InvoiceFilter) (shared.Paginated[*billing.Invoice], error) {
	return shared.Paginated[*billing.Invoice]{}, nil
}

func (r *fakeInvoiceRepo) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	delete(r.invoices, id)
	return nil
}

type fakeTxRepo struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]*domain.BankTransaction
	versions     map[uuid.UUID]int
	failClaim    map[uuid.UUID]bool
}

func newFakeTxRepo() *fakeTxRepo {
	return &fakeTxRepo{
		transactions: make(map[uuid.UUID]*domain.BankTransaction),
		versions:     make(map[uuid.UUID]int),
		failClaim:    make(map[uuid.UUID]bool),
	}
}

func (r *fakeTxRepo) add(tx *domain.BankTransaction) {
	r.transactions[tx.GetID()] = tx
	r.versions[tx.GetID()] = tx.GetVersion()
}

func (r *fakeTxRepo) Save(_ context.Context, tx *domain.BankTransaction) error {
	r.transactions[tx.GetID()] = tx
	r.versions[tx.GetID()] = tx.GetVersion()
	return nil
}

func (r *fakeTxRepo) SaveWithLock(_ context.Context, tx *domain.BankTransaction, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failClaim[tx.GetID()] {
		return shared.ErrConcurrencyConflict
	}
	if committed, ok := r.versions[tx.GetID()]; ok && committed != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	r.transactions[tx.GetID()] = tx
	r.versions[tx.GetID()] = tx.GetVersion()
	return nil
}

func (r *fakeTxRepo) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*domain.BankTransaction, error) {
	if tx, ok := r.transactions[id]; ok {
		return tx, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeTxRepo) FindUnmatchedCredits(_ context.Context, tenantID uuid.UUID, from, to time.Time) ([]*domain.BankTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.BankTransaction
	for _, tx := range r.transactions {
		if tx.TenantID == tenantID && tx.Status == domain.MatchStatusUnmatched && tx.IsCredit() &&
			!tx.TransactionDate.Before(from) && !tx.TransactionDate.After(to) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *fakeTxRepo) FindSuggested(_ context.Context, _ uuid.UUID, _ shared.Filter) (shared.Paginated[*domain.BankTransaction], error) {
	return shared.Paginated[*domain.BankTransaction]{}, nil
}

func (r *fakeTxRepo) List(_ context.Context, _ uuid.UUID, _ domain.TransactionFilter) (shared.Paginated[*domain.BankTransaction], error) {
	return shared.Paginated[*domain.BankTransaction]{}, nil
}

type fakeAccountRepo struct {
	accounts map[uuid.UUID]*ledger.ChartOfAccount
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*ledger.ChartOfAccount)}
}

func (r *fakeAccountRepo) add(a *ledger.ChartOfAccount) { r.accounts[a.GetID()] = a }

func (r *fakeAccountRepo) Save(_ context.Context, a *ledger.ChartOfAccount) error {
	r.accounts[a.GetID()] = a
	return nil
}

func (r *fakeAccountRepo) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*ledger.ChartOfAccount, error) {
	if a, ok := r.accounts[id]; ok {
		return a, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeAccountRepo) FindByCode(_ context.Context, _ uuid.UUID, code string) (*ledger.ChartOfAccount, error) {
	for _, a := range r.accounts {
		if a.Code == code {
			return a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeAccountRepo) FindByClient(_ context.Context, _ uuid.UUID, clientID uuid.UUID) (*ledger.ChartOfAccount, error) {
	for _, a := range r.accounts {
		if a.ClientID != nil && *a.ClientID == clientID {
			return a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeAccountRepo) FindReceivables(_ context.Context, _ uuid.UUID) ([]*ledger.ChartOfAccount, error) {
	var out []*ledger.ChartOfAccount
	for _, a := range r.accounts {
		if a.Active && a.IsReceivable() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) List(_ context.Context, _ uuid.UUID, _ shared.Filter) (shared.Paginated[*ledger.ChartOfAccount], error) {
	return shared.Paginated[*ledger.ChartOfAccount]{}, nil
}

type fakeRuleRepo struct {
	rules map[uuid.UUID]*ledger.MatchRule
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[uuid.UUID]*ledger.MatchRule)}
}

func (r *fakeRuleRepo) Save(_ context.Context, rule *ledger.MatchRule) error {
	r.rules[rule.GetID()] = rule
	return nil
}

func (r *fakeRuleRepo) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*ledger.MatchRule, error) {
	if rule, ok := r.rules[id]; ok {
		return rule, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeRuleRepo) FindByPattern(_ context.Context, _ uuid.UUID, pattern string) (*ledger.MatchRule, error) {
	for _, rule := range r.rules {
		if rule.NormalizedPattern == pattern {
			return rule, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeRuleRepo) FindAll(_ context.Context, _ uuid.UUID) ([]*ledger.MatchRule, error) {
	out := make([]*ledger.MatchRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	return out, nil
}

func (r *fakeRuleRepo) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	delete(r.rules, id)
	return nil
}

// fakeEntryService counts settlement-entry calls per invoice
type fakeEntryService struct {
	created map[uuid.UUID]int
	deleted map[uuid.UUID]int
	failFor map[uuid.UUID]error
}

func newFakeEntryService() *fakeEntryService {
	return &fakeEntryService{
		created: make(map[uuid.UUID]int),
		deleted: make(map[uuid.UUID]int),
		failFor: make(map[uuid.UUID]error),
	}
}

func (s *fakeEntryService) CreateSettlementEntries(_ context.Context, _ uuid.UUID, invoiceID, _ uuid.UUID) error {
	if err := s.failFor[invoiceID]; err != nil {
		return err
	}
	s.created[invoiceID]++
	return nil
}

func (s *fakeEntryService) DeleteSettlementEntries(_ context.Context, _ uuid.UUID, invoiceID uuid.UUID) error {
	if err := s.failFor[invoiceID]; err != nil {
		return err
	}
	s.deleted[invoiceID]++
	return nil
}

// passthroughUoW runs the function directly; transactional behavior is
// covered by the persistence integration tests
type passthroughUoW struct{}

func (passthroughUoW) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
