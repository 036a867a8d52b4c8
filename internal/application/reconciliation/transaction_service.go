package reconciliation

import (
	"context"
	"regexp"
	"strings"
	"time"

	domain "github.com/contaflow/backend/internal/domain/reconciliation"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Identifier patterns found in Brazilian bank statement descriptions.
// CNPJ and CPF may appear punctuated or as bare digit runs; COB is the
// billing-batch code stamped by the invoicing system.
var (
	cnpjPattern = regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b`)
	cpfPattern  = regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`)
	cobPattern  = regexp.MustCompile(`\bCOB\s?-?\s?(\d{4,10})\b`)
	digitsOnly  = regexp.MustCompile(`\D`)
)

// IngestTransactionInput carries one statement line
type IngestTransactionInput struct {
	TransactionDate time.Time
	Amount          decimal.Decimal
	Description     string
	BankReference   string
}

// TransactionService ingests statement lines and exposes transaction
// queries. Extraction of payer identifiers happens here, once, at
// ingestion; the matching passes only read what was extracted.
type TransactionService struct {
	txRepo domain.BankTransactionRepository
	logger *zap.Logger
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(txRepo domain.BankTransactionRepository, logger *zap.Logger) *TransactionService {
	return &TransactionService{txRepo: txRepo, logger: logger}
}

// Ingest records a statement line with its extracted identifiers
func (s *TransactionService) Ingest(ctx context.Context, tenantID uuid.UUID, input IngestTransactionInput) (*domain.BankTransaction, error) {
	tx, err := domain.NewBankTransaction(
		tenantID,
		input.TransactionDate,
		input.Amount,
		input.Description,
		input.BankReference,
	)
	if err != nil {
		return nil, err
	}

	cnpj, cpf, cob := ExtractIdentifiers(input.Description)
	tx.SetExtractedIdentifiers(cnpj, cpf, cob)

	if err := s.txRepo.Save(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Debug("transaction ingested",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transaction_id", tx.GetID().String()),
		zap.Bool("has_cnpj", cnpj != ""),
		zap.Bool("has_cpf", cpf != ""))
	return tx, nil
}

// ExtractIdentifiers parses CNPJ, CPF and COB codes out of a statement
// description. A CNPJ match suppresses the CPF scan: every CNPJ contains
// an 11-digit run that would otherwise read as a CPF.
func ExtractIdentifiers(description string) (cnpj, cpf, cob string) {
	if m := cnpjPattern.FindString(description); m != "" {
		cnpj = digitsOnly.ReplaceAllString(m, "")
	}
	if cnpj == "" {
		if m := cpfPattern.FindString(description); m != "" {
			cpf = digitsOnly.ReplaceAllString(m, "")
		}
	}
	if m := cobPattern.FindStringSubmatch(strings.ToUpper(description)); m != nil {
		cob = m[1]
	}
	return cnpj, cpf, cob
}

// Get returns one transaction
func (s *TransactionService) Get(ctx context.Context, tenantID, transactionID uuid.UUID) (*domain.BankTransaction, error) {
	return s.txRepo.FindByID(ctx, tenantID, transactionID)
}

// List returns a page of transactions
func (s *TransactionService) List(ctx context.Context, tenantID uuid.UUID, filter domain.TransactionFilter) (shared.Paginated[*domain.BankTransaction], error) {
	return s.txRepo.List(ctx, tenantID, filter)
}

// ListSuggested returns the transactions awaiting human review
func (s *TransactionService) ListSuggested(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[*domain.BankTransaction], error) {
	return s.txRepo.FindSuggested(ctx, tenantID, filter)
}
