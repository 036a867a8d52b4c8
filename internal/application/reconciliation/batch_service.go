package reconciliation

import (
	"context"
	"sync"
	"time"

	domain "github.com/contaflow/backend/internal/domain/reconciliation"
	"github.com/contaflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchFailure records one transaction the batch could not process
type BatchFailure struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Error         string    `json:"error"`
}

// BatchReport summarizes one auto-reconcile run
type BatchReport struct {
	TenantID    uuid.UUID      `json:"tenant_id"`
	WindowFrom  time.Time      `json:"window_from"`
	WindowTo    time.Time      `json:"window_to"`
	Processed   int            `json:"processed"`
	AutoMatched int            `json:"auto_matched"`
	Suggested   int            `json:"suggested"`
	Unmatched   int            `json:"unmatched"`
	Skipped     int            `json:"skipped"`
	Failures    []BatchFailure `json:"failures,omitempty"`
}

// BatchReconcileService runs the orchestrator over a trailing window of
// unmatched credits. Transactions are processed sequentially within a
// tenant; one transaction's failure never aborts the batch.
type BatchReconcileService struct {
	txRepo    domain.BankTransactionRepository
	reconcile *ReconcileService
	options   Options
	logger    *zap.Logger
}

// NewBatchReconcileService creates a new BatchReconcileService
func NewBatchReconcileService(
	txRepo domain.BankTransactionRepository,
	reconcile *ReconcileService,
	options Options,
	logger *zap.Logger,
) *BatchReconcileService {
	return &BatchReconcileService{
		txRepo:    txRepo,
		reconcile: reconcile,
		options:   options.normalized(),
		logger:    logger,
	}
}

// Run processes every unmatched credit in the trailing window for one
// tenant. Re-running is safe: already matched transactions are skipped.
func (s *BatchReconcileService) Run(ctx context.Context, tenantID uuid.UUID) (*BatchReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "batch_run")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID.String())

	to := time.Now()
	from := to.AddDate(0, -s.options.BatchWindowMonths, 0)
	report := &BatchReport{TenantID: tenantID, WindowFrom: from, WindowTo: to}

	transactions, err := s.txRepo.FindUnmatchedCredits(ctx, tenantID, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.WithProfilingLabels(ctx,
		telemetry.ReconciliationOperationLabels(telemetry.OperationBatchRun, ""),
		func(c context.Context) {
			for _, tx := range transactions {
				if c.Err() != nil {
					// stop issuing new work units; finished ones stand
					return
				}
				report.Processed++

				result, err := s.reconcile.ProcessTransaction(c, tenantID, tx.GetID())
				if err != nil {
					report.Failures = append(report.Failures, BatchFailure{
						TransactionID: tx.GetID(),
						Error:         err.Error(),
					})
					s.logger.Error("batch item failed",
						zap.String("tenant_id", tenantID.String()),
						zap.String("transaction_id", tx.GetID().String()),
						zap.Error(err))
					continue
				}

				switch result.Outcome {
				case OutcomeAutoMatched:
					report.AutoMatched++
				case OutcomeSuggested:
					report.Suggested++
				case OutcomeAlreadyResolved:
					report.Skipped++
				default:
					report.Unmatched++
				}
			}
		})

	s.logger.Info("batch reconcile finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("processed", report.Processed),
		zap.Int("auto_matched", report.AutoMatched),
		zap.Int("suggested", report.Suggested),
		zap.Int("unmatched", report.Unmatched),
		zap.Int("failures", len(report.Failures)))
	telemetry.SetAttributes(span,
		"processed", report.Processed,
		"auto_matched", report.AutoMatched,
		"suggested", report.Suggested,
		"unmatched", report.Unmatched,
	)
	return report, nil
}

// RunAll fans a batch run out across tenants. Candidate sets of different
// tenants never overlap, so runs are parallel; each tenant still
// processes its own transactions sequentially.
func (s *BatchReconcileService) RunAll(ctx context.Context, tenantIDs []uuid.UUID) []*BatchReport {
	reports := make([]*BatchReport, len(tenantIDs))
	var wg sync.WaitGroup
	for i, tenantID := range tenantIDs {
		wg.Add(1)
		go func(i int, tenantID uuid.UUID) {
			defer wg.Done()
			report, err := s.Run(ctx, tenantID)
			if err != nil {
				s.logger.Error("tenant batch run failed",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(err))
				report = &BatchReport{TenantID: tenantID, Failures: []BatchFailure{{Error: err.Error()}}}
			}
			reports[i] = report
		}(i, tenantID)
	}
	wg.Wait()
	return reports
}
