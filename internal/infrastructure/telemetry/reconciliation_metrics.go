// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ReconciliationMetrics tracks the health of the matching engine: how many
// bank transactions were processed per outcome, how much money was settled
// automatically, and how large the review queue currently is.
type ReconciliationMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	transactionsProcessedTotal *Counter
	matchedAmountTotal         *Counter
	cascadeSettlementsTotal    *Counter
	reversalsTotal             *Counter

	// Gauge metrics (point-in-time values)
	pendingSuggestionsCount *Gauge
	openInvoicesCount       *Gauge

	// Histogram metrics
	matchDuration *Histogram

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	queueProvider ReviewQueueMetricsProvider
}

// ReviewQueueMetricsProvider provides review queue data for periodic metrics
// collection without depending on the reconciliation domain directly.
type ReviewQueueMetricsProvider interface {
	// GetPendingSuggestionCount returns the number of transactions awaiting review for a tenant
	GetPendingSuggestionCount(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// GetOpenInvoiceCount returns the number of unsettled invoices for a tenant
	GetOpenInvoiceCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ReconciliationMetricsConfig holds configuration for reconciliation metrics.
type ReconciliationMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	QueueProvider   ReviewQueueMetricsProvider
}

// NewReconciliationMetrics creates a new ReconciliationMetrics instance.
func NewReconciliationMetrics(cfg ReconciliationMetricsConfig) (*ReconciliationMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rm := &ReconciliationMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		queueProvider: cfg.QueueProvider,
	}

	var err error

	rm.transactionsProcessedTotal, err = NewCounter(
		cfg.Meter,
		"contaflow_transactions_processed_total",
		"Total number of bank transactions run through the matching engine",
		"{transactions}",
	)
	if err != nil {
		return nil, err
	}

	rm.matchedAmountTotal, err = NewCounter(
		cfg.Meter,
		"contaflow_matched_amount_total",
		"Total settled amount in centavos",
		"{centavos}",
	)
	if err != nil {
		return nil, err
	}

	rm.cascadeSettlementsTotal, err = NewCounter(
		cfg.Meter,
		"contaflow_cascade_settlements_total",
		"Total number of sibling invoices settled through group payment cascade",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	rm.reversalsTotal, err = NewCounter(
		cfg.Meter,
		"contaflow_match_reversals_total",
		"Total number of reconciliations undone by an accountant",
		"{reversals}",
	)
	if err != nil {
		return nil, err
	}

	rm.pendingSuggestionsCount, err = NewGauge(
		cfg.Meter,
		"contaflow_pending_suggestions_count",
		"Number of transactions currently awaiting review",
		"{transactions}",
	)
	if err != nil {
		return nil, err
	}

	rm.openInvoicesCount, err = NewGauge(
		cfg.Meter,
		"contaflow_open_invoices_count",
		"Number of unsettled invoices",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	rm.matchDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "contaflow_match_duration_seconds",
		Description: "Per-transaction matching pipeline duration",
		Unit:        "s",
		Boundaries:  MatchDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return rm, nil
}

// RecordTransactionProcessed records a matching pipeline run for one transaction.
func (rm *ReconciliationMetrics) RecordTransactionProcessed(ctx context.Context, tenantID uuid.UUID, outcome, method string) {
	rm.transactionsProcessedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrMatchOutcome.String(outcome),
		AttrIdentificationMethod.String(method),
	)
}

// RecordMatchedAmount records the settled amount of an applied match.
func (rm *ReconciliationMetrics) RecordMatchedAmount(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal) {
	centavos := amount.Mul(decimal.NewFromInt(100)).IntPart()
	rm.matchedAmountTotal.Add(ctx, centavos,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordCascadeSettlements records sibling invoices settled by a group payment.
func (rm *ReconciliationMetrics) RecordCascadeSettlements(ctx context.Context, tenantID uuid.UUID, count int64) {
	rm.cascadeSettlementsTotal.Add(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordReversal records an undone reconciliation.
func (rm *ReconciliationMetrics) RecordReversal(ctx context.Context, tenantID uuid.UUID) {
	rm.reversalsTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordMatchDuration records how long one transaction took to process.
func (rm *ReconciliationMetrics) RecordMatchDuration(ctx context.Context, tenantID uuid.UUID, d time.Duration, outcome string) {
	rm.matchDuration.RecordDuration(ctx, d,
		AttrTenantID.String(tenantID.String()),
		AttrMatchOutcome.String(outcome),
	)
}

// RecordPendingSuggestions records the current review queue depth for a tenant.
func (rm *ReconciliationMetrics) RecordPendingSuggestions(ctx context.Context, tenantID uuid.UUID, count int64) {
	rm.pendingSuggestionsCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordOpenInvoices records the current number of unsettled invoices for a tenant.
func (rm *ReconciliationMetrics) RecordOpenInvoices(ctx context.Context, tenantID uuid.UUID, count int64) {
	rm.openInvoicesCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// This is non-blocking; use Stop() to stop collection.
func (rm *ReconciliationMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	rm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go rm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

func (rm *ReconciliationMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	rm.collectQueueMetrics(ctx, tenantProvider)

	for {
		select {
		case <-rm.stopChan:
			rm.logger.Info("Stopping periodic reconciliation metrics collection")
			return
		case <-ctx.Done():
			rm.logger.Info("Context cancelled, stopping periodic reconciliation metrics collection")
			return
		case <-ticker.C:
			rm.collectQueueMetrics(ctx, tenantProvider)
		}
	}
}

func (rm *ReconciliationMetrics) collectQueueMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if rm.queueProvider == nil {
		rm.logger.Debug("No queue provider configured, skipping review queue metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		rm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		rm.collectTenantQueueMetrics(ctx, tenantID)
	}
}

func (rm *ReconciliationMetrics) collectTenantQueueMetrics(ctx context.Context, tenantID uuid.UUID) {
	pending, err := rm.queueProvider.GetPendingSuggestionCount(ctx, tenantID)
	if err != nil {
		rm.logger.Warn("Failed to get pending suggestion count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		rm.RecordPendingSuggestions(ctx, tenantID, pending)
	}

	open, err := rm.queueProvider.GetOpenInvoiceCount(ctx, tenantID)
	if err != nil {
		rm.logger.Warn("Failed to get open invoice count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		rm.RecordOpenInvoices(ctx, tenantID, open)
	}
}

// Stop stops the periodic collection.
func (rm *ReconciliationMetrics) Stop() {
	rm.stopOnce.Do(func() {
		close(rm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewReconciliationMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
