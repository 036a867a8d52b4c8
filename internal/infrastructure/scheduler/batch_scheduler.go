// Package scheduler runs the nightly reconciliation batch.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	reconapp "github.com/contaflow/backend/internal/application/reconciliation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider lists the tenants a batch run should cover
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// BatchSchedulerConfig holds configuration for the nightly batch trigger
type BatchSchedulerConfig struct {
	Hour   int
	Minute int

	// CheckInterval is how often to check whether the trigger time passed
	CheckInterval time.Duration

	MaxConcurrentRuns int
	RunTimeout        time.Duration
}

// DefaultBatchSchedulerConfig returns the default trigger configuration
func DefaultBatchSchedulerConfig() BatchSchedulerConfig {
	return BatchSchedulerConfig{
		Hour:              2,
		Minute:            0,
		CheckInterval:     time.Minute,
		MaxConcurrentRuns: 3,
		RunTimeout:        30 * time.Minute,
	}
}

// ParseDailySchedule extracts the hour and minute from a five-field cron
// expression of the form "M H * * *". Only daily schedules are supported.
func ParseDailySchedule(schedule string) (hour, minute int, err error) {
	fields := strings.Fields(schedule)
	if len(fields) != 5 || fields[2] != "*" || fields[3] != "*" || fields[4] != "*" {
		return 0, 0, fmt.Errorf("unsupported cron schedule %q, expected \"M H * * *\"", schedule)
	}
	minute, err = strconv.Atoi(fields[0])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in cron schedule %q", schedule)
	}
	hour, err = strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in cron schedule %q", schedule)
	}
	return hour, minute, nil
}

// BatchScheduler fires the auto-reconcile batch once per day at the
// configured time, one run per active tenant, bounded by
// MaxConcurrentRuns.
type BatchScheduler struct {
	config  BatchSchedulerConfig
	batch   *reconapp.BatchReconcileService
	tenants TenantProvider
	logger  *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewBatchScheduler creates a new BatchScheduler
func NewBatchScheduler(
	config BatchSchedulerConfig,
	batch *reconapp.BatchReconcileService,
	tenants TenantProvider,
	logger *zap.Logger,
) *BatchScheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.MaxConcurrentRuns <= 0 {
		config.MaxConcurrentRuns = 1
	}
	return &BatchScheduler{
		config:  config,
		batch:   batch,
		tenants: tenants,
		logger:  logger,
	}
}

// Start starts the scheduler loop
func (s *BatchScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Batch scheduler started",
		zap.Int("hour", s.config.Hour),
		zap.Int("minute", s.config.Minute),
		zap.Int("max_concurrent_runs", s.config.MaxConcurrentRuns),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)
	return nil
}

// Stop stops the scheduler and waits for an in-flight run to finish
func (s *BatchScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Batch scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *BatchScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAndTrigger(ctx)
		}
	}
}

func (s *BatchScheduler) checkAndTrigger(ctx context.Context) {
	now := time.Now()
	currentDate := now.Format("2006-01-02")

	s.mu.Lock()
	alreadyRan := s.lastRunDate == currentDate
	s.mu.Unlock()
	if alreadyRan {
		return
	}

	// Fire at or after the configured time, so a check interval longer
	// than one minute cannot skip the trigger.
	if now.Hour() < s.config.Hour ||
		(now.Hour() == s.config.Hour && now.Minute() < s.config.Minute) {
		return
	}

	s.mu.Lock()
	s.lastRunDate = currentDate
	s.mu.Unlock()

	s.logger.Info("Triggering nightly reconciliation batch")
	s.RunNow(ctx)
}

// RunNow runs the batch for every active tenant immediately. Runs are
// capped at MaxConcurrentRuns and each tenant run gets its own timeout.
func (s *BatchScheduler) RunNow(ctx context.Context) {
	tenantIDs, err := s.tenants.GetActiveTenantIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list tenants for batch run", zap.Error(err))
		return
	}

	s.logger.Info("Starting batch runs", zap.Int("tenant_count", len(tenantIDs)))

	sem := make(chan struct{}, s.config.MaxConcurrentRuns)
	var wg sync.WaitGroup
	for _, tenantID := range tenantIDs {
		select {
		case <-ctx.Done():
			s.logger.Warn("Batch run interrupted before completing all tenants")
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(tenantID uuid.UUID) {
			defer wg.Done()
			defer func() { <-sem }()
			s.runTenant(ctx, tenantID)
		}(tenantID)
	}
	wg.Wait()
}

func (s *BatchScheduler) runTenant(ctx context.Context, tenantID uuid.UUID) {
	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}

	report, err := s.batch.Run(ctx, tenantID)
	if err != nil {
		s.logger.Error("Scheduled batch run failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return
	}
	s.logger.Info("Scheduled batch run finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("processed", report.Processed),
		zap.Int("auto_matched", report.AutoMatched),
		zap.Int("suggested", report.Suggested),
		zap.Int("failures", len(report.Failures)))
}
