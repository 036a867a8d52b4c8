package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/domain/shared/valueobject"
	"github.com/contaflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupInvoiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.InvoiceModel{})
	require.NoError(t, err)

	return db
}

func newTestInvoice(t *testing.T, tenantID uuid.UUID, number string, amount float64, dueDate time.Time, competence string) *billing.Invoice {
	t.Helper()

	comp, err := valueobject.ParseCompetence(competence)
	require.NoError(t, err)

	inv, err := billing.NewInvoice(
		tenantID,
		number,
		uuid.New(),
		"Transportes Silva Ltda",
		valueobject.NewMoneyBRL(decimal.NewFromFloat(amount)),
		dueDate,
		comp,
	)
	require.NoError(t, err)
	return inv
}

func TestGormInvoiceRepository_SaveAndFindByID(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	inv := newTestInvoice(t, tenantID, "FAT-2025-001", 1500.00, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "03/2025")
	require.NoError(t, repo.Save(ctx, inv))

	found, err := repo.FindByID(ctx, tenantID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, found.ID)
	assert.Equal(t, "FAT-2025-001", found.InvoiceNumber)
	assert.Equal(t, billing.InvoiceStatusPending, found.Status)
	assert.Equal(t, "03/2025", found.Competence.String())
	assert.True(t, found.Amount.Equal(decimal.NewFromFloat(1500.00)))

	t.Run("not found for wrong tenant", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New(), inv.ID)
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormInvoiceRepository_SaveWithLock(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	inv := newTestInvoice(t, tenantID, "FAT-2025-001", 1500.00, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "03/2025")
	require.NoError(t, repo.Save(ctx, inv))

	loadedVersion := inv.Version
	txID := uuid.New()
	require.NoError(t, inv.Settle(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), &txID, billing.SettlementOriginReconciliation))

	t.Run("first writer wins", func(t *testing.T) {
		err := repo.SaveWithLock(ctx, inv, loadedVersion)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, tenantID, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusPaid, found.Status)
		assert.Equal(t, inv.Version, found.Version)
	})

	t.Run("stale writer gets a conflict", func(t *testing.T) {
		err := repo.SaveWithLock(ctx, inv, loadedVersion)
		assert.True(t, shared.IsConcurrencyConflict(err))
	})

	t.Run("reversal clears settlement columns", func(t *testing.T) {
		reloaded, err := repo.FindByID(ctx, tenantID, inv.ID)
		require.NoError(t, err)

		version := reloaded.Version
		require.NoError(t, reloaded.ReverseSettlement("pagamento de outro cliente"))
		require.NoError(t, repo.SaveWithLock(ctx, reloaded, version))

		found, err := repo.FindByID(ctx, tenantID, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusPending, found.Status)
		assert.Nil(t, found.SettledByTransactionID)
		assert.Nil(t, found.PaidDate)
		assert.True(t, found.PaidAmount.IsZero())
	})
}

func TestGormInvoiceRepository_FindOpenByDueDate(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	dueDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	due := newTestInvoice(t, tenantID, "FAT-DUE", 1500.00, dueDate, "03/2025")
	otherDay := newTestInvoice(t, tenantID, "FAT-OTHER", 900.00, dueDate.AddDate(0, 0, 3), "03/2025")
	paid := newTestInvoice(t, tenantID, "FAT-PAID", 700.00, dueDate, "03/2025")
	txID := uuid.New()
	require.NoError(t, paid.Settle(dueDate, &txID, billing.SettlementOriginReconciliation))

	for _, inv := range []*billing.Invoice{due, otherDay, paid} {
		require.NoError(t, repo.Save(ctx, inv))
	}

	open, err := repo.FindOpenByDueDate(ctx, tenantID, dueDate)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "FAT-DUE", open[0].InvoiceNumber)
}

func TestGormInvoiceRepository_FindOpenByClientsAndCompetence(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	dueDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	member := newTestInvoice(t, tenantID, "FAT-MEMBER", 800.00, dueDate, "03/2025")
	wrongPeriod := newTestInvoice(t, tenantID, "FAT-APRIL", 800.00, dueDate.AddDate(0, 1, 0), "04/2025")
	wrongPeriod.ClientID = member.ClientID
	outsider := newTestInvoice(t, tenantID, "FAT-OUTSIDER", 800.00, dueDate, "03/2025")

	for _, inv := range []*billing.Invoice{member, wrongPeriod, outsider} {
		require.NoError(t, repo.Save(ctx, inv))
	}

	competence, err := valueobject.ParseCompetence("03/2025")
	require.NoError(t, err)

	open, err := repo.FindOpenByClientsAndCompetence(ctx, tenantID, []uuid.UUID{member.ClientID}, competence)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "FAT-MEMBER", open[0].InvoiceNumber)

	t.Run("empty client list yields empty result", func(t *testing.T) {
		open, err := repo.FindOpenByClientsAndCompetence(ctx, tenantID, nil, competence)
		require.NoError(t, err)
		assert.Empty(t, open)
	})
}

func TestGormInvoiceRepository_FindOpenByInvoiceNumber(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	dueDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	open := newTestInvoice(t, tenantID, "778899", 1500.00, dueDate, "03/2025")
	paid := newTestInvoice(t, tenantID, "778900", 700.00, dueDate, "03/2025")
	txID := uuid.New()
	require.NoError(t, paid.Settle(dueDate, &txID, billing.SettlementOriginReconciliation))

	require.NoError(t, repo.Save(ctx, open))
	require.NoError(t, repo.Save(ctx, paid))

	found, err := repo.FindOpenByInvoiceNumber(ctx, tenantID, "778899")
	require.NoError(t, err)
	assert.Equal(t, open.ID, found.ID)

	t.Run("settled invoices are not returned", func(t *testing.T) {
		_, err := repo.FindOpenByInvoiceNumber(ctx, tenantID, "778900")
		assert.Equal(t, shared.ErrNotFound, err)
	})

	t.Run("not found for wrong tenant", func(t *testing.T) {
		_, err := repo.FindOpenByInvoiceNumber(ctx, uuid.New(), "778899")
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormInvoiceRepository_FindPaidByPaidDate(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	paidDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	txID := uuid.New()

	onDay := newTestInvoice(t, tenantID, "FAT-ONDAY", 1500.00, paidDate, "03/2025")
	require.NoError(t, onDay.Settle(paidDate, &txID, billing.SettlementOriginReconciliation))
	otherDay := newTestInvoice(t, tenantID, "FAT-EARLIER", 900.00, paidDate, "03/2025")
	require.NoError(t, otherDay.Settle(paidDate.AddDate(0, 0, -3), nil, billing.SettlementOriginManual))
	open := newTestInvoice(t, tenantID, "FAT-OPEN", 700.00, paidDate, "03/2025")

	for _, inv := range []*billing.Invoice{onDay, otherDay, open} {
		require.NoError(t, repo.Save(ctx, inv))
	}

	paid, err := repo.FindPaidByPaidDate(ctx, tenantID, paidDate)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, "FAT-ONDAY", paid[0].InvoiceNumber)
}

func TestGormInvoiceRepository_FindBySettlementTransaction(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	dueDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	txID := uuid.New()

	settled := newTestInvoice(t, tenantID, "FAT-SETTLED", 1500.00, dueDate, "03/2025")
	require.NoError(t, settled.Settle(dueDate, &txID, billing.SettlementOriginReconciliation))
	unrelated := newTestInvoice(t, tenantID, "FAT-OPEN", 900.00, dueDate, "03/2025")

	require.NoError(t, repo.Save(ctx, settled))
	require.NoError(t, repo.Save(ctx, unrelated))

	found, err := repo.FindBySettlementTransaction(ctx, tenantID, txID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "FAT-SETTLED", found[0].InvoiceNumber)
}

func TestGormInvoiceRepository_List(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	dueDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	for i, number := range []string{"FAT-A", "FAT-B", "FAT-C"} {
		inv := newTestInvoice(t, tenantID, number, 100.00, dueDate.AddDate(0, 0, i), "03/2025")
		require.NoError(t, repo.Save(ctx, inv))
	}

	t.Run("paginates", func(t *testing.T) {
		filter := billing.InvoiceFilter{Filter: shared.Filter{Page: 1, PageSize: 2}}
		page, err := repo.List(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Len(t, page.Items, 2)
	})

	t.Run("filters by status", func(t *testing.T) {
		filter := billing.InvoiceFilter{
			Filter:   shared.Filter{Page: 1, PageSize: 10},
			Statuses: []billing.InvoiceStatus{billing.InvoiceStatusPaid},
		}
		page, err := repo.List(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(0), page.Total)
	})
}
