package persistence

import (
	"context"

	"github.com/contaflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

type txContextKey struct{}

// GormUnitOfWork implements shared.UnitOfWork on a GORM transaction.
// The open transaction travels in the context; every repository in this
// package resolves it through dbFromContext, so repository calls made
// inside Execute share one commit/rollback boundary.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn inside a database transaction. The transaction commits
// when fn returns nil and rolls back otherwise. Nested calls reuse the
// transaction already present in the context.
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// txFromContext returns the transaction carried by ctx, or nil
func txFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txContextKey{}).(*gorm.DB)
	return tx
}

// dbFromContext returns the active transaction when one is open,
// falling back to the repository's own connection.
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return fallback
}

// Ensure GormUnitOfWork implements shared.UnitOfWork
var _ shared.UnitOfWork = (*GormUnitOfWork)(nil)
