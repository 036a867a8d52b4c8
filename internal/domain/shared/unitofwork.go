package shared

import "context"

// UnitOfWork executes a function within a single transactional boundary.
// Repositories resolve the active transaction from the context, so every
// repository call made inside fn commits or rolls back together. Settlement
// and reversal use this to keep invoice state, reconciliation state and
// ledger-entry requests consistent under partial failure.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}
