package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque query-execution handle. The concrete type is infra-defined
// (pgx.Tx for Postgres); repositories must gracefully accept nil for the
// non-transactional path.
type Tx interface{}

// TransactionManager runs fn inside a database transaction serialized per
// user: the implementation takes an advisory lock keyed on userID before
// invoking fn, so two reconcile/sweep attempts touching the same user never
// interleave their read-modify-write.
type TransactionManager interface {
	WithUserTx(ctx context.Context, txOpt pgx.TxOptions, userID int64, fn func(ctx context.Context, tx Tx) error) error
}
