package store

import (
	"context"
	"database/sql"

	"github.com/provenix-dev/provenix-store/internal/apperr"
)

// TxManager scopes a function to a single database transaction. The
// transaction commits when the function returns nil and rolls back on error
// or panic, so an aborted mutation leaves no partial rows behind.
type TxManager struct {
	db *DB
}

// NewTxManager builds a transaction manager over the database.
func NewTxManager(db *DB) *TxManager {
	return &TxManager{db: db}
}

type txKey struct{}

// RunInTx executes fn inside a transaction injected into the context. Stores
// that receive the derived context run their statements on that transaction.
//
// PostgreSQL runs at READ COMMITTED; together with the unique index on
// (user_id, version) this turns two mutations racing for the same version
// into a constraint failure on the loser, surfaced as a Conflict. SQLite
// transactions are serializable by construction, so the level is left at the
// driver default there.
func (tm *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	opts := &sql.TxOptions{}
	if tm.db.driver == driverPostgres {
		opts.Isolation = sql.LevelReadCommitted
	}

	tx, err := tm.db.BeginTx(ctx, opts)
	if err != nil {
		return apperr.Storage("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	ctx = context.WithValue(ctx, txKey{}, tx)

	if err = fn(ctx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("Concurrent modification detected")
		}
		return apperr.Storage("commit transaction", err)
	}
	return nil
}
