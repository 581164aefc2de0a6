package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"net"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/storage/database"
)

const uniqueViolation = "23505"

// isTransient reports whether a postgres error is worth retrying.
func isTransient(err error) bool {
	if err == nil || err == context.Canceled || err == sql.ErrNoRows {
		return false
	}
	if err == driver.ErrBadConn {
		return true
	}
	if _, ok := err.(net.Error); ok {
		return true
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code.Class() {
		case "08", "53", "57": // connection exception, insufficient resources, operator intervention
			return true
		}
		return pqErr.Code == "40001" || pqErr.Code == "40P01" // serialization failure, deadlock
	}
	return false
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// store is embedded by every repository.
// Its helpers return sql.ErrNoRows unwrapped so that repositories can map it to their not-found error.
type store struct {
	db    *sqlx.DB
	retry database.Retrier
}

func newStore(db *sqlx.DB, conf *core.Config) store {
	return store{db: db, retry: database.NewRetrier(conf.Database.MaxRetries, isTransient)}
}

func (s store) get(ctx context.Context, op string, dest interface{}, query string, args ...interface{}) error {
	return s.retry.Do(ctx, op, func(ctx context.Context) error {
		return s.db.GetContext(ctx, dest, query, args...)
	})
}

func (s store) selectRows(ctx context.Context, op string, dest interface{}, query string, args ...interface{}) error {
	return s.retry.Do(ctx, op, func(ctx context.Context) error {
		return s.db.SelectContext(ctx, dest, query, args...)
	})
}

func (s store) exec(ctx context.Context, op, query string, args ...interface{}) (sql.Result, error) {
	var res sql.Result
	err := s.retry.Do(ctx, op, func(ctx context.Context) (err error) {
		res, err = s.db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

// inTx runs fn in a transaction, retried as a whole on transient errors.
func (s store) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	return s.retry.Do(ctx, op, func(ctx context.Context) error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if err = fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func toJSON(v interface{}) (types.JSONText, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding json column")
	}
	return types.JSONText(b), nil
}

func fromJSON(col types.JSONText, v interface{}) error {
	if len(col) == 0 {
		return nil
	}
	return errors.Wrap(col.Unmarshal(v), "decoding json column")
}
