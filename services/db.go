package services

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"fleetdesk/backend/database"
	"fleetdesk/backend/models"
)

var errNoDatabase = errors.New("database not initialized")

// db returns the shared pool or a PersistenceError when the process has none.
func db(op string) (*sqlx.DB, error) {
	if database.DB == nil {
		return nil, models.NewPersistenceError(op, errNoDatabase)
	}
	return database.DB, nil
}

// persistenceError wraps a datastore failure with the failed operation.
func persistenceError(op string, err error) error {
	return models.NewPersistenceError(op, errors.WithStack(err))
}

// isUniqueViolation reports whether err is a unique constraint failure on either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// rollback undoes tx after a failed step. The original error is what callers report.
func rollback(tx *sqlx.Tx) {
	_ = tx.Rollback()
}
