package repository

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// MySQL and Postgres error codes that map onto repository sentinels.
const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return string(pe.Code) == pqUniqueViolation
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlRowIsReferenced || me.Number == mysqlNoReferencedRow
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return string(pe.Code) == pqForeignKeyViolation
	}
	return false
}

type txKey struct{}

// conn returns the transaction carried by ctx, or db when there is none.
// Every repository method goes through here so that calls made inside
// Store.WithTableLock run on the locking transaction.
func conn(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok && tx != nil {
		return tx
	}
	return db
}

// insertID executes an INSERT and returns the generated primary key.
// Postgres has no LastInsertId, so the statement is extended with
// RETURNING id there.
func insertID(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) (uint64, error) {
	if q.DriverName() == "postgres" {
		var id uint64
		if err := sqlx.GetContext(ctx, q, &id, q.Rebind(query+" RETURNING id"), args...); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
