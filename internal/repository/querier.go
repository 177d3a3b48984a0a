package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// querier is satisfied by both *sql.DB and *sql.Tx so each query is
// written once and shared by the plain and the Tx variants.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// updateStatus sets status_id on one row of table and reports notFound
// when the id does not exist.  MySQL reports zero affected rows when the
// value is unchanged, so a zero count is confirmed with a lookup.
func updateStatus(ctx context.Context, q querier, table string, id, statusID uint64, notFound error) error {
	res, err := q.ExecContext(ctx, `UPDATE `+table+` SET status_id = ? WHERE id = ?`, statusID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}
