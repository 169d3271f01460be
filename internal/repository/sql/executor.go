package sql

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/iyhunko/mechanic-matching/internal/geo"
)

// dbExecutor is an interface that represents either *sql.DB or *sql.Tx.
type dbExecutor interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// base holds the connection and, inside a transaction, the active tx.
type base struct {
	db  *sql.DB
	txn *sql.Tx
}

// getExecutor returns the active executor (transaction if exists, otherwise db)
func (b base) getExecutor() dbExecutor {
	if b.txn != nil {
		return b.txn
	}
	return b.db
}

// exec prepares and executes a statement on the active executor.
func (b base) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	stmt, err := b.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	return stmt.ExecContext(ctx, args...)
}

// queryRows prepares and runs a query, calling scan for every row.
func (b base) queryRows(ctx context.Context, query string, args []any, scan func(rows *sql.Rows) error) error {
	stmt, err := b.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}
	return nil
}

// queryRow prepares a single-row query and scans it into dest.
func (b base) queryRow(ctx context.Context, query string, args []any, dest ...any) error {
	stmt, err := b.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	return stmt.QueryRowContext(ctx, args...).Scan(dest...)
}

// whereBuilder accumulates positional conditions for dynamic list queries.
type whereBuilder struct {
	sb   strings.Builder
	args []any
}

func newWhereBuilder(selectFrom string) *whereBuilder {
	w := &whereBuilder{}
	w.sb.WriteString(selectFrom)
	w.sb.WriteString(" WHERE 1=1")
	return w
}

// next returns the placeholder for the next argument.
func (w *whereBuilder) next(arg any) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) and(cond string) {
	w.sb.WriteString(" AND ")
	w.sb.WriteString(cond)
}

// orderByProximity orders rows by squared equirectangular distance to center. Longitude
// differences wrap at the antimeridian and are scaled by cos(latitude).
func (w *whereBuilder) orderByProximity(latColumn, lonColumn string, center geo.Point) {
	lat := w.next(center.Latitude)
	lon := w.next(center.Longitude)
	scale := w.next(math.Cos(center.Latitude * math.Pi / 180))
	dLon := fmt.Sprintf("LEAST(ABS(%[1]s - %[2]s::double precision), 360 - ABS(%[1]s - %[2]s::double precision))", lonColumn, lon)
	w.raw(fmt.Sprintf(" ORDER BY POWER(%s - %s::double precision, 2) + POWER(%s * %s::double precision, 2)",
		latColumn, lat, dLon, scale))
}

func (w *whereBuilder) raw(s string) {
	w.sb.WriteString(s)
}

func (w *whereBuilder) String() string {
	return w.sb.String()
}
