package sql

import (
	"database/sql"
	"database/sql/driver"
)

// TxOf is a test helper exposing the transaction a repository set is bound to.
func TxOf(repos *TransactionalRepository) *sql.Tx {
	return repos.txn
}

// toValues adapts a row literal to sqlmock's AddRow.
func toValues(values []any) []driver.Value {
	out := make([]driver.Value, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
