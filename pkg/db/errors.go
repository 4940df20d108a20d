package db

import (
	"strings"

	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint failure. When
// constraintName is set, postgres errors must name that constraint. SQLite
// reports columns rather than index names, so its messages match on the
// table name embedded in constraintName when one is given.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg := pkgerrors.PostgresDetail(err); pg != nil {
		if pg.Code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pg.Constraint == constraintName
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		if constraintName == "" {
			return true
		}
		return strings.Contains(constraintName, sqliteTable(msg))
	}
	if !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

// sqliteTable extracts "payment_transactions" from
// "UNIQUE constraint failed: payment_transactions.link_id".
func sqliteTable(msg string) string {
	_, rest, ok := strings.Cut(msg, "UNIQUE constraint failed: ")
	if !ok {
		return ""
	}
	table, _, _ := strings.Cut(rest, ".")
	return strings.TrimSpace(table)
}
