package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorKind is a driver-independent classification of a database error.
type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindDuplicate   ErrorKind = "duplicate_key"
	KindForeignKey  ErrorKind = "foreign_key"
	KindCheck       ErrorKind = "check_violation"
	KindUnavailable ErrorKind = "unavailable"
	KindUnknown     ErrorKind = "unknown"
)

// pgCodes maps SQLSTATE codes; class 08 is a connection exception.
var pgCodes = map[string]ErrorKind{
	"23505": KindDuplicate,
	"23503": KindForeignKey,
	"23514": KindCheck,
	"57P01": KindUnavailable,
}

// driverMessages covers drivers that only expose text: MySQL and the pure-go
// SQLite driver.
var driverMessages = []struct {
	fragment string
	kind     ErrorKind
}{
	{"duplicate key value violates unique constraint", KindDuplicate},
	{"Error 1062", KindDuplicate},
	{"UNIQUE constraint failed", KindDuplicate},
	{"Error 1452", KindForeignKey},
	{"FOREIGN KEY constraint failed", KindForeignKey},
	{"CHECK constraint failed", KindCheck},
	{"Error 3819", KindCheck},
	{"connection refused", KindUnavailable},
	{"database is locked", KindUnavailable},
}

func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return KindDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return KindForeignKey
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return KindCheck
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, context.DeadlineExceeded):
		return KindUnavailable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := pgCodes[pgErr.Code]; ok {
			return kind
		}
		if strings.HasPrefix(pgErr.Code, "08") {
			return KindUnavailable
		}
		return KindUnknown
	}

	msg := err.Error()
	for _, m := range driverMessages {
		if strings.Contains(msg, m.fragment) {
			return m.kind
		}
	}
	return KindUnknown
}

func IsDuplicateKeyErr(err error) bool {
	return Classify(err) == KindDuplicate
}
