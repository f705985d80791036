package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "pgconn", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: coupons.code"), want: true},
		{name: "mysql", err: errors.New("Error 1062: Duplicate entry"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDuplicateKeyErr(tc.err); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{err: nil, want: KindNone},
		{err: &pgconn.PgError{Code: "23503"}, want: KindForeignKey},
		{err: &pgconn.PgError{Code: "08006"}, want: KindUnavailable},
		{err: &pgconn.PgError{Code: "42P01"}, want: KindUnknown},
		{err: fmt.Errorf("ping: %w", context.DeadlineExceeded), want: KindUnavailable},
		{err: errors.New("CHECK constraint failed: amount"), want: KindCheck},
		{err: errors.New("dial tcp: connection refused"), want: KindUnavailable},
		{err: errors.New("syntax error"), want: KindUnknown},
	}

	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
