package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert appends the transaction. It reports false when a row with the
	// same external id already exists.
	Insert(ctx context.Context, db *gorm.DB, txn *Transaction) (bool, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Transaction, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Transaction, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Transaction, error)
	Reconcile(ctx context.Context, db *gorm.DB, userID string) (*Reconciliation, error)
	// FindDrift returns up to limit accounts whose balance differs from their ledger.
	FindDrift(ctx context.Context, db *gorm.DB, limit int) ([]Reconciliation, error)
}
