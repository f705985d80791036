package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hrledger/internal/ledger/domain"
	"gorm.io/gorm"
)

const transactionColumns = `id, user_id, user_email, type, description, amount, external_id,
	coupon_code, discount_amount, metadata, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *domain.Transaction) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (external_id) DO NOTHING`,
		txn.ID,
		txn.UserID,
		txn.UserEmail,
		txn.Type,
		txn.Description,
		txn.Amount,
		txn.ExternalID,
		txn.CouponCode,
		txn.DiscountAmount,
		txn.Metadata,
		txn.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT `+transactionColumns+` FROM transactions WHERE external_id = ? LIMIT 1`,
		externalID,
	).Scan(&txn).Error
	if err != nil {
		return nil, err
	}
	if txn.ID == 0 {
		return nil, nil
	}
	return &txn, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`,
		id,
	).Scan(&txn).Error
	if err != nil {
		return nil, err
	}
	if txn.ID == 0 {
		return nil, nil
	}
	return &txn, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Transaction, error) {
	var items []*domain.Transaction
	stmt := db.WithContext(ctx).Model(&domain.Transaction{})
	if filter.UserID != "" {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Reconcile(ctx context.Context, db *gorm.DB, userID string) (*domain.Reconciliation, error) {
	var row domain.Reconciliation
	err := db.WithContext(ctx).Raw(
		`SELECT a.user_id AS user_id, a.balance AS balance,
			COALESCE((SELECT SUM(t.amount) FROM transactions t WHERE t.user_id = a.user_id), 0) AS ledger_sum
		 FROM accounts a WHERE a.user_id = ?`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.UserID == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) FindDrift(ctx context.Context, db *gorm.DB, limit int) ([]domain.Reconciliation, error) {
	var rows []domain.Reconciliation
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, balance, ledger_sum FROM (
			SELECT a.user_id AS user_id, a.balance AS balance,
				COALESCE((SELECT SUM(t.amount) FROM transactions t WHERE t.user_id = a.user_id), 0) AS ledger_sum
			FROM accounts a
		 ) r
		 WHERE balance <> ledger_sum
		 ORDER BY user_id
		 LIMIT ?`,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
