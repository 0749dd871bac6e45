// Package repo holds the pieces every gorm-backed repository shares.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base is embedded by repositories that can be rebound to a transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection scoped to ctx. A nil ctx returns it unscoped.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx returns a copy of b that issues its queries on tx.
func (b Base) WithTx(tx *gorm.DB) Base {
	return Base{db: tx}
}

// Take runs q for a single T and maps gorm's missing-row error to notFound so
// services never see gorm sentinels.
func Take[T any](q *gorm.DB, notFound error) (*T, error) {
	var row T
	err := q.Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil:
		return nil, notFound
	case err != nil:
		return nil, err
	}
	return &row, nil
}
