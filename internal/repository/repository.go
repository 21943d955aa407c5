// Package repository holds the typed data access layer. Every repository
// wraps a *gorm.DB and can be rebound to a transaction with WithTx so that
// services can compose several writes atomically.
package repository

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/utils/pagination"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// afterCursor applies keyset pagination ordered by (created, id) DESC.
func afterCursor(q *gorm.DB, token *string, createdCol, idCol string, limit int) (*gorm.DB, error) {
	cursor, err := pagination.Decode(getString(token))
	if err != nil {
		return nil, err
	}
	if !cursor.IsZero() {
		ts := cursor.Time()
		q = q.Where("("+createdCol+" < ? OR ("+createdCol+" = ? AND "+idCol+" < ?))", ts, ts, cursor.ID)
	}
	return q.Order(createdCol + " DESC").Order(idCol + " DESC").Limit(limit + 1), nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// found turns gorm.ErrRecordNotFound into (false, nil).
func found(err error) (bool, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}
