/**
 * @description
 * PricePoint database model.
 * Maps to the 'prices' table in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"

	"github.com/tomanchart/backend/internal/currency"
)

// PricePoint is one persisted spot-price observation. The series per currency is
// append-only; rows are never updated or deleted. Ties on observed_at are broken
// by the auto-incrementing id.
type PricePoint struct {
	ID         uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Currency   currency.Currency `gorm:"column:currency;type:varchar(32);index:idx_prices_currency_observed_at" json:"currency"`
	Price      int64             `gorm:"column:price" json:"price"`
	ObservedAt time.Time         `gorm:"column:observed_at;index:idx_prices_currency_observed_at" json:"observed_at"`
}

// TableName overrides the table name used by PricePoint to `prices`
func (PricePoint) TableName() string {
	return "prices"
}
