package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PpeMaster 劳保用品台账 — the live stock record. stock_quantity is only
// mutated by the inventory service (issue deduct, purchase add, admin correct).
type PpeMaster struct {
	ID            string          `json:"id" gorm:"primaryKey;size:36"`
	Name          string          `json:"name" gorm:"size:128;not null"`
	Category      string          `json:"category" gorm:"size:64"`
	Unit          string          `json:"unit" gorm:"size:20;not null;default:pcs"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null;default:0"`
	StockQuantity int             `json:"stock_quantity" gorm:"not null;default:0"`
	MinimumStock  int             `json:"minimum_stock" gorm:"not null;default:0"`
	Active        bool            `json:"active" gorm:"default:true"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (PpeMaster) TableName() string {
	return "ppe_master"
}

// LowStock reports whether the item is at or below its minimum threshold.
func (m *PpeMaster) LowStock() bool {
	return m.StockQuantity <= m.MinimumStock
}
