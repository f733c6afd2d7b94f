package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PpeIssueLog 发放记录 — immutable; exactly one row per issued request.
// unit_price_at_issue is captured at issuance and never re-read, so later
// price edits on ppe_master do not rewrite history.
type PpeIssueLog struct {
	ID               string          `json:"id" gorm:"primaryKey;size:36"`
	RequestID        string          `json:"request_id" gorm:"size:36;not null;uniqueIndex"`
	PpeID            string          `json:"ppe_id" gorm:"size:36;not null;index"`
	IssuedQuantity   int             `json:"issued_quantity" gorm:"not null"`
	UnitPriceAtIssue decimal.Decimal `json:"unit_price_at_issue" gorm:"type:decimal(12,2);not null"`
	TotalCost        decimal.Decimal `json:"total_cost" gorm:"type:decimal(14,2);not null"`
	IssuedBy         string          `json:"issued_by" gorm:"size:36;not null"`
	IssuedAt         time.Time       `json:"issued_at" gorm:"not null;index"`
}

func (PpeIssueLog) TableName() string {
	return "ppe_issue_log"
}

// PpePurchase 采购入库记录 — immutable; source of "in" movements.
type PpePurchase struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	PpeID       string          `json:"ppe_id" gorm:"size:36;not null;index"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	TotalCost   decimal.Decimal `json:"total_cost" gorm:"type:decimal(14,2);not null"`
	Note        *string         `json:"note" gorm:"type:text"`
	PurchasedBy string          `json:"purchased_by" gorm:"size:36;not null"`
	PurchasedAt time.Time       `json:"purchased_at" gorm:"not null;index"`
}

func (PpePurchase) TableName() string {
	return "ppe_purchases"
}
