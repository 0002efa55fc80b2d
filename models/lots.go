package models

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type LotStatus string

const (
	LotOpen    LotStatus = "open"
	LotPartial LotStatus = "partial"
	LotClosed  LotStatus = "closed"
)

// StockLot is a batch of shares of one symbol acquired at one time at
// one per-share cost. Lots are created by trade imports (or by the
// corporate action engine for pre-event holdings) and their remaining
// quantity is drawn down by sells. TotalCostBasis is never rewritten
// by a corporate action adjustment - only the quantities and the
// per-share cost move, in lockstep.
type StockLot struct {
	ID             uuid.UUID       `json:"id" gorm:"primary_key" sql:"type:uuid;"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	UserID         uuid.UUID       `json:"user_id" gorm:"not null;index:idx_lot_user_symbol" sql:"type:uuid;"`
	TransactionID  *string         `json:"transaction_id" gorm:"type:varchar(64)"`
	Symbol         string          `json:"symbol" gorm:"not null;index:idx_lot_user_symbol;type:varchar(12)"`
	AcquiredDate   string          `json:"acquired_date" gorm:"not null" sql:"type:date"`
	OriginalQty    decimal.Decimal `json:"original_qty" gorm:"type:decimal;not null"`
	RemainingQty   decimal.Decimal `json:"remaining_qty" gorm:"type:decimal;not null"`
	CostPerShare   decimal.Decimal `json:"cost_per_share" gorm:"type:decimal;not null"`
	TotalCostBasis decimal.Decimal `json:"total_cost_basis" gorm:"type:decimal;not null"`
	Fees           decimal.Decimal `json:"fees" gorm:"type:decimal;not null;default:0"`
	Status         LotStatus       `json:"status" gorm:"not null;index:idx_lot_status;type:varchar(7)"`
	Adjustments    []LotAdjustment `json:"-" gorm:"ForeignKey:LotID"`
}

func (StockLot) TableName() string {
	return "stock_lots"
}

func (l StockLot) DateString() string {
	return l.AcquiredDate[:10]
}

// Adjustable reports whether the lot is still subject to corporate
// action adjustments. Closed lots are historical records only.
func (l *StockLot) Adjustable() bool {
	return l.Status == LotOpen || l.Status == LotPartial
}
