package models

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/templestuart/lotkeeper/models/enum"
)

// CorporateAction is one declared split/reverse-split/stock-dividend
// event for a symbol. It is written once and never mutated.
type CorporateAction struct {
	ID            uuid.UUID                `json:"id" gorm:"primary_key" sql:"type:uuid;"`
	CreatedAt     time.Time                `json:"created_at"`
	UserID        uuid.UUID                `json:"user_id" gorm:"not null;index:idx_action_user_symbol" sql:"type:uuid;"`
	Symbol        string                   `json:"symbol" gorm:"not null;index:idx_action_user_symbol;type:varchar(12)"`
	Type          enum.CorporateActionType `json:"type" gorm:"not null" sql:"type:text"`
	EffectiveDate string                   `json:"effective_date" gorm:"not null" sql:"type:date"`
	// ratio by which shares were split (RatioFrom:RatioTo)
	RatioFrom       decimal.Decimal  `json:"ratio_from" gorm:"type:decimal;not null"`
	RatioTo         decimal.Decimal  `json:"ratio_to" gorm:"type:decimal;not null"`
	PreSplitShares  *decimal.Decimal `json:"pre_split_shares" gorm:"type:decimal"`
	PostSplitShares *decimal.Decimal `json:"post_split_shares" gorm:"type:decimal"`
	Notes           string           `json:"notes" gorm:"type:text"`
	Source          string           `json:"source" gorm:"type:varchar(100)"`
	Adjustments     []LotAdjustment  `json:"adjustments" gorm:"ForeignKey:CorporateActionID"`
}

func (CorporateAction) TableName() string {
	return "corporate_actions"
}

// LotAdjustment is the immutable audit record of one mutation applied
// to one lot by one corporate action. Exactly one row is written per
// (lot, action) pair per processing run.
type LotAdjustment struct {
	ID                 uuid.UUID       `json:"id" gorm:"primary_key" sql:"type:uuid;"`
	CreatedAt          time.Time       `json:"created_at"`
	LotID              uuid.UUID       `json:"lot_id" gorm:"not null;index:idx_adjustment_lot_action" sql:"type:uuid;"`
	CorporateActionID  uuid.UUID       `json:"corporate_action_id" gorm:"not null;index:idx_adjustment_lot_action" sql:"type:uuid;"`
	QtyBefore          decimal.Decimal `json:"qty_before" gorm:"type:decimal;not null"`
	QtyAfter           decimal.Decimal `json:"qty_after" gorm:"type:decimal;not null"`
	CostPerShareBefore decimal.Decimal `json:"cost_per_share_before" gorm:"type:decimal;not null"`
	CostPerShareAfter  decimal.Decimal `json:"cost_per_share_after" gorm:"type:decimal;not null"`
}

func (LotAdjustment) TableName() string {
	return "lot_adjustments"
}
