package corporateaction

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"

	"github.com/templestuart/lotkeeper/lkerrors"
	"github.com/templestuart/lotkeeper/models/enum"
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9.\-]{0,11}$`)

// CreateRequest is the validated command for submitting a corporate
// action. Decimal fields accept JSON numbers or strings. No domain
// logic runs until Validate has passed.
type CreateRequest struct {
	Symbol          string                   `json:"symbol"`
	ActionType      enum.CorporateActionType `json:"action_type"`
	EffectiveDate   string                   `json:"effective_date"`
	RatioFrom       *decimal.Decimal         `json:"ratio_from"`
	RatioTo         *decimal.Decimal         `json:"ratio_to"`
	PreSplitShares  *decimal.Decimal         `json:"pre_split_shares"`
	PostSplitShares *decimal.Decimal         `json:"post_split_shares"`
	Notes           string                   `json:"notes"`
	Source          string                   `json:"source"`
	AddPreSplitLot  bool                     `json:"add_pre_split_lot"`
	LotCostBasis    *decimal.Decimal         `json:"lot_cost_basis"`
	LotAcquiredDate string                   `json:"lot_acquired_date"`
}

// Validate checks required fields and value ranges, returning a 422
// with field-level messages before any persistence happens.
func (c *CreateRequest) Validate() error {
	c.Symbol = strings.ToUpper(strings.TrimSpace(c.Symbol))

	err := validation.ValidateStruct(c,
		validation.Field(&c.Symbol, validation.Required, validation.Match(symbolPattern)),
		validation.Field(&c.ActionType, validation.Required),
		validation.Field(&c.EffectiveDate, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&c.RatioFrom, validation.Required),
		validation.Field(&c.RatioTo, validation.Required),
		validation.Field(&c.LotAcquiredDate, validation.Date("2006-01-02")),
	)
	if err != nil {
		return lkerrors.InvalidRequestParam.WithMsg(err.Error())
	}

	if !c.ActionType.Valid() {
		return lkerrors.InvalidRequestParam.WithMsg(
			"action_type must be one of split, reverse_split, stock_dividend")
	}

	for field, v := range map[string]*decimal.Decimal{
		"ratio_from": c.RatioFrom,
		"ratio_to":   c.RatioTo,
	} {
		if !v.IsPositive() {
			return lkerrors.InvalidRequestParam.WithMsg(
				fmt.Sprintf("%s must be positive", field))
		}
	}

	for field, v := range map[string]*decimal.Decimal{
		"pre_split_shares":  c.PreSplitShares,
		"post_split_shares": c.PostSplitShares,
	} {
		if v != nil && !v.IsPositive() {
			return lkerrors.InvalidRequestParam.WithMsg(
				fmt.Sprintf("%s must be positive when supplied", field))
		}
	}

	if c.LotCostBasis != nil && c.LotCostBasis.IsNegative() {
		return lkerrors.InvalidRequestParam.WithMsg("lot_cost_basis must not be negative")
	}

	if c.AddPreSplitLot && c.PostSplitShares == nil {
		// zero post-event shares would divide the cost basis by zero
		return lkerrors.InvalidRequestParam.WithMsg(
			"post_split_shares is required when add_pre_split_lot is set")
	}

	return nil
}

// costBasis returns the caller-supplied basis for the materialized
// pre-event lot, defaulting to zero when unknown.
func (c *CreateRequest) costBasis() decimal.Decimal {
	if c.LotCostBasis == nil {
		return decimal.Zero
	}
	return *c.LotCostBasis
}

// acquiredDate returns the acquisition date for the materialized lot,
// defaulting to the action's effective date.
func (c *CreateRequest) acquiredDate() string {
	if c.LotAcquiredDate == "" {
		return c.EffectiveDate
	}
	return c.LotAcquiredDate
}
