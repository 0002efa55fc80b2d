package corporateaction

import (
	"github.com/shopspring/decimal"

	"github.com/templestuart/lotkeeper/lkerrors"
	"github.com/templestuart/lotkeeper/models/enum"
)

// multipliers holds the factors applied to every lot touched by a
// corporate action. cost is the reciprocal of share, so that
// cost_per_share * qty is conserved for any adjusted lot.
type multipliers struct {
	share decimal.Decimal
	cost  decimal.Decimal
}

// computeMultipliers derives the share-count and cost-per-share factors
// from a declared ratio. The ratio is always written magnitude-style
// (ratio_to > ratio_from); the declared action type alone decides the
// direction. A ratio whose direction disagrees with the type is
// rejected rather than silently reinterpreted.
func computeMultipliers(
	actionType enum.CorporateActionType,
	ratioFrom, ratioTo decimal.Decimal,
) (*multipliers, error) {
	if !actionType.Valid() {
		return nil, lkerrors.InvalidRequestParam.WithMsg(
			"action_type must be one of split, reverse_split, stock_dividend")
	}

	if !ratioFrom.IsPositive() || !ratioTo.IsPositive() {
		return nil, lkerrors.InvalidRequestParam.WithMsg(
			"ratio_from and ratio_to must both be positive")
	}

	if ratioTo.LessThanOrEqual(ratioFrom) {
		return nil, lkerrors.InvalidRequestParam.WithMsg(
			"ratio direction conflicts with action_type (ratio_to must be greater than ratio_from)")
	}

	m := &multipliers{}

	switch actionType {
	case enum.ReverseSplit:
		// e.g. 1-for-10: ratio_from=1, ratio_to=10 shrinks share count
		m.share = ratioFrom.Div(ratioTo)
		m.cost = ratioTo.Div(ratioFrom)
	default:
		// forward split / stock dividend grows share count
		m.share = ratioTo.Div(ratioFrom)
		m.cost = ratioFrom.Div(ratioTo)
	}

	return m, nil
}
