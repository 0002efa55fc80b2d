package enum

type CorporateActionType string

const (
	StockSplit    CorporateActionType = "split"
	ReverseSplit  CorporateActionType = "reverse_split"
	StockDividend CorporateActionType = "stock_dividend"
)

// Valid reports whether t is one of the supported action types.
func (t CorporateActionType) Valid() bool {
	switch t {
	case StockSplit, ReverseSplit, StockDividend:
		return true
	}
	return false
}
