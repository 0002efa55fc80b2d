package corporateaction

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/templestuart/lotkeeper/dbtest"
	"github.com/templestuart/lotkeeper/models"
	"github.com/templestuart/lotkeeper/models/enum"
)

type CorporateActionTestSuite struct {
	dbtest.Suite
}

func TestCorporateActionTestSuite(t *testing.T) {
	suite.Run(t, new(CorporateActionTestSuite))
}

func (s *CorporateActionTestSuite) SetupSuite() {
	s.SetupDB()
}

func (s *CorporateActionTestSuite) TearDownSuite() {
	s.TeardownDB()
}

func (s *CorporateActionTestSuite) createLot(
	userID uuid.UUID,
	symbol, acquired string,
	qty, cps string,
	status models.LotStatus,
) *models.StockLot {
	q := decimal.RequireFromString(qty)
	c := decimal.RequireFromString(cps)

	lot := &models.StockLot{
		ID:             uuid.Must(uuid.NewV4()),
		UserID:         userID,
		Symbol:         symbol,
		AcquiredDate:   acquired,
		OriginalQty:    q,
		RemainingQty:   q,
		CostPerShare:   c,
		TotalCostBasis: q.Mul(c),
		Status:         status,
	}

	require.Nil(s.T(), s.Conn.Create(lot).Error)

	return lot
}

func (s *CorporateActionTestSuite) reload(id uuid.UUID) *models.StockLot {
	lot := &models.StockLot{}
	require.Nil(s.T(), s.Conn.Where("id = ?", id).Find(lot).Error)
	return lot
}

func (s *CorporateActionTestSuite) TestForwardSplit() {
	userID := uuid.Must(uuid.NewV4())
	lot := s.createLot(userID, "AAPL", "2023-01-01", "10", "20", models.LotOpen)

	srv := Service().WithTx(s.Conn)

	result, err := srv.Process(userID, &CreateRequest{
		Symbol:        "AAPL",
		ActionType:    enum.StockSplit,
		EffectiveDate: "2024-01-01",
		RatioFrom:     dp("1"),
		RatioTo:       dp("2"),
	})
	require.Nil(s.T(), err)
	require.NotNil(s.T(), result)

	assert.Equal(s.T(), 1, result.AdjustedLots)
	assert.Nil(s.T(), result.NewLot)
	require.Len(s.T(), result.Adjustments, 1)

	adjusted := s.reload(lot.ID)
	assert.True(s.T(), d("20").Equal(adjusted.OriginalQty))
	assert.True(s.T(), d("20").Equal(adjusted.RemainingQty))
	assert.True(s.T(), d("10").Equal(adjusted.CostPerShare))

	// basis conservation: total untouched, cps*qty unchanged
	assert.True(s.T(), d("200").Equal(adjusted.TotalCostBasis))
	assert.True(s.T(), adjusted.CostPerShare.Mul(adjusted.OriginalQty).
		Equal(lot.CostPerShare.Mul(lot.OriginalQty)))

	adj := result.Adjustments[0]
	assert.Equal(s.T(), lot.ID, adj.LotID)
	assert.True(s.T(), d("10").Equal(adj.QtyBefore))
	assert.True(s.T(), d("20").Equal(adj.QtyAfter))
	assert.True(s.T(), d("20").Equal(adj.CostPerShareBefore))
	assert.True(s.T(), d("10").Equal(adj.CostPerShareAfter))
}

func (s *CorporateActionTestSuite) TestReverseSplitEndToEnd() {
	// one open lot of XYZ: 10 shares @ $20 ($200 basis) acquired 2023-01-01;
	// a 1-for-10 reverse split effective 2024-01-01 leaves 1 share @ $200
	userID := uuid.Must(uuid.NewV4())
	lot := s.createLot(userID, "XYZ", "2023-01-01", "10", "20", models.LotOpen)

	srv := Service().WithTx(s.Conn)

	result, err := srv.Process(userID, &CreateRequest{
		Symbol:        "XYZ",
		ActionType:    enum.ReverseSplit,
		EffectiveDate: "2024-01-01",
		RatioFrom:     dp("1"),
		RatioTo:       dp("10"),
	})
	require.Nil(s.T(), err)

	assert.Equal(s.T(), 1, result.AdjustedLots)

	adjusted := s.reload(lot.ID)
	assert.True(s.T(), d("1").Equal(adjusted.OriginalQty))
	assert.True(s.T(), d("1").Equal(adjusted.RemainingQty))
	assert.True(s.T(), d("200").Equal(adjusted.CostPerShare))
	assert.True(s.T(), d("200").Equal(adjusted.TotalCostBasis))

	adjustments := []models.LotAdjustment{}
	require.Nil(s.T(), s.Conn.Where("lot_id = ?", lot.ID).Find(&adjustments).Error)
	require.Len(s.T(), adjustments, 1)

	adj := adjustments[0]
	assert.Equal(s.T(), result.Action.ID, adj.CorporateActionID)
	assert.True(s.T(), d("10").Equal(adj.QtyBefore))
	assert.True(s.T(), d("1").Equal(adj.QtyAfter))
	assert.True(s.T(), d("20").Equal(adj.CostPerShareBefore))
	assert.True(s.T(), d("200").Equal(adj.CostPerShareAfter))
}

func (s *CorporateActionTestSuite) TestFiftyToOneReverseSplit() {
	userID := uuid.Must(uuid.NewV4())
	lot := s.createLot(userID, "PENNY", "2022-05-10", "5000", "0.10", models.LotPartial)

	srv := Service().WithTx(s.Conn)

	_, err := srv.Process(userID, &CreateRequest{
		Symbol:        "PENNY",
		ActionType:    enum.ReverseSplit,
		EffectiveDate: "2023-06-01",
		RatioFrom:     dp("1"),
		RatioTo:       dp("50"),
	})
	require.Nil(s.T(), err)

	adjusted := s.reload(lot.ID)
	assert.True(s.T(), d("100").Equal(adjusted.OriginalQty))
	assert.True(s.T(), d("5").Equal(adjusted.CostPerShare))
	assert.True(s.T(), d("500").Equal(adjusted.TotalCostBasis))
	// partial lots are adjusted too
	assert.Equal(s.T(), models.LotPartial, adjusted.Status)
	assert.True(s.T(), adjusted.Adjustable())
}

func (s *CorporateActionTestSuite) TestDateBoundary() {
	userID := uuid.Must(uuid.NewV4())

	onDate := s.createLot(userID, "TSLA", "2024-01-01", "10", "100", models.LotOpen)
	dayBefore := s.createLot(userID, "TSLA", "2023-12-31", "10", "100", models.LotOpen)

	srv := Service().WithTx(s.Conn)

	result, err := srv.Process(userID, &CreateRequest{
		Symbol:        "TSLA",
		ActionType:    enum.StockSplit,
		EffectiveDate: "2024-01-01",
		RatioFrom:     dp("1"),
		RatioTo:       dp("3"),
	})
	require.Nil(s.T(), err)

	// acquired strictly before the effective date only
	assert.Equal(s.T(), 1, result.AdjustedLots)

	assert.True(s.T(), d("10").Equal(s.reload(onDate.ID).OriginalQty))
	assert.True(s.T(), d("30").Equal(s.reload(dayBefore.ID).OriginalQty))
}

func (s *CorporateActionTestSuite) TestClosedLotUntouched() {
	userID := uuid.Must(uuid.NewV4())
	closed := s.createLot(userID, "GME", "2020-01-01", "10", "100", models.LotClosed)

	srv := Service().WithTx(s.Conn)

	result, err := srv.Process(userID, &CreateRequest{
		Symbol:        "GME",
		ActionType:    enum.StockSplit,
		EffectiveDate: "2024-01-01",
		RatioFrom:     dp("1"),
		RatioTo:       dp("4"),
	})
	require.Nil(s.T(), err)

	assert.Equal(s.T(), 0, result.AdjustedLots)

	untouched := s.reload(closed.ID)
	assert.False(s.T(), untouched.Adjustable())
	assert.True(s.T(), d("10").Equal(untouched.OriginalQty))
}

func (s *CorporateActionTestSuite) TestOtherUsersAndSymbolsUntouched() {
	userID := uuid.Must(uuid.NewV4())
	otherUser := uuid.Must(uuid.NewV4())

	mine := s.createLot(userID, "MSFT", "2023-01-01", "10", "300", models.LotOpen)
	otherSymbol := s.createLot(userID, "GOOG", "2023-01-01", "10", "150", models.LotOpen)
	theirs := s.createLot(otherUser, "MSFT", "2023-01-01", "10", "300", models.LotOpen)

	srv := Service().WithTx(s.Conn)

	result, err := srv.Process(userID, &CreateRequest{
		Symbol:        "msft",
		ActionType:    enum.StockSplit,
		EffectiveDate: "2024-01-01",
		RatioFrom:     dp("1"),
		RatioTo:       dp("2"),
	})
	require.Nil(s.T(), err)

	assert.Equal(s.T(), 1, result.AdjustedLots)
	assert.True(s.T(), d("20").Equal(s.reload(mine.ID).OriginalQty))
	assert.True(s.T(), d("10").Equal(s.reload(otherSymbol.ID).OriginalQty))
	assert.True(s.T(), d("10").Equal(s.reload(theirs.ID).OriginalQty))
}

func (s *CorporateActionTestSuite) TestPreSplitLotMaterialization() {
	userID := uuid.Must(uuid.NewV4())

	srv := Service().WithTx(s.Conn)

	result, err := srv.Process(userID, &CreateRequest{
		Symbol:          "IBM",
		ActionType:      enum.StockSplit,
		EffectiveDate:   "2024-01-01",
		RatioFrom:       dp("1"),
		RatioTo:         dp("2"),
		AddPreSplitLot:  true,
		PostSplitShares: dp("100"),
		LotCostBasis:    dp("500"),
	})
	require.Nil(s.T(), err)
	require.NotNil(s.T(), result.NewLot)

	newLot := result.NewLot
	assert.Equal(s.T(), models.LotOpen, newLot.Status)
	assert.True(s.T(), d("100").Equal(newLot.OriginalQty))
	assert.True(s.T(), d("100").Equal(newLot.RemainingQty))
	assert.True(s.T(), d("5").Equal(newLot.CostPerShare))
	assert.True(s.T(), d("500").Equal(newLot.TotalCostBasis))
	assert.Equal(s.T(), "2024-01-01", newLot.AcquiredDate)

	// the new lot itself must not be re-adjusted as an existing lot
	assert.Equal(s.T(), 0, result.AdjustedLots)
	require.Len(s.T(), result.Adjustments, 1)

	// implied pre-event quantity back-computed from the share multiplier
	adj := result.Adjustments[0]
	assert.Equal(s.T(), newLot.ID, adj.LotID)
	assert.True(s.T(), d("50").Equal(adj.QtyBefore))
	assert.True(s.T(), d("100").Equal(adj.QtyAfter))
}

func (s *CorporateActionTestSuite) TestPreSplitLotExplicitPreShares() {
	userID := uuid.Must(uuid.NewV4())

	srv := Service().WithTx(s.Conn)

	result, err := srv.Process(userID, &CreateRequest{
		Symbol:          "F",
		ActionType:      enum.ReverseSplit,
		EffectiveDate:   "2024-03-15",
		RatioFrom:       dp("1"),
		RatioTo:         dp("10"),
		AddPreSplitLot:  true,
		PreSplitShares:  dp("1000"),
		PostSplitShares: dp("100"),
		LotAcquiredDate: "2019-08-01",
	})
	require.Nil(s.T(), err)
	require.NotNil(s.T(), result.NewLot)

	// unknown basis defaults to zero without dividing by zero
	assert.True(s.T(), result.NewLot.CostPerShare.IsZero())
	assert.True(s.T(), result.NewLot.TotalCostBasis.IsZero())
	assert.Equal(s.T(), "2019-08-01", result.NewLot.AcquiredDate)

	require.Len(s.T(), result.Adjustments, 1)
	assert.True(s.T(), d("1000").Equal(result.Adjustments[0].QtyBefore))
}

func (s *CorporateActionTestSuite) TestAtomicRollback() {
	userID := uuid.Must(uuid.NewV4())
	lot := s.createLot(userID, "NET", "2023-01-01", "10", "50", models.LotOpen)

	tx := s.Conn.Begin()
	require.Nil(s.T(), tx.Error)

	srv := Service().WithTx(tx)

	result, err := srv.Process(userID, &CreateRequest{
		Symbol:          "NET",
		ActionType:      enum.StockSplit,
		EffectiveDate:   "2024-01-01",
		RatioFrom:       dp("1"),
		RatioTo:         dp("2"),
		AddPreSplitLot:  true,
		PostSplitShares: dp("100"),
	})
	require.Nil(s.T(), err)
	require.Equal(s.T(), 1, result.AdjustedLots)

	// everything the run wrote rides the caller's transaction
	tx.Rollback()

	var actions int
	require.Nil(s.T(), s.Conn.Model(&models.CorporateAction{}).
		Where("user_id = ?", userID).Count(&actions).Error)
	assert.Equal(s.T(), 0, actions)

	var adjustments int
	require.Nil(s.T(), s.Conn.Model(&models.LotAdjustment{}).
		Where("lot_id = ?", lot.ID).Count(&adjustments).Error)
	assert.Equal(s.T(), 0, adjustments)

	var lots int
	require.Nil(s.T(), s.Conn.Model(&models.StockLot{}).
		Where("user_id = ?", userID).Count(&lots).Error)
	assert.Equal(s.T(), 1, lots)

	assert.True(s.T(), d("10").Equal(s.reload(lot.ID).OriginalQty))
}

func (s *CorporateActionTestSuite) TestMidRunFailureRollsBack() {
	userID := uuid.Must(uuid.NewV4())

	// ordered by acquired_date, so the small lot is rewritten first and
	// the big one trips the trigger mid-run
	small := s.createLot(userID, "WISH", "2023-01-01", "10", "50", models.LotOpen)
	big := s.createLot(userID, "WISH", "2023-06-01", "6000", "2", models.LotOpen)

	require.Nil(s.T(), s.Conn.Exec(`
CREATE FUNCTION reject_oversized_lots() RETURNS trigger AS $$
BEGIN
	IF NEW.original_qty > 9999 THEN
		RAISE EXCEPTION 'lot too large';
	END IF;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql`).Error)
	require.Nil(s.T(), s.Conn.Exec(`
CREATE TRIGGER reject_oversized_lots BEFORE UPDATE ON stock_lots
FOR EACH ROW EXECUTE PROCEDURE reject_oversized_lots()`).Error)
	defer func() {
		s.Conn.Exec("DROP TRIGGER reject_oversized_lots ON stock_lots")
		s.Conn.Exec("DROP FUNCTION reject_oversized_lots()")
	}()

	tx := s.Conn.Begin()
	require.Nil(s.T(), tx.Error)

	srv := Service().WithTx(tx)

	_, err := srv.Process(userID, &CreateRequest{
		Symbol:        "WISH",
		ActionType:    enum.StockSplit,
		EffectiveDate: "2024-01-01",
		RatioFrom:     dp("1"),
		RatioTo:       dp("2"),
	})
	require.NotNil(s.T(), err)

	tx.Rollback()

	// the failed run left nothing behind, including the lot it had
	// already rewritten before the failure
	var actions int
	require.Nil(s.T(), s.Conn.Model(&models.CorporateAction{}).
		Where("user_id = ?", userID).Count(&actions).Error)
	assert.Equal(s.T(), 0, actions)

	var adjustments int
	require.Nil(s.T(), s.Conn.Model(&models.LotAdjustment{}).
		Where("lot_id IN (?)", []uuid.UUID{small.ID, big.ID}).Count(&adjustments).Error)
	assert.Equal(s.T(), 0, adjustments)

	assert.True(s.T(), d("10").Equal(s.reload(small.ID).OriginalQty))
	assert.True(s.T(), d("6000").Equal(s.reload(big.ID).OriginalQty))
}

func (s *CorporateActionTestSuite) TestRepeatedActionsConserveBasis() {
	userID := uuid.Must(uuid.NewV4())
	lot := s.createLot(userID, "NVDA", "2020-01-01", "7", "63.21", models.LotOpen)
	basis := lot.TotalCostBasis

	srv := Service().WithTx(s.Conn)

	for _, req := range []*CreateRequest{
		{Symbol: "NVDA", ActionType: enum.StockSplit, EffectiveDate: "2021-07-20", RatioFrom: dp("1"), RatioTo: dp("4")},
		{Symbol: "NVDA", ActionType: enum.StockSplit, EffectiveDate: "2024-06-10", RatioFrom: dp("1"), RatioTo: dp("10")},
		{Symbol: "NVDA", ActionType: enum.ReverseSplit, EffectiveDate: "2025-01-02", RatioFrom: dp("1"), RatioTo: dp("5")},
	} {
		_, err := srv.Process(userID, req)
		require.Nil(s.T(), err)
	}

	adjusted := s.reload(lot.ID)

	// 7 * 4 * 10 / 5 = 56
	assert.True(s.T(), d("56").Equal(adjusted.OriginalQty))
	assert.True(s.T(), basis.Equal(adjusted.TotalCostBasis))

	drift := adjusted.CostPerShare.Mul(adjusted.OriginalQty).Sub(basis).Abs()
	assert.True(s.T(), drift.LessThan(d("0.0000000001")), "basis drift %s", drift.String())
}

func (s *CorporateActionTestSuite) TestValidationRunsBeforePersistence() {
	userID := uuid.Must(uuid.NewV4())

	srv := Service().WithTx(s.Conn)

	_, err := srv.Process(userID, &CreateRequest{
		Symbol:        "BAD",
		ActionType:    enum.StockSplit,
		EffectiveDate: "2024-01-01",
		RatioFrom:     dp("2"),
		RatioTo:       dp("1"),
	})
	require.NotNil(s.T(), err)

	var actions int
	require.Nil(s.T(), s.Conn.Model(&models.CorporateAction{}).
		Where("user_id = ?", userID).Count(&actions).Error)
	assert.Equal(s.T(), 0, actions)
}

func (s *CorporateActionTestSuite) TestList() {
	userID := uuid.Must(uuid.NewV4())
	s.createLot(userID, "AMD", "2023-01-01", "10", "100", models.LotOpen)

	srv := Service().WithTx(s.Conn)

	_, err := srv.Process(userID, &CreateRequest{
		Symbol:        "AMD",
		ActionType:    enum.StockSplit,
		EffectiveDate: "2023-06-01",
		RatioFrom:     dp("1"),
		RatioTo:       dp("2"),
	})
	require.Nil(s.T(), err)

	_, err = srv.Process(userID, &CreateRequest{
		Symbol:        "INTC",
		ActionType:    enum.ReverseSplit,
		EffectiveDate: "2024-02-01",
		RatioFrom:     dp("1"),
		RatioTo:       dp("5"),
	})
	require.Nil(s.T(), err)

	// newest effective date first
	actions, err := srv.List(userID, "")
	require.Nil(s.T(), err)
	require.Len(s.T(), actions, 2)
	assert.Equal(s.T(), "INTC", actions[0].Symbol)
	assert.Equal(s.T(), "AMD", actions[1].Symbol)

	// adjustments ride along
	assert.Len(s.T(), actions[1].Adjustments, 1)

	// symbol filter, case-insensitive
	actions, err = srv.List(userID, "amd")
	require.Nil(s.T(), err)
	require.Len(s.T(), actions, 1)
	assert.Equal(s.T(), "AMD", actions[0].Symbol)

	// no match
	actions, err = srv.List(userID, "ZZZ")
	require.Nil(s.T(), err)
	assert.Empty(s.T(), actions)
}
