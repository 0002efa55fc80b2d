package corporateaction

import (
	"strings"

	"github.com/gofrs/uuid"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"

	"github.com/templestuart/lotkeeper/db"
	"github.com/templestuart/lotkeeper/lkerrors"
	"github.com/templestuart/lotkeeper/models"
)

// ProcessResult reports everything a corporate action submission did:
// the stored action, the materialized pre-event lot (nil when not
// requested), how many existing lots were rewritten, and the audit
// rows with per-lot before/after values.
type ProcessResult struct {
	Action       *models.CorporateAction `json:"corporate_action"`
	NewLot       *models.StockLot        `json:"new_lot"`
	AdjustedLots int                     `json:"adjusted_lots"`
	Adjustments  []models.LotAdjustment  `json:"adjustments"`
}

type CorporateActionService interface {
	Process(userID uuid.UUID, req *CreateRequest) (*ProcessResult, error)
	List(userID uuid.UUID, symbol string) ([]models.CorporateAction, error)
	WithTx(tx *gorm.DB) CorporateActionService
}

type corporateActionService struct {
	CorporateActionService
	tx *gorm.DB
}

func Service() CorporateActionService {
	return &corporateActionService{}
}

func (s *corporateActionService) WithTx(tx *gorm.DB) CorporateActionService {
	s.tx = tx
	return s
}

// Process applies one corporate action for the given user. Everything
// it writes - the action row, the optional pre-event lot, every lot
// rewrite and every audit row - goes through s.tx, so the caller's
// commit/rollback decides atomicity for the whole run.
func (s *corporateActionService) Process(userID uuid.UUID, req *CreateRequest) (*ProcessResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	mults, err := computeMultipliers(req.ActionType, *req.RatioFrom, *req.RatioTo)
	if err != nil {
		return nil, err
	}

	action := &models.CorporateAction{
		ID:              uuid.Must(uuid.NewV4()),
		UserID:          userID,
		Symbol:          req.Symbol,
		Type:            req.ActionType,
		EffectiveDate:   req.EffectiveDate,
		RatioFrom:       *req.RatioFrom,
		RatioTo:         *req.RatioTo,
		PreSplitShares:  req.PreSplitShares,
		PostSplitShares: req.PostSplitShares,
		Notes:           req.Notes,
		Source:          req.Source,
	}

	if err := s.tx.Create(action).Error; err != nil {
		return nil, lkerrors.InternalServerError.WithError(err)
	}

	result := &ProcessResult{Action: action}

	if req.AddPreSplitLot && req.PostSplitShares != nil {
		newLot, adj, err := s.materializeLot(userID, action, req, mults)
		if err != nil {
			return nil, err
		}
		result.NewLot = newLot
		result.Adjustments = append(result.Adjustments, *adj)
	}

	adjustments, err := s.adjustExistingLots(userID, action, result.NewLot, mults)
	if err != nil {
		return nil, err
	}

	result.AdjustedLots = len(adjustments)
	result.Adjustments = append(result.Adjustments, adjustments...)

	return result, nil
}

// materializeLot creates a lot representing post-event shares whose
// acquisition predates available records, plus the audit row that
// documents the implied pre-event state.
func (s *corporateActionService) materializeLot(
	userID uuid.UUID,
	action *models.CorporateAction,
	req *CreateRequest,
	mults *multipliers,
) (*models.StockLot, *models.LotAdjustment, error) {
	qty := *req.PostSplitShares
	basis := req.costBasis()

	// qty is validated positive, so the basis division is safe
	lot := &models.StockLot{
		ID:             uuid.Must(uuid.NewV4()),
		UserID:         userID,
		Symbol:         action.Symbol,
		AcquiredDate:   req.acquiredDate(),
		OriginalQty:    qty,
		RemainingQty:   qty,
		CostPerShare:   basis.Div(qty),
		TotalCostBasis: basis,
		Status:         models.LotOpen,
	}

	if err := s.tx.Create(lot).Error; err != nil {
		return nil, nil, lkerrors.InternalServerError.WithError(err)
	}

	qtyBefore := qty.Div(mults.share)
	if req.PreSplitShares != nil {
		qtyBefore = *req.PreSplitShares
	}

	cpsBefore := decimal.Zero
	if qtyBefore.IsPositive() {
		cpsBefore = basis.Div(qtyBefore)
	}

	adj := &models.LotAdjustment{
		ID:                 uuid.Must(uuid.NewV4()),
		LotID:              lot.ID,
		CorporateActionID:  action.ID,
		QtyBefore:          qtyBefore,
		QtyAfter:           qty,
		CostPerShareBefore: cpsBefore,
		CostPerShareAfter:  lot.CostPerShare,
	}

	if err := s.tx.Create(adj).Error; err != nil {
		return nil, nil, lkerrors.InternalServerError.WithError(err)
	}

	return lot, adj, nil
}

// adjustExistingLots rewrites every open/partial lot of the action's
// symbol acquired strictly before the effective date. Candidate rows
// are locked FOR UPDATE so a concurrent action on the same symbol
// cannot interleave between read and write.
func (s *corporateActionService) adjustExistingLots(
	userID uuid.UUID,
	action *models.CorporateAction,
	newLot *models.StockLot,
	mults *multipliers,
) ([]models.LotAdjustment, error) {
	lots := []models.StockLot{}

	q := s.tx.
		Set("gorm:query_option", db.ForUpdate).
		Where(
			"user_id = ? AND symbol = ? AND acquired_date < ? AND status IN (?)",
			userID,
			action.Symbol,
			action.EffectiveDate,
			[]string{string(models.LotOpen), string(models.LotPartial)},
		)

	if newLot != nil {
		q = q.Where("id <> ?", newLot.ID)
	}

	q = q.Order("acquired_date").Find(&lots)

	if q.Error != nil && !q.RecordNotFound() {
		return nil, lkerrors.InternalServerError.WithError(q.Error)
	}

	adjustments := make([]models.LotAdjustment, 0, len(lots))

	for i := range lots {
		lot := &lots[i]

		var (
			qtyBefore = lot.OriginalQty
			cpsBefore = lot.CostPerShare
		)

		lot.OriginalQty = lot.OriginalQty.Mul(mults.share)
		lot.RemainingQty = lot.RemainingQty.Mul(mults.share)
		lot.CostPerShare = lot.CostPerShare.Mul(mults.cost)
		// TotalCostBasis is intentionally untouched (basis conservation)

		if err := s.tx.Save(lot).Error; err != nil {
			return nil, lkerrors.InternalServerError.WithError(err)
		}

		adj := models.LotAdjustment{
			ID:                 uuid.Must(uuid.NewV4()),
			LotID:              lot.ID,
			CorporateActionID:  action.ID,
			QtyBefore:          qtyBefore,
			QtyAfter:           lot.OriginalQty,
			CostPerShareBefore: cpsBefore,
			CostPerShareAfter:  lot.CostPerShare,
		}

		if err := s.tx.Create(&adj).Error; err != nil {
			return nil, lkerrors.InternalServerError.WithError(err)
		}

		adjustments = append(adjustments, adj)
	}

	return adjustments, nil
}

// List returns the caller's corporate actions, optionally filtered by
// symbol, newest effective date first, with adjustments preloaded.
func (s *corporateActionService) List(userID uuid.UUID, symbol string) ([]models.CorporateAction, error) {
	actions := []models.CorporateAction{}

	q := s.tx.Where("user_id = ?", userID)

	if symbol != "" {
		q = q.Where("symbol = ?", strings.ToUpper(strings.TrimSpace(symbol)))
	}

	q = q.
		Preload("Adjustments").
		Order("effective_date desc").
		Order("created_at desc").
		Find(&actions)

	if q.Error != nil && q.Error != gorm.ErrRecordNotFound {
		return nil, lkerrors.InternalServerError.WithError(q.Error)
	}

	return actions, nil
}
