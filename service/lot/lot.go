package lot

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofrs/uuid"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"

	"github.com/templestuart/lotkeeper/lkerrors"
	"github.com/templestuart/lotkeeper/models"
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9.\-]{0,11}$`)

// CreateRequest is the validated command for importing a lot. This is
// the entry point trade imports use to seed the lots table.
type CreateRequest struct {
	Symbol        string           `json:"symbol"`
	AcquiredDate  string           `json:"acquired_date"`
	Qty           *decimal.Decimal `json:"qty"`
	CostPerShare  *decimal.Decimal `json:"cost_per_share"`
	Fees          *decimal.Decimal `json:"fees"`
	TransactionID *string          `json:"transaction_id"`
}

func (c *CreateRequest) Validate() error {
	c.Symbol = strings.ToUpper(strings.TrimSpace(c.Symbol))

	err := validation.ValidateStruct(c,
		validation.Field(&c.Symbol, validation.Required, validation.Match(symbolPattern)),
		validation.Field(&c.AcquiredDate, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&c.Qty, validation.Required),
		validation.Field(&c.CostPerShare, validation.Required),
	)
	if err != nil {
		return lkerrors.InvalidRequestParam.WithMsg(err.Error())
	}

	if !c.Qty.IsPositive() {
		return lkerrors.InvalidRequestParam.WithMsg("qty must be positive")
	}

	if c.CostPerShare.IsNegative() {
		return lkerrors.InvalidRequestParam.WithMsg("cost_per_share must not be negative")
	}

	if c.Fees != nil && c.Fees.IsNegative() {
		return lkerrors.InvalidRequestParam.WithMsg("fees must not be negative")
	}

	return nil
}

type LotService interface {
	Create(userID uuid.UUID, req *CreateRequest) (*models.StockLot, error)
	GetByID(userID, lotID uuid.UUID) (*models.StockLot, error)
	List(userID uuid.UUID, symbol string, status models.LotStatus) ([]models.StockLot, error)
	WithTx(tx *gorm.DB) LotService
}

type lotService struct {
	LotService
	tx *gorm.DB
}

func Service() LotService {
	return &lotService{}
}

func (s *lotService) WithTx(tx *gorm.DB) LotService {
	s.tx = tx
	return s
}

func (s *lotService) Create(userID uuid.UUID, req *CreateRequest) (*models.StockLot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fees := decimal.Zero
	if req.Fees != nil {
		fees = *req.Fees
	}

	lot := &models.StockLot{
		ID:             uuid.Must(uuid.NewV4()),
		UserID:         userID,
		TransactionID:  req.TransactionID,
		Symbol:         req.Symbol,
		AcquiredDate:   req.AcquiredDate,
		OriginalQty:    *req.Qty,
		RemainingQty:   *req.Qty,
		CostPerShare:   *req.CostPerShare,
		TotalCostBasis: req.CostPerShare.Mul(*req.Qty),
		Fees:           fees,
		Status:         models.LotOpen,
	}

	if err := s.tx.Create(lot).Error; err != nil {
		return nil, lkerrors.InternalServerError.WithError(err)
	}

	return lot, nil
}

func (s *lotService) GetByID(userID, lotID uuid.UUID) (*models.StockLot, error) {
	lot := &models.StockLot{}

	q := s.tx.Where("id = ? AND user_id = ?", lotID, userID).Find(lot)

	if q.RecordNotFound() {
		return nil, lkerrors.NotFound.WithMsg("lot not found")
	}

	if q.Error != nil {
		return nil, lkerrors.InternalServerError.WithError(q.Error)
	}

	return lot, nil
}

func (s *lotService) List(userID uuid.UUID, symbol string, status models.LotStatus) ([]models.StockLot, error) {
	lots := []models.StockLot{}

	q := s.tx.Where("user_id = ?", userID)

	if symbol != "" {
		q = q.Where("symbol = ?", strings.ToUpper(strings.TrimSpace(symbol)))
	}

	if status != "" {
		q = q.Where("status = ?", status)
	}

	q = q.Order("acquired_date").Order("created_at").Find(&lots)

	if q.Error != nil && q.Error != gorm.ErrRecordNotFound {
		return nil, lkerrors.InternalServerError.WithError(q.Error)
	}

	return lots, nil
}
