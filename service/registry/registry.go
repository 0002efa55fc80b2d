package registry

import (
	"github.com/templestuart/lotkeeper/service/corporateaction"
	"github.com/templestuart/lotkeeper/service/lot"
)

type Registry interface {
	CorporateAction() corporateaction.CorporateActionService
	Lot() lot.LotService
}

type services struct{}

// New returns the production service registry. Services are stateless
// until a transaction is injected with WithTx, so fresh instances are
// handed out per call.
func New() Registry {
	return &services{}
}

func (s *services) CorporateAction() corporateaction.CorporateActionService {
	return corporateaction.Service()
}

func (s *services) Lot() lot.LotService {
	return lot.Service()
}
