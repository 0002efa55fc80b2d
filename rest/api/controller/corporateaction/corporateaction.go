package corporateaction

import (
	"github.com/templestuart/lotkeeper/lkerrors"
	"github.com/templestuart/lotkeeper/rest/api"
	"github.com/templestuart/lotkeeper/service/corporateaction"
)

// Create submits a corporate action: the action insert, the optional
// pre-event lot and every lot adjustment commit in the request
// transaction, or roll back together.
func Create(ctx api.Context) {
	req := &corporateaction.CreateRequest{}

	if err := ctx.Read(req); err != nil {
		ctx.RespondError(lkerrors.RequestBodyLoadFailure.WithError(err))
		return
	}

	srv := ctx.Services().CorporateAction().WithTx(ctx.Tx())

	if result, err := srv.Process(ctx.Session().ID, req); err != nil {
		ctx.RespondError(err)
	} else {
		ctx.Respond(result)
	}
}

func List(ctx api.Context) {
	srv := ctx.Services().CorporateAction().WithTx(ctx.Tx())

	if actions, err := srv.List(ctx.Session().ID, ctx.URLParam("symbol")); err != nil {
		ctx.RespondError(err)
	} else {
		ctx.Respond(actions)
	}
}
