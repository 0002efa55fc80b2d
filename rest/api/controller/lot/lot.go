package lot

import (
	"github.com/gofrs/uuid"

	"github.com/templestuart/lotkeeper/lkerrors"
	"github.com/templestuart/lotkeeper/models"
	"github.com/templestuart/lotkeeper/rest/api"
	"github.com/templestuart/lotkeeper/service/lot"
)

func Create(ctx api.Context) {
	req := &lot.CreateRequest{}

	if err := ctx.Read(req); err != nil {
		ctx.RespondError(lkerrors.RequestBodyLoadFailure.WithError(err))
		return
	}

	srv := ctx.Services().Lot().WithTx(ctx.Tx())

	if created, err := srv.Create(ctx.Session().ID, req); err != nil {
		ctx.RespondError(err)
	} else {
		ctx.Respond(created)
	}
}

func Get(ctx api.Context) {
	lotID, err := uuid.FromString(ctx.Params().Get("lot_id"))
	if err != nil {
		ctx.RespondError(lkerrors.InvalidRequestParam.WithMsg("invalid lot_id"))
		return
	}

	srv := ctx.Services().Lot().WithTx(ctx.Tx())

	if found, err := srv.GetByID(ctx.Session().ID, lotID); err != nil {
		ctx.RespondError(err)
	} else {
		ctx.Respond(found)
	}
}

func List(ctx api.Context) {
	srv := ctx.Services().Lot().WithTx(ctx.Tx())

	lots, err := srv.List(
		ctx.Session().ID,
		ctx.URLParam("symbol"),
		models.LotStatus(ctx.URLParam("status")),
	)
	if err != nil {
		ctx.RespondError(err)
		return
	}

	ctx.Respond(lots)
}
