// The rest package defines lotkeeper's RESTful API service
package rest

import (
	"context"

	"github.com/jinzhu/gorm"
	"github.com/kataras/iris"

	"github.com/templestuart/lotkeeper/rest/api"
	"github.com/templestuart/lotkeeper/rest/api/binder"
	"github.com/templestuart/lotkeeper/service/registry"
	"github.com/templestuart/lotkeeper/utils"
)

var app *iris.Application

func Start(port string, services registry.Registry, conn *gorm.DB) error {
	return run((":" + port), services, conn)
}

func Shutdown(ctx context.Context) error {
	if app != nil {
		return app.Shutdown(ctx)
	}
	return nil
}

func bindAPI(api *api.API, binder func(*api.API, iris.Party)) func(iris.Party) {
	return func(r iris.Party) {
		binder(api, r)
	}
}

func run(host string, services registry.Registry, conn *gorm.DB) error {
	app = iris.New()

	apis := api.New(api.NewAuthenticator(), services, conn)

	// v1 API
	app.PartyFunc("/lotkeeper/api/v1", bindAPI(apis, binder.V1))

	// heartbeat
	app.HandleMany("GET HEAD", "/lotkeeper/heartbeat", func(ctx iris.Context) {
		ctx.StatusCode(iris.StatusOK)
		ctx.JSON(struct {
			Status  string `json:"status"`
			Version string `json:"version"`
		}{
			"alive", utils.Version,
		})
	})

	return app.Run(
		iris.Addr(host),
		iris.WithConfiguration(iris.Configuration{
			// Disable it to re-fetch request body again for logging purpose.
			DisableBodyConsumptionOnUnmarshal: true,
			// Enable real IP forwarding, which is reliable when it is on private proxy.
			RemoteAddrHeaders: map[string]bool{
				"X-Forwarded-For": true,
			},
		}),
		iris.WithoutInterruptHandler,
	)
}
