package binder

import (
	"github.com/iris-contrib/middleware/cors"
	"github.com/kataras/iris"

	"github.com/templestuart/lotkeeper/rest/api"
	"github.com/templestuart/lotkeeper/rest/api/controller/corporateaction"
	"github.com/templestuart/lotkeeper/rest/api/controller/lot"
	"github.com/templestuart/lotkeeper/rest/api/middleware/httplogger"
	"github.com/templestuart/lotkeeper/utils"
)

// V1 binds the lotkeeper API handlers to their respective endpoints
func V1(api *api.API, r iris.Party) {
	r.Use(httplogger.New())

	// CORS
	{
		getOrigins := func() []string {
			switch {
			case utils.Prod():
				return []string{"https://app.templestuart.com"}
			default:
				// staging/dev mode
				return []string{"*"}
			}
		}

		crs := cors.New(cors.Options{
			AllowedOrigins: getOrigins(),
			AllowedMethods: []string{
				iris.MethodGet,
				iris.MethodPost,
				iris.MethodOptions,
			},
			AllowedHeaders:     []string{"*"},
			AllowCredentials:   true,
			OptionsPassthrough: false,
		})

		r.Use(crs)
		r.AllowMethods(iris.MethodOptions)
	}

	r.Post("/corporate_actions", api.Authenticate(corporateaction.Create))
	r.Get("/corporate_actions", api.Authenticate(corporateaction.List))

	r.Post("/lots", api.Authenticate(lot.Create))
	r.Get("/lots", api.Authenticate(lot.List))
	r.Get("/lots/{lot_id}", api.Authenticate(lot.Get))
}
