package httplogger

import (
	"io/ioutil"

	"github.com/buger/jsonparser"
	"github.com/kataras/iris"
	"github.com/kataras/iris/context"

	"github.com/templestuart/lotkeeper/clock"
	"github.com/templestuart/lotkeeper/log"
)

type HTTPLogger struct{}

func New() iris.Handler {
	m := HTTPLogger{}
	return m.ServeHTTP
}

var masks = []string{
	"password",
	"token",
}

func (h *HTTPLogger) ServeHTTP(ctx context.Context) {
	start := clock.Now()
	ctx.Next()
	end := clock.Now()

	var body []byte

	// mask the sensitive fields
	if body, _ = ioutil.ReadAll(ctx.Request().Body); len(body) > 0 {
		for _, mask := range masks {
			if _, _, _, err := jsonparser.Get(body, mask); err == nil {
				body, _ = jsonparser.Set(body, []byte(`"xxx"`), mask)
			}
		}
	}

	log.Debug("httplog",
		"method", ctx.Method(),
		"path", ctx.Path(),
		"query", ctx.Request().URL.RawQuery,
		"status_code", ctx.GetStatusCode(),
		"elapsed", end.Sub(start).Seconds(),
		"ip", ctx.RemoteAddr(),
		"user_id", ctx.Values().GetString("user_id"),
		"body", string(body),
	)
}
