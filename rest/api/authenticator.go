package api

import (
	"fmt"
	"regexp"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gofrs/uuid"

	"github.com/templestuart/lotkeeper/env"
	"github.com/templestuart/lotkeeper/lkerrors"
	"github.com/templestuart/lotkeeper/utils"
)

type Authenticator interface {
	Authenticate(Context) error
}

type authenticator struct {
	Authenticator
}

func NewAuthenticator() Authenticator {
	return &authenticator{}
}

var matcher = regexp.MustCompile("Bearer (.*)")

// Authenticate resolves the bearer token to the acting user and binds
// it to the request session. Outside production the token is the user
// ID itself, so development and testing work without the identity
// provider.
func (a *authenticator) Authenticate(ctx Context) error {
	header := ctx.Request().Header.Get("Authorization")

	if header == "" {
		return lkerrors.Unauthorized.WithMsg("authorization header is required")
	}

	match := matcher.FindStringSubmatch(header)
	if len(match) < 2 {
		return lkerrors.InvalidRequestParam.WithMsg("invalid authorization header value format")
	}

	tokenString := match[1]

	var userID uuid.UUID

	if !utils.Prod() {
		userID = uuid.FromStringOrNil(tokenString)
		if userID == uuid.Nil {
			return lkerrors.Unauthorized.WithMsg("invalid token")
		}
	} else {
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(env.GetVar("LOTKEEPER_JWT_SECRET")), nil
		})
		if err != nil || !token.Valid {
			return lkerrors.Unauthorized.WithMsg("invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return lkerrors.Unauthorized.WithMsg("invalid token claims")
		}

		sub, _ := claims["sub"].(string)
		if userID = uuid.FromStringOrNil(sub); userID == uuid.Nil {
			return lkerrors.Unauthorized.WithMsg("invalid token subject")
		}
	}

	ctx.Authorize(userID, PermissionAll)

	ctx.Values().Set("user_id", userID.String())

	return nil
}
