package echoapi

import (
	"context"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

const (
	contextTokenKey     = "userToken"
	contextPrincipalKey = "principal"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Role string `json:"role,omitempty"`
	// TokenVersion must match the user's current version, it changes on logout.
	TokenVersion int64 `json:"tv"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func GetUserClaims(conf *core.Config, usr user.User, version int64) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    conf.AppName,
			Subject:   strconv.FormatInt(usr.ID, 10),
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role:         usr.Role,
		TokenVersion: version,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func issueToken(ctx context.Context, conf *core.Config, svc *user.Service, usr user.User) (string, error) {
	version, err := svc.TokenVersion(ctx, usr.ID)
	if err != nil {
		return "", errors.Wrap(err, "getting token version")
	}
	return GenerateToken(conf, GetUserClaims(conf, usr, version))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func (c Claims) principal() (user.Principal, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return user.Principal{}, errUnauthorized
	}
	return user.Principal{ID: id, Role: c.Role}, nil
}

func getContextPrincipal(ctx echo.Context) (user.Principal, error) {
	if p, ok := ctx.Get(contextPrincipalKey).(user.Principal); ok {
		return p, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.Principal{}, err
	}
	return claims.principal()
}
