package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

const (
	tokenContextKey = "userToken"
	actorContextKey = "actor"
)

// Claims represents the authorization claims transmitted via a JWT.
// Only the subject is trusted once activeUserMiddleware has loaded the account.
type Claims struct {
	jwt.StandardClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
}

type authenticator struct {
	conf   *core.Config
	config middleware.JWTConfig
}

func newAuthenticator(conf *core.Config) *authenticator {
	return &authenticator{
		conf: conf,
		config: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    tokenContextKey,
			Claims:        new(Claims),
		},
	}
}

// queryConfig reads the token from ?token=, for clients that cannot set headers (browsers opening a websocket).
func (a *authenticator) queryConfig() middleware.JWTConfig {
	cfg := a.config
	cfg.TokenLookup = "query:token"
	return cfg
}

func GetUserClaims(conf *core.Config, usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name: usr.Name,
		Role: usr.Role.String(),
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

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextActor returns the actor loaded by activeUserMiddleware, falling back
// to the identity asserted by the request token.
func getContextActor(ctx echo.Context) (user.Actor, error) {
	if actor, ok := ctx.Get(actorContextKey).(user.Actor); ok {
		return actor, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.Actor{}, err
	}
	role, ok := user.ParseRole(claims.Role)
	if !ok || claims.Subject == "" {
		return user.Actor{}, errUnauthorized
	}
	return user.Actor{ID: claims.Subject, Role: role}, nil
}
