package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/auth"
)

const (
	contextClaimsKey = "claims"
	audience         = "madrasa-web"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64       `json:"oriat,omitempty"`
	SessionID    string      `json:"sid"`
	Role         string      `json:"role"`
	Name         string      `json:"name,omitempty"`
	Email        string      `json:"email,omitempty"`
	Source       auth.Source `json:"source"`
	Class        string      `json:"class,omitempty"`
	Roll         int         `json:"roll,omitempty"`
}

func (c Claims) Principal() auth.Principal {
	return auth.Principal{
		ID:     c.Subject,
		Name:   c.Name,
		Email:  c.Email,
		Role:   c.Role,
		Source: c.Source,
		Class:  c.Class,
		Roll:   c.Roll,
	}
}

// tokenIssuer signs & verifies the session tokens.
type tokenIssuer struct {
	key        []byte
	issuer     string
	expiration time.Duration
	refresh    time.Duration
}

func newTokenIssuer(conf *core.Config) *tokenIssuer {
	return &tokenIssuer{
		key:        []byte(conf.SecretKey),
		issuer:     conf.AppName,
		expiration: conf.Auth.JWTExpirationDelta,
		refresh:    conf.Auth.JWTRefreshExpirationDelta,
	}
}

// claims returns the claims of a new session of p, or of the session sid started at origIat when refreshing.
func (ti *tokenIssuer) claims(p auth.Principal, sid string, origIat ...int64) *Claims {
	now := core.NowFunc()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}
	if sid == "" {
		sid = uuid.NewString()
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   p.ID,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		SessionID:    sid,
		Role:         p.Role,
		Name:         p.Name,
		Email:        p.Email,
		Source:       p.Source,
		Class:        p.Class,
		Roll:         p.Roll,
	}
}

// generate returns a signed JWT token string representing claims.
func (ti *tokenIssuer) generate(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(ti.key)
	return ss, errors.Wrap(err, "signing token")
}

func (ti *tokenIssuer) parse(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return ti.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(core.NowFunc),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// middleware authenticates requests carrying a valid `Authorization: Bearer <token>` header.
func (ti *tokenIssuer) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			scheme, tokenStr, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenStr == "" {
				return errMissingToken
			}
			claims, err := ti.parse(tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt").SetInternal(err)
			}
			ctx.Set(contextClaimsKey, *claims)
			return next(ctx)
		}
	}
}

// refreshToken returns a new token for the session of claims, unless the refresh window has passed.
func (ti *tokenIssuer) refreshToken(claims Claims) (string, error) {
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ti.refresh)
	if core.NowFunc().After(expTime) {
		return "", errRefreshExpired
	}
	newClaims := ti.claims(claims.Principal(), claims.SessionID, claims.OrigIssuedAt)
	token, err := ti.generate(newClaims)
	return token, errors.Wrap(err, "generating token")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(Claims); ok {
		return claims, nil
	}
	return Claims{}, errUnauthorized
}
