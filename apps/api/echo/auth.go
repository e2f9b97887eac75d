package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/dusabe/tathmini/core"
	"github.com/dusabe/tathmini/core/identity"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "identityToken",
		Claims:        new(Claims),
	}
	contextIdentityKey = "identity"
)

// Claims represents the authorization claims transmitted via a JWT.
// Subject carries the identity address; the session layer supplies it on
// every call so the ledger never trusts a client-provided address.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	IsStudent    bool   `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsTeacher    bool   `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAdmin      bool   `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
}

func GetIdentityClaims(idt identity.Identity, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   idt.Address,
			Audience:  "Portal",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         idt.Name,
		Email:        idt.Email,
		Role:         idt.Role.String(),
		IsStudent:    idt.IsStudent(),
		IsTeacher:    idt.IsTeacher(),
		IsAdmin:      idt.IsAdmin(),
	}
}

func authenticate(ctx echo.Context, address, pwd string, svc *identity.Service) (*Claims, error) {
	c := ctx.Request().Context()

	ok, err := svc.VerifyPassword(c, address, pwd)
	if err != nil {
		if errors.Cause(err) == identity.ErrNotRegistered {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "verifying password")
	}
	if !ok { // mismatch is a normal outcome; the lockout policy lives here, not in the ledger
		return nil, errAuthenticationFailed
	}

	idt, err := svc.Get(c, address)
	if err != nil {
		return nil, errors.Wrap(err, "finding identity by address")
	}
	return GetIdentityClaims(idt), nil
}

// GenerateToken generates a signed JWT token string representing the identity Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		claims, ok := token.Claims.(*Claims)
		if !ok {
			// middleware integrity issue, the server cannot be trusted to keep running
			return Claims{}, core.NewShutdownError("unexpected claims type in context token")
		}
		return *claims, nil
	}
	return Claims{}, errUnauthorized
}

func getContextIdentity(ctx echo.Context, svc *identity.Service, clms ...Claims) (identity.Identity, error) {
	if idt, ok := ctx.Get(contextIdentityKey).(identity.Identity); ok {
		return idt, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return identity.Identity{}, errors.Wrap(err, "getting context claims")
		}
	}

	idt, err := svc.Get(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return identity.Identity{}, errors.Wrap(err, "finding identity by address")
	}
	ctx.Set(contextIdentityKey, idt)
	return idt, nil
}

func refreshToken(ctx echo.Context, svc *identity.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	idt, err := getContextIdentity(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context identity")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetIdentityClaims(idt, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
