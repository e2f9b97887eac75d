package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dusabe/tathmini/core"
	"github.com/dusabe/tathmini/core/course"
	"github.com/dusabe/tathmini/core/evaluation"
	"github.com/dusabe/tathmini/core/identity"
)

var errIdtNotFoundInCtx = errors.New("identity object not found in echo.Context")

type identityApi struct {
	svc     *identity.Service
	crsSvc  *course.Service
	evalSvc *evaluation.Service
}

func registerIdentityAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *identity.Service,
	crsSvc *course.Service,
	evalSvc *evaluation.Service,
) {
	api := identityApi{
		svc:     svc,
		crsSvc:  crsSvc,
		evalSvc: evalSvc,
	}

	ig := g.Group("/identities")

	// un-authed endpoints
	ig.POST("/register", api.register)
	ig.POST("/login", api.login)

	// authed endpoints
	ag := ig.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.GET("", api.query, adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:address", ctxIdentityOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.GET("/courses", api.queryCourses)
	dg.GET("/evaluations", api.queryEvaluations)
}

// Handlers

func (api *identityApi) register(ctx echo.Context) error {
	var data identity.NewIdentity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIdentity")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	idt, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering identity")
	}

	return ctx.JSON(http.StatusCreated, idt)
}

func (api *identityApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticate(ctx, data.Address, data.Password, api.svc)
	if err != nil {
		if errors.Cause(err) == errAuthenticationFailed {
			return core.NewValidationError(errors.New("invalid credentials"))
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *identityApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *identityApi) me(ctx echo.Context) error {
	idt, err := getContextIdentity(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	return ctx.JSON(http.StatusOK, idt)
}

func (api *identityApi) query(ctx echo.Context) error {
	idts, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying identities")
	}
	if idts == nil {
		idts = []identity.Identity{}
	}
	return ctx.JSON(http.StatusOK, idts)
}

func (api *identityApi) retrieve(ctx echo.Context) error {
	idt, ok := ctx.Get("object").(identity.Identity)
	if !ok {
		return errors.Wrap(errIdtNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, idt)
}

func (api *identityApi) queryCourses(ctx echo.Context) error {
	idt, ok := ctx.Get("object").(identity.Identity)
	if !ok {
		return errors.Wrap(errIdtNotFoundInCtx, "retrieving object from context")
	}

	ids, err := api.crsSvc.QueryStudentCourses(ctx.Request().Context(), idt.Address)
	if err != nil {
		return errors.Wrap(err, "querying joined courses")
	}
	if ids == nil {
		ids = []int{}
	}
	return ctx.JSON(http.StatusOK, ids)
}

func (api *identityApi) queryEvaluations(ctx echo.Context) error {
	idt, ok := ctx.Get("object").(identity.Identity)
	if !ok {
		return errors.Wrap(errIdtNotFoundInCtx, "retrieving object from context")
	}

	evals, err := api.evalSvc.QueryByStudent(ctx.Request().Context(), idt.Address)
	if err != nil {
		return errors.Wrap(err, "querying submitted evaluations")
	}
	if evals == nil {
		evals = []evaluation.Evaluation{}
	}
	return ctx.JSON(http.StatusOK, evals)
}

// ctxIdentityOrAdminMiddleware restricts detail endpoints to the identity
// itself or an admin, and stashes the resolved record in the context.
func ctxIdentityOrAdminMiddleware(svc *identity.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxIdt, err := getContextIdentity(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context identity")
			}

			if ctx.Param("address") == ctxIdt.Address || ctxIdt.IsAdmin() {
				if idt, err := svc.Get(ctx.Request().Context(), ctx.Param("address")); err == nil {
					ctx.Set("object", idt)
					return next(ctx)
				} else if errors.Cause(err) != identity.ErrNotRegistered {
					return errors.Wrap(err, "finding identity by address")
				}
			}
			return errHttpNotFound
		}
	}
}
