package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dusabe/tathmini/core/evaluation"
	"github.com/dusabe/tathmini/core/identity"
)

type evaluationApi struct {
	idtSvc *identity.Service
	svc    *evaluation.Service
}

func registerEvaluationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	idtSvc *identity.Service,
	svc *evaluation.Service,
) {
	api := evaluationApi{
		idtSvc: idtSvc,
		svc:    svc,
	}

	eg := g.Group("/evaluations", jwt)

	eg.POST("", api.submit, studentMiddleware())

	dg := eg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.DELETE("", api.deactivate, adminMiddleware())
}

func evaluationID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

// anonymizedFor blanks the author of an anonymous evaluation unless the
// viewer is the author themselves or an admin.
func anonymizedFor(claims Claims, ev evaluation.Evaluation) evaluation.Evaluation {
	if ev.Anonymous && !claims.IsAdmin && claims.Subject != ev.Student {
		return ev.Anonymized()
	}
	return ev
}

// Handlers

func (api *evaluationApi) submit(ctx echo.Context) error {
	var data evaluation.NewEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvaluation")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ev, err := api.svc.Submit(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting evaluation")
	}

	return ctx.JSON(http.StatusCreated, ev)
}

func (api *evaluationApi) retrieve(ctx echo.Context) error {
	id, err := evaluationID(ctx)
	if err != nil {
		return err
	}

	ev, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding evaluation by ID")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return ctx.JSON(http.StatusOK, anonymizedFor(claims, ev))
}

func (api *evaluationApi) deactivate(ctx echo.Context) error {
	id, err := evaluationID(ctx)
	if err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if _, err := api.svc.Deactivate(ctx.Request().Context(), claims.Subject, id); err != nil {
		return errors.Wrap(err, "deactivating evaluation")
	}
	return ctx.NoContent(http.StatusNoContent)
}
