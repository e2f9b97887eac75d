package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dusabe/tathmini/core/course"
	"github.com/dusabe/tathmini/core/evaluation"
	"github.com/dusabe/tathmini/core/identity"
)

type courseApi struct {
	idtSvc  *identity.Service
	svc     *course.Service
	evalSvc *evaluation.Service
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	idtSvc *identity.Service,
	svc *course.Service,
	evalSvc *evaluation.Service,
) {
	api := courseApi{
		idtSvc:  idtSvc,
		svc:     svc,
		evalSvc: evalSvc,
	}

	cg := g.Group("/courses", jwt)

	cg.POST("", api.create, teacherMiddleware())
	cg.GET("", api.query)

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherMiddleware())
	dg.POST("/join", api.join, studentMiddleware())
	dg.GET("/students", api.queryStudents)
	dg.GET("/evaluations", api.queryEvaluations)
	dg.GET("/rating", api.rating)
	dg.GET("/evaluated", api.evaluated)
}

// courseID parses the :id path param. An unparsable ID can never name a
// course, so it reads as a missing resource rather than a bad request.
func courseID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}

	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	var (
		crss []course.Course
		err  error
	)
	if active, _ := strconv.ParseBool(ctx.QueryParam("active")); active {
		crss, err = api.svc.QueryActive(ctx.Request().Context())
	} else {
		crss, err = api.svc.QueryAll(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if crss == nil {
		crss = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, crss)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}

	crs, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	crs, err := api.svc.Update(ctx.Request().Context(), claims.Subject, id, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) join(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Join(ctx.Request().Context(), claims.Subject, id); err != nil {
		return errors.Wrap(err, "joining course")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Enrolled."})
}

func (api *courseApi) queryStudents(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}

	students, err := api.svc.QueryStudents(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying course students")
	}
	if students == nil {
		students = []string{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *courseApi) queryEvaluations(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}

	evals, err := api.evalSvc.QueryByCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying course evaluations")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	out := make([]evaluation.Evaluation, 0, len(evals))
	for _, ev := range evals {
		out = append(out, anonymizedFor(claims, ev))
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *courseApi) rating(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}

	avg, err := api.evalSvc.AverageRating(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "computing average rating")
	}
	return ctx.JSON(http.StatusOK, RatingResponse{CourseID: id, AverageRating: avg})
}

func (api *courseApi) evaluated(ctx echo.Context) error {
	id, err := courseID(ctx)
	if err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// admins may ask on behalf of any student; everyone else asks for themselves
	student := claims.Subject
	if s := ctx.QueryParam("student"); s != "" && s != student {
		if !claims.IsAdmin {
			return errHttpForbidden
		}
		student = s
	}

	done, err := api.evalSvc.HasEvaluated(ctx.Request().Context(), id, student)
	if err != nil {
		return errors.Wrap(err, "checking evaluation status")
	}
	return ctx.JSON(http.StatusOK, EvaluatedResponse{CourseID: id, Student: student, Evaluated: done})
}
