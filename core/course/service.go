package course

import (
	"context"
	"errors"
	"time"

	"github.com/dusabe/tathmini/core"
)

var (
	// errors
	ErrNotFound      = errors.New("course not found")
	ErrUnauthorized  = errors.New("caller role does not permit this operation")
	ErrInvalidWindow = errors.New("course window start must precede end")
	ErrInactive      = errors.New("course is inactive")
)

type (
	// Repository is the catalog + membership half of the ledger. Mutating
	// methods check their state preconditions and apply as one atomic
	// transition; no partially updated Course is ever observable.
	Repository interface {
		// CreateCourse assigns the next course ID. The teacher address must
		// resolve to a registered Teacher.
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		// QueryActiveCourses filters on the active flag only; the time window
		// is an orthogonal concern callers check separately.
		QueryActiveCourses(ctx context.Context) ([]Course, error)
		// UpdateCourse replaces the mutable fields. Only the owning teacher may
		// call; the student count and window history are untouched.
		UpdateCourse(ctx context.Context, caller string, crs Course) (Course, error)
		// JoinCourse records membership; joining twice is a no-op. The student
		// count is incremented exactly once per member, atomically with the
		// membership row.
		JoinCourse(ctx context.Context, courseID int, student string) error
		IsMember(ctx context.Context, courseID int, student string) (bool, error)
		// QueryCourseStudents returns member addresses in first-join order.
		QueryCourseStudents(ctx context.Context, courseID int) ([]string, error)
		// QueryStudentCourses returns course IDs in first-join order.
		QueryStudentCourses(ctx context.Context, student string) ([]int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, teacher string, nc NewCourse) (Course, error) {
	if !nc.StartTime.Before(nc.EndTime) {
		return Course{}, ErrInvalidWindow
	}
	crs := Course{
		Teacher:   core.CleanString(teacher, true /* lower */),
		Name:      nc.Name,
		StartTime: nc.StartTime.UTC(),
		EndTime:   nc.EndTime.UTC(),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) Update(ctx context.Context, caller string, id int, uc UpdateCourse) (Course, error) {
	if !uc.StartTime.Before(uc.EndTime) {
		return Course{}, ErrInvalidWindow
	}
	crs := Course{
		ID:        id,
		Name:      uc.Name,
		StartTime: uc.StartTime.UTC(),
		EndTime:   uc.EndTime.UTC(),
		Active:    uc.Active,
	}
	return svc.repo.UpdateCourse(ctx, core.CleanString(caller, true /* lower */), crs)
}

func (svc *Service) Get(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *Service) QueryActive(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryActiveCourses(ctx)
}

func (svc *Service) Join(ctx context.Context, student string, courseID int) error {
	return svc.repo.JoinCourse(ctx, courseID, core.CleanString(student, true /* lower */))
}

func (svc *Service) IsMember(ctx context.Context, courseID int, student string) (bool, error) {
	return svc.repo.IsMember(ctx, courseID, core.CleanString(student, true /* lower */))
}

func (svc *Service) QueryStudents(ctx context.Context, courseID int) ([]string, error) {
	return svc.repo.QueryCourseStudents(ctx, courseID)
}

func (svc *Service) QueryStudentCourses(ctx context.Context, student string) ([]int, error) {
	return svc.repo.QueryStudentCourses(ctx, core.CleanString(student, true /* lower */))
}
