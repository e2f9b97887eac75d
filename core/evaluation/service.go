package evaluation

import (
	"context"
	"errors"
	"time"

	"github.com/dusabe/tathmini/core"
)

var (
	// errors, in precondition order (first failure wins)
	ErrUnauthorized     = errors.New("caller is not a registered student")
	ErrNotFound         = errors.New("evaluation or course not found")
	ErrNotMember        = errors.New("student has not joined this course")
	ErrOutsideWindow    = errors.New("course evaluation window is closed")
	ErrAlreadyEvaluated = errors.New("student already evaluated this course")
	ErrInvalidRating    = errors.New("ratings must be between 1 and 5")
	ErrTooManyImages    = errors.New("too many image references")
)

type (
	// Repository is the evaluation half of the ledger.
	Repository interface {
		// CreateEvaluation checks, in order: registered student, course exists,
		// membership, submission time within the course window, no prior active
		// evaluation, rating bounds, image cap. All checks and the insert are
		// one atomic transition; a failed attempt leaves no trace and consumes
		// no ID.
		CreateEvaluation(ctx context.Context, ev Evaluation) (Evaluation, error)
		GetEvaluation(ctx context.Context, id int) (Evaluation, error)
		// QueryCourseEvaluations returns evaluations in submission (append) order.
		QueryCourseEvaluations(ctx context.Context, courseID int) ([]Evaluation, error)
		QueryStudentEvaluations(ctx context.Context, student string) ([]Evaluation, error)
		// HasEvaluated is an O(1) guard; it gates both submission and page-load
		// eligibility checks.
		HasEvaluated(ctx context.Context, courseID int, student string) (bool, error)
		// DeactivateEvaluation soft-deletes; only an Admin caller may use it.
		DeactivateEvaluation(ctx context.Context, caller string, id int) (Evaluation, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Submit records the evaluation for (student, course). A retry after a timed
// out call is rejected by the AlreadyEvaluated guard; submission is not
// idempotent by design.
func (svc *Service) Submit(ctx context.Context, student string, ne NewEvaluation) (Evaluation, error) {
	ev := Evaluation{
		Student:       core.CleanString(student, true /* lower */),
		CourseID:      ne.CourseID,
		ContentRef:    ne.ContentRef,
		ImageRefs:     ne.ImageRefs,
		Overall:       ne.Overall,
		Teaching:      ne.Teaching,
		ContentDesign: ne.ContentDesign,
		Interaction:   ne.Interaction,
		Anonymous:     ne.Anonymous,
		SubmittedAt:   time.Now().UTC(),
		Active:        true,
	}
	return svc.repo.CreateEvaluation(ctx, ev)
}

func (svc *Service) Get(ctx context.Context, id int) (Evaluation, error) {
	return svc.repo.GetEvaluation(ctx, id)
}

func (svc *Service) QueryByCourse(ctx context.Context, courseID int) ([]Evaluation, error) {
	return svc.repo.QueryCourseEvaluations(ctx, courseID)
}

func (svc *Service) QueryByStudent(ctx context.Context, student string) ([]Evaluation, error) {
	return svc.repo.QueryStudentEvaluations(ctx, core.CleanString(student, true /* lower */))
}

func (svc *Service) HasEvaluated(ctx context.Context, courseID int, student string) (bool, error) {
	return svc.repo.HasEvaluated(ctx, courseID, core.CleanString(student, true /* lower */))
}

// Deactivate soft-deletes an evaluation (moderation); Admin only.
func (svc *Service) Deactivate(ctx context.Context, caller string, id int) (Evaluation, error) {
	return svc.repo.DeactivateEvaluation(ctx, core.CleanString(caller, true /* lower */), id)
}

// AverageRating computes the mean `overall` rating across the course's active
// evaluations, scaled by RatingScale and rounded half up. A course with no
// evaluations reports 0. It is a pure function of the store snapshot; nothing
// is cached or maintained incrementally, so it can never drift.
func (svc *Service) AverageRating(ctx context.Context, courseID int) (int, error) {
	evs, err := svc.repo.QueryCourseEvaluations(ctx, courseID)
	if err != nil {
		return 0, err
	}
	var sum, n int
	for _, ev := range evs {
		if !ev.Active {
			continue
		}
		sum += ev.Overall
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return (RatingScale*sum + n/2) / n, nil
}
