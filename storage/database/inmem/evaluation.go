package inmemdb

import (
	"context"

	"github.com/dusabe/tathmini/core/evaluation"
	"github.com/dusabe/tathmini/core/identity"
)

type evaluationRepository struct {
	db *DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *DB) *evaluationRepository {
	return &evaluationRepository{db: db}
}

// CreateEvaluation runs the full precondition chain and the insert under the
// write lock. The order is part of the contract: first failure wins, and a
// failed attempt consumes no ID.
func (repo *evaluationRepository) CreateEvaluation(ctx context.Context, ev evaluation.Evaluation) (evaluation.Evaluation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.registeredRole(ev.Student, identity.RoleStudent) {
		return evaluation.Evaluation{}, evaluation.ErrUnauthorized
	}
	crs, err := repo.db.getCourse(ev.CourseID)
	if err != nil {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	if !repo.db.members[ev.CourseID][ev.Student] {
		return evaluation.Evaluation{}, evaluation.ErrNotMember
	}
	if !crs.WindowContains(ev.SubmittedAt) {
		return evaluation.Evaluation{}, evaluation.ErrOutsideWindow
	}
	if repo.db.hasActiveEvaluation(ev.CourseID, ev.Student) {
		return evaluation.Evaluation{}, evaluation.ErrAlreadyEvaluated
	}
	if !ev.RatingsValid() {
		return evaluation.Evaluation{}, evaluation.ErrInvalidRating
	}
	if len(ev.ImageRefs) > evaluation.MaxImageRefs {
		return evaluation.Evaluation{}, evaluation.ErrTooManyImages
	}

	ev.ID = len(repo.db.evals)
	ev.ImageRefs = append([]string(nil), ev.ImageRefs...)
	repo.db.evals = append(repo.db.evals, &ev)
	repo.db.courseEvals[ev.CourseID] = append(repo.db.courseEvals[ev.CourseID], ev.ID)
	repo.db.studentEvals[ev.Student] = append(repo.db.studentEvals[ev.Student], ev.ID)
	repo.db.lastEval[evalKey{ev.CourseID, ev.Student}] = ev.ID
	return ev, nil
}

func (repo *evaluationRepository) GetEvaluation(ctx context.Context, id int) (evaluation.Evaluation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if id < 0 || id >= len(repo.db.evals) {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	return *repo.db.evals[id], nil
}

func (repo *evaluationRepository) QueryCourseEvaluations(ctx context.Context, courseID int) ([]evaluation.Evaluation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if _, err := repo.db.getCourse(courseID); err != nil {
		return nil, evaluation.ErrNotFound
	}
	return repo.db.collectEvals(repo.db.courseEvals[courseID]), nil
}

func (repo *evaluationRepository) QueryStudentEvaluations(ctx context.Context, student string) ([]evaluation.Evaluation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.db.collectEvals(repo.db.studentEvals[student]), nil
}

func (repo *evaluationRepository) HasEvaluated(ctx context.Context, courseID int, student string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.db.hasActiveEvaluation(courseID, student), nil
}

func (repo *evaluationRepository) DeactivateEvaluation(ctx context.Context, caller string, id int) (evaluation.Evaluation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.registeredRole(caller, identity.RoleAdmin) {
		return evaluation.Evaluation{}, evaluation.ErrUnauthorized
	}
	if id < 0 || id >= len(repo.db.evals) {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	ev := repo.db.evals[id]
	ev.Active = false
	return *ev, nil
}

// hasActiveEvaluation reports whether the student's latest evaluation for the
// course is still active. Callers must hold db.mu.
func (db *DB) hasActiveEvaluation(courseID int, student string) bool {
	id, ok := db.lastEval[evalKey{courseID, student}]
	return ok && db.evals[id].Active
}

// collectEvals resolves an ID index into records. Callers must hold db.mu.
func (db *DB) collectEvals(ids []int) []evaluation.Evaluation {
	evs := make([]evaluation.Evaluation, 0, len(ids))
	for _, id := range ids {
		evs = append(evs, *db.evals[id])
	}
	return evs
}
