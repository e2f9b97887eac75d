package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/dusabe/tathmini/core/evaluation"
	"github.com/dusabe/tathmini/core/identity"
)

type evaluationRow struct {
	ID            int            `db:"id"`
	Student       string         `db:"student"`
	CourseID      int            `db:"course_id"`
	ContentRef    string         `db:"content_ref"`
	ImageRefs     pq.StringArray `db:"image_refs"`
	Overall       int            `db:"overall"`
	Teaching      int            `db:"teaching"`
	ContentDesign int            `db:"content_design"`
	Interaction   int            `db:"interaction"`
	Anonymous     bool           `db:"anonymous"`
	SubmittedAt   time.Time      `db:"submitted_at"`
	Active        bool           `db:"active"`
}

func (row evaluationRow) evaluation() evaluation.Evaluation {
	return evaluation.Evaluation{
		ID:            row.ID,
		Student:       row.Student,
		CourseID:      row.CourseID,
		ContentRef:    row.ContentRef,
		ImageRefs:     row.ImageRefs,
		Overall:       row.Overall,
		Teaching:      row.Teaching,
		ContentDesign: row.ContentDesign,
		Interaction:   row.Interaction,
		Anonymous:     row.Anonymous,
		SubmittedAt:   row.SubmittedAt,
		Active:        row.Active,
	}
}

type evaluationRepository struct {
	db *sqlx.DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *sql.DB) *evaluationRepository {
	return &evaluationRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *evaluationRepository) CreateEvaluation(ctx context.Context, ev evaluation.Evaluation) (evaluation.Evaluation, error) {
	err := serializableTx(repo.db, func(tx *sqlx.Tx) error {
		role, err := getRole(tx, ev.Student)
		if err != nil {
			if errors.Cause(err) == identity.ErrNotRegistered {
				return evaluation.ErrUnauthorized
			}
			return err
		}
		if role != identity.RoleStudent {
			return evaluation.ErrUnauthorized
		}

		var start, end time.Time
		err = tx.QueryRow("SELECT start_time, end_time FROM course WHERE id = $1", ev.CourseID).Scan(&start, &end)
		if err != nil {
			if errors.Cause(err) == sql.ErrNoRows {
				return evaluation.ErrNotFound
			}
			return errors.Wrap(err, "getting course window")
		}

		var member bool
		err = tx.QueryRow(
			"SELECT EXISTS (SELECT 1 FROM membership WHERE course_id = $1 AND student = $2)",
			ev.CourseID, ev.Student,
		).Scan(&member)
		if err != nil {
			return errors.Wrap(err, "checking membership")
		}
		if !member {
			return evaluation.ErrNotMember
		}
		if ev.SubmittedAt.Before(start) || ev.SubmittedAt.After(end) {
			return evaluation.ErrOutsideWindow
		}

		var evaluated bool
		err = tx.QueryRow(
			"SELECT EXISTS (SELECT 1 FROM evaluation WHERE course_id = $1 AND student = $2 AND active)",
			ev.CourseID, ev.Student,
		).Scan(&evaluated)
		if err != nil {
			return errors.Wrap(err, "checking prior evaluation")
		}
		if evaluated {
			return evaluation.ErrAlreadyEvaluated
		}
		if !ev.RatingsValid() {
			return evaluation.ErrInvalidRating
		}
		if len(ev.ImageRefs) > evaluation.MaxImageRefs {
			return evaluation.ErrTooManyImages
		}

		// next dense global ID, assigned in the same tx that inserts
		if err := tx.QueryRow("SELECT COALESCE(MAX(id) + 1, 0) FROM evaluation").Scan(&ev.ID); err != nil {
			return errors.Wrap(err, "assigning evaluation ID")
		}
		_, err = tx.Exec(`
			INSERT INTO evaluation (id, student, course_id, content_ref, image_refs, overall, teaching, content_design, interaction, anonymous, submitted_at, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			ev.ID, ev.Student, ev.CourseID, ev.ContentRef, pq.StringArray(ev.ImageRefs),
			ev.Overall, ev.Teaching, ev.ContentDesign, ev.Interaction, ev.Anonymous, ev.SubmittedAt.UTC(), ev.Active,
		)
		return errors.Wrap(err, "inserting evaluation")
	})
	if err != nil {
		return evaluation.Evaluation{}, err
	}
	return ev, nil
}

func (repo *evaluationRepository) GetEvaluation(ctx context.Context, id int) (evaluation.Evaluation, error) {
	var row evaluationRow
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM evaluation WHERE id = $1", id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return evaluation.Evaluation{}, evaluation.ErrNotFound
		}
		return evaluation.Evaluation{}, errors.Wrap(err, "getting evaluation")
	}
	return row.evaluation(), nil
}

func (repo *evaluationRepository) QueryCourseEvaluations(ctx context.Context, courseID int) ([]evaluation.Evaluation, error) {
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM course WHERE id = $1)", courseID); err != nil {
		return nil, errors.Wrap(err, "checking course")
	}
	if !exists {
		return nil, evaluation.ErrNotFound
	}
	return repo.query(ctx, "SELECT * FROM evaluation WHERE course_id = $1 ORDER BY id", courseID)
}

func (repo *evaluationRepository) QueryStudentEvaluations(ctx context.Context, student string) ([]evaluation.Evaluation, error) {
	return repo.query(ctx, "SELECT * FROM evaluation WHERE student = $1 ORDER BY id", student)
}

func (repo *evaluationRepository) query(ctx context.Context, q string, args ...interface{}) ([]evaluation.Evaluation, error) {
	var rows []evaluationRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying evaluations")
	}
	evs := make([]evaluation.Evaluation, 0, len(rows))
	for _, row := range rows {
		evs = append(evs, row.evaluation())
	}
	return evs, nil
}

func (repo *evaluationRepository) HasEvaluated(ctx context.Context, courseID int, student string) (bool, error) {
	// hits the partial unique index on (course_id, student) WHERE active
	var evaluated bool
	err := repo.db.GetContext(ctx, &evaluated,
		"SELECT EXISTS (SELECT 1 FROM evaluation WHERE course_id = $1 AND student = $2 AND active)",
		courseID, student)
	return evaluated, errors.Wrap(err, "checking evaluation")
}

func (repo *evaluationRepository) DeactivateEvaluation(ctx context.Context, caller string, id int) (evaluation.Evaluation, error) {
	var deactivated evaluation.Evaluation
	err := serializableTx(repo.db, func(tx *sqlx.Tx) error {
		role, err := getRole(tx, caller)
		if err != nil {
			if errors.Cause(err) == identity.ErrNotRegistered {
				return evaluation.ErrUnauthorized
			}
			return err
		}
		if role != identity.RoleAdmin {
			return evaluation.ErrUnauthorized
		}

		var row evaluationRow
		if err := tx.Get(&row, "UPDATE evaluation SET active = FALSE WHERE id = $1 RETURNING *", id); err != nil {
			if errors.Cause(err) == sql.ErrNoRows {
				return evaluation.ErrNotFound
			}
			return errors.Wrap(err, "deactivating evaluation")
		}
		deactivated = row.evaluation()
		return nil
	})
	if err != nil {
		return evaluation.Evaluation{}, err
	}
	return deactivated, nil
}
