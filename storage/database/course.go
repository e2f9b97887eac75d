package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/dusabe/tathmini/core/course"
	"github.com/dusabe/tathmini/core/identity"
)

type courseRow struct {
	ID           int       `db:"id"`
	Teacher      string    `db:"teacher"`
	Name         string    `db:"name"`
	StartTime    time.Time `db:"start_time"`
	EndTime      time.Time `db:"end_time"`
	Active       bool      `db:"active"`
	StudentCount int       `db:"student_count"`
	CreatedAt    time.Time `db:"created_at"`
}

func (row courseRow) course() course.Course {
	return course.Course{
		ID:           row.ID,
		Teacher:      row.Teacher,
		Name:         row.Name,
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
		Active:       row.Active,
		StudentCount: row.StudentCount,
		CreatedAt:    row.CreatedAt,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	err := serializableTx(repo.db, func(tx *sqlx.Tx) error {
		role, err := getRole(tx, crs.Teacher)
		if err != nil {
			if errors.Cause(err) == identity.ErrNotRegistered {
				return course.ErrUnauthorized
			}
			return err
		}
		if role != identity.RoleTeacher {
			return course.ErrUnauthorized
		}

		// next dense ID, assigned in the same tx that inserts
		if err := tx.QueryRow("SELECT COALESCE(MAX(id) + 1, 0) FROM course").Scan(&crs.ID); err != nil {
			return errors.Wrap(err, "assigning course ID")
		}
		_, err = tx.Exec(`
			INSERT INTO course (id, teacher, name, start_time, end_time, active, student_count, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, 0, $7)`,
			crs.ID, crs.Teacher, crs.Name, crs.StartTime.UTC(), crs.EndTime.UTC(), crs.Active, crs.CreatedAt.UTC(),
		)
		return errors.Wrap(err, "inserting course")
	})
	if err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM course WHERE id = $1", id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return row.course(), nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	return repo.query(ctx, "SELECT * FROM course ORDER BY id")
}

func (repo *courseRepository) QueryActiveCourses(ctx context.Context) ([]course.Course, error) {
	return repo.query(ctx, "SELECT * FROM course WHERE active ORDER BY id")
}

func (repo *courseRepository) query(ctx context.Context, q string, args ...interface{}) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, caller string, crs course.Course) (course.Course, error) {
	var updated course.Course
	err := serializableTx(repo.db, func(tx *sqlx.Tx) error {
		var row courseRow
		if err := tx.Get(&row, "SELECT * FROM course WHERE id = $1", crs.ID); err != nil {
			if errors.Cause(err) == sql.ErrNoRows {
				return course.ErrNotFound
			}
			return errors.Wrap(err, "getting course")
		}
		if row.Teacher != caller {
			return course.ErrUnauthorized
		}
		err := tx.QueryRow(`
			UPDATE course SET name = $2, start_time = $3, end_time = $4, active = $5
			WHERE id = $1
			RETURNING student_count, teacher, created_at`,
			crs.ID, crs.Name, crs.StartTime.UTC(), crs.EndTime.UTC(), crs.Active,
		).Scan(&crs.StudentCount, &crs.Teacher, &crs.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "updating course")
		}
		updated = crs
		return nil
	})
	if err != nil {
		return course.Course{}, err
	}
	return updated, nil
}

func (repo *courseRepository) JoinCourse(ctx context.Context, courseID int, student string) error {
	return serializableTx(repo.db, func(tx *sqlx.Tx) error {
		var active bool
		if err := tx.QueryRow("SELECT active FROM course WHERE id = $1", courseID).Scan(&active); err != nil {
			if errors.Cause(err) == sql.ErrNoRows {
				return course.ErrNotFound
			}
			return errors.Wrap(err, "getting course")
		}
		role, err := getRole(tx, student)
		if err != nil {
			if errors.Cause(err) == identity.ErrNotRegistered {
				return course.ErrUnauthorized
			}
			return err
		}
		if role != identity.RoleStudent {
			return course.ErrUnauthorized
		}
		if !active {
			return course.ErrInactive
		}

		res, err := tx.Exec(`
			INSERT INTO membership (course_id, student) VALUES ($1, $2)
			ON CONFLICT (course_id, student) DO NOTHING`,
			courseID, student,
		)
		if err != nil {
			return errors.Wrap(err, "inserting membership")
		}
		// double-join is a no-op: the count moves only with a fresh row
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "checking membership insert")
		} else if n == 0 {
			return nil
		}
		_, err = tx.Exec("UPDATE course SET student_count = student_count + 1 WHERE id = $1", courseID)
		return errors.Wrap(err, "incrementing student count")
	})
}

func (repo *courseRepository) IsMember(ctx context.Context, courseID int, student string) (bool, error) {
	var member bool
	err := repo.db.GetContext(ctx, &member,
		"SELECT EXISTS (SELECT 1 FROM membership WHERE course_id = $1 AND student = $2)", courseID, student)
	return member, errors.Wrap(err, "checking membership")
}

func (repo *courseRepository) QueryCourseStudents(ctx context.Context, courseID int) ([]string, error) {
	if _, err := repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	students := make([]string, 0)
	err := repo.db.SelectContext(ctx, &students,
		"SELECT student FROM membership WHERE course_id = $1 ORDER BY seq", courseID)
	return students, errors.Wrap(err, "querying course students")
}

func (repo *courseRepository) QueryStudentCourses(ctx context.Context, student string) ([]int, error) {
	ids := make([]int, 0)
	err := repo.db.SelectContext(ctx, &ids,
		"SELECT course_id FROM membership WHERE student = $1 ORDER BY seq", student)
	return ids, errors.Wrap(err, "querying student courses")
}
