package inmemdb

import (
	"context"

	"github.com/dusabe/tathmini/core/course"
	"github.com/dusabe/tathmini/core/identity"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.registeredRole(crs.Teacher, identity.RoleTeacher) {
		return course.Course{}, course.ErrUnauthorized
	}
	crs.ID = len(repo.db.courses) // assigned under the same lock that appends
	repo.db.courses = append(repo.db.courses, &crs)
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	crs, err := repo.db.getCourse(id)
	if err != nil {
		return course.Course{}, err
	}
	return *crs, nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		courses = append(courses, *crs)
	}
	return courses, nil
}

func (repo *courseRepository) QueryActiveCourses(ctx context.Context) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		if crs.Active {
			courses = append(courses, *crs)
		}
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, caller string, crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	existing, err := repo.db.getCourse(crs.ID)
	if err != nil {
		return course.Course{}, err
	}
	if existing.Teacher != caller {
		return course.Course{}, course.ErrUnauthorized
	}
	// full replacement of the mutable fields; evaluations recorded under the
	// previous window are not re-validated
	existing.Name = crs.Name
	existing.StartTime = crs.StartTime
	existing.EndTime = crs.EndTime
	existing.Active = crs.Active
	return *existing, nil
}

func (repo *courseRepository) JoinCourse(ctx context.Context, courseID int, student string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	crs, err := repo.db.getCourse(courseID)
	if err != nil {
		return err
	}
	if !repo.db.registeredRole(student, identity.RoleStudent) {
		return course.ErrUnauthorized
	}
	if !crs.Active {
		return course.ErrInactive
	}
	if repo.db.members[courseID][student] {
		return nil // idempotent: double-join is a no-op, not an error
	}

	members, ok := repo.db.members[courseID]
	if !ok {
		members = make(map[string]bool)
		repo.db.members[courseID] = members
	}
	members[student] = true
	repo.db.courseStudents[courseID] = append(repo.db.courseStudents[courseID], student)
	repo.db.studentCourses[student] = append(repo.db.studentCourses[student], courseID)
	crs.StudentCount++
	return nil
}

func (repo *courseRepository) IsMember(ctx context.Context, courseID int, student string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.db.members[courseID][student], nil
}

func (repo *courseRepository) QueryCourseStudents(ctx context.Context, courseID int) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if _, err := repo.db.getCourse(courseID); err != nil {
		return nil, err
	}
	students := repo.db.courseStudents[courseID]
	return append([]string(nil), students...), nil
}

func (repo *courseRepository) QueryStudentCourses(ctx context.Context, student string) ([]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := repo.db.studentCourses[student]
	return append([]int(nil), ids...), nil
}

// getCourse looks up a course by ID. Callers must hold db.mu.
func (db *DB) getCourse(id int) (*course.Course, error) {
	if id < 0 || id >= len(db.courses) {
		return nil, course.ErrNotFound
	}
	return db.courses[id], nil
}
