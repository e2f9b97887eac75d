package inmemdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusabe/tathmini/core/course"
	"github.com/dusabe/tathmini/core/identity"
	inmemdb "github.com/dusabe/tathmini/storage/database/inmem"
	testutil "github.com/dusabe/tathmini/tests"
)

func TestCourseRepository_CreateCourse(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.New()
	idtRepo := inmemdb.NewIdentityRepository(db)
	repo := inmemdb.NewCourseRepository(db)

	teacher := testutil.CreateIdentity(t, idtRepo, "0xteach", "Teach", identity.RoleTeacher, "")
	student := testutil.CreateIdentity(t, idtRepo, "0xstud", "Stud", identity.RoleStudent, "")

	now := time.Now().UTC()
	window := course.Course{Name: "Algebra", StartTime: now, EndTime: now.Add(time.Hour), Active: true}

	t.Run("only a registered teacher may create", func(t *testing.T) {
		for _, caller := range []string{student.Address, "0xnobody"} {
			crs := window
			crs.Teacher = caller
			_, err := repo.CreateCourse(ctx, crs)
			assert.Equal(t, course.ErrUnauthorized, err)
		}
	})

	t.Run("IDs are dense and monotonic from 0", func(t *testing.T) {
		for want := 0; want < 3; want++ {
			crs := window
			crs.Teacher = teacher.Address
			crs, err := repo.CreateCourse(ctx, crs)
			require.NoError(t, err)
			assert.Equal(t, want, crs.ID)
		}
	})

	t.Run("unknown ID", func(t *testing.T) {
		_, err := repo.GetCourse(ctx, 99)
		assert.Equal(t, course.ErrNotFound, err)
	})
}

func TestCourseRepository_UpdateCourse(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.New()
	idtRepo := inmemdb.NewIdentityRepository(db)
	repo := inmemdb.NewCourseRepository(db)

	owner := testutil.CreateIdentity(t, idtRepo, "0xowner", "Owner", identity.RoleTeacher, "")
	other := testutil.CreateIdentity(t, idtRepo, "0xother", "Other", identity.RoleTeacher, "")

	now := time.Now().UTC()
	crs := testutil.CreateCourse(t, repo, owner.Address, "Algebra", now, now.Add(time.Hour))

	t.Run("not found", func(t *testing.T) {
		_, err := repo.UpdateCourse(ctx, owner.Address, course.Course{ID: 99})
		assert.Equal(t, course.ErrNotFound, err)
	})

	t.Run("only the owner may update", func(t *testing.T) {
		upd := crs
		upd.Name = "Hijacked"
		_, err := repo.UpdateCourse(ctx, other.Address, upd)
		assert.Equal(t, course.ErrUnauthorized, err)
	})

	t.Run("replaces the mutable fields", func(t *testing.T) {
		upd := crs
		upd.Name = "Algebra II"
		upd.EndTime = crs.EndTime.Add(time.Hour)
		upd.Active = false

		got, err := repo.UpdateCourse(ctx, owner.Address, upd)
		require.NoError(t, err)
		assert.Equal(t, "Algebra II", got.Name)
		assert.Equal(t, upd.EndTime, got.EndTime)
		assert.False(t, got.Active)
		assert.Equal(t, crs.Teacher, got.Teacher)
	})
}

func TestCourseRepository_JoinCourse(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.New()
	idtRepo := inmemdb.NewIdentityRepository(db)
	repo := inmemdb.NewCourseRepository(db)

	teacher := testutil.CreateIdentity(t, idtRepo, "0xteach", "Teach", identity.RoleTeacher, "")
	alice := testutil.CreateIdentity(t, idtRepo, "0xalice", "Alice", identity.RoleStudent, "")
	bob := testutil.CreateIdentity(t, idtRepo, "0xbob", "Bob", identity.RoleStudent, "")

	now := time.Now().UTC()
	crs := testutil.CreateCourse(t, repo, teacher.Address, "Algebra", now, now.Add(time.Hour))

	t.Run("preconditions", func(t *testing.T) {
		assert.Equal(t, course.ErrNotFound, repo.JoinCourse(ctx, 99, alice.Address))
		assert.Equal(t, course.ErrUnauthorized, repo.JoinCourse(ctx, crs.ID, teacher.Address))
		assert.Equal(t, course.ErrUnauthorized, repo.JoinCourse(ctx, crs.ID, "0xnobody"))
	})

	t.Run("join is idempotent and counts once", func(t *testing.T) {
		require.NoError(t, repo.JoinCourse(ctx, crs.ID, alice.Address))
		require.NoError(t, repo.JoinCourse(ctx, crs.ID, alice.Address)) // no-op

		got, err := repo.GetCourse(ctx, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.StudentCount)

		ok, err := repo.IsMember(ctx, crs.ID, alice.Address)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("members listed in first-join order", func(t *testing.T) {
		require.NoError(t, repo.JoinCourse(ctx, crs.ID, bob.Address))
		require.NoError(t, repo.JoinCourse(ctx, crs.ID, alice.Address)) // still a no-op

		students, err := repo.QueryCourseStudents(ctx, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{alice.Address, bob.Address}, students)

		ids, err := repo.QueryStudentCourses(ctx, bob.Address)
		require.NoError(t, err)
		assert.Equal(t, []int{crs.ID}, ids)
	})

	t.Run("inactive course rejects joins", func(t *testing.T) {
		carol := testutil.CreateIdentity(t, idtRepo, "0xcarol", "Carol", identity.RoleStudent, "")

		upd := crs
		upd.Active = false
		_, err := repo.UpdateCourse(ctx, teacher.Address, upd)
		require.NoError(t, err)

		assert.Equal(t, course.ErrInactive, repo.JoinCourse(ctx, crs.ID, carol.Address))
	})
}
