package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dusabe/tathmini/core/course"
	"github.com/dusabe/tathmini/core/evaluation"
	"github.com/dusabe/tathmini/core/identity"
)

func CreateIdentity(
	t *testing.T,
	repo identity.Repository,
	address, name string,
	role identity.Role,
	pwd string,
	createdAt ...time.Time,
) identity.Identity {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	idt := identity.Identity{
		Address:    address,
		Name:       name,
		Role:       role,
		Registered: true,
		CreatedAt:  tstamp,
	}
	if pwd != "" {
		if err := idt.SetPassword(pwd); err != nil {
			t.Fatalf("CreateIdentity() failed: %v", err)
		}
	}
	idt, err := repo.CreateIdentity(context.Background(), idt)
	if err != nil {
		t.Fatalf("CreateIdentity() failed: %v", err)
	}
	return idt
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	teacher, name string,
	start, end time.Time,
) course.Course {
	t.Helper()

	crs := course.Course{
		Teacher:   teacher,
		Name:      name,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func JoinCourse(t *testing.T, repo course.Repository, courseID int, student string) {
	t.Helper()

	if err := repo.JoinCourse(context.Background(), courseID, student); err != nil {
		t.Fatalf("JoinCourse() failed: %v", err)
	}
}

func SubmitEvaluation(
	t *testing.T,
	repo evaluation.Repository,
	courseID int,
	student string,
	rating int,
) evaluation.Evaluation {
	t.Helper()

	ev := evaluation.Evaluation{
		Student:       student,
		CourseID:      courseID,
		ContentRef:    "ref-" + student,
		Overall:       rating,
		Teaching:      rating,
		ContentDesign: rating,
		Interaction:   rating,
		SubmittedAt:   time.Now().UTC(),
		Active:        true,
	}
	ev, err := repo.CreateEvaluation(context.Background(), ev)
	if err != nil {
		t.Fatalf("SubmitEvaluation() failed: %v", err)
	}
	return ev
}
