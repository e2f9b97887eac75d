package course

import (
	"time"

	"github.com/dusabe/tathmini/core"
)

// Course is a catalog entry owned by its creating teacher. IDs are dense,
// monotonic and assigned at creation, starting at 0; they are never reused.
type Course struct {
	ID           int       `json:"id"`
	Teacher      string    `json:"teacher"` // Identity address
	Name         string    `json:"name"`
	StartTime    time.Time `json:"start_time"` // evaluation window open
	EndTime      time.Time `json:"end_time"`   // evaluation window close
	Active       bool      `json:"active"`
	StudentCount int       `json:"student_count"` // maintained by Join, never set directly
	CreatedAt    time.Time `json:"created_at"`    // UTC
}

// WindowContains reports whether t falls within the course evaluation window.
func (crs *Course) WindowContains(t time.Time) bool {
	return !t.Before(crs.StartTime) && !t.After(crs.EndTime)
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name      string    `json:"name" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

func (nc *NewCourse) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	return core.Validate.Struct(nc)
}

// UpdateCourse fully replaces a Course's mutable fields; there is no partial
// update.
type UpdateCourse struct {
	Name      string    `json:"name" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Active    bool      `json:"active"`
}

func (uc *UpdateCourse) Validate() error {
	uc.Name = core.CleanString(uc.Name)
	return core.Validate.Struct(uc)
}
