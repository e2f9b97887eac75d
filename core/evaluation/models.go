package evaluation

import (
	"time"

	"github.com/dusabe/tathmini/core"
)

const (
	// Rating bounds; each of the four dimensions is an integer in [MinRating, MaxRating].
	MinRating = 1
	MaxRating = 5

	// MaxImageRefs caps the number of image references per evaluation.
	MaxImageRefs = 5

	// RatingScale is the fixed-point scale factor for aggregated ratings:
	// an average of 4.5 stars is reported as 450. Integer scaling keeps the
	// aggregation path free of floating point.
	RatingScale = 100
)

// Evaluation is one student's multi-dimensional rating and commentary for one
// course; unique per (student, course) while active. IDs are dense, global and
// monotonic across all courses.
type Evaluation struct {
	ID            int       `json:"id"`
	Student       string    `json:"student,omitempty"` // Identity address; blanked for anonymous display
	CourseID      int       `json:"course_id"`
	ContentRef    string    `json:"content_ref"` // opaque content-addressed ref, never interpreted
	ImageRefs     []string  `json:"image_refs,omitempty"`
	Overall       int       `json:"overall"`
	Teaching      int       `json:"teaching"`
	ContentDesign int       `json:"content_design"`
	Interaction   int       `json:"interaction"`
	Anonymous     bool      `json:"anonymous"`
	SubmittedAt   time.Time `json:"submitted_at"` // UTC; must fall within the course window
	Active        bool      `json:"active"`
}

func (ev *Evaluation) ratings() [4]int {
	return [4]int{ev.Overall, ev.Teaching, ev.ContentDesign, ev.Interaction}
}

// RatingsValid reports whether all four rating dimensions are within bounds.
func (ev *Evaluation) RatingsValid() bool {
	for _, r := range ev.ratings() {
		if r < MinRating || r > MaxRating {
			return false
		}
	}
	return true
}

// Anonymized returns a copy safe for public display: the student address is
// blanked when the author asked for anonymity.
func (ev Evaluation) Anonymized() Evaluation {
	if ev.Anonymous {
		ev.Student = ""
	}
	return ev
}

// NewEvaluation contains information needed to submit an Evaluation.
// Rating bounds and the image cap are deliberately not validator tags: they
// are ledger preconditions checked in order after the state checks.
type NewEvaluation struct {
	CourseID      int      `json:"course_id"`
	ContentRef    string   `json:"content_ref" validate:"required"`
	ImageRefs     []string `json:"image_refs"`
	Overall       int      `json:"overall"`
	Teaching      int      `json:"teaching"`
	ContentDesign int      `json:"content_design"`
	Interaction   int      `json:"interaction"`
	Anonymous     bool     `json:"anonymous"`
}

func (ne *NewEvaluation) Validate() error {
	ne.ContentRef = core.CleanString(ne.ContentRef)
	return core.Validate.Struct(ne)
}
