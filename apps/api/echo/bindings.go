package echoapi

import (
	"github.com/dusabe/tathmini/core"
)

type (
	LoginRequest struct {
		Address  string `json:"address" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	RatingResponse struct {
		CourseID      int `json:"course_id"`
		AverageRating int `json:"average_rating"` // fixed-point, scale 100
	}

	EvaluatedResponse struct {
		CourseID  int    `json:"course_id"`
		Student   string `json:"student"`
		Evaluated bool   `json:"evaluated"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Address = core.CleanString(lr.Address, true)
	return core.Validate.Struct(lr)
}
