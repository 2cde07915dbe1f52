package domain

import (
	"time"

	"medcenter/pkg/validator"
)

type DoctorRating struct {
	ID        int64     `json:"id"`
	DoctorID  int64     `json:"doctor_id"`
	PatientID int64     `json:"patient_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PatientName   string `json:"patient_name,omitempty"`
	PatientUserID int64  `json:"-"`
}

type RateDoctorDTO struct {
	DoctorID int64  `json:"doctor_id" binding:"required"`
	Rating   int    `json:"rating" binding:"required"`
	Comment  string `json:"comment"`
}

func (dto RateDoctorDTO) Validate() validator.FieldErrors {
	var errs validator.FieldErrors

	if dto.Rating < 1 || dto.Rating > 5 {
		errs.Add("rating", "оценка должна быть от 1 до 5")
	}
	if !validator.MaxLength(dto.Comment, 500) {
		errs.Add("comment", "комментарий не может быть длиннее 500 символов")
	}

	return errs
}

type DoctorRatingStats struct {
	DoctorID int64   `json:"doctor_id"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
}
