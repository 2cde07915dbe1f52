package domain

import (
	"time"

	"medcenter/pkg/validator"
)

const (
	DoctorMinAgeYears       = 18
	DoctorDescriptionMaxLen = 500
)

type Doctor struct {
	ID              int64            `json:"id"`
	UserID          int64            `json:"user_id"`
	FirstName       string           `json:"first_name"`
	LastName        string           `json:"last_name"`
	Description     string           `json:"description"`
	DateOfBirth     time.Time        `json:"date_of_birth"`
	Sex             Sex              `json:"sex"`
	ImageKey        string           `json:"-"`
	ImageURL        string           `json:"image_url,omitempty"`
	Specializations []Specialization `json:"specializations"`
	AverageRating   *float64         `json:"average_rating,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (d *Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}

// CreateDoctorDTO creates the doctor's account and profile together.
type CreateDoctorDTO struct {
	Email             string  `json:"email" binding:"required,email"`
	Password          string  `json:"password" binding:"required"`
	FirstName         string  `json:"first_name" binding:"required"`
	LastName          string  `json:"last_name" binding:"required"`
	Description       string  `json:"description"`
	DateOfBirth       string  `json:"date_of_birth" binding:"required"`
	Sex               Sex     `json:"sex" binding:"required"`
	SpecializationIDs []int64 `json:"specialization_ids"`
}

func (dto CreateDoctorDTO) Validate(now time.Time) validator.FieldErrors {
	var errs validator.FieldErrors

	if !validator.ValidateEmail(dto.Email) {
		errs.Add("email", "некорректный email")
	}
	if !validator.ValidatePassword(dto.Password) {
		errs.Add("password", "пароль должен содержать не менее 6 символов, буквы и цифры")
	}
	if !validator.ValidateNamePart(dto.FirstName) {
		errs.Add("first_name", "некорректное имя")
	}
	if !validator.ValidateNamePart(dto.LastName) {
		errs.Add("last_name", "некорректная фамилия")
	}
	if !validator.MaxLength(dto.Description, DoctorDescriptionMaxLen) {
		errs.Add("description", "описание не может быть длиннее 500 символов")
	}
	if !dto.Sex.IsValid() {
		errs.Add("sex", "допустимые значения: male, female, other")
	}

	dob, err := time.Parse(DateLayout, dto.DateOfBirth)
	if err != nil {
		errs.Add("date_of_birth", "дата должна быть в формате YYYY-MM-DD")
	} else if dob.After(now.AddDate(-DoctorMinAgeYears, 0, 0)) {
		errs.Add("date_of_birth", "врачу должно быть не менее 18 лет")
	}

	return errs
}

type DoctorFilter struct {
	SpecializationID *int64  `json:"specialization_id"`
	Search           *string `json:"search"`
	Limit            int     `json:"limit"`
	Offset           int     `json:"offset"`
}
