package domain

import (
	"strings"
	"time"

	"medcenter/pkg/validator"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

func (s Sex) IsValid() bool {
	return s == SexMale || s == SexFemale || s == SexOther
}

type Address struct {
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	Province    string `json:"province"`
	District    string `json:"district"`
	PostalCode  string `json:"postal_code"`
	City        string `json:"city"`
}

func (a Address) validate(errs *validator.FieldErrors) {
	required := []struct{ field, value string }{
		{"address.street", a.Street},
		{"address.house_number", a.HouseNumber},
		{"address.province", a.Province},
		{"address.district", a.District},
		{"address.city", a.City},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs.Add(r.field, "обязательное поле")
		}
	}
	if !validator.ValidatePostalCode(a.PostalCode) {
		errs.Add("address.postal_code", "почтовый индекс должен быть в формате NN-NNN")
	}
}

type Patient struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Phone       string    `json:"phone"`
	PESEL       string    `json:"pesel"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Sex         Sex       `json:"sex"`
	Address     Address   `json:"address"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// CreatePatientDTO registers a patient profile. Email and Password are used
// only when staff registers a patient that has no account yet.
type CreatePatientDTO struct {
	FirstName   string  `json:"first_name" binding:"required"`
	LastName    string  `json:"last_name" binding:"required"`
	Phone       string  `json:"phone" binding:"required"`
	PESEL       string  `json:"pesel" binding:"required"`
	DateOfBirth string  `json:"date_of_birth" binding:"required"`
	Sex         Sex     `json:"sex" binding:"required"`
	Address     Address `json:"address"`
	Email       string  `json:"email,omitempty"`
	Password    string  `json:"password,omitempty"`
}

func (dto CreatePatientDTO) Validate(now time.Time) validator.FieldErrors {
	var errs validator.FieldErrors

	if !validator.ValidateNamePart(dto.FirstName) {
		errs.Add("first_name", "некорректное имя")
	}
	if !validator.ValidateNamePart(dto.LastName) {
		errs.Add("last_name", "некорректная фамилия")
	}
	if !validator.ValidatePhone(dto.Phone) {
		errs.Add("phone", "некорректный номер телефона")
	}
	if !validator.ValidatePESEL(dto.PESEL) {
		errs.Add("pesel", "PESEL должен состоять из 11 цифр")
	}
	if !dto.Sex.IsValid() {
		errs.Add("sex", "допустимые значения: male, female, other")
	}

	dob, err := time.Parse(DateLayout, dto.DateOfBirth)
	if err != nil {
		errs.Add("date_of_birth", "дата должна быть в формате YYYY-MM-DD")
	} else if dob.After(now) {
		errs.Add("date_of_birth", "дата рождения не может быть в будущем")
	}

	dto.Address.validate(&errs)

	return errs
}

type UpdatePatientDTO struct {
	FirstName *string  `json:"first_name"`
	LastName  *string  `json:"last_name"`
	Phone     *string  `json:"phone"`
	Address   *Address `json:"address"`
}

func (dto UpdatePatientDTO) Validate() validator.FieldErrors {
	var errs validator.FieldErrors

	if dto.FirstName != nil && !validator.ValidateNamePart(*dto.FirstName) {
		errs.Add("first_name", "некорректное имя")
	}
	if dto.LastName != nil && !validator.ValidateNamePart(*dto.LastName) {
		errs.Add("last_name", "некорректная фамилия")
	}
	if dto.Phone != nil && !validator.ValidatePhone(*dto.Phone) {
		errs.Add("phone", "некорректный номер телефона")
	}
	if dto.Address != nil {
		dto.Address.validate(&errs)
	}

	return errs
}

type PatientFilter struct {
	Search *string `json:"search"`
	PESEL  *string `json:"pesel"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
