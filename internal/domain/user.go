package domain

import (
	"time"

	"medcenter/pkg/validator"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserRole string

const (
	UserRoleAdmin        UserRole = "admin"
	UserRoleReceptionist UserRole = "receptionist"
	UserRoleDoctor       UserRole = "doctor"
	UserRolePatient      UserRole = "patient"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleReceptionist, UserRoleDoctor, UserRolePatient:
		return true
	}
	return false
}

// IsStaff reports whether the role works the front desk.
func (r UserRole) IsStaff() bool {
	return r == UserRoleAdmin || r == UserRoleReceptionist
}

type CreateUserDTO struct {
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6"`
	Role     UserRole `json:"role" binding:"required,oneof=admin receptionist doctor patient"`
}

func (dto CreateUserDTO) Validate() validator.FieldErrors {
	var errs validator.FieldErrors

	if !validator.ValidateEmail(dto.Email) {
		errs.Add("email", "некорректный email")
	}
	if !validator.ValidatePassword(dto.Password) {
		errs.Add("password", "пароль должен содержать не менее 6 символов, буквы и цифры")
	}
	if !dto.Role.IsValid() {
		errs.Add("role", "неизвестная роль")
	}

	return errs
}
