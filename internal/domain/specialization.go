package domain

import (
	"strings"
	"time"

	"medcenter/pkg/validator"
)

type Specialization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateSpecializationDTO struct {
	Name string `json:"name" binding:"required"`
}

func (dto CreateSpecializationDTO) Validate() validator.FieldErrors {
	var errs validator.FieldErrors

	name := strings.TrimSpace(dto.Name)
	if len(name) < 2 || !validator.MaxLength(name, 100) {
		errs.Add("name", "название должно быть от 2 до 100 символов")
	}

	return errs
}
