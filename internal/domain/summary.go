package domain

import (
	"strings"
	"time"

	"medcenter/pkg/validator"
)

const SummaryDescriptionMaxLen = 2000

type VisitSummary struct {
	ID          int64      `json:"id"`
	VisitID     int64      `json:"visit_id"`
	Description string     `json:"description"`
	Files       []UserFile `json:"files"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UserFile is a stored object visible to its owners only.
type UserFile struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	ObjectKey   string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadedFile is a file received from a client, not yet stored.
type UploadedFile struct {
	FileName string
	Data     []byte
}

type SummaryDTO struct {
	Description string `json:"description" form:"description"`
}

// Validate checks the description and the number of files that will be
// attached by this request.
func (dto SummaryDTO) Validate(fileCount, maxFiles int) validator.FieldErrors {
	var errs validator.FieldErrors

	if strings.TrimSpace(dto.Description) == "" {
		errs.Add("description", "описание обязательно")
	} else if !validator.MaxLength(dto.Description, SummaryDescriptionMaxLen) {
		errs.Add("description", "описание не может быть длиннее 2000 символов")
	}

	if maxFiles > 0 && fileCount > maxFiles {
		errs.Add("files", "превышено допустимое количество файлов")
	}

	return errs
}
