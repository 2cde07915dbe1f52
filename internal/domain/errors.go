package domain

import (
	"errors"

	"medcenter/pkg/validator"
)

var (
	ErrMalformedInput     = errors.New("некорректный формат данных")
	ErrInvalidSlot        = errors.New("некорректный временной слот")
	ErrInvalidSchedule    = errors.New("некорректное расписание визита")
	ErrNotFound           = errors.New("запись не найдена")
	ErrVisitLimitExceeded = errors.New("достигнут лимит активных визитов")
	ErrAlreadyFinished    = errors.New("визит уже завершен")
	ErrNotCancellable     = errors.New("визит нельзя отменить")
	ErrForbidden          = errors.New("доступ запрещен")
	ErrSlotTaken          = errors.New("выбранное время у врача уже занято")
	ErrRatingNotAllowed   = errors.New("оценить врача можно только после завершенного визита")
	ErrValidation         = errors.New("ошибка валидации")
	ErrConflict           = errors.New("запись уже существует")
	ErrUnauthorized       = errors.New("неверный логин или пароль")
	ErrStorageUnavailable = errors.New("файловое хранилище недоступно")
)

// ValidationError carries per-field problems and matches ErrValidation.
type ValidationError struct {
	Fields validator.FieldErrors
}

func NewValidationError(fields validator.FieldErrors) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Fields.Error()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
