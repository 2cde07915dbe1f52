package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"medcenter/internal/domain"
	"medcenter/internal/repository"
	"medcenter/pkg/validator"
)

type PatientServiceImpl struct {
	repo     repository.PatientRepository
	userRepo repository.UserRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewPatientService(repo repository.PatientRepository, userRepo repository.UserRepository, logger *zap.Logger) *PatientServiceImpl {
	return &PatientServiceImpl{
		repo:     repo,
		userRepo: userRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// Create registers a patient profile. A patient user registers their own
// profile; staff register a new patient together with a new account.
func (s *PatientServiceImpl) Create(ctx context.Context, actor domain.Actor, dto domain.CreatePatientDTO) (*domain.Patient, error) {
	dto.FirstName = validator.FormatName(dto.FirstName)
	dto.LastName = validator.FormatName(dto.LastName)
	dto.Phone = validator.FormatPhone(dto.Phone)

	errs := dto.Validate(s.now())

	switch {
	case actor.Role == domain.UserRolePatient:
		if errs.HasErrors() {
			return nil, domain.NewValidationError(errs)
		}
		return s.createForExistingUser(ctx, actor.UserID, dto)
	case actor.Role.IsStaff():
		if !validator.ValidateEmail(dto.Email) {
			errs.Add("email", "некорректный email")
		}
		if !validator.ValidatePassword(dto.Password) {
			errs.Add("password", "пароль должен содержать не менее 6 символов, буквы и цифры")
		}
		if errs.HasErrors() {
			return nil, domain.NewValidationError(errs)
		}
		return s.createWithAccount(ctx, actor, dto)
	}

	return nil, fmt.Errorf("%w: регистрация пациента для роли %s", domain.ErrForbidden, actor.Role)
}

func (s *PatientServiceImpl) createForExistingUser(ctx context.Context, userID int64, dto domain.CreatePatientDTO) (*domain.Patient, error) {
	_, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return nil, fmt.Errorf("профиль пациента уже существует: %w", domain.ErrConflict)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("ошибка проверки профиля пациента", zap.Int64("userID", userID), zap.Error(err))
		return nil, err
	}

	id, err := s.repo.Create(ctx, userID, dto)
	if err != nil {
		s.logger.Error("ошибка создания пациента", zap.Int64("userID", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("пациент зарегистрирован", zap.Int64("patientID", id), zap.Int64("userID", userID))

	return s.repo.GetByID(ctx, id)
}

func (s *PatientServiceImpl) createWithAccount(ctx context.Context, actor domain.Actor, dto domain.CreatePatientDTO) (*domain.Patient, error) {
	user, err := createAccount(ctx, s.userRepo, s.logger, dto.Email, dto.Password, domain.UserRolePatient)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, user.ID, dto)
	if err != nil {
		s.logger.Error("ошибка создания пациента, удаляем учетную запись", zap.Int64("userID", user.ID), zap.Error(err))
		if delErr := s.userRepo.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("ошибка удаления учетной записи", zap.Int64("userID", user.ID), zap.Error(delErr))
		}
		return nil, err
	}

	s.logger.Info("пациент зарегистрирован сотрудником",
		zap.Int64("patientID", id),
		zap.Int64("staffUserID", actor.UserID),
	)

	return s.repo.GetByID(ctx, id)
}

func (s *PatientServiceImpl) GetByID(ctx context.Context, actor domain.Actor, id int64) (*domain.Patient, error) {
	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(actor, domain.ActionManagePatient, domain.Participants{PatientUserID: patient.UserID}); err != nil {
		return nil, err
	}

	return patient, nil
}

func (s *PatientServiceImpl) GetByUserID(ctx context.Context, userID int64) (*domain.Patient, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *PatientServiceImpl) Update(ctx context.Context, actor domain.Actor, id int64, dto domain.UpdatePatientDTO) (*domain.Patient, error) {
	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(actor, domain.ActionManagePatient, domain.Participants{PatientUserID: patient.UserID}); err != nil {
		return nil, err
	}

	if dto.FirstName != nil {
		name := validator.FormatName(*dto.FirstName)
		dto.FirstName = &name
	}
	if dto.LastName != nil {
		name := validator.FormatName(*dto.LastName)
		dto.LastName = &name
	}
	if dto.Phone != nil {
		phone := validator.FormatPhone(*dto.Phone)
		dto.Phone = &phone
	}

	if errs := dto.Validate(); errs.HasErrors() {
		return nil, domain.NewValidationError(errs)
	}

	if err := s.repo.Update(ctx, id, dto); err != nil {
		s.logger.Error("ошибка обновления пациента", zap.Int64("patientID", id), zap.Error(err))
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

func (s *PatientServiceImpl) List(ctx context.Context, filter domain.PatientFilter) ([]domain.Patient, int, error) {
	patients, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения списка пациентов", zap.Error(err))
		return nil, 0, err
	}

	total, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка подсчета пациентов", zap.Error(err))
		return nil, 0, err
	}

	return patients, total, nil
}
