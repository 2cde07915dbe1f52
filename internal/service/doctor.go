package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"medcenter/internal/domain"
	"medcenter/internal/repository"
	"medcenter/internal/storage"
	"medcenter/pkg/validator"
)

const doctorPhotoPrefix = "doctors"

type DoctorServiceImpl struct {
	repo        repository.DoctorRepository
	userRepo    repository.UserRepository
	fileStorage storage.FileStorage
	files       FileSettings
	logger      *zap.Logger
	now         func() time.Time
}

func NewDoctorService(repo repository.DoctorRepository, userRepo repository.UserRepository, fileStorage storage.FileStorage, files FileSettings, logger *zap.Logger) *DoctorServiceImpl {
	return &DoctorServiceImpl{
		repo:        repo,
		userRepo:    userRepo,
		fileStorage: fileStorage,
		files:       files,
		logger:      logger,
		now:         time.Now,
	}
}

// Create adds a doctor account and profile. The account is removed again if
// the profile cannot be stored.
func (s *DoctorServiceImpl) Create(ctx context.Context, dto domain.CreateDoctorDTO) (*domain.Doctor, error) {
	dto.FirstName = validator.FormatName(dto.FirstName)
	dto.LastName = validator.FormatName(dto.LastName)
	dto.Description = validator.SanitizeString(dto.Description)

	if errs := dto.Validate(s.now()); errs.HasErrors() {
		return nil, domain.NewValidationError(errs)
	}

	user, err := createAccount(ctx, s.userRepo, s.logger, dto.Email, dto.Password, domain.UserRoleDoctor)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, user.ID, dto)
	if err != nil {
		s.logger.Error("ошибка создания врача, удаляем учетную запись", zap.Int64("userID", user.ID), zap.Error(err))
		if delErr := s.userRepo.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("ошибка удаления учетной записи", zap.Int64("userID", user.ID), zap.Error(delErr))
		}
		return nil, err
	}

	s.logger.Info("врач создан", zap.Int64("doctorID", id), zap.Int64("userID", user.ID))

	return s.GetByID(ctx, id)
}

func (s *DoctorServiceImpl) GetByID(ctx context.Context, id int64) (*domain.Doctor, error) {
	doctor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.withImageURL(ctx, doctor)

	return doctor, nil
}

func (s *DoctorServiceImpl) List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, int, error) {
	doctors, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения списка врачей", zap.Error(err))
		return nil, 0, err
	}

	total, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка подсчета врачей", zap.Error(err))
		return nil, 0, err
	}

	for i := range doctors {
		s.withImageURL(ctx, &doctors[i])
	}

	return doctors, total, nil
}

// UploadPhoto replaces the profile photo. The previous object is removed
// after the new key is stored.
func (s *DoctorServiceImpl) UploadPhoto(ctx context.Context, id int64, data []byte, filename string) (*domain.Doctor, error) {
	if s.fileStorage == nil {
		return nil, domain.ErrStorageUnavailable
	}

	var errs validator.FieldErrors
	if len(data) == 0 {
		errs.Add("photo", "файл пустой")
	} else if !storage.IsImage(data) {
		errs.Add("photo", "файл не является изображением")
	} else if s.files.MaxFileSize > 0 && int64(len(data)) > s.files.MaxFileSize {
		errs.Add("photo", "файл слишком большой")
	}
	if errs.HasErrors() {
		return nil, domain.NewValidationError(errs)
	}

	doctor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := s.fileStorage.Upload(ctx, doctorPhotoPrefix, data, filename)
	if err != nil {
		s.logger.Error("ошибка загрузки фото врача", zap.Int64("doctorID", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	if err := s.repo.UpdateImage(ctx, id, key); err != nil {
		s.logger.Error("ошибка сохранения фото врача", zap.Int64("doctorID", id), zap.Error(err))
		s.removeObject(ctx, key)
		return nil, err
	}

	if doctor.ImageKey != "" {
		s.removeObject(ctx, doctor.ImageKey)
	}

	return s.GetByID(ctx, id)
}

func (s *DoctorServiceImpl) AddSpecialization(ctx context.Context, doctorID, specializationID int64) error {
	if _, err := s.repo.GetByID(ctx, doctorID); err != nil {
		return err
	}

	if err := s.repo.AddSpecialization(ctx, doctorID, specializationID); err != nil {
		s.logger.Error("ошибка добавления специализации",
			zap.Int64("doctorID", doctorID),
			zap.Int64("specializationID", specializationID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (s *DoctorServiceImpl) RemoveSpecialization(ctx context.Context, doctorID, specializationID int64) error {
	if err := s.repo.RemoveSpecialization(ctx, doctorID, specializationID); err != nil {
		s.logger.Error("ошибка удаления специализации",
			zap.Int64("doctorID", doctorID),
			zap.Int64("specializationID", specializationID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (s *DoctorServiceImpl) withImageURL(ctx context.Context, doctor *domain.Doctor) {
	if doctor.ImageKey == "" || s.fileStorage == nil {
		return
	}

	url, err := s.fileStorage.PresignedURL(ctx, doctor.ImageKey, s.files.PresignExpiry)
	if err != nil {
		s.logger.Warn("ошибка генерации ссылки на фото", zap.Int64("doctorID", doctor.ID), zap.Error(err))
		return
	}
	doctor.ImageURL = url
}

func (s *DoctorServiceImpl) removeObject(ctx context.Context, key string) {
	if err := s.fileStorage.Delete(ctx, key); err != nil {
		s.logger.Warn("ошибка удаления файла из хранилища", zap.String("key", key), zap.Error(err))
	}
}
