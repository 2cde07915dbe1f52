package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"medcenter/internal/domain"
	"medcenter/internal/repository"
)

type SpecializationServiceImpl struct {
	repo       repository.SpecializationRepository
	doctorRepo repository.DoctorRepository
	logger     *zap.Logger
}

func NewSpecializationService(repo repository.SpecializationRepository, doctorRepo repository.DoctorRepository, logger *zap.Logger) *SpecializationServiceImpl {
	return &SpecializationServiceImpl{
		repo:       repo,
		doctorRepo: doctorRepo,
		logger:     logger,
	}
}

func (s *SpecializationServiceImpl) Create(ctx context.Context, dto domain.CreateSpecializationDTO) (*domain.Specialization, error) {
	dto.Name = strings.TrimSpace(dto.Name)
	if errs := dto.Validate(); errs.HasErrors() {
		return nil, domain.NewValidationError(errs)
	}

	id, err := s.repo.Create(ctx, dto)
	if err != nil {
		s.logger.Error("ошибка создания специализации", zap.String("name", dto.Name), zap.Error(err))
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

func (s *SpecializationServiceImpl) GetByID(ctx context.Context, id int64) (*domain.Specialization, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *SpecializationServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("ошибка удаления специализации", zap.Int64("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("специализация удалена", zap.Int64("id", id))

	return nil
}

func (s *SpecializationServiceImpl) List(ctx context.Context) ([]domain.Specialization, error) {
	specs, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("ошибка получения списка специализаций", zap.Error(err))
		return nil, err
	}

	return specs, nil
}

func (s *SpecializationServiceImpl) ListDoctors(ctx context.Context, id int64, limit, offset int) ([]domain.Doctor, int, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, 0, err
	}

	filter := domain.DoctorFilter{
		SpecializationID: &id,
		Limit:            limit,
		Offset:           offset,
	}

	doctors, err := s.doctorRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения врачей специализации", zap.Int64("specializationID", id), zap.Error(err))
		return nil, 0, err
	}

	total, err := s.doctorRepo.CountByFilter(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return doctors, total, nil
}
