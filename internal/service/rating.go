package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"medcenter/internal/domain"
	"medcenter/internal/repository"
	"medcenter/pkg/validator"
)

type RatingServiceImpl struct {
	repo        repository.RatingRepository
	visitRepo   repository.VisitRepository
	patientRepo repository.PatientRepository
	doctorRepo  repository.DoctorRepository
	logger      *zap.Logger
}

func NewRatingService(repo repository.RatingRepository, visitRepo repository.VisitRepository, patientRepo repository.PatientRepository, doctorRepo repository.DoctorRepository, logger *zap.Logger) *RatingServiceImpl {
	return &RatingServiceImpl{
		repo:        repo,
		visitRepo:   visitRepo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		logger:      logger,
	}
}

// Rate creates or replaces the actor's rating of a doctor. The patient must
// have at least one finished visit with that doctor.
func (s *RatingServiceImpl) Rate(ctx context.Context, actor domain.Actor, dto domain.RateDoctorDTO) (*domain.DoctorRating, error) {
	dto.Comment = validator.SanitizeString(dto.Comment)
	if errs := dto.Validate(); errs.HasErrors() {
		return nil, domain.NewValidationError(errs)
	}

	patient, err := s.actorPatient(ctx, actor)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(actor, domain.ActionRateDoctor, domain.Participants{PatientUserID: patient.UserID}); err != nil {
		return nil, err
	}

	if _, err := s.doctorRepo.GetByID(ctx, dto.DoctorID); err != nil {
		return nil, err
	}

	finished, err := s.visitRepo.HasFinishedVisit(ctx, patient.ID, dto.DoctorID)
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, fmt.Errorf("врач %d: %w", dto.DoctorID, domain.ErrRatingNotAllowed)
	}

	rating, err := s.repo.Upsert(ctx, dto.DoctorID, patient.ID, dto)
	if err != nil {
		s.logger.Error("ошибка сохранения оценки", zap.Int64("doctorID", dto.DoctorID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("оценка сохранена",
		zap.Int64("ratingID", rating.ID),
		zap.Int64("doctorID", dto.DoctorID),
		zap.Int64("patientID", patient.ID),
	)

	return rating, nil
}

func (s *RatingServiceImpl) CanRate(ctx context.Context, actor domain.Actor, doctorID int64) (bool, error) {
	if actor.Role != domain.UserRolePatient {
		return false, nil
	}

	patient, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return s.visitRepo.HasFinishedVisit(ctx, patient.ID, doctorID)
}

func (s *RatingServiceImpl) ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]domain.DoctorRating, *domain.DoctorRatingStats, error) {
	if _, err := s.doctorRepo.GetByID(ctx, doctorID); err != nil {
		return nil, nil, err
	}

	ratings, err := s.repo.ListByDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		s.logger.Error("ошибка получения оценок врача", zap.Int64("doctorID", doctorID), zap.Error(err))
		return nil, nil, err
	}

	stats, err := s.repo.StatsByDoctor(ctx, doctorID)
	if err != nil {
		return nil, nil, err
	}

	return ratings, stats, nil
}

// Delete removes a rating. Only its author or an admin may do that.
func (s *RatingServiceImpl) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	rating, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if actor.Role != domain.UserRoleAdmin && rating.PatientUserID != actor.UserID {
		return fmt.Errorf("%w: оценка %d", domain.ErrForbidden, id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("ошибка удаления оценки", zap.Int64("ratingID", id), zap.Error(err))
		return err
	}

	return nil
}

func (s *RatingServiceImpl) actorPatient(ctx context.Context, actor domain.Actor) (*domain.Patient, error) {
	if actor.Role != domain.UserRolePatient {
		return nil, fmt.Errorf("%w: оценку ставит только пациент", domain.ErrForbidden)
	}

	patient, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("у пользователя нет профиля пациента: %w", domain.ErrForbidden)
		}
		return nil, err
	}

	return patient, nil
}
