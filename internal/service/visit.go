package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"medcenter/internal/domain"
	"medcenter/internal/repository"
)

type VisitServiceImpl struct {
	repo        repository.VisitRepository
	doctorRepo  repository.DoctorRepository
	patientRepo repository.PatientRepository
	notifier    Notifier
	settings    BookingSettings
	logger      *zap.Logger
	now         func() time.Time
}

func NewVisitService(repo repository.VisitRepository, doctorRepo repository.DoctorRepository, patientRepo repository.PatientRepository, notifier Notifier, settings BookingSettings, logger *zap.Logger) *VisitServiceImpl {
	if settings.VisitDuration <= 0 {
		settings.VisitDuration = domain.DefaultVisitDuration
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.ConflictPolicy == "" {
		settings.ConflictPolicy = domain.ConflictPolicyReject
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	return &VisitServiceImpl{
		repo:        repo,
		doctorRepo:  doctorRepo,
		patientRepo: patientRepo,
		notifier:    notifier,
		settings:    settings,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *VisitServiceImpl) Create(ctx context.Context, actor domain.Actor, dto domain.CreateVisitDTO) (*domain.Visit, error) {
	// Patients book for themselves only; an omitted patient id means "me".
	if actor.Role == domain.UserRolePatient {
		own, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("у пользователя нет профиля пациента: %w", domain.ErrForbidden)
			}
			return nil, err
		}
		if dto.PatientID == 0 {
			dto.PatientID = own.ID
		}
		if dto.PatientID != own.ID {
			return nil, fmt.Errorf("%w: запись другого пациента", domain.ErrForbidden)
		}
	}

	// Checked before anything that depends on the patient's bookings.
	if !actor.Role.IsStaff() && actor.Role != domain.UserRolePatient {
		return nil, fmt.Errorf("%w: %s для роли %s", domain.ErrForbidden, domain.ActionBookVisit, actor.Role)
	}

	if dto.DoctorID <= 0 || dto.PatientID <= 0 {
		return nil, fmt.Errorf("%w: doctor_id и patient_id обязательны", domain.ErrMalformedInput)
	}

	reached, err := s.HasReachedActiveVisitsLimit(ctx, dto.PatientID)
	if err != nil {
		return nil, err
	}
	if reached {
		s.logger.Info("отказ в записи: лимит активных визитов",
			zap.Int64("patientID", dto.PatientID),
			zap.Int("limit", s.settings.MaxActiveVisits),
		)
		return nil, fmt.Errorf("пациент %d: %w", dto.PatientID, domain.ErrVisitLimitExceeded)
	}

	slot, err := domain.NewVisitSlot(dto.Date, dto.Time, s.settings.VisitDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSchedule, err)
	}

	doctor, err := s.doctorRepo.GetByID(ctx, dto.DoctorID)
	if err != nil {
		return nil, err
	}

	patient, err := s.patientRepo.GetByID(ctx, dto.PatientID)
	if err != nil {
		return nil, err
	}

	participants := domain.Participants{PatientUserID: patient.UserID, DoctorUserID: doctor.UserID}
	if err := domain.Authorize(actor, domain.ActionBookVisit, participants); err != nil {
		return nil, err
	}

	visitType := strings.TrimSpace(dto.VisitType)
	if visitType == "" {
		visitType = s.settings.DefaultVisitType
	}

	result, err := s.repo.Create(ctx, domain.BookingRequest{
		DoctorID:        doctor.ID,
		PatientID:       patient.ID,
		Slot:            slot,
		VisitType:       visitType,
		MaxActiveVisits: s.settings.MaxActiveVisits,
		ConflictPolicy:  s.settings.ConflictPolicy,
		CreatedAt:       s.now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVisitLimitExceeded), errors.Is(err, domain.ErrSlotTaken):
			s.logger.Info("отказ в записи", zap.Int64("patientID", patient.ID), zap.Int64("doctorID", doctor.ID), zap.Error(err))
		default:
			s.logger.Error("ошибка создания визита", zap.Int64("patientID", patient.ID), zap.Int64("doctorID", doctor.ID), zap.Error(err))
		}
		return nil, err
	}

	if result.Overlapping > 0 {
		s.logger.Warn("визит пересекается с другими визитами врача",
			zap.Int64("visitID", result.Visit.ID),
			zap.Int64("doctorID", doctor.ID),
			zap.String("date", slot.Date),
			zap.String("time", slot.TimeStart),
			zap.Int("overlapping", result.Overlapping),
		)
	}

	s.logger.Info("визит создан",
		zap.Int64("visitID", result.Visit.ID),
		zap.Int64("patientID", patient.ID),
		zap.Int64("doctorID", doctor.ID),
		zap.Int64("bookedBy", actor.UserID),
	)

	s.notifier.Publish(domain.NewVisitEvent(domain.VisitEventCreated, result.Visit, s.now()))

	return result.Visit, nil
}

func (s *VisitServiceImpl) GetByID(ctx context.Context, actor domain.Actor, id int64) (*domain.Visit, error) {
	visit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(actor, domain.ActionViewVisit, visit.Participants()); err != nil {
		return nil, err
	}

	return visit, nil
}

// List narrows the filter to the actor's own visits unless the actor is staff.
func (s *VisitServiceImpl) List(ctx context.Context, actor domain.Actor, filter domain.VisitFilter) ([]domain.Visit, int, error) {
	switch actor.Role {
	case domain.UserRoleAdmin, domain.UserRoleReceptionist:
	case domain.UserRolePatient:
		patient, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return []domain.Visit{}, 0, nil
			}
			return nil, 0, err
		}
		filter.PatientID = &patient.ID
	case domain.UserRoleDoctor:
		doctor, err := s.doctorRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return []domain.Visit{}, 0, nil
			}
			return nil, 0, err
		}
		filter.DoctorID = &doctor.ID
	default:
		return nil, 0, domain.ErrForbidden
	}

	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, fmt.Errorf("%w: статус %q", domain.ErrMalformedInput, *filter.Status)
	}

	visits, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения списка визитов", zap.Error(err))
		return nil, 0, err
	}

	total, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка подсчета визитов", zap.Error(err))
		return nil, 0, err
	}

	return visits, total, nil
}

func (s *VisitServiceImpl) Cancel(ctx context.Context, actor domain.Actor, id int64) (*domain.Visit, error) {
	visit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(actor, domain.ActionCancelVisit, visit.Participants()); err != nil {
		return nil, err
	}

	now := s.now().In(s.settings.Location)
	if !visit.CanCancel(now, s.settings.Location) {
		return nil, fmt.Errorf("визит %d в статусе %s на %s %s: %w",
			id, visit.Status, visit.Schedule.Date, visit.Schedule.TimeStart, domain.ErrNotCancellable)
	}

	cancelled, err := s.repo.Cancel(ctx, id, now)
	if err != nil {
		s.logger.Error("ошибка отмены визита", zap.Int64("visitID", id), zap.Error(err))
		return nil, err
	}
	if !cancelled {
		// Another request changed the visit between the read and the update.
		return nil, fmt.Errorf("визит %d: %w", id, domain.ErrNotCancellable)
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("визит отменен", zap.Int64("visitID", id), zap.Int64("cancelledBy", actor.UserID))

	s.notifier.Publish(domain.NewVisitEvent(domain.VisitEventCancelled, updated, s.now()))

	return updated, nil
}

// HasReachedActiveVisitsLimit counts pending visits regardless of their date.
func (s *VisitServiceImpl) HasReachedActiveVisitsLimit(ctx context.Context, patientID int64) (bool, error) {
	if s.settings.MaxActiveVisits <= 0 {
		return false, nil
	}

	active, err := s.repo.CountActiveByPatient(ctx, patientID)
	if err != nil {
		s.logger.Error("ошибка подсчета активных визитов", zap.Int64("patientID", patientID), zap.Error(err))
		return false, err
	}

	return active >= s.settings.MaxActiveVisits, nil
}

func (s *VisitServiceImpl) HasUserReachedActiveVisitsLimit(ctx context.Context, userID int64) (bool, error) {
	patient, err := s.patientRepo.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}

	return s.HasReachedActiveVisitsLimit(ctx, patient.ID)
}
