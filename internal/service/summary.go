package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"medcenter/internal/domain"
	"medcenter/internal/repository"
	"medcenter/internal/storage"
	"medcenter/pkg/validator"
)

type SummaryServiceImpl struct {
	repo        repository.SummaryRepository
	visitRepo   repository.VisitRepository
	fileStorage storage.FileStorage
	notifier    Notifier
	files       FileSettings
	logger      *zap.Logger
	now         func() time.Time
}

func NewSummaryService(repo repository.SummaryRepository, visitRepo repository.VisitRepository, fileStorage storage.FileStorage, notifier Notifier, files FileSettings, logger *zap.Logger) *SummaryServiceImpl {
	if notifier == nil {
		notifier = noopNotifier{}
	}

	return &SummaryServiceImpl{
		repo:        repo,
		visitRepo:   visitRepo,
		fileStorage: fileStorage,
		notifier:    notifier,
		files:       files,
		logger:      logger,
		now:         time.Now,
	}
}

// Attach records the summary of a pending visit and finishes it. Files are
// uploaded first and removed again if the database transaction fails.
func (s *SummaryServiceImpl) Attach(ctx context.Context, actor domain.Actor, visitID int64, dto domain.SummaryDTO, files []domain.UploadedFile) (*domain.VisitSummary, error) {
	visit, err := s.visitRepo.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(actor, domain.ActionWriteSummary, visit.Participants()); err != nil {
		return nil, err
	}

	if !visit.CanAttachSummary() {
		return nil, fmt.Errorf("визит %d в статусе %s: %w", visitID, visit.Status, domain.ErrAlreadyFinished)
	}

	dto.Description = validator.SanitizeString(dto.Description)
	if err := s.validate(dto, files, len(files)); err != nil {
		return nil, err
	}

	stored, err := s.upload(ctx, visitID, files)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.Create(ctx, visitID, dto.Description, stored, s.owners(visit))
	if err != nil {
		s.logger.Error("ошибка сохранения заключения", zap.Int64("visitID", visitID), zap.Error(err))
		s.cleanup(ctx, stored)
		return nil, err
	}

	s.logger.Info("визит завершен",
		zap.Int64("visitID", visitID),
		zap.Int64("summaryID", summary.ID),
		zap.Int("files", len(stored)),
	)

	visit.Status = domain.VisitStatusFinished
	visit.HasSummary = true
	s.notifier.Publish(domain.NewVisitEvent(domain.VisitEventFinished, visit, s.now()))

	return summary, nil
}

// Update replaces the description and appends new files.
func (s *SummaryServiceImpl) Update(ctx context.Context, actor domain.Actor, visitID int64, dto domain.SummaryDTO, files []domain.UploadedFile) (*domain.VisitSummary, error) {
	visit, err := s.visitRepo.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(actor, domain.ActionWriteSummary, visit.Participants()); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByVisitID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	dto.Description = validator.SanitizeString(dto.Description)
	if err := s.validate(dto, files, len(current.Files)+len(files)); err != nil {
		return nil, err
	}

	stored, err := s.upload(ctx, visitID, files)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.Update(ctx, visitID, dto.Description, stored, s.owners(visit))
	if err != nil {
		s.logger.Error("ошибка обновления заключения", zap.Int64("visitID", visitID), zap.Error(err))
		s.cleanup(ctx, stored)
		return nil, err
	}

	s.logger.Info("заключение обновлено", zap.Int64("visitID", visitID), zap.Int("newFiles", len(stored)))

	return summary, nil
}

func (s *SummaryServiceImpl) Get(ctx context.Context, actor domain.Actor, visitID int64) (*domain.VisitSummary, error) {
	visit, err := s.visitRepo.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(actor, domain.ActionViewSummary, visit.Participants()); err != nil {
		return nil, err
	}

	return s.repo.GetByVisitID(ctx, visitID)
}

func (s *SummaryServiceImpl) validate(dto domain.SummaryDTO, files []domain.UploadedFile, total int) error {
	errs := dto.Validate(total, s.files.MaxFiles)

	for _, f := range files {
		if len(f.Data) == 0 {
			errs.Add("files", fmt.Sprintf("файл %s пустой", f.FileName))
		} else if s.files.MaxFileSize > 0 && int64(len(f.Data)) > s.files.MaxFileSize {
			errs.Add("files", fmt.Sprintf("файл %s слишком большой", f.FileName))
		}
	}

	if errs.HasErrors() {
		return domain.NewValidationError(errs)
	}

	if len(files) > 0 && s.fileStorage == nil {
		return domain.ErrStorageUnavailable
	}

	return nil
}

func (s *SummaryServiceImpl) upload(ctx context.Context, visitID int64, files []domain.UploadedFile) ([]domain.UserFile, error) {
	prefix := fmt.Sprintf("summaries/%d", visitID)
	stored := make([]domain.UserFile, 0, len(files))

	for _, f := range files {
		key, err := s.fileStorage.Upload(ctx, prefix, f.Data, f.FileName)
		if err != nil {
			s.logger.Error("ошибка загрузки файла заключения",
				zap.Int64("visitID", visitID),
				zap.String("file", f.FileName),
				zap.Error(err),
			)
			s.cleanup(ctx, stored)
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}

		stored = append(stored, domain.UserFile{
			FileName:    f.FileName,
			ObjectKey:   key,
			ContentType: http.DetectContentType(f.Data),
			Size:        int64(len(f.Data)),
		})
	}

	return stored, nil
}

// owners are the users allowed to download the summary files.
func (s *SummaryServiceImpl) owners(visit *domain.Visit) []int64 {
	var owners []int64
	for _, id := range []int64{visit.DoctorUserID, visit.PatientUserID} {
		if id != 0 {
			owners = append(owners, id)
		}
	}
	return owners
}

func (s *SummaryServiceImpl) cleanup(ctx context.Context, files []domain.UserFile) {
	for _, f := range files {
		if err := s.fileStorage.Delete(ctx, f.ObjectKey); err != nil {
			s.logger.Warn("ошибка удаления загруженного файла", zap.String("key", f.ObjectKey), zap.Error(err))
		}
	}
}
