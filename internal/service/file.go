package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"medcenter/internal/domain"
	"medcenter/internal/repository"
	"medcenter/internal/storage"
)

type FileServiceImpl struct {
	repo        repository.FileRepository
	fileStorage storage.FileStorage
	files       FileSettings
	logger      *zap.Logger
}

func NewFileService(repo repository.FileRepository, fileStorage storage.FileStorage, files FileSettings, logger *zap.Logger) *FileServiceImpl {
	return &FileServiceImpl{
		repo:        repo,
		fileStorage: fileStorage,
		files:       files,
		logger:      logger,
	}
}

// GetDownloadURL returns a short-lived link for a file owner or an admin.
func (s *FileServiceImpl) GetDownloadURL(ctx context.Context, actor domain.Actor, fileID int64) (string, error) {
	file, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		return "", err
	}

	if actor.Role != domain.UserRoleAdmin {
		owner, err := s.repo.IsOwner(ctx, fileID, actor.UserID)
		if err != nil {
			return "", err
		}
		if !owner {
			s.logger.Info("попытка скачать чужой файл", zap.Int64("fileID", fileID), zap.Int64("userID", actor.UserID))
			return "", fmt.Errorf("%w: файл %d", domain.ErrForbidden, fileID)
		}
	}

	if s.fileStorage == nil {
		return "", domain.ErrStorageUnavailable
	}

	url, err := s.fileStorage.PresignedURL(ctx, file.ObjectKey, s.files.PresignExpiry)
	if err != nil {
		s.logger.Error("ошибка генерации ссылки на файл", zap.Int64("fileID", fileID), zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	return url, nil
}
