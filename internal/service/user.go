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
	"medcenter/pkg/auth"
)

type UserServiceImpl struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserService(repo repository.UserRepository, logger *zap.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

func (s *UserServiceImpl) Create(ctx context.Context, dto domain.CreateUserDTO) (*domain.User, error) {
	if errs := dto.Validate(); errs.HasErrors() {
		return nil, domain.NewValidationError(errs)
	}

	return createAccount(ctx, s.repo, s.logger, dto.Email, dto.Password, dto.Role)
}

func (s *UserServiceImpl) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("ошибка получения пользователя по ID", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return user, nil
}

func (s *UserServiceImpl) List(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("ошибка получения списка пользователей", zap.Error(err))
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("ошибка подсчета пользователей", zap.Error(err))
		return nil, 0, err
	}

	return users, total, nil
}

func (s *UserServiceImpl) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, fmt.Errorf("email и пароль администратора обязательны: %w", domain.ErrMalformedInput)
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("администратор уже существует", zap.String("email", email))
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	if _, err := createAccount(ctx, s.repo, s.logger, email, password, domain.UserRoleAdmin); err != nil {
		return false, err
	}

	return true, nil
}

// createAccount hashes the password and stores an active user.
func createAccount(ctx context.Context, repo repository.UserRepository, logger *zap.Logger, email, password string, role domain.UserRole) (*domain.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		logger.Error("ошибка при хешировании пароля", zap.Error(err))
		return nil, err
	}

	now := time.Now()
	user := domain.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	user.ID, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("пользователь с email %s уже существует: %w", user.Email, domain.ErrConflict)
		}
		logger.Error("ошибка создания пользователя", zap.Error(err))
		return nil, err
	}

	logger.Info("создан пользователь", zap.Int64("userID", user.ID), zap.String("role", string(role)))

	return &user, nil
}
