package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medcenter/config"
	"medcenter/internal/domain"
	"medcenter/internal/repository"
	"medcenter/pkg/auth"
)

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID int64            `json:"user_id"`
	Role   domain.UserRole  `json:"role"`
	Kind   domain.TokenKind `json:"kind"`
}

type AuthServiceImpl struct {
	authRepo  repository.AuthRepository
	userRepo  repository.UserRepository
	jwtConfig config.JWTConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthService(authRepo repository.AuthRepository, userRepo repository.UserRepository, jwtConfig config.JWTConfig, logger *zap.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		authRepo:  authRepo,
		userRepo:  userRepo,
		jwtConfig: jwtConfig,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *AuthServiceImpl) Login(ctx context.Context, dto domain.LoginRequest, userAgent, ip string) (*domain.Tokens, error) {
	user, err := s.userRepo.GetByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("попытка входа с неизвестным email", zap.String("email", dto.Email))
			return nil, domain.ErrUnauthorized
		}
		s.logger.Error("ошибка получения пользователя", zap.Error(err))
		return nil, err
	}

	ok, err := auth.VerifyPassword(dto.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("ошибка проверки пароля", zap.Int64("userID", user.ID), zap.Error(err))
		return nil, domain.ErrUnauthorized
	}
	if !ok {
		s.logger.Info("неверный пароль", zap.Int64("userID", user.ID))
		return nil, domain.ErrUnauthorized
	}

	if !user.IsActive {
		return nil, fmt.Errorf("аккаунт деактивирован: %w", domain.ErrForbidden)
	}

	return s.startSession(ctx, user, userAgent, ip)
}

func (s *AuthServiceImpl) RefreshTokens(ctx context.Context, refreshToken, userAgent, ip string) (*domain.Tokens, error) {
	session, err := s.authRepo.GetSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("недействительный refresh token: %w", domain.ErrUnauthorized)
		}
		s.logger.Error("ошибка получения сессии", zap.Error(err))
		return nil, err
	}

	if session.Expired(s.now()) {
		if err := s.authRepo.DeleteSession(ctx, session.ID); err != nil {
			s.logger.Warn("ошибка удаления истекшей сессии", zap.String("sessionID", session.ID), zap.Error(err))
		}
		return nil, fmt.Errorf("refresh token истек: %w", domain.ErrUnauthorized)
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		s.logger.Error("пользователь сессии не найден", zap.Int64("userID", session.UserID), zap.Error(err))
		return nil, fmt.Errorf("пользователь не найден: %w", domain.ErrUnauthorized)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("аккаунт деактивирован: %w", domain.ErrForbidden)
	}

	if err := s.authRepo.DeleteSession(ctx, session.ID); err != nil {
		s.logger.Warn("ошибка удаления старой сессии", zap.Error(err))
	}

	return s.startSession(ctx, user, userAgent, ip)
}

func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.authRepo.GetSessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("сессия не найдена при выходе")
			return nil
		}
		s.logger.Error("ошибка получения сессии", zap.Error(err))
		return err
	}

	if err := s.authRepo.DeleteSession(ctx, session.ID); err != nil {
		s.logger.Error("ошибка удаления сессии", zap.Error(err))
		return err
	}

	return nil
}

func (s *AuthServiceImpl) ParseToken(ctx context.Context, tokenString string) (int64, domain.UserRole, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.SigningKey), nil
	})
	if err != nil {
		return 0, "", fmt.Errorf("ошибка парсинга токена: %v: %w", err, domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || !claims.Role.IsValid() || claims.Kind != domain.TokenKindAccess {
		return 0, "", fmt.Errorf("недействительный токен: %w", domain.ErrUnauthorized)
	}

	return claims.UserID, claims.Role, nil
}

func (s *AuthServiceImpl) startSession(ctx context.Context, user *domain.User, userAgent, ip string) (*domain.Tokens, error) {
	tokens, err := s.generateTokens(user.ID, user.Role)
	if err != nil {
		s.logger.Error("ошибка генерации токенов", zap.Error(err))
		return nil, err
	}

	now := s.now()
	session := domain.Session{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		RefreshToken: tokens.RefreshToken,
		UserAgent:    userAgent,
		IP:           ip,
		ExpiresAt:    now.Add(s.jwtConfig.RefreshTokenTTL),
		CreatedAt:    now,
	}

	if err := s.authRepo.CreateSession(ctx, session); err != nil {
		s.logger.Error("ошибка сохранения сессии", zap.Error(err))
		return nil, err
	}

	s.logger.Info("пользователь вошел в систему", zap.Int64("userID", user.ID), zap.String("role", string(user.Role)))

	return tokens, nil
}

func (s *AuthServiceImpl) generateTokens(userID int64, role domain.UserRole) (*domain.Tokens, error) {
	now := s.now()

	sign := func(kind domain.TokenKind, ttl time.Duration) (string, error) {
		claims := tokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.New().String(),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
				IssuedAt:  jwt.NewNumericDate(now),
			},
			UserID: userID,
			Role:   role,
			Kind:   kind,
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtConfig.SigningKey))
	}

	accessToken, err := sign(domain.TokenKindAccess, s.jwtConfig.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи access token: %w", err)
	}

	refreshToken, err := sign(domain.TokenKindRefresh, s.jwtConfig.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи refresh token: %w", err)
	}

	return &domain.Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtConfig.AccessTokenTTL / time.Second),
		Role:         role,
	}, nil
}
