package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/khata-app/khata-backend/internal/auth"
	"github.com/khata-app/khata-backend/internal/models"
	repo "github.com/khata-app/khata-backend/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type UserService struct {
	r  repo.Users
	tm *auth.TokenManager
}

func NewUserService(r repo.Users, tm *auth.TokenManager) *UserService {
	return &UserService{r: r, tm: tm}
}

func (s *UserService) Register(ctx context.Context, username, email, password string) (models.User, error) {
	u := models.User{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Role:     "user",
	}
	if err := u.Validate(); err != nil {
		return models.User{}, err
	}
	if len(password) < 8 {
		return models.User{}, errors.New("password too short")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	return s.r.Create(ctx, u.Username, u.Email, hash, u.Role)
}

func (s *UserService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.r.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	access, refresh, exp, err := s.tm.GeneratePair(u.ID, u.Role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (s *UserService) Refresh(refreshToken string) (TokenPair, error) {
	claims, isRefresh, err := s.tm.ParseAny(refreshToken)
	if err != nil || !isRefresh {
		return TokenPair{}, errors.New("invalid refresh token")
	}
	access, refresh, exp, err := s.tm.GeneratePair(claims.UserID, claims.Role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}
