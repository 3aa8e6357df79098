package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/shiptrack/tracking-system/internal/core/domain"
	"github.com/shiptrack/tracking-system/internal/core/ports"
)

// AuthService implements registration and login for dashboard users and
// drivers. The realtime engine never talks to it directly; it only trusts the
// claims the middleware extracts from the issued tokens.
type AuthService struct {
	repo      ports.AuthRepository
	drivers   ports.DriverRepository
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAuthService builds the auth use cases. drivers may be nil; when present,
// registering a driver account also creates its courier directory record.
func NewAuthService(repo ports.AuthRepository, drivers ports.DriverRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{repo: repo, drivers: drivers, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

func (s *AuthService) Register(ctx context.Context, username, password, email, role string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if role != domain.RoleAdmin && role != domain.RoleDriver && role != domain.RoleUser {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	if role == domain.RoleDriver && s.drivers != nil {
		driver := &domain.Driver{
			ID:        username,
			Username:  username,
			Email:     email,
			CreatedAt: created.CreatedAt,
		}
		// Directory record is best-effort; the account stays usable
		// without it.
		_ = s.drivers.Create(ctx, driver)
	}

	return created, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
