// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/internal/accounts"
	"github.com/shoplane/storefront-backend/internal/config"
	"github.com/shoplane/storefront-backend/internal/models"
	"github.com/shoplane/storefront-backend/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthService struct {
	db       *gorm.DB
	config   *config.Config
	provider *accounts.GoogleProvider
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func NewAuthService(db *gorm.DB, cfg *config.Config, provider *accounts.GoogleProvider) *AuthService {
	return &AuthService{db: db, config: cfg, provider: provider}
}

// LoginWithGoogle verifies a Google ID token, links or creates the matching
// user record and issues an application JWT. The provider identity is the
// source of truth for name and picture on every login.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*AuthResponse, error) {
	identity, err := s.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.establishSession(identity)
}

// CompleteGoogleCallback finishes the redirect flow: the authorization code
// is exchanged, the identity staged for the account switcher, and a session
// issued.
func (s *AuthService) CompleteGoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, ErrInvalidToken
	}
	s.provider.StageInteractive(*identity)
	return s.establishSession(identity)
}

// SessionForIdentity issues a session for an identity the account switcher
// has already verified through the provider.
func (s *AuthService) SessionForIdentity(identity *accounts.Identity) (*AuthResponse, error) {
	return s.establishSession(identity)
}

func (s *AuthService) establishSession(identity *accounts.Identity) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))

	var user models.User
	err := s.db.Where("LOWER(email) = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		now := time.Now()
		user = models.User{
			Email:           email,
			Name:            identity.Name,
			Picture:         identity.Picture,
			Role:            models.UserRoleUser,
			EmailVerifiedAt: &now,
		}
		if strings.EqualFold(email, s.config.Admin.Email) {
			user.Role = models.UserRoleAdmin
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		updates := map[string]interface{}{"last_login_at": time.Now()}
		if identity.Name != "" {
			updates["name"] = identity.Name
		}
		if identity.Picture != "" {
			updates["picture"] = identity.Picture
		}
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return s.issueToken(&user)
}

// LoginWithPassword is the fallback for the seeded admin account. Regular
// shoppers have no password and sign in through the provider.
func (s *AuthService) LoginWithPassword(email, password string) (*AuthResponse, error) {
	var user models.User
	err := s.db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if user.PasswordHash == "" || user.CheckPassword(password) != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.db.Model(&user).Update("last_login_at", time.Now()).Error; err != nil {
		return nil, err
	}
	return s.issueToken(&user)
}

func (s *AuthService) issueToken(user *models.User) (*AuthResponse, error) {
	role := string(user.Role)
	if strings.EqualFold(user.Email, s.config.Admin.Email) {
		role = string(models.UserRoleAdmin)
	}

	token, err := utils.GenerateJWT(user.ID, user.Email, user.Name, role, user.Picture, s.config.JWT.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: user}, nil
}
