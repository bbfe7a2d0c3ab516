// internal/services/user_service.go
package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplane/storefront-backend/internal/config"
	"github.com/shoplane/storefront-backend/internal/models"
	"github.com/shoplane/storefront-backend/internal/utils"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("user already exists")
	ErrUserHasOrders  = errors.New("user has existing orders")
	ErrProtectedAdmin = errors.New("the configured admin account cannot be modified")
)

type UserService struct {
	db     *gorm.DB
	config *config.Config
}

type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
}

type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,order_email"`
	Name     string          `json:"name" validate:"required,min=2,max=100"`
	Role     models.UserRole `json:"role,omitempty"`
	Phone    string          `json:"phone,omitempty"`
	Password string          `json:"password,omitempty" validate:"omitempty,min=8"`
}

type AdminUpdateUserRequest struct {
	Name  *string          `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone *string          `json:"phone,omitempty"`
	Role  *models.UserRole `json:"role,omitempty"`
}

func NewUserService(db *gorm.DB, cfg *config.Config) *UserService {
	return &UserService{db: db, config: cfg}
}

// GetProfile returns the signed-in user's record.
func (s *UserService) GetProfile(userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies the editable profile fields.
func (s *UserService) UpdateProfile(userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return user, nil
}

// ListUsers is the admin directory with optional search.
func (s *UserService) ListUsers(search string, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.User{})

	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var users []models.User
	sorted := utils.ApplySort(query, params, []string{"created_at", "email", "name"})
	err := utils.ApplyPagination(sorted, params).Find(&users).Error
	if err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(users, total, params)
	return &result, nil
}

// CreateUser is the admin-side account insert. Most shoppers arrive via
// OAuth; this covers staff accounts and support cases.
func (s *UserService) CreateUser(req *CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.User
	if err := s.db.Where("LOWER(email) = ?", email).First(&existing).Error; err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = models.UserRoleUser
	}
	if role != models.UserRoleAdmin && role != models.UserRoleUser {
		return nil, errors.New("unknown role")
	}

	user := &models.User{
		Email: email,
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
		Role:  role,
	}
	if req.Password != "" {
		if err := user.SetPassword(req.Password); err != nil {
			return nil, err
		}
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// AdminUpdateUser applies an admin edit to any account except the
// configured admin's role.
func (s *UserService) AdminUpdateUser(userID uuid.UUID, req *AdminUpdateUserRequest) (*models.User, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Role != nil {
		if *req.Role != models.UserRoleAdmin && *req.Role != models.UserRoleUser {
			return nil, errors.New("unknown role")
		}
		if strings.EqualFold(user.Email, s.config.Admin.Email) {
			return nil, ErrProtectedAdmin
		}
		updates["role"] = *req.Role
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return user, nil
}

// SetRole promotes or demotes a user. The configured admin account keeps
// its role no matter what.
func (s *UserService) SetRole(userID uuid.UUID, role models.UserRole) (*models.User, error) {
	if role != models.UserRoleAdmin && role != models.UserRoleUser {
		return nil, errors.New("unknown role")
	}

	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(user.Email, s.config.Admin.Email) {
		return nil, ErrProtectedAdmin
	}

	if err := s.db.Model(user).Update("role", role).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account. Users with order history are refused so
// the ledger keeps its owner references.
func (s *UserService) DeleteUser(userID uuid.UUID) error {
	user, err := s.GetProfile(userID)
	if err != nil {
		return err
	}
	if strings.EqualFold(user.Email, s.config.Admin.Email) {
		return ErrProtectedAdmin
	}

	var orderCount int64
	if err := s.db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&orderCount).Error; err != nil {
		return err
	}
	if orderCount > 0 {
		return ErrUserHasOrders
	}

	return s.db.Delete(user).Error
}
