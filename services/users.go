package services

import (
	"context"
	"errors"
	"strings"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6"`
	Role     models.UserRole `json:"role"`
	Phone    string          `json:"phone" validate:"omitempty,max=20"`
}

// Register creates an account. The role defaults to customer.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = models.RoleCustomer
	}
	if err := models.Validate(in); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("invalid role %q: must be customer, restaurant-owner, delivery-partner or admin", in.Role)
	}

	var existing int64
	if err := s.db(ctx).Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, apperr.Conflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Phone:        in.Phone,
	}
	if err := s.db(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the credentials. Unknown email and wrong password are indistinguishable.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	return &user, nil
}

func (s *Service) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db(ctx).First(&user, userID).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &user, nil
}

type ProfileUpdate struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone *string `json:"phone" validate:"omitempty,max=20"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*models.User, error) {
	if err := models.Validate(in); err != nil {
		return nil, err
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if err := s.db(ctx).Model(user).Select("name", "phone").Updates(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

type PasswordChange struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

func (s *Service) ChangePassword(ctx context.Context, userID uint, in PasswordChange) error {
	if err := models.Validate(in); err != nil {
		return err
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)) != nil {
		return apperr.Unauthorized("current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db(ctx).Model(user).Update("password_hash", string(hash)).Error
}

type UserFilter struct {
	PageQuery
	Role string `form:"role"`
}

func (s *Service) ListUsers(ctx context.Context, f UserFilter) (*Page[models.User], error) {
	q := s.db(ctx).Model(&models.User{}).Order("created_at desc")
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	return paginate[models.User](q, f.PageQuery)
}
