package services

import (
	"context"
	"errors"
	"strings"

	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultHashCost is the bcrypt cost for stored passwords
const DefaultHashCost = 12

// RegisterInput is the body of POST /auth/register
type RegisterInput struct {
	Name         string          `json:"name" binding:"required,max=100"`
	Email        string          `json:"email" binding:"required,email"`
	Password     string          `json:"password" binding:"required,min=8"`
	Phone        string          `json:"phone" binding:"required,phone"`
	Role         models.Role     `json:"role" binding:"required,role"`
	Location     models.Location `json:"location"`
	Skills       []string        `json:"skills"`
	Experience   *int            `json:"experience" binding:"omitempty,gte=0"`
	Age          *int            `json:"age" binding:"omitempty,gte=18"`
	Education    string          `json:"education"`
	Availability *bool           `json:"availability"`
	CompanyName  string          `json:"companyName"`
}

// LoginInput is the body of POST /auth/login
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileInput holds the fields a user may change about themselves.
// Nil fields are left untouched.
type UpdateProfileInput struct {
	Name         *string          `json:"name" binding:"omitempty,min=1,max=100"`
	Email        *string          `json:"email" binding:"omitempty,email"`
	Phone        *string          `json:"phone" binding:"omitempty,phone"`
	CompanyName  *string          `json:"companyName"`
	Skills       *[]string        `json:"skills"`
	Experience   *int             `json:"experience" binding:"omitempty,gte=0"`
	Age          *int             `json:"age" binding:"omitempty,gte=18"`
	Education    *string          `json:"education"`
	Availability *bool            `json:"availability"`
	Location     *models.Location `json:"location"`
}

// UpdatePasswordInput is the body of PATCH /auth/updatePassword
type UpdatePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthResult is returned by every operation that hands out a token
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService manages accounts, passwords and profiles
type AuthService struct {
	db       *gorm.DB
	tokens   *TokenService
	hashCost int
}

var hashCostInstance = DefaultHashCost

// SetHashCost changes the bcrypt cost of auth services created afterwards.
// Tests lower it to bcrypt.MinCost.
func SetHashCost(cost int) {
	hashCostInstance = cost
}

// NewAuthService creates an auth service hashing with the configured cost
func NewAuthService(db *gorm.DB, tokens *TokenService) *AuthService {
	return &AuthService{db: db, tokens: tokens, hashCost: hashCostInstance}
}

// WithHashCost overrides the bcrypt cost, mainly to keep tests fast
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.hashCost = cost
	return s
}

// Register creates an account and returns a token for it
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user := models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Phone:        input.Phone,
		Role:         input.Role,
		Location:     input.Location,
		CompanyName:  input.CompanyName,
	}
	if input.Role == models.RoleSpecialist {
		user.Skills = input.Skills
		user.Experience = input.Experience
		user.Age = input.Age
		user.Education = input.Education
		user.Availability = input.Availability
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, apperrors.DuplicateKey("email", input.Email)
		}
		return nil, apperrors.Internal(err)
	}

	return s.issue(&user)
}

// Login verifies credentials and returns a fresh token
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperrors.Validation("Please provide email and password")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal(err)
	}
	if err != nil || !checkPassword(user.PasswordHash, input.Password) {
		return nil, apperrors.Unauthorized("Incorrect email or password")
	}

	return s.issue(&user)
}

// Me loads a user with the reviews they received, newest first
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Reviews.Reviewer", publicProfile(employerColumns)).
		First(&user, "id = ?", userID).Error
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &user, nil
}

// UpdateProfile applies the non-nil fields of input to the user
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		input.Email = &email
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	columns := applyProfile(&user, input)
	if len(columns) > 0 {
		err := s.db.WithContext(ctx).Model(&user).Select(columns).Updates(&user).Error
		if err != nil {
			if isDuplicateKeyError(err) {
				return nil, apperrors.DuplicateKey("email", user.Email)
			}
			return nil, apperrors.Internal(err)
		}
	}

	return s.Me(ctx, userID)
}

// UpdatePassword re-hashes the password after checking the current one
func (s *AuthService) UpdatePassword(ctx context.Context, userID string, input UpdatePasswordInput) (*AuthResult, error) {
	if input.CurrentPassword == "" || input.NewPassword == "" {
		return nil, apperrors.Validation("Please provide your current and new password")
	}
	if len(input.NewPassword) < 8 {
		return nil, apperrors.Validation("newPassword must be at least 8 characters")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	if !checkPassword(user.PasswordHash, input.CurrentPassword) {
		return nil, apperrors.Unauthorized("Your current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), s.hashCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	user.PasswordHash = string(hash)
	if err := s.db.WithContext(ctx).Model(&user).Update("password_hash", user.PasswordHash).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	return s.issue(&user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// applyProfile copies the set fields into user and returns their column names
func applyProfile(user *models.User, input UpdateProfileInput) []string {
	var columns []string
	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
		columns = append(columns, "name")
	}
	if input.Email != nil {
		user.Email = *input.Email
		columns = append(columns, "email")
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
		columns = append(columns, "phone")
	}
	if input.CompanyName != nil {
		user.CompanyName = *input.CompanyName
		columns = append(columns, "company_name")
	}
	if input.Skills != nil {
		user.Skills = *input.Skills
		columns = append(columns, "skills")
	}
	if input.Experience != nil {
		user.Experience = input.Experience
		columns = append(columns, "experience")
	}
	if input.Age != nil {
		user.Age = input.Age
		columns = append(columns, "age")
	}
	if input.Education != nil {
		user.Education = *input.Education
		columns = append(columns, "education")
	}
	if input.Availability != nil {
		user.Availability = input.Availability
		columns = append(columns, "availability")
	}
	if input.Location != nil {
		user.Location = *input.Location
		columns = append(columns, "location_city", "location_province", "location_latitude", "location_longitude")
	}
	return columns
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
