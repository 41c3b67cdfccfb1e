package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/models"
)

// CustomClaims carries the non-registered claims of an access token.
type CustomClaims struct {
	Role models.Role `json:"role"`
	Name string      `json:"name"`
}

// Validate satisfies validator.CustomClaims.
func (c *CustomClaims) Validate(ctx context.Context) error {
	if !c.Role.Valid() {
		return errors.New("token carries an unknown role")
	}
	return nil
}

// Identity is who a validated token speaks for
type Identity struct {
	UserID string
	Role   models.Role
	Name   string
}

type issuedClaims struct {
	CustomClaims
	jwt.RegisteredClaims
}

// TokenService issues HS256 access tokens and validates them.
type TokenService struct {
	secret    []byte
	issuer    string
	audience  string
	ttl       time.Duration
	validator *validator.Validator
	now       func() time.Time
}

// NewTokenService builds a token service for one secret, issuer and audience.
func NewTokenService(secret, issuer, audience string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}

	s := &TokenService{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}

	keyFunc := func(ctx context.Context) (interface{}, error) {
		return s.secret, nil
	}

	v, err := validator.New(
		keyFunc,
		validator.HS256,
		issuer,
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}
	s.validator = v

	return s, nil
}

var tokenServiceInstance *TokenService

// GetTokenService returns the process-wide token service
func GetTokenService() *TokenService {
	return tokenServiceInstance
}

// SetTokenService installs the process-wide token service
func SetTokenService(s *TokenService) {
	tokenServiceInstance = s
}

// Issue signs an access token for user.
func (s *TokenService) Issue(user *models.User) (string, error) {
	now := s.now()
	claims := issuedClaims{
		CustomClaims: CustomClaims{Role: user.Role, Name: user.Name},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("sign token: %w", err))
	}
	return signed, nil
}

// ValidateToken has the signature go-jwt-middleware expects.
// It returns *validator.ValidatedClaims on success.
func (s *TokenService) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	return s.validator.ValidateToken(ctx, token)
}

// Authenticate validates token and extracts the identity it carries.
func (s *TokenService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid or expired token")
	}

	validated, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, apperrors.Unauthorized("Invalid or expired token")
	}
	return IdentityFromClaims(validated)
}

// IdentityFromClaims converts validated claims into an Identity.
func IdentityFromClaims(claims *validator.ValidatedClaims) (*Identity, error) {
	custom, ok := claims.CustomClaims.(*CustomClaims)
	if !ok || claims.RegisteredClaims.Subject == "" {
		return nil, apperrors.Unauthorized("Invalid or expired token")
	}
	return &Identity{
		UserID: claims.RegisteredClaims.Subject,
		Role:   custom.Role,
		Name:   custom.Name,
	}, nil
}
