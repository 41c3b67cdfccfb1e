package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/config"
	"github.com/saeed-rahimi/ss/models"
	"github.com/saeed-rahimi/ss/services"
	"github.com/saeed-rahimi/ss/utils"
)

// Gin context keys set by EnsureValidToken
const (
	UserIDKey      = "user_id"
	ClaimsKey      = "validated_claims"
	CurrentUserKey = "current_user"
)

const (
	MsgNotLoggedIn  = "You are not logged in. Please log in to get access."
	MsgInvalidToken = "Invalid or expired token"
	MsgUserGone     = "The user belonging to this token no longer exists."
)

type ginContextKey struct{}

// EnsureValidToken is a middleware that will check the validity of our JWT
// and load the user it belongs to.
func EnsureValidToken(tokens *services.TokenService) gin.HandlerFunc {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		c, ok := r.Context().Value(ginContextKey{}).(*gin.Context)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		message := MsgInvalidToken
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			message = MsgNotLoggedIn
		} else {
			slog.DebugContext(r.Context(), "rejected token", slog.Any("error", err))
		}
		utils.RespondError(c, apperrors.Unauthorized(message))
	}

	middleware := jwtmiddleware.New(
		tokens.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		reached := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			reached = true
			claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok {
				utils.RespondError(c, apperrors.Unauthorized(MsgInvalidToken))
				return
			}

			identity, err := services.IdentityFromClaims(claims)
			if err != nil {
				utils.RespondError(c, err)
				return
			}

			var user models.User
			if err := config.GetDB().WithContext(r.Context()).First(&user, "id = ?", identity.UserID).Error; err != nil {
				utils.RespondError(c, apperrors.Unauthorized(MsgUserGone))
				return
			}

			c.Request = r
			c.Set(UserIDKey, user.ID)
			c.Set(ClaimsKey, claims)
			c.Set(CurrentUserKey, &user)

			c.Next()
		}

		req := c.Request.WithContext(context.WithValue(c.Request.Context(), ginContextKey{}, c))
		middleware.CheckJWT(handler).ServeHTTP(c.Writer, req)

		if !reached {
			c.Abort()
		}
	}
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", apperrors.Unauthorized(MsgNotLoggedIn)
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", apperrors.Unauthorized(MsgInvalidToken)
	}

	return userIDStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, apperrors.Unauthorized(MsgNotLoggedIn)
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, apperrors.Unauthorized(MsgInvalidToken)
	}

	return validatedClaims, nil
}

// GetCurrentUser returns the user loaded by EnsureValidToken
func GetCurrentUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(CurrentUserKey)
	if !exists {
		return nil, apperrors.Unauthorized(MsgNotLoggedIn)
	}

	user, ok := value.(*models.User)
	if !ok || user == nil {
		return nil, apperrors.Unauthorized(MsgNotLoggedIn)
	}

	return user, nil
}

// RequireRole is a middleware that lets only the given roles through
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetCurrentUser(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		utils.RespondError(c, apperrors.Forbidden("You do not have permission to perform this action"))
	}
}
