package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/middleware"
	"github.com/saeed-rahimi/ss/services"
	"github.com/saeed-rahimi/ss/utils"
)

// Register handles POST /api/auth/register
func Register(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	result, err := authService().Register(c.Request.Context(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, result)
}

// Login handles POST /api/auth/login
func Login(c *gin.Context) {
	var input services.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	result, err := authService().Login(c.Request.Context(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, result)
}

// GetMe handles GET /api/auth/me
func GetMe(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	user, err := authService().Me(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, user)
}

// UpdateMe handles PATCH /api/auth/updateMe. Fields outside
// UpdateProfileInput are ignored, except password which is refused.
func UpdateMe(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var fields map[string]any
	if err := c.ShouldBindBodyWith(&fields, binding.JSON); err != nil {
		utils.BindError(c, err)
		return
	}
	if _, ok := fields["password"]; ok {
		utils.RespondError(c, apperrors.Validation("This route is not for password updates. Please use /updatePassword"))
		return
	}

	var input services.UpdateProfileInput
	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		utils.BindError(c, err)
		return
	}

	user, err := authService().UpdateProfile(c.Request.Context(), userID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, user)
}

// UpdatePassword handles PATCH /api/auth/updatePassword
func UpdatePassword(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var input services.UpdatePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	result, err := authService().UpdatePassword(c.Request.Context(), userID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, result)
}
