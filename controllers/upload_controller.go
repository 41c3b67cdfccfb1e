package controllers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/utils"
)

// GetUploadedImage handles GET /api/uploads/:filename - serves job images
// stored on local disk
func GetUploadedImage(c *gin.Context) {
	filename := c.Param("filename")

	if filename == "" {
		utils.RespondError(c, apperrors.Validation("Filename is required"))
		return
	}

	// Security: Prevent directory traversal attacks
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		utils.RespondError(c, apperrors.Validation("Invalid filename"))
		return
	}

	contentType, ok := utils.ContentTypeFor(filename)
	if !ok {
		utils.RespondError(c, apperrors.Validation("Only .png, .jpg and .jpeg files are served"))
		return
	}

	filePath := filepath.Join(utils.UploadDir, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		utils.RespondError(c, apperrors.NotFound("Image not found"))
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=86400") // Cache for 24 hours
	c.File(filePath)
}
