package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/config"
	"github.com/saeed-rahimi/ss/utils"
)

// DatabaseStatusResponse is the data of GET /api/database/status
type DatabaseStatusResponse struct {
	Dialect string   `json:"dialect"`
	Tables  []string `json:"tables"`
}

// HealthCheck handles the health check endpoint
func HealthCheck(c *gin.Context) {
	utils.RespondMessage(c, http.StatusOK, "Construction jobs API is running", nil)
}

// DatabaseStatus checks database connectivity and returns table information
func DatabaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		utils.RespondError(c, apperrors.Unavailable("Database is not connected"))
		return
	}

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		utils.RespondError(c, apperrors.Unavailable("Database is not connected"))
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		utils.RespondError(c, apperrors.Unavailable("Database connection failed"))
		return
	}

	var query string
	switch dialect := db.Dialector.Name(); dialect {
	case "postgres":
		query = "SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename"
	case "sqlite":
		query = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	default:
		utils.RespondError(c, apperrors.Internal(fmt.Errorf("unsupported dialect %q", dialect)))
		return
	}

	tables := []string{}
	if err := db.WithContext(c.Request.Context()).Raw(query).Scan(&tables).Error; err != nil {
		utils.RespondError(c, apperrors.Internal(err))
		return
	}

	utils.RespondMessage(c, http.StatusOK, "Database connected", DatabaseStatusResponse{
		Dialect: db.Dialector.Name(),
		Tables:  tables,
	})
}
