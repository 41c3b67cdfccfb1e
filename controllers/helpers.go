package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/config"
	"github.com/saeed-rahimi/ss/services"
	"github.com/saeed-rahimi/ss/utils"
)

func authService() *services.AuthService {
	return services.NewAuthService(config.GetDB(), services.GetTokenService())
}

func jobService() *services.JobService {
	return services.NewJobService(config.GetDB(), services.GetNotifier(), services.GetImageService())
}

func messageService() *services.MessageService {
	return services.NewMessageService(config.GetDB())
}

func specialistService() *services.SpecialistService {
	return services.NewSpecialistService(config.GetDB(), jobService())
}

// pathID reads a UUID path parameter, answering 400 when it is malformed
func pathID(c *gin.Context, name string) (string, bool) {
	id, err := services.ParseID(name, c.Param(name))
	if err != nil {
		utils.RespondError(c, err)
		return "", false
	}
	return id, true
}

// queryPagination reads page and limit; garbage falls back to the defaults
func queryPagination(c *gin.Context) services.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return services.Pagination{Page: page, Limit: limit}.Normalize()
}

func queryInt(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.Cast(name, raw)
	}
	return &v, nil
}

func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.Cast(name, raw)
	}
	return &v, nil
}

func queryBool(c *gin.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.Cast(name, raw)
	}
	return &v, nil
}

func pageInfo(p services.Pagination, total int64) *utils.PageInfo {
	return &utils.PageInfo{Total: total, Pages: p.Pages(total), CurrentPage: p.Page}
}
