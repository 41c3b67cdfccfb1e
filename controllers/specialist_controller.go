package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/middleware"
	"github.com/saeed-rahimi/ss/services"
	"github.com/saeed-rahimi/ss/utils"
)

// GetMyApplications handles GET /api/specialists/my-applications
func GetMyApplications(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	jobs, err := specialistService().MyApplications(c.Request.Context(), user)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondList(c, jobs, nil)
}

// GetAssignedJobs handles GET /api/specialists/my-jobs
func GetAssignedJobs(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	jobs, err := specialistService().MyJobs(c.Request.Context(), user)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondList(c, jobs, nil)
}

// SearchSpecialists handles GET /api/specialists/search
func SearchSpecialists(c *gin.Context) {
	minExperience, err := queryInt(c, "minExperience")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	minRating, err := queryFloat(c, "minRating")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	available, err := queryBool(c, "available")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	page, err := specialistService().Search(c.Request.Context(), services.SpecialistFilter{
		Skill:         c.Query("skill"),
		City:          c.Query("city"),
		Province:      c.Query("province"),
		MinExperience: minExperience,
		MinRating:     minRating,
		Available:     available,
		Sort:          c.Query("sort"),
		Pagination:    queryPagination(c),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondList(c, page.Specialists, pageInfo(page.Pagination, page.Total))
}
