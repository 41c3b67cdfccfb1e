package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/middleware"
	"github.com/saeed-rahimi/ss/utils"
)

// GetMyJobs handles GET /api/employers/my-jobs. Every status is listed
// unless ?status narrows it.
func GetMyJobs(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	page, err := jobService().ListByEmployer(c.Request.Context(), user.ID, jobFilterFromQuery(c, ""))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondList(c, page.Jobs, pageInfo(page.Pagination, page.Total))
}
