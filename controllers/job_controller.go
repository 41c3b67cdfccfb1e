package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/middleware"
	"github.com/saeed-rahimi/ss/models"
	"github.com/saeed-rahimi/ss/services"
	"github.com/saeed-rahimi/ss/utils"
)

// ApplyRequest is the optional body of POST /jobs/:id/apply
type ApplyRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// jobFilterFromQuery reads the listing filters shared by /jobs and /employers/my-jobs
func jobFilterFromQuery(c *gin.Context, defaultStatus string) services.JobFilter {
	return services.JobFilter{
		JobType:    c.Query("jobType"),
		City:       c.Query("city"),
		Status:     c.DefaultQuery("status", defaultStatus),
		Search:     c.Query("search"),
		Sort:       c.Query("sort"),
		Pagination: queryPagination(c),
	}
}

// ListJobs handles GET /api/jobs. Only OPEN jobs are listed unless ?status is given.
func ListJobs(c *gin.Context) {
	page, err := jobService().List(c.Request.Context(), jobFilterFromQuery(c, string(models.JobStatusOpen)))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondList(c, page.Jobs, pageInfo(page.Pagination, page.Total))
}

// GetJob handles GET /api/jobs/:id
func GetJob(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	job, err := jobService().Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, job)
}

// ListAvailableJobs handles GET /api/jobs/available/list (specialists only)
func ListAvailableJobs(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	jobs, err := jobService().ListAvailable(c.Request.Context(), user.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondList(c, jobs, nil)
}

// CreateJob handles POST /api/jobs (employers only)
func CreateJob(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var input services.JobInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	job, err := jobService().Create(c.Request.Context(), user, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, job)
}

// UpdateJob handles PATCH /api/jobs/:id
func UpdateJob(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input services.JobUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	job, err := jobService().Update(c.Request.Context(), user, id, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, job)
}

// DeleteJob handles DELETE /api/jobs/:id
func DeleteJob(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := jobService().Delete(c.Request.Context(), user, id); err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondMessage(c, http.StatusOK, "Job deleted", nil)
}

// ApplyForJob handles POST /api/jobs/:id/apply (specialists only)
func ApplyForJob(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.BindError(c, err)
		return
	}

	job, err := jobService().Apply(c.Request.Context(), user, id, req.Notes)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondMessage(c, http.StatusOK, "Application submitted", job)
}

// AcceptSpecialist handles POST /api/jobs/:id/accept-specialist/:specialistId
func AcceptSpecialist(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	specialistID, ok := pathID(c, "specialistId")
	if !ok {
		return
	}

	job, err := jobService().Accept(c.Request.Context(), user, id, specialistID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondMessage(c, http.StatusOK, "Specialist accepted", job)
}

// CompleteJob handles PATCH /api/jobs/:id/complete
func CompleteJob(c *gin.Context) {
	transitionJob(c, (*services.JobService).Complete, "Job completed")
}

// CancelJob handles PATCH /api/jobs/:id/cancel
func CancelJob(c *gin.Context) {
	transitionJob(c, (*services.JobService).Cancel, "Job cancelled")
}

type jobTransition func(*services.JobService, context.Context, *models.User, string) (*models.Job, error)

func transitionJob(c *gin.Context, transition jobTransition, message string) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	job, err := transition(jobService(), c.Request.Context(), user, id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondMessage(c, http.StatusOK, message, job)
}

// UploadJobImage handles POST /api/jobs/:id/image with a multipart "image" field
func UploadJobImage(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	// A missing file reaches the image service as nil and is reported there
	fileHeader, _ := c.FormFile(utils.ImageFormField)

	job, err := jobService().AttachImage(c.Request.Context(), user, id, fileHeader)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, job)
}

// ReviewJob handles POST /api/jobs/:id/review
func ReviewJob(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input services.ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	review, err := specialistService().AddReview(c.Request.Context(), user, id, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, review)
}
