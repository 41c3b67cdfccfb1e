package services

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/models"
	"github.com/saeed-rahimi/ss/utils"
	"gorm.io/gorm"
)

const (
	msgJobNotFound       = "Job not found"
	msgJobNotOpen        = "This job is no longer open"
	msgOnlyOpenEditable  = "Only open jobs can be edited"
	msgOnlyOpenDeletable = "Only open jobs can be deleted"
	msgNotJobOwner       = "You are not allowed to modify this job"
)

var jobSortColumns = map[string]string{
	"createdAt": "created_at",
	"budget":    "budget",
	"title":     "title",
	"startDate": "start_date",
	"endDate":   "end_date",
	"status":    "status",
}

// JobInput is the body of POST /jobs
type JobInput struct {
	Title       string          `json:"title" binding:"required,max=200"`
	Description string          `json:"description" binding:"required"`
	JobType     models.JobType  `json:"jobType" binding:"required,jobtype"`
	Budget      float64         `json:"budget" binding:"required,gt=0"`
	Location    models.Location `json:"location"`
}

// JobUpdateInput is the body of PATCH /jobs/{id}; nil fields are left untouched
type JobUpdateInput struct {
	Title       *string          `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description" binding:"omitempty,min=1"`
	JobType     *models.JobType  `json:"jobType" binding:"omitempty,jobtype"`
	Budget      *float64         `json:"budget" binding:"omitempty,gt=0"`
	Location    *models.Location `json:"location"`
}

// JobFilter narrows a job listing. An empty Status matches every status.
type JobFilter struct {
	JobType    string
	City       string
	Status     string
	Search     string
	Sort       string
	EmployerID string
	Pagination Pagination
}

// JobPage is one page of a job listing
type JobPage struct {
	Jobs       []models.Job
	Total      int64
	Pagination Pagination
}

// JobService enforces the job lifecycle and who may drive it.
// Every transition is a conditional update keyed on the current status, so
// a concurrent transition makes the loser fail with InvalidState.
type JobService struct {
	db       *gorm.DB
	notifier Notifier
	images   ImageService
	now      func() time.Time
}

// NewJobService creates a job service. notifier and images may be nil.
func NewJobService(db *gorm.DB, notifier Notifier, images ImageService) *JobService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &JobService{db: db, notifier: notifier, images: images, now: time.Now}
}

// Create posts a new OPEN job owned by the calling employer
func (s *JobService) Create(ctx context.Context, caller *models.User, input JobInput) (*models.Job, error) {
	if !caller.IsEmployer() {
		return nil, apperrors.Forbidden("Only employers can post jobs")
	}
	input.Title = strings.TrimSpace(input.Title)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	job := models.Job{
		Title:       input.Title,
		Description: input.Description,
		JobType:     input.JobType,
		Budget:      input.Budget,
		Location:    input.Location,
		EmployerID:  caller.ID,
		Status:      models.JobStatusOpen,
	}
	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	s.notifier.Broadcast(EventNewJobPosted, JobPostedEvent{
		JobID:        job.ID,
		Title:        job.Title,
		JobType:      string(job.JobType),
		Budget:       job.Budget,
		City:         job.Location.City,
		Province:     job.Location.Province,
		EmployerID:   caller.ID,
		EmployerName: caller.Name,
		CreatedAt:    job.CreatedAt,
	})

	return s.Get(ctx, job.ID)
}

// Get loads a job with its employer, specialist and applicants
func (s *JobService) Get(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := s.db.WithContext(ctx).
		Preload("Employer", publicProfile(employerColumns)).
		Preload("Specialist", publicProfile(specialistColumns)).
		Preload("Applicants", func(db *gorm.DB) *gorm.DB {
			return db.Order("applied_at ASC")
		}).
		Preload("Applicants.Specialist", publicProfile(specialistColumns)).
		First(&job, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, msgJobNotFound)
	}
	s.resolveImage(ctx, &job)
	return &job, nil
}

// Update merges attributes into an OPEN job. Status never changes here.
func (s *JobService) Update(ctx context.Context, caller *models.User, id string, input JobUpdateInput) (*models.Job, error) {
	job, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusOpen {
		return nil, apperrors.InvalidState(msgOnlyOpenEditable)
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.JobType != nil {
		updates["job_type"] = *input.JobType
	}
	if input.Budget != nil {
		updates["budget"] = *input.Budget
	}
	if input.Location != nil {
		updates["location_city"] = input.Location.City
		updates["location_province"] = input.Location.Province
		updates["location_latitude"] = input.Location.Latitude
		updates["location_longitude"] = input.Location.Longitude
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&models.Job{}).
			Where("id = ? AND status = ?", id, models.JobStatusOpen).
			Updates(updates)
		if result.Error != nil {
			return nil, apperrors.Internal(result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, apperrors.InvalidState(msgOnlyOpenEditable)
		}
	}

	return s.Get(ctx, id)
}

// Delete removes an OPEN job and its applications
func (s *JobService) Delete(ctx context.Context, caller *models.User, id string) error {
	job, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return err
	}
	if job.Status != models.JobStatusOpen {
		return apperrors.InvalidState(msgOnlyOpenDeletable)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND status = ?", id, models.JobStatusOpen).Delete(&models.Job{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.InvalidState(msgOnlyOpenDeletable)
		}
		return tx.Where("job_id = ?", id).Delete(&models.Applicant{}).Error
	})
	if err != nil {
		return wrapTxError(err)
	}

	if job.ImageKey != nil {
		s.deleteImage(ctx, *job.ImageKey)
	}
	return nil
}

// Apply records the calling specialist's application to an OPEN job
func (s *JobService) Apply(ctx context.Context, caller *models.User, id, notes string) (*models.Job, error) {
	if !caller.IsSpecialist() {
		return nil, apperrors.Forbidden("Only specialists can apply for jobs")
	}

	var job models.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, msgJobNotFound)
	}
	if job.Status != models.JobStatusOpen {
		return nil, apperrors.InvalidState(msgJobNotOpen)
	}

	var existing int64
	err := s.db.WithContext(ctx).Model(&models.Applicant{}).
		Where("job_id = ? AND specialist_id = ?", id, caller.ID).
		Count(&existing).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if existing > 0 {
		return nil, apperrors.AlreadyApplied("You have already applied for this job")
	}

	applicant := models.Applicant{
		JobID:        id,
		SpecialistID: caller.ID,
		Notes:        strings.TrimSpace(notes),
		AppliedAt:    s.now(),
		Status:       models.ApplicantPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Touching the row re-checks OPEN and serializes with a concurrent accept
		result := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", id, models.JobStatusOpen).
			Update("updated_at", s.now())
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.InvalidState(msgJobNotOpen)
		}
		if err := tx.Create(&applicant).Error; err != nil {
			if isDuplicateKeyError(err) {
				return apperrors.AlreadyApplied("You have already applied for this job")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err)
	}

	s.notifier.EmitToUser(job.EmployerID, EventNewJobApplication, JobApplicationEvent{
		JobID:          job.ID,
		JobTitle:       job.Title,
		EmployerID:     job.EmployerID,
		SpecialistID:   caller.ID,
		SpecialistName: caller.Name,
		Notes:          applicant.Notes,
		AppliedAt:      applicant.AppliedAt,
	})

	return s.Get(ctx, id)
}

// Accept assigns one applicant to an OPEN job and moves it to IN_PROGRESS.
// Other applicants keep their PENDING status.
func (s *JobService) Accept(ctx context.Context, caller *models.User, id, specialistID string) (*models.Job, error) {
	job, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !job.Status.CanTransitionTo(models.JobStatusInProgress) {
		return nil, apperrors.InvalidState(msgJobNotOpen)
	}

	if err := s.db.WithContext(ctx).Where("job_id = ?", id).Find(&job.Applicants).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	applicant := job.FindApplicant(specialistID)
	if applicant == nil {
		return nil, apperrors.NotFound("This specialist has not applied for the job")
	}

	startDate := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", id, models.JobStatusOpen).
			Updates(map[string]interface{}{
				"status":        models.JobStatusInProgress,
				"specialist_id": specialistID,
				"start_date":    startDate,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.InvalidState(msgJobNotOpen)
		}

		return tx.Model(&models.Applicant{}).
			Where("id = ?", applicant.ID).
			Update("status", models.ApplicantAccepted).Error
	})
	if err != nil {
		return nil, wrapTxError(err)
	}

	s.notifier.EmitToUser(specialistID, EventJobApplicationAccepted, ApplicationAcceptedEvent{
		JobID:        job.ID,
		JobTitle:     job.Title,
		EmployerID:   caller.ID,
		EmployerName: caller.Name,
		SpecialistID: specialistID,
		StartDate:    startDate,
	})

	return s.Get(ctx, id)
}

// Complete moves an IN_PROGRESS job to COMPLETED
func (s *JobService) Complete(ctx context.Context, caller *models.User, id string) (*models.Job, error) {
	return s.transition(ctx, caller, id, models.JobStatusInProgress, models.JobStatusCompleted,
		"Only jobs in progress can be completed", "end_date")
}

// Cancel moves an OPEN job to CANCELLED
func (s *JobService) Cancel(ctx context.Context, caller *models.User, id string) (*models.Job, error) {
	return s.transition(ctx, caller, id, models.JobStatusOpen, models.JobStatusCancelled,
		"Only open jobs can be cancelled", "")
}

func (s *JobService) transition(ctx context.Context, caller *models.User, id string, from, to models.JobStatus, invalidMsg, dateColumn string) (*models.Job, error) {
	job, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, apperrors.InvalidState("This job is already " + strings.ToLower(string(job.Status)))
	}
	if job.Status != from || !from.CanTransitionTo(to) {
		return nil, apperrors.InvalidState(invalidMsg)
	}

	updates := map[string]interface{}{"status": to}
	if dateColumn != "" {
		updates[dateColumn] = s.now()
	}

	result := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.Internal(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.InvalidState(invalidMsg)
	}

	return s.Get(ctx, id)
}

// AttachImage stores an image for an OPEN job, replacing any previous one
func (s *JobService) AttachImage(ctx context.Context, caller *models.User, id string, fileHeader *multipart.FileHeader) (*models.Job, error) {
	if s.images == nil {
		return nil, apperrors.Unavailable("Image storage is not configured")
	}

	job, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusOpen {
		return nil, apperrors.InvalidState(msgOnlyOpenEditable)
	}

	key, err := s.images.UploadImage(ctx, fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			return nil, apperrors.Validation(uploadErr.Message)
		}
		return nil, apperrors.Internal(err)
	}

	result := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, models.JobStatusOpen).
		Update("image_key", key)
	if result.Error != nil || result.RowsAffected == 0 {
		s.deleteImage(ctx, key)
		if result.Error != nil {
			return nil, apperrors.Internal(result.Error)
		}
		return nil, apperrors.InvalidState(msgOnlyOpenEditable)
	}

	if job.ImageKey != nil {
		s.deleteImage(ctx, *job.ImageKey)
	}

	return s.Get(ctx, id)
}

// List returns one page of jobs matching filter, newest first by default
func (s *JobService) List(ctx context.Context, filter JobFilter) (*JobPage, error) {
	order, err := parseSort(filter.Sort, jobSortColumns, "created_at DESC")
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Job{})
	if filter.JobType != "" {
		query = query.Where("job_type = ?", filter.JobType)
	}
	if filter.City != "" {
		query = query.Where("location_city = ?", filter.City)
	}
	if filter.Status != "" {
		status := models.JobStatus(strings.ToUpper(filter.Status))
		if !status.Valid() {
			return nil, apperrors.Validation("status must be one of: OPEN, IN_PROGRESS, COMPLETED, CANCELLED")
		}
		query = query.Where("status = ?", status)
	}
	if filter.Search != "" {
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(filter.Search))+"%")
	}
	if filter.EmployerID != "" {
		query = query.Where("employer_id = ?", filter.EmployerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	page := filter.Pagination.Normalize()
	var jobs []models.Job
	err = query.
		Preload("Employer", publicProfile(employerColumns)).
		Preload("Specialist", publicProfile(specialistColumns)).
		Order(order).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&jobs).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	s.resolveImages(ctx, jobs)

	return &JobPage{Jobs: jobs, Total: total, Pagination: page}, nil
}

// ListByEmployer lists the employer's own jobs across all statuses unless
// filter.Status narrows it
func (s *JobService) ListByEmployer(ctx context.Context, employerID string, filter JobFilter) (*JobPage, error) {
	filter.EmployerID = employerID
	return s.List(ctx, filter)
}

// ListAvailable returns OPEN, unassigned jobs the specialist has not applied to
func (s *JobService) ListAvailable(ctx context.Context, specialistID string) ([]models.Job, error) {
	var jobs []models.Job
	err := s.db.WithContext(ctx).
		Where("status = ? AND specialist_id IS NULL", models.JobStatusOpen).
		Where("NOT EXISTS (SELECT 1 FROM job_applicants a WHERE a.job_id = jobs.id AND a.specialist_id = ?)", specialistID).
		Preload("Employer", publicProfile(employerColumns)).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	s.resolveImages(ctx, jobs)
	return jobs, nil
}

// ListApplications returns the jobs a specialist applied to, with only their
// own application loaded
func (s *JobService) ListApplications(ctx context.Context, specialistID string) ([]models.Job, error) {
	var jobs []models.Job
	err := s.db.WithContext(ctx).
		Where("EXISTS (SELECT 1 FROM job_applicants a WHERE a.job_id = jobs.id AND a.specialist_id = ?)", specialistID).
		Preload("Employer", publicProfile(employerColumns)).
		Preload("Applicants", "specialist_id = ?", specialistID).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	s.resolveImages(ctx, jobs)
	return jobs, nil
}

// ListAssigned returns the jobs currently or previously assigned to a
// specialist, i.e. IN_PROGRESS and COMPLETED
func (s *JobService) ListAssigned(ctx context.Context, specialistID string) ([]models.Job, error) {
	var assigned []models.JobStatus
	for _, status := range models.JobStatuses() {
		if status.HasSpecialist() {
			assigned = append(assigned, status)
		}
	}

	var jobs []models.Job
	err := s.db.WithContext(ctx).
		Where("specialist_id = ? AND status IN ?", specialistID, assigned).
		Preload("Employer", publicProfile(employerColumns)).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	s.resolveImages(ctx, jobs)
	return jobs, nil
}

// loadOwned loads a job and checks that caller is its employer
func (s *JobService) loadOwned(ctx context.Context, caller *models.User, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, msgJobNotFound)
	}
	if caller == nil || job.EmployerID != caller.ID {
		return nil, apperrors.Forbidden(msgNotJobOwner)
	}
	return &job, nil
}

func (s *JobService) resolveImages(ctx context.Context, jobs []models.Job) {
	for i := range jobs {
		s.resolveImage(ctx, &jobs[i])
	}
}

func (s *JobService) resolveImage(ctx context.Context, job *models.Job) {
	if s.images == nil || job.ImageKey == nil || *job.ImageKey == "" {
		return
	}
	url, err := s.images.GetImageURL(ctx, *job.ImageKey)
	if err != nil {
		slog.WarnContext(ctx, "failed to resolve job image", slog.String("job_id", job.ID), slog.Any("error", err))
		return
	}
	job.ImageURL = &url
}

func (s *JobService) deleteImage(ctx context.Context, key string) {
	if s.images == nil {
		return
	}
	if err := s.images.DeleteImage(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to delete job image", slog.String("key", key), slog.Any("error", err))
	}
}

// wrapTxError keeps classified errors returned from a transaction callback
func wrapTxError(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Internal(err)
}
