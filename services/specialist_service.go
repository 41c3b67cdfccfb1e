package services

import (
	"context"
	"math"
	"strings"

	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/models"
	"gorm.io/gorm"
)

var specialistSortColumns = map[string]string{
	"rating":     "rating",
	"experience": "experience",
	"name":       "name",
	"age":        "age",
	"createdAt":  "created_at",
}

// SpecialistFilter narrows the specialist directory. Zero values match all.
type SpecialistFilter struct {
	Skill         string
	City          string
	Province      string
	MinExperience *int
	MinRating     *float64
	Available     *bool
	Sort          string
	Pagination    Pagination
}

// SpecialistPage is one page of search results
type SpecialistPage struct {
	Specialists []models.User
	Total       int64
	Pagination  Pagination
}

// ReviewInput is the body of POST /jobs/{id}/review
type ReviewInput struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=1000"`
}

// SpecialistService backs the specialist directory and reviews
type SpecialistService struct {
	db   *gorm.DB
	jobs *JobService
}

// NewSpecialistService creates a specialist service that reads assignments through jobs
func NewSpecialistService(db *gorm.DB, jobs *JobService) *SpecialistService {
	return &SpecialistService{db: db, jobs: jobs}
}

// Search lists specialists matching filter, best rated first by default
func (s *SpecialistService) Search(ctx context.Context, filter SpecialistFilter) (*SpecialistPage, error) {
	order, err := parseSort(filter.Sort, specialistSortColumns, "rating DESC")
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleSpecialist)
	if skill := strings.TrimSpace(filter.Skill); skill != "" {
		// skills is stored as a JSON array in a text column, so a match has to
		// start right after an opening quote
		term := escapeLike(jsonFragment(strings.ToLower(skill)))
		query = query.Where(`(LOWER(skills) LIKE ? ESCAPE '\' OR LOWER(skills) LIKE ? ESCAPE '\')`,
			`%["`+term+"%", `%,"`+term+"%")
	}
	if filter.City != "" {
		query = query.Where("location_city = ?", filter.City)
	}
	if filter.Province != "" {
		query = query.Where("location_province = ?", filter.Province)
	}
	if filter.MinExperience != nil {
		query = query.Where("experience >= ?", *filter.MinExperience)
	}
	if filter.MinRating != nil {
		query = query.Where("rating >= ?", *filter.MinRating)
	}
	if filter.Available != nil {
		query = query.Where("availability = ?", *filter.Available)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	page := filter.Pagination.Normalize()
	var users []models.User
	err = query.Select(specialistColumns).Order(order).Order("id ASC").Offset(page.Offset()).Limit(page.Limit).Find(&users).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &SpecialistPage{Specialists: users, Total: total, Pagination: page}, nil
}

// MyApplications lists the jobs the specialist applied to
func (s *SpecialistService) MyApplications(ctx context.Context, caller *models.User) ([]models.Job, error) {
	return s.jobs.ListApplications(ctx, caller.ID)
}

// MyJobs lists the jobs assigned to the specialist
func (s *SpecialistService) MyJobs(ctx context.Context, caller *models.User) ([]models.Job, error) {
	return s.jobs.ListAssigned(ctx, caller.ID)
}

// AddReview lets the owner of a COMPLETED job rate its specialist once and
// recomputes the specialist's rating as the mean of their reviews
func (s *SpecialistService) AddReview(ctx context.Context, caller *models.User, jobID string, input ReviewInput) (*models.Review, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var job models.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		return nil, notFoundOr(err, msgJobNotFound)
	}
	if caller == nil || job.EmployerID != caller.ID {
		return nil, apperrors.Forbidden("Only the employer of this job can review it")
	}
	if job.Status != models.JobStatusCompleted || job.SpecialistID == nil {
		return nil, apperrors.InvalidState("Only completed jobs can be reviewed")
	}

	review := models.Review{
		SpecialistID: *job.SpecialistID,
		ReviewerID:   caller.ID,
		JobID:        job.ID,
		Rating:       input.Rating,
		Comment:      strings.TrimSpace(input.Comment),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			if isDuplicateKeyError(err) {
				return apperrors.InvalidState("This job has already been reviewed")
			}
			return err
		}

		var avg float64
		err := tx.Model(&models.Review{}).
			Where("specialist_id = ?", review.SpecialistID).
			Select("COALESCE(AVG(rating), 0)").
			Scan(&avg).Error
		if err != nil {
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ?", review.SpecialistID).
			Update("rating", math.Round(avg*10)/10).Error
	})
	if err != nil {
		return nil, wrapTxError(err)
	}

	review.Reviewer = caller
	return &review, nil
}
