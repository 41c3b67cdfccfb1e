package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobStatus is the lifecycle state of a job.
//
//	OPEN -> IN_PROGRESS -> COMPLETED
//	OPEN -> CANCELLED
//
// COMPLETED and CANCELLED are terminal.
type JobStatus string

const (
	JobStatusOpen       JobStatus = "OPEN"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusOpen:       {JobStatusInProgress, JobStatusCancelled},
	JobStatusInProgress: {JobStatusCompleted},
}

// JobStatuses lists every status in lifecycle order
func JobStatuses() []JobStatus {
	return []JobStatus{JobStatusOpen, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled}
}

// Valid reports whether s is a known status
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusOpen, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a job in status s may move to next
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s
func (s JobStatus) Terminal() bool {
	return len(jobTransitions[s]) == 0
}

// HasSpecialist reports whether a job in status s must carry an assigned specialist
func (s JobStatus) HasSpecialist() bool {
	return s == JobStatusInProgress || s == JobStatusCompleted
}

// JobType is the trade category of a job
type JobType string

const (
	JobTypePainting   JobType = "painting"
	JobTypeElectrical JobType = "electrical"
	JobTypePlumbing   JobType = "plumbing"
	JobTypeTiling     JobType = "tiling"
	JobTypeCarpentry  JobType = "carpentry"
	JobTypePlastering JobType = "plastering"
	JobTypeStonework  JobType = "stonework"
	JobTypeFacilities JobType = "facilities"
	JobTypeOther      JobType = "other"
)

// JobTypes lists every trade category
func JobTypes() []JobType {
	return []JobType{
		JobTypePainting, JobTypeElectrical, JobTypePlumbing, JobTypeTiling, JobTypeCarpentry,
		JobTypePlastering, JobTypeStonework, JobTypeFacilities, JobTypeOther,
	}
}

// Valid reports whether t is a known trade category
func (t JobType) Valid() bool {
	for _, known := range JobTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ApplicantStatus is the sub-status of one application
type ApplicantStatus string

const (
	ApplicantPending  ApplicantStatus = "PENDING"
	ApplicantAccepted ApplicantStatus = "ACCEPTED"
	ApplicantRejected ApplicantStatus = "REJECTED"
)

// Applicant records one specialist's application to a job.
// A specialist applies to a given job at most once.
type Applicant struct {
	ID           string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	JobID        string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_applicant_job_specialist" json:"jobId"`
	SpecialistID string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_applicant_job_specialist;index" json:"specialistId"`
	Specialist   *User           `gorm:"foreignKey:SpecialistID" json:"specialist,omitempty"`
	Notes        string          `json:"notes"`
	AppliedAt    time.Time       `gorm:"not null" json:"appliedAt"`
	Status       ApplicantStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
}

// TableName specifies the table name for the Applicant model
func (Applicant) TableName() string {
	return "job_applicants"
}

// BeforeCreate assigns a UUID when the caller did not set one
func (a *Applicant) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Job is a posting owned by one employer
type Job struct {
	ID           string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title        string      `gorm:"not null" json:"title"`
	Description  string      `gorm:"type:text;not null" json:"description"`
	JobType      JobType     `gorm:"type:varchar(32);not null;index" json:"jobType"`
	Budget       float64     `gorm:"not null" json:"budget"`
	Location     Location    `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	EmployerID   string      `gorm:"type:varchar(36);not null;index" json:"employerId"`
	Employer     *User       `gorm:"foreignKey:EmployerID" json:"employer,omitempty"`
	SpecialistID *string     `gorm:"type:varchar(36);index" json:"specialistId"`
	Specialist   *User       `gorm:"foreignKey:SpecialistID" json:"specialist,omitempty"`
	Status       JobStatus   `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	Applicants   []Applicant `gorm:"foreignKey:JobID" json:"applicants"`
	StartDate    *time.Time  `json:"startDate,omitempty"`
	EndDate      *time.Time  `json:"endDate,omitempty"`
	ImageKey     *string     `json:"imageKey,omitempty"`         // nullable, storage key of the uploaded image
	ImageURL     *string     `gorm:"-" json:"imageUrl,omitempty"` // computed field, URL for the image
	CreatedAt    time.Time   `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// TableName specifies the table name for the Job model
func (Job) TableName() string {
	return "jobs"
}

// BeforeCreate assigns a UUID when the caller did not set one
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}

// FindApplicant returns the application of specialistID, if loaded
func (j *Job) FindApplicant(specialistID string) *Applicant {
	for i := range j.Applicants {
		if j.Applicants[i].SpecialistID == specialistID {
			return &j.Applicants[i]
		}
	}
	return nil
}
