package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is an employer's rating of the specialist who completed a job.
// Each job is reviewed at most once.
type Review struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SpecialistID string    `gorm:"type:varchar(36);not null;index" json:"specialistId"`
	ReviewerID   string    `gorm:"type:varchar(36);not null;index" json:"reviewerId"`
	Reviewer     *User     `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	JobID        string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"jobId"`
	Rating       int       `gorm:"not null" json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"date"`
}

// TableName specifies the table name for the Review model
func (Review) TableName() string {
	return "reviews"
}

// BeforeCreate assigns a UUID when the caller did not set one
func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
