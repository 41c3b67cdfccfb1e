package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the kind of account a user registered as
type Role string

const (
	RoleSpecialist Role = "specialist"
	RoleEmployer   Role = "employer"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleSpecialist || r == RoleEmployer
}

// Location is embedded into users and jobs as location_* columns
type Location struct {
	City      string   `gorm:"not null" json:"city" binding:"required"`
	Province  string   `gorm:"not null" json:"province" binding:"required"`
	Latitude  *float64 `json:"latitude,omitempty" binding:"omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" binding:"omitempty,longitude"`
}

// User represents a specialist or an employer
type User struct {
	ID           string   `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string   `gorm:"not null" json:"name"`
	Email        string   `gorm:"uniqueIndex;not null" json:"email,omitempty"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Phone        string   `gorm:"not null" json:"phone"`
	Role         Role     `gorm:"type:varchar(20);not null;index" json:"role"`
	Location     Location `gorm:"embedded;embeddedPrefix:location_" json:"location"`

	// Specialist profile
	Skills       []string `gorm:"type:text;serializer:json" json:"skills,omitempty"`
	Experience   *int     `json:"experience,omitempty"`
	Age          *int     `json:"age,omitempty"`
	Education    string   `json:"education,omitempty"`
	Availability *bool    `gorm:"default:true" json:"availability,omitempty"`
	Rating       float64  `gorm:"not null;default:0" json:"rating"`
	Reviews      []Review `gorm:"foreignKey:SpecialistID" json:"reviews,omitempty"`

	// Employer profile
	CompanyName string `json:"companyName,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID when the caller did not set one
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsEmployer reports whether the user posts jobs
func (u *User) IsEmployer() bool {
	return u != nil && u.Role == RoleEmployer
}

// IsSpecialist reports whether the user applies for jobs
func (u *User) IsSpecialist() bool {
	return u != nil && u.Role == RoleSpecialist
}
