package services

import "time"

// Realtime event names
const (
	EventNewJobPosted           = "new-job-posted"
	EventNewJobApplication      = "new-job-application"
	EventJobApplicationAccepted = "job-application-accepted"
)

// Notifier pushes best-effort lifecycle events to connected clients.
// Implementations must not block: delivery is at-most-once.
type Notifier interface {
	// Broadcast sends an event to every connected client
	Broadcast(event string, payload any)

	// EmitToUser sends an event to the connections of one user
	EmitToUser(userID, event string, payload any)
}

// NopNotifier drops every event
type NopNotifier struct{}

func (NopNotifier) Broadcast(string, any)          {}
func (NopNotifier) EmitToUser(string, string, any) {}

var notifierInstance Notifier = NopNotifier{}

// GetNotifier returns the installed notifier, never nil
func GetNotifier() Notifier {
	return notifierInstance
}

// SetNotifier installs the process-wide notifier. nil restores the no-op notifier.
func SetNotifier(n Notifier) {
	if n == nil {
		n = NopNotifier{}
	}
	notifierInstance = n
}

// JobPostedEvent is broadcast when an employer creates a job
type JobPostedEvent struct {
	JobID        string    `json:"jobId"`
	Title        string    `json:"title"`
	JobType      string    `json:"jobType"`
	Budget       float64   `json:"budget"`
	City         string    `json:"city"`
	Province     string    `json:"province"`
	EmployerID   string    `json:"employerId"`
	EmployerName string    `json:"employerName"`
	CreatedAt    time.Time `json:"createdAt"`
}

// JobApplicationEvent goes to the employer of the job applied for
type JobApplicationEvent struct {
	JobID          string    `json:"jobId"`
	JobTitle       string    `json:"jobTitle"`
	EmployerID     string    `json:"employerId"`
	SpecialistID   string    `json:"specialistId"`
	SpecialistName string    `json:"specialistName"`
	Notes          string    `json:"notes,omitempty"`
	AppliedAt      time.Time `json:"appliedAt"`
}

// ApplicationAcceptedEvent goes to the specialist who was accepted
type ApplicationAcceptedEvent struct {
	JobID        string    `json:"jobId"`
	JobTitle     string    `json:"jobTitle"`
	EmployerID   string    `json:"employerId"`
	EmployerName string    `json:"employerName"`
	SpecialistID string    `json:"specialistId"`
	StartDate    time.Time `json:"startDate"`
}
