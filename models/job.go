package models

import "time"

// JobStatus is the stored lifecycle state of a job.
type JobStatus string

const (
	JobUnassigned JobStatus = "unassigned"
	JobAssigned   JobStatus = "assigned"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// JobType is the service category of a job.
type JobType string

const (
	JobTypeDelivery  JobType = "delivery"
	JobTypePickup    JobType = "pickup"
	JobTypeService   JobType = "service"
	JobTypeEmergency JobType = "emergency"
	JobTypeAll       JobType = FilterAll
)

var jobTypes = map[JobType]bool{
	JobTypeDelivery:  true,
	JobTypePickup:    true,
	JobTypeService:   true,
	JobTypeEmergency: true,
}

func (t JobType) Valid() bool {
	return jobTypes[t]
}

type Job struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"-" db:"organization_id"`
	JobNumber      string     `json:"jobNumber" db:"job_number"`
	CustomerName   string     `json:"customerName" db:"customer_name"`
	Address        string     `json:"address" db:"address"`
	JobType        JobType    `json:"jobType" db:"job_type"`
	Status         JobStatus  `json:"status" db:"status"`
	DriverID       *string    `json:"driverId" db:"driver_id"`
	ScheduledDate  time.Time  `json:"scheduledDate" db:"scheduled_date"`
	Priority       bool       `json:"priority" db:"priority"`
	Notes          string     `json:"notes" db:"notes"`
	Latitude       *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64   `json:"longitude,omitempty" db:"longitude"`
	LocationSource *string    `json:"locationSource,omitempty" db:"location_source"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}

// IsOverdue reports whether the job was scheduled before today and is still open.
func (j Job) IsOverdue(today time.Time) bool {
	if j.Status == JobCompleted || j.Status == JobCancelled {
		return false
	}
	return DateOf(j.ScheduledDate).Before(DateOf(today))
}

func (j Job) IsPriority() bool {
	return j.Priority || j.JobType == JobTypeEmergency
}

// Badges lists the derived statuses that apply to the job; they are never stored.
func (j Job) Badges(today time.Time) []StatusFilter {
	var badges []StatusFilter
	if j.IsOverdue(today) {
		badges = append(badges, StatusOverdue)
	}
	if j.IsPriority() {
		badges = append(badges, StatusPriority)
	}
	return badges
}

// AssignmentStatus is the status a job takes when its driver is set to driverID.
// Only unassigned and assigned jobs flip; later states are left alone.
func AssignmentStatus(current JobStatus, driverID *string) JobStatus {
	if current != JobUnassigned && current != JobAssigned {
		return current
	}
	if driverID == nil {
		return JobUnassigned
	}
	return JobAssigned
}

type Driver struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"-" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	Phone          string `json:"phone,omitempty" db:"phone"`
	Active         bool   `json:"active" db:"active"`
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
