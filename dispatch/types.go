// Package dispatch turns drag-and-drop gestures on a dispatch board into
// validated, idempotent driver assignments. A Board shows the jobs of one
// organization and date as an unassigned pool plus one list per driver.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetdesk/backend/models"
)

var (
	ErrMoveInFlight  = errors.New("an assignment for this job is already being saved")
	ErrBoardClosed   = errors.New("board is closed")
	ErrBoardNotFound = fmt.Errorf("board %w", models.ErrNotFound)
)

// JobStore is the datastore the board reads snapshots from and commits assignments to.
type JobStore interface {
	ListJobsForDate(ctx context.Context, orgID string, date time.Time) ([]models.Job, error)
	ListDrivers(ctx context.Context, orgID string) ([]models.Driver, error)
	// AssignDriver sets the job's driver, nil meaning unassigned, and derives
	// the status flip. Repeating a call with the same driver is harmless.
	AssignDriver(ctx context.Context, orgID, jobID string, driverID *string) (models.Job, error)
}

// ListID names a board list: Unassigned or "driver:<id>".
type ListID string

const Unassigned ListID = "unassigned"

const driverPrefix = "driver:"

func DriverList(driverID string) ListID {
	return ListID(driverPrefix + driverID)
}

// DriverID is the assignment a job dropped on l receives; nil for Unassigned.
func (l ListID) DriverID() *string {
	if l == Unassigned {
		return nil
	}
	id := strings.TrimPrefix(string(l), driverPrefix)
	return &id
}

func ParseListID(s string) (ListID, error) {
	if s == string(Unassigned) {
		return Unassigned, nil
	}
	if strings.HasPrefix(s, driverPrefix) && len(s) > len(driverPrefix) {
		return ListID(s), nil
	}
	return "", models.NewValidationError("destination", fmt.Sprintf("unknown list %q", s))
}

func listOf(j models.Job) ListID {
	if j.DriverID == nil || *j.DriverID == "" {
		return Unassigned
	}
	return DriverList(*j.DriverID)
}

type Position struct {
	List  ListID `json:"list"`
	Index int    `json:"index"`
}

// Snapshot is the last authoritative job list for a board. It is never
// modified after construction; a refetch replaces it.
type Snapshot struct {
	OrganizationID string
	Date           time.Time
	Jobs           []models.Job
	Drivers        []models.Driver
	FetchedAt      time.Time

	jobs    map[string]int
	drivers map[string]int
}

func NewSnapshot(orgID string, date time.Time, jobs []models.Job, drivers []models.Driver, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		OrganizationID: orgID,
		Date:           models.DateOf(date),
		Jobs:           append([]models.Job(nil), jobs...),
		Drivers:        append([]models.Driver(nil), drivers...),
		FetchedAt:      fetchedAt,
		jobs:           make(map[string]int, len(jobs)),
		drivers:        make(map[string]int, len(drivers)),
	}
	for i, j := range s.Jobs {
		s.jobs[j.ID] = i
	}
	for i, d := range s.Drivers {
		s.drivers[d.ID] = i
	}
	return s
}

func (s *Snapshot) Job(id string) (models.Job, bool) {
	if s == nil {
		return models.Job{}, false
	}
	i, ok := s.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return s.Jobs[i], true
}

func (s *Snapshot) Driver(id string) (models.Driver, bool) {
	if s == nil {
		return models.Driver{}, false
	}
	i, ok := s.drivers[id]
	if !ok {
		return models.Driver{}, false
	}
	return s.Drivers[i], true
}

// Outcome is how a drop ended.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeNoOp      Outcome = "noop"
	OutcomeReordered Outcome = "reordered"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one user-visible message in a board's feed.
type Notification struct {
	Seq     int64     `json:"seq"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	JobID   string    `json:"jobId,omitempty"`
	Outcome Outcome   `json:"outcome,omitempty"`
	At      time.Time `json:"at"`
}

// DragToken identifies one drag gesture from StartDrag to Drop.
type DragToken struct {
	ID    string   `json:"token"`
	JobID string   `json:"jobId"`
	From  Position `json:"from"`
}

type MoveResult struct {
	Outcome      Outcome      `json:"outcome"`
	Job          *models.Job  `json:"job,omitempty"`
	From         Position     `json:"from"`
	To           Position     `json:"to"`
	Notification Notification `json:"notification"`
}
