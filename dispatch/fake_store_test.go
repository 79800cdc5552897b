package dispatch

import (
	"context"
	"sync"
	"time"

	"fleetdesk/backend/models"
)

type assignCall struct {
	JobID    string
	DriverID *string
}

// fakeStore is an in-memory JobStore that counts calls.
type fakeStore struct {
	mu        sync.Mutex
	order     []string
	jobs      map[string]models.Job
	drivers   []models.Driver
	listCalls int
	assigns   []assignCall
	assignErr error
	// gate, when set, blocks AssignDriver until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func strPtr(s string) *string { return &s }

var testDay = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

func newFakeStore() *fakeStore {
	s := &fakeStore{
		jobs: make(map[string]models.Job),
		drivers: []models.Driver{
			{ID: "drv-1", Name: "Jordan Reyes", Active: true},
			{ID: "drv-2", Name: "Sam Okafor", Active: true},
			{ID: "drv-3", Name: "Riley Chen", Active: true},
		},
	}
	s.add(models.Job{ID: "job-1", JobNumber: "J-1", Status: models.JobUnassigned})
	s.add(models.Job{ID: "job-2", JobNumber: "J-2", Status: models.JobAssigned, DriverID: strPtr("drv-1")})
	s.add(models.Job{ID: "job-3", JobNumber: "J-3", Status: models.JobUnassigned})
	s.add(models.Job{ID: "job-4", JobNumber: "J-4", Status: models.JobAssigned, DriverID: strPtr("drv-1")})
	s.add(models.Job{ID: "job-5", JobNumber: "J-5", Status: models.JobInProgress, DriverID: strPtr("drv-2")})
	return s
}

func (s *fakeStore) add(j models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j.ScheduledDate = testDay
	j.JobType = models.JobTypeDelivery
	if _, ok := s.jobs[j.ID]; !ok {
		s.order = append(s.order, j.ID)
	}
	s.jobs[j.ID] = j
}

func (s *fakeStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *fakeStore) job(id string) models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *fakeStore) lists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func (s *fakeStore) assignCalls() []assignCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]assignCall(nil), s.assigns...)
}

func (s *fakeStore) ListJobsForDate(ctx context.Context, orgID string, date time.Time) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	out := make([]models.Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id])
	}
	return out, nil
}

func (s *fakeStore) ListDrivers(ctx context.Context, orgID string) ([]models.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Driver(nil), s.drivers...), nil
}

func (s *fakeStore) AssignDriver(ctx context.Context, orgID, jobID string, driverID *string) (models.Job, error) {
	s.mu.Lock()
	s.assigns = append(s.assigns, assignCall{JobID: jobID, DriverID: driverID})
	gate, entered := s.gate, s.entered
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assignErr != nil {
		return models.Job{}, s.assignErr
	}
	j, ok := s.jobs[jobID]
	if !ok {
		return models.Job{}, models.ErrNotFound
	}
	j.Status = models.AssignmentStatus(j.Status, driverID)
	j.DriverID = driverID
	s.jobs[jobID] = j
	return j, nil
}
