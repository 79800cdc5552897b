package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FilterAll is the sentinel meaning "no restriction" for driver, job type and status.
const FilterAll = "all"

// NoActiveFilters is what Summarize returns for a fully unset FilterState.
const NoActiveFilters = "No active filters"

const dateLayout = "2006-01-02"

type FilterField string

const (
	FieldDateRange FilterField = "dateRange"
	FieldSearch    FilterField = "searchTerm"
	FieldDriver    FilterField = "driverId"
	FieldJobType   FilterField = "jobType"
	FieldStatus    FilterField = "status"
)

// StatusFilter is a stored JobStatus, a derived badge status, or FilterAll.
type StatusFilter string

const (
	StatusAll        StatusFilter = FilterAll
	StatusUnassigned StatusFilter = StatusFilter(JobUnassigned)
	StatusAssigned   StatusFilter = StatusFilter(JobAssigned)
	StatusInProgress StatusFilter = StatusFilter(JobInProgress)
	StatusCompleted  StatusFilter = StatusFilter(JobCompleted)
	StatusCancelled  StatusFilter = StatusFilter(JobCancelled)
	StatusOverdue    StatusFilter = "overdue"
	StatusPriority   StatusFilter = "priority"
)

var statusFilters = map[StatusFilter]bool{
	StatusUnassigned: true,
	StatusAssigned:   true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusCancelled:  true,
	StatusOverdue:    true,
	StatusPriority:   true,
}

func (s StatusFilter) Valid() bool {
	return statusFilters[s]
}

// Derived reports whether the status is computed from job fields rather than stored.
func (s StatusFilter) Derived() bool {
	return s == StatusOverdue || s == StatusPriority
}

// DateRange is an inclusive pair of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: DateOf(start), End: DateOf(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, NewValidationError(string(FieldDateRange), "start date must not be after end date")
	}
	return r, nil
}

func (r DateRange) calendar() *DateRange {
	return &DateRange{Start: DateOf(r.Start), End: DateOf(r.End)}
}

func (r DateRange) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

type dateRangeJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJSON{From: r.Start.Format(dateLayout), To: r.End.Format(dateLayout)})
}

func (r *DateRange) UnmarshalJSON(data []byte) error {
	var raw dateRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := parseDateRange(raw.From, raw.To)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp and returns the calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return DateOf(t), nil
}

func parseDateRange(from, to string) (DateRange, error) {
	start, err := ParseDate(from)
	if err != nil {
		return DateRange{}, NewValidationError("from", err.Error())
	}
	end, err := ParseDate(to)
	if err != nil {
		return DateRange{}, NewValidationError("to", err.Error())
	}
	return NewDateRange(start, end)
}

// FilterState is the set of active constraints on a job list view.
type FilterState struct {
	DateRange  *DateRange   `json:"dateRange,omitempty"`
	SearchTerm string       `json:"searchTerm"`
	DriverID   string       `json:"driverId"`
	JobType    JobType      `json:"jobType"`
	Status     StatusFilter `json:"status"`
}

// NewFilterState returns a state with every field unset.
func NewFilterState() FilterState {
	return FilterState{
		DriverID: FilterAll,
		JobType:  JobTypeAll,
		Status:   StatusAll,
	}
}

// SetField replaces one field. Only the value's type is checked; date range
// ends are reduced to their calendar dates and a blank search term is unset.
func (f *FilterState) SetField(field FilterField, value any) error {
	switch field {
	case FieldDateRange:
		switch v := value.(type) {
		case nil:
			f.DateRange = nil
		case *DateRange:
			if v == nil {
				f.DateRange = nil
			} else {
				f.DateRange = v.calendar()
			}
		case DateRange:
			f.DateRange = v.calendar()
		default:
			return typeError(field, value)
		}
	case FieldSearch:
		v, ok := value.(string)
		if !ok {
			return typeError(field, value)
		}
		if strings.TrimSpace(v) == "" {
			v = ""
		}
		f.SearchTerm = v
	case FieldDriver:
		v, ok := value.(string)
		if !ok {
			return typeError(field, value)
		}
		if v == "" {
			v = FilterAll
		}
		f.DriverID = v
	case FieldJobType:
		switch v := value.(type) {
		case JobType:
			f.JobType = v
		case string:
			f.JobType = JobType(v)
		default:
			return typeError(field, value)
		}
	case FieldStatus:
		switch v := value.(type) {
		case StatusFilter:
			f.Status = v
		case string:
			f.Status = StatusFilter(v)
		default:
			return typeError(field, value)
		}
	default:
		return NewValidationError(string(field), "unknown filter field")
	}
	return nil
}

func typeError(field FilterField, value any) error {
	return NewValidationError(string(field), fmt.Sprintf("unexpected value type %T", value))
}

// ClearAll resets every field in a single assignment.
func (f *FilterState) ClearAll() {
	*f = NewFilterState()
}

func (f FilterState) hasSearch() bool {
	return strings.TrimSpace(f.SearchTerm) != ""
}

func (f FilterState) hasDriver() bool {
	return f.DriverID != "" && f.DriverID != FilterAll
}

func (f FilterState) hasJobType() bool {
	return f.JobType != "" && f.JobType != JobTypeAll
}

func (f FilterState) hasStatus() bool {
	return f.Status != "" && f.Status != StatusAll
}

// IsDefault reports whether no filter is active.
func (f FilterState) IsDefault() bool {
	return f.DateRange == nil && !f.hasSearch() && !f.hasDriver() && !f.hasJobType() && !f.hasStatus()
}

// Normalize maps the zero value of each sentinel field to FilterAll.
func (f FilterState) Normalize() FilterState {
	if f.DriverID == "" {
		f.DriverID = FilterAll
	}
	if f.JobType == "" {
		f.JobType = JobTypeAll
	}
	if f.Status == "" {
		f.Status = StatusAll
	}
	return f
}

// Validate checks the enumerated fields and the date range ordering.
func (f FilterState) Validate() error {
	if f.DateRange != nil && f.DateRange.End.Before(f.DateRange.Start) {
		return NewValidationError(string(FieldDateRange), "start date must not be after end date")
	}
	if f.hasJobType() && !f.JobType.Valid() {
		return NewValidationError(string(FieldJobType), fmt.Sprintf("unknown job type %q", f.JobType))
	}
	if f.hasStatus() && !f.Status.Valid() {
		return NewValidationError(string(FieldStatus), fmt.Sprintf("unknown status %q", f.Status))
	}
	return nil
}

// Summarize names the active filter categories, not their values.
func (f FilterState) Summarize() string {
	var active []string
	if f.DateRange != nil {
		active = append(active, "Date range")
	}
	if f.hasSearch() {
		active = append(active, "Search")
	}
	if f.hasDriver() {
		active = append(active, "Driver")
	}
	if f.hasJobType() {
		active = append(active, "Job type")
	}
	if f.hasStatus() {
		active = append(active, "Status")
	}
	if len(active) == 0 {
		return NoActiveFilters
	}
	return strings.Join(active, ", ")
}

// Matches reports whether job satisfies every active filter. today drives the derived statuses.
func (f FilterState) Matches(j Job, today time.Time) bool {
	if f.DateRange != nil && !f.DateRange.Contains(j.ScheduledDate) {
		return false
	}
	if f.hasSearch() {
		needle := strings.ToLower(strings.TrimSpace(f.SearchTerm))
		haystack := strings.ToLower(strings.Join([]string{j.JobNumber, j.CustomerName, j.Address, j.Notes}, "\n"))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	if f.hasDriver() && (j.DriverID == nil || *j.DriverID != f.DriverID) {
		return false
	}
	if f.hasJobType() && j.JobType != f.JobType {
		return false
	}
	if f.hasStatus() {
		switch f.Status {
		case StatusOverdue:
			return j.IsOverdue(today)
		case StatusPriority:
			return j.IsPriority()
		default:
			return j.Status == JobStatus(f.Status)
		}
	}
	return true
}
