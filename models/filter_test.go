package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustRange(t *testing.T, from, to string) DateRange {
	t.Helper()
	r, err := NewDateRange(day(from), day(to))
	require.NoError(t, err)
	return r
}

func TestNewFilterStateIsUnset(t *testing.T) {
	f := NewFilterState()
	assert.True(t, f.IsDefault())
	assert.Equal(t, NoActiveFilters, f.Summarize())
	assert.Equal(t, FilterAll, f.DriverID)
	assert.Equal(t, JobTypeAll, f.JobType)
	assert.Equal(t, StatusAll, f.Status)
}

func TestSetField(t *testing.T) {
	f := NewFilterState()

	require.NoError(t, f.SetField(FieldSearch, "acme"))
	require.NoError(t, f.SetField(FieldDriver, "drv-1"))
	require.NoError(t, f.SetField(FieldJobType, "delivery"))
	require.NoError(t, f.SetField(FieldStatus, StatusOverdue))
	require.NoError(t, f.SetField(FieldDateRange, mustRange(t, "2024-01-01", "2024-01-07")))

	assert.Equal(t, "acme", f.SearchTerm)
	assert.Equal(t, "drv-1", f.DriverID)
	assert.Equal(t, JobTypeDelivery, f.JobType)
	assert.Equal(t, StatusOverdue, f.Status)
	require.NotNil(t, f.DateRange)
	assert.Equal(t, day("2024-01-07"), f.DateRange.End)

	t.Run("empty driver means all", func(t *testing.T) {
		g := f
		require.NoError(t, g.SetField(FieldDriver, ""))
		assert.Equal(t, FilterAll, g.DriverID)
	})

	t.Run("nil clears the date range", func(t *testing.T) {
		g := f
		require.NoError(t, g.SetField(FieldDateRange, nil))
		assert.Nil(t, g.DateRange)
	})

	t.Run("wrong value type", func(t *testing.T) {
		g := f
		err := g.SetField(FieldSearch, 42)
		assert.True(t, IsValidation(err))
		assert.Equal(t, "acme", g.SearchTerm)
	})

	t.Run("unknown field", func(t *testing.T) {
		g := f
		assert.True(t, IsValidation(g.SetField("colour", "red")))
	})

	t.Run("values are not validated on set", func(t *testing.T) {
		g := f
		require.NoError(t, g.SetField(FieldJobType, "hovercraft"))
		assert.Equal(t, JobType("hovercraft"), g.JobType)
		assert.True(t, IsValidation(g.Validate()))
	})
}

func TestNewDateRangeRejectsInvertedRange(t *testing.T) {
	_, err := NewDateRange(day("2024-01-07"), day("2024-01-01"))
	assert.True(t, IsValidation(err))

	r, err := NewDateRange(day("2024-01-03"), day("2024-01-03"))
	require.NoError(t, err)
	assert.True(t, r.Contains(time.Date(2024, 1, 3, 18, 30, 0, 0, time.UTC)))
	assert.False(t, r.Contains(day("2024-01-04")))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, day("2024-03-09"), d)

	d, err = ParseDate("2024-03-09T22:15:00Z")
	require.NoError(t, err)
	assert.Equal(t, day("2024-03-09"), d)

	_, err = ParseDate("09/03/2024")
	assert.Error(t, err)
}

func TestClearAll(t *testing.T) {
	f := NewFilterState()
	r := mustRange(t, "2024-01-01", "2024-01-07")
	f.DateRange = &r
	f.SearchTerm = "x"
	f.DriverID = "drv-2"
	f.JobType = JobTypePickup
	f.Status = StatusCompleted

	f.ClearAll()

	assert.Equal(t, NewFilterState(), f)
	assert.Equal(t, NoActiveFilters, f.Summarize())

	link, err := f.ToShareURL("https://app.example/jobs")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example/jobs", link)
}

func TestSummarize(t *testing.T) {
	f := NewFilterState()
	f.JobType = JobTypeService
	assert.Equal(t, "Job type", f.Summarize())

	f.SearchTerm = "north"
	f.Status = StatusPriority
	r := mustRange(t, "2024-02-01", "2024-02-02")
	f.DateRange = &r
	f.DriverID = "drv-9"
	assert.Equal(t, "Date range, Search, Driver, Job type, Status", f.Summarize())
}

func TestMatches(t *testing.T) {
	today := day("2024-05-10")
	driver := "drv-1"
	job := Job{
		ID:            "job-1",
		JobNumber:     "J-100",
		CustomerName:  "Northwind Traders",
		Address:       "1 Main St",
		JobType:       JobTypeDelivery,
		Status:        JobAssigned,
		DriverID:      &driver,
		ScheduledDate: day("2024-05-08"),
	}

	cases := []struct {
		name   string
		mutate func(*FilterState)
		want   bool
	}{
		{"unset", func(*FilterState) {}, true},
		{"search is case insensitive", func(f *FilterState) { f.SearchTerm = "NORTHWIND" }, true},
		{"search miss", func(f *FilterState) { f.SearchTerm = "contoso" }, false},
		{"driver hit", func(f *FilterState) { f.DriverID = "drv-1" }, true},
		{"driver miss", func(f *FilterState) { f.DriverID = "drv-2" }, false},
		{"job type miss", func(f *FilterState) { f.JobType = JobTypePickup }, false},
		{"stored status", func(f *FilterState) { f.Status = StatusAssigned }, true},
		{"overdue", func(f *FilterState) { f.Status = StatusOverdue }, true},
		{"not priority", func(f *FilterState) { f.Status = StatusPriority }, false},
		{"outside range", func(f *FilterState) {
			r, _ := NewDateRange(day("2024-05-09"), day("2024-05-12"))
			f.DateRange = &r
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFilterState()
			tc.mutate(&f)
			assert.Equal(t, tc.want, f.Matches(job, today))
		})
	}
}

func TestBadges(t *testing.T) {
	today := day("2024-05-10")

	j := Job{JobType: JobTypeEmergency, Status: JobUnassigned, ScheduledDate: day("2024-05-01")}
	assert.Equal(t, []StatusFilter{StatusOverdue, StatusPriority}, j.Badges(today))

	j.Status = JobCompleted
	assert.Equal(t, []StatusFilter{StatusPriority}, j.Badges(today))

	j = Job{JobType: JobTypePickup, Status: JobAssigned, ScheduledDate: today}
	assert.Empty(t, j.Badges(today))
}

func TestAssignmentStatus(t *testing.T) {
	driver := "drv-1"
	assert.Equal(t, JobAssigned, AssignmentStatus(JobUnassigned, &driver))
	assert.Equal(t, JobUnassigned, AssignmentStatus(JobAssigned, nil))
	assert.Equal(t, JobAssigned, AssignmentStatus(JobAssigned, &driver))
	assert.Equal(t, JobInProgress, AssignmentStatus(JobInProgress, nil))
	assert.Equal(t, JobCompleted, AssignmentStatus(JobCompleted, &driver))
}

func TestSetFieldReducesDateRangeToCalendarDates(t *testing.T) {
	pacific := time.FixedZone("PST", -8*3600)
	f := NewFilterState()

	r := DateRange{
		Start: time.Date(2024, 1, 1, 22, 0, 0, 0, pacific),
		End:   time.Date(2024, 1, 2, 6, 15, 0, 0, pacific),
	}
	require.NoError(t, f.SetField(FieldDateRange, &r))
	require.NotNil(t, f.DateRange)
	assert.Equal(t, day("2024-01-01"), f.DateRange.Start)
	assert.Equal(t, day("2024-01-02"), f.DateRange.End)
	assert.Equal(t, 22, r.Start.Hour(), "caller's value is not modified")
}

func TestBlankSearchTermIsUnset(t *testing.T) {
	f := NewFilterState()
	require.NoError(t, f.SetField(FieldSearch, "   "))
	assert.Equal(t, "", f.SearchTerm)
	assert.True(t, f.IsDefault())

	f.SearchTerm = " \t "
	assert.True(t, f.IsDefault())
	assert.Equal(t, NoActiveFilters, f.Summarize())
	assert.True(t, PayloadOf(f).Empty())

	link, err := f.ToShareURL("https://app.example/jobs")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example/jobs", link)
}
