package dispatch

import (
	"time"

	"fleetdesk/backend/models"
)

type ListView struct {
	ID       ListID       `json:"id"`
	Title    string       `json:"title"`
	DriverID *string      `json:"driverId"`
	Jobs     []models.Job `json:"jobs"`
}

// View is the client-facing rendering of a board.
type View struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"`
	Lists     []ListView `json:"lists"`
	InFlight  []string   `json:"inFlight"`
	FetchedAt time.Time  `json:"fetchedAt"`
	Stale     bool       `json:"stale"`
	LastSeq   int64      `json:"lastSeq"`
}

func (b *Board) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := b.snapshot.Load()

	v := View{
		ID:       b.id,
		Date:     b.date.Format("2006-01-02"),
		InFlight: make([]string, 0, len(b.inFlight)),
		Stale:    b.stale,
		LastSeq:  b.seq,
	}
	if snap != nil {
		v.FetchedAt = snap.FetchedAt
	}
	for id := range b.inFlight {
		v.InFlight = append(v.InFlight, id)
	}
	for _, list := range listOrder(snap, b.lists) {
		lv := ListView{ID: list, Title: listLabel(snap, list), DriverID: list.DriverID(), Jobs: []models.Job{}}
		for _, id := range b.lists[list] {
			if j, ok := snap.Job(id); ok {
				lv.Jobs = append(lv.Jobs, j)
			}
		}
		v.Lists = append(v.Lists, lv)
	}
	return v
}
