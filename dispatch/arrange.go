package dispatch

import "sort"

// arrange places every snapshot job in exactly one list. Jobs that stay in the
// same list keep their previous relative order and newcomers follow in
// snapshot order. pinned overrides the list of jobs with a commit in flight.
func arrange(snap *Snapshot, prev map[ListID][]string, pinned map[string]ListID) map[ListID][]string {
	want := make(map[string]ListID, len(snap.Jobs))
	for _, j := range snap.Jobs {
		list := listOf(j)
		if p, ok := pinned[j.ID]; ok {
			list = p
		}
		want[j.ID] = list
	}

	next := map[ListID][]string{Unassigned: nil}
	for _, d := range snap.Drivers {
		next[DriverList(d.ID)] = nil
	}

	placed := make(map[string]bool, len(want))
	for list, ids := range prev {
		for _, id := range ids {
			if w, ok := want[id]; ok && w == list && !placed[id] {
				next[list] = append(next[list], id)
				placed[id] = true
			}
		}
	}
	for _, j := range snap.Jobs {
		if placed[j.ID] {
			continue
		}
		list := want[j.ID]
		next[list] = append(next[list], j.ID)
		placed[j.ID] = true
	}
	return next
}

// listOrder is Unassigned, then drivers in snapshot order, then any other list by id.
func listOrder(snap *Snapshot, lists map[ListID][]string) []ListID {
	order := []ListID{Unassigned}
	seen := map[ListID]bool{Unassigned: true}
	if snap != nil {
		for _, d := range snap.Drivers {
			id := DriverList(d.ID)
			if !seen[id] {
				order = append(order, id)
				seen[id] = true
			}
		}
	}
	var rest []ListID
	for id := range lists {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(order, rest...)
}

func locate(lists map[ListID][]string, jobID string) (Position, bool) {
	for list, ids := range lists {
		for i, id := range ids {
			if id == jobID {
				return Position{List: list, Index: i}, true
			}
		}
	}
	return Position{}, false
}

func clamp(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}

// move returns lists with the job at from relocated to to. Only the touched
// lists are copied, so earlier maps stay valid.
func move(lists map[ListID][]string, from, to Position) map[ListID][]string {
	next := make(map[ListID][]string, len(lists)+1)
	for k, v := range lists {
		next[k] = v
	}

	src := append([]string(nil), next[from.List]...)
	id := src[from.Index]
	src = append(src[:from.Index], src[from.Index+1:]...)
	next[from.List] = src

	dst := src
	if to.List != from.List {
		dst = append([]string(nil), next[to.List]...)
	}
	idx := clamp(to.Index, len(dst))
	dst = append(dst, "")
	copy(dst[idx+1:], dst[idx:])
	dst[idx] = id
	next[to.List] = dst
	return next
}
