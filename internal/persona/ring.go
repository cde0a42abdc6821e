package persona

const recentRingCapacity = 10

// recentRing remembers the last few picked responses so banks don't repeat
// back to back. Oldest entries fall off once capacity is reached.
type recentRing struct {
	capacity int
	entries  []string
}

func newRecentRing(capacity int) *recentRing {
	return &recentRing{capacity: capacity}
}

func (r *recentRing) contains(item string) bool {
	for _, e := range r.entries {
		if e == item {
			return true
		}
	}
	return false
}

func (r *recentRing) add(item string) {
	r.entries = append(r.entries, item)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[1:]
	}
}

func (r *recentRing) reset() {
	r.entries = r.entries[:0]
}
