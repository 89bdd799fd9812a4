package lifecycle

// Transitions counts status changes observed during one refresh, keyed by the new status.
type Transitions struct {
	Closed     int `json:"closed"`
	Opened     int `json:"opened"`
	ComingSoon int `json:"coming_soon"`
}

// Record tallies a change from previous to next and reports whether anything changed.
// An unknown previous status (empty or hand-edited) counts as a change.
func (t *Transitions) Record(previous, next Status) bool {
	if previous == next {
		return false
	}
	switch next {
	case StatusClosed:
		t.Closed++
	case StatusOpen:
		t.Opened++
	case StatusComingSoon:
		t.ComingSoon++
	}
	return true
}

func (t Transitions) Total() int {
	return t.Closed + t.Opened + t.ComingSoon
}

// Regressed reports whether moving from previous to next goes backwards in freshness,
// which only happens when the underlying dates were edited.
func Regressed(previous, next Status) bool {
	if !previous.Valid() || !next.Valid() {
		return false
	}
	return next.rank() < previous.rank()
}
