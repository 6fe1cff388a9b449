package scraper

// State is a fetcher lifecycle stage
type State int

const (
	StateInit State = iota
	StateFetchingRoot
	StateExpanding
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateFetchingRoot:
		return "FETCHING_ROOT"
	case StateExpanding:
		return "EXPANDING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions happen
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
