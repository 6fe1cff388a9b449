package records

// Accumulator is the ordered, de-duplicated record set for one thread.
// It only grows; Add keeps the first record seen for each id.
type Accumulator struct {
	comments []Comment
	seen     map[string]struct{}
}

// NewAccumulator creates an accumulator hydrated with initial, de-duplicated
func NewAccumulator(initial ...Comment) *Accumulator {
	a := &Accumulator{seen: make(map[string]struct{}, len(initial))}
	a.Add(initial...)
	return a
}

// Add appends comments whose ids are unseen and returns how many were kept
func (a *Accumulator) Add(comments ...Comment) int {
	added := 0
	for _, c := range comments {
		if _, dup := a.seen[c.ID]; dup {
			continue
		}
		a.seen[c.ID] = struct{}{}
		a.comments = append(a.comments, c)
		added++
	}
	return added
}

// Has reports whether id has been recorded
func (a *Accumulator) Has(id string) bool {
	_, ok := a.seen[id]
	return ok
}

// Len returns the number of records
func (a *Accumulator) Len() int {
	return len(a.comments)
}

// Comments returns a copy of the records in insertion order
func (a *Accumulator) Comments() []Comment {
	out := make([]Comment, len(a.comments))
	copy(out, a.comments)
	return out
}

// Dedup returns comments with later duplicates of an id removed
func Dedup(comments []Comment) []Comment {
	return NewAccumulator(comments...).comments
}
