package records

import (
	"fmt"
	"math"
	"strconv"
)

// Header is the column layout shared by raw output and checkpoint files
var Header = []string{"comment_id", "author", "body", "score", "created_utc", "depth", "parent_id"}

// Comment is one flattened node of a thread's reply tree
type Comment struct {
	ID         string
	Author     string
	Body       string
	Score      *int
	CreatedUTC float64
	Depth      int
	ParentID   string
}

// IntPtr is a helper for building optional scores
func IntPtr(v int) *int {
	return &v
}

// Record encodes the comment as a CSV row in Header order
func (c Comment) Record() []string {
	score := ""
	if c.Score != nil {
		score = strconv.Itoa(*c.Score)
	}
	return []string{
		c.ID,
		c.Author,
		c.Body,
		score,
		strconv.FormatFloat(c.CreatedUTC, 'f', -1, 64),
		strconv.Itoa(c.Depth),
		c.ParentID,
	}
}

// columnIndex maps header names to positions so files with reordered columns still load
type columnIndex map[string]int

func newColumnIndex(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range Header {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return idx, nil
}

func (idx columnIndex) get(row []string, name string) string {
	i := idx[name]
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func (idx columnIndex) decode(row []string) (Comment, error) {
	c := Comment{
		ID:       idx.get(row, "comment_id"),
		Author:   idx.get(row, "author"),
		Body:     idx.get(row, "body"),
		ParentID: idx.get(row, "parent_id"),
	}
	if c.ID == "" {
		return Comment{}, fmt.Errorf("empty comment_id")
	}

	score, ok, err := parseOptionalInt(idx.get(row, "score"))
	if err != nil {
		return Comment{}, fmt.Errorf("comment %s: score: %w", c.ID, err)
	}
	if ok {
		c.Score = &score
	}

	if v := idx.get(row, "created_utc"); v != "" {
		c.CreatedUTC, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return Comment{}, fmt.Errorf("comment %s: created_utc: %w", c.ID, err)
		}
	}

	depth, _, err := parseOptionalInt(idx.get(row, "depth"))
	if err != nil {
		return Comment{}, fmt.Errorf("comment %s: depth: %w", c.ID, err)
	}
	c.Depth = depth

	return c, nil
}

// parseOptionalInt accepts "", "3" and float renderings such as "3.0"
func parseOptionalInt(s string) (int, bool, error) {
	if s == "" || s == "NaN" || s == "nan" {
		return 0, false, nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(f) {
		return 0, false, nil
	}
	return int(f), true, nil
}
