package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// WriteCSV writes the header followed by one row per comment
func WriteCSV(w io.Writer, comments []Comment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range comments {
		if err := cw.Write(c.Record()); err != nil {
			return fmt.Errorf("write comment %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file written by WriteCSV. Ids are kept as strings.
func ReadCSV(r io.Reader) ([]Comment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := newColumnIndex(header)
	if err != nil {
		return nil, err
	}

	var comments []Comment
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c, err := idx.decode(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		comments = append(comments, c)
	}
	return comments, nil
}
