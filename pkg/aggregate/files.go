package aggregate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"threadscraper/pkg/logger"
	"threadscraper/pkg/records"
	"threadscraper/pkg/storage"
)

// ErrMissingInput means a raw file expected by naming convention is absent
var ErrMissingInput = errors.New("raw input not found")

// UsersHeader is the column layout of users_<group>.csv and users_all_games.csv
var UsersHeader = []string{"author", "comment_count", "avg_score", "total_score", "first_comment", "last_comment", "game"}

// HistogramHeader is the column layout of histogram_<group>.csv
var HistogramHeader = []string{"x", "actual_count", "proportion"}

// LoadRaw reads raw_<label>.csv from dir
func LoadRaw(dir, label string) ([]records.Comment, error) {
	rows, err := storage.ReadCommentsFile(filepath.Join(dir, storage.RawFileName(label)))
	if err != nil {
		if storage.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, storage.RawFileName(label))
		}
		return nil, err
	}
	return rows, nil
}

// LoadGroup concatenates the raw files of every label in g, keeping the first
// row for each comment id. Missing parts are skipped with a warning; when no
// part exists ErrMissingInput is returned.
func LoadGroup(dir string, g Group, log logger.Logger) ([]records.Comment, error) {
	var rows []records.Comment
	found := 0

	for _, label := range g.Labels {
		part, err := LoadRaw(dir, label)
		if errors.Is(err, ErrMissingInput) {
			log.WarnWithFields("Raw file not found, skipping", map[string]interface{}{
				"group": g.Name,
				"label": label,
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		found++
		rows = append(rows, part...)
	}

	if found == 0 {
		return nil, fmt.Errorf("%w: group %s", ErrMissingInput, g.Name)
	}
	if found < len(g.Labels) {
		log.WarnWithFields("Only part of the group is available", map[string]interface{}{
			"group":     g.Name,
			"available": found,
			"expected":  len(g.Labels),
		})
	}
	return records.Dedup(rows), nil
}

// WriteUsers writes user statistics atomically
func WriteUsers(path string, stats []UserStats) error {
	return storage.WriteFileAtomic(path, func(w io.Writer) error {
		return writeUsersCSV(w, stats)
	})
}

func writeUsersCSV(w io.Writer, stats []UserStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(UsersHeader); err != nil {
		return err
	}
	for _, s := range stats {
		avg := ""
		if s.AvgScore != nil {
			avg = formatFloat(*s.AvgScore)
		}
		if err := cw.Write([]string{
			s.Author,
			strconv.Itoa(s.CommentCount),
			avg,
			strconv.Itoa(s.TotalScore),
			formatFloat(s.FirstComment),
			formatFloat(s.LastComment),
			s.Game,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistogram writes histogram rows atomically
func WriteHistogram(path string, rows []HistogramRow) error {
	return storage.WriteFileAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(HistogramHeader); err != nil {
			return err
		}
		for _, r := range rows {
			if err := cw.Write([]string{
				strconv.Itoa(r.X),
				strconv.Itoa(r.ActualCount),
				formatFloat(r.Proportion),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
