package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"threadscraper/pkg/logger"
	"threadscraper/pkg/records"
)

// File names derived from thread labels and aggregation groups
const (
	CombinedUsersFile = "users_all_games.csv"
)

// RawFileName returns the final output name for a thread label
func RawFileName(label string) string { return "raw_" + label + ".csv" }

// CheckpointFileName returns the checkpoint name for a thread label
func CheckpointFileName(label string) string { return "checkpoint_" + label + ".csv" }

// MetaFileName returns the metadata sidecar name for a thread label
func MetaFileName(label string) string { return "meta_" + label + ".json" }

// UsersFileName returns the per-group user statistics name
func UsersFileName(group string) string { return "users_" + group + ".csv" }

// HistogramFileName returns the per-group histogram name
func HistogramFileName(group string) string { return "histogram_" + group + ".csv" }

// Manager owns the raw output directory
type Manager struct {
	outputDir string
	logger    logger.Logger
}

// NewManager creates the output directory if needed
func NewManager(outputDir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{outputDir: outputDir, logger: log}, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// RawPath returns the raw output path for label
func (m *Manager) RawPath(label string) string {
	return filepath.Join(m.outputDir, RawFileName(label))
}

// HasRaw reports whether a finished raw file exists for label
func (m *Manager) HasRaw(label string) bool {
	_, err := os.Stat(m.RawPath(label))
	return err == nil
}

// WriteRaw atomically writes the final record set for label
func (m *Manager) WriteRaw(label string, comments []records.Comment) error {
	path := m.RawPath(label)
	if err := WriteCommentsFile(path, comments); err != nil {
		return err
	}
	m.logger.InfoWithFields("Raw output written", map[string]interface{}{
		"label": label,
		"path":  path,
		"rows":  len(comments),
	})
	return nil
}

// ReadRaw loads the raw file for label; a missing file wraps os.ErrNotExist
func (m *Manager) ReadRaw(label string) ([]records.Comment, error) {
	return ReadCommentsFile(m.RawPath(label))
}

// WriteCommentsFile atomically writes comments as CSV to path
func WriteCommentsFile(path string, comments []records.Comment) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		return records.WriteCSV(w, comments)
	})
}

// ReadCommentsFile parses a comment CSV file
func ReadCommentsFile(path string) ([]records.Comment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	comments, err := records.ReadCSV(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return comments, nil
}

// WriteFileAtomic writes through a temporary file in the target directory,
// syncs it and renames it over path, so readers never see a partial file.
func WriteFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tempPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if werr := write(bw); werr != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", werr)
	}
	if ferr := bw.Flush(); ferr != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush data: %w", ferr)
	}
	if serr := tmp.Sync(); serr != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync file: %w", serr)
	}
	if cerr := tmp.Close(); cerr != nil {
		return fmt.Errorf("failed to close file: %w", cerr)
	}
	if cerr := os.Chmod(tempPath, 0644); cerr != nil {
		return fmt.Errorf("failed to set permissions: %w", cerr)
	}
	if rerr := os.Rename(tempPath, path); rerr != nil {
		return fmt.Errorf("failed to rename temporary file: %w", rerr)
	}
	return nil
}

// IsNotExist reports whether err stems from a missing file
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
