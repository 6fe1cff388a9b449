package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"threadscraper/pkg/logger"
	"threadscraper/pkg/records"
	"threadscraper/pkg/storage"
)

// Manager handles the checkpoint file of one thread label
type Manager struct {
	label          string
	checkpointPath string
	logger         logger.Logger
}

// Info summarises an existing checkpoint
type Info struct {
	Path      string
	Comments  int
	UpdatedAt time.Time
	Age       time.Duration
}

// NewManager creates a checkpoint manager for label under dir
func NewManager(dir, label string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Manager{
		label:          label,
		checkpointPath: filepath.Join(dir, storage.CheckpointFileName(label)),
		logger:         log.WithField("label", label),
	}, nil
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Load returns the checkpointed comments, or nil when no checkpoint exists
func (m *Manager) Load() ([]records.Comment, error) {
	comments, err := storage.ReadCommentsFile(m.checkpointPath)
	if err != nil {
		if storage.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"path":     m.checkpointPath,
		"comments": len(comments),
	})
	return comments, nil
}

// Save writes a full snapshot of comments atomically
func (m *Manager) Save(comments []records.Comment) error {
	if err := storage.WriteCommentsFile(m.checkpointPath, comments); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint saved", map[string]interface{}{
		"comments": len(comments),
	})
	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Debug("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// GetCheckpointInfo returns a summary of the checkpoint, or nil if none exists
func (m *Manager) GetCheckpointInfo() (*Info, error) {
	stat, err := os.Stat(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	comments, err := storage.ReadCommentsFile(m.checkpointPath)
	if err != nil {
		return nil, err
	}

	return &Info{
		Path:      m.checkpointPath,
		Comments:  len(comments),
		UpdatedAt: stat.ModTime(),
		Age:       time.Since(stat.ModTime()),
	}, nil
}
