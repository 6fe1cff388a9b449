package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"threadscraper/pkg/reddit"
	"threadscraper/pkg/storage"
)

// ThreadMetadata describes one finished fetch of a thread
type ThreadMetadata struct {
	// Identity
	RunID    string `json:"run_id"`
	Label    string `json:"label"`
	PostID   string `json:"post_id"`
	Fullname string `json:"fullname"`

	// Thread properties as reported by the API
	Title         string    `json:"title,omitempty"`
	Subreddit     string    `json:"subreddit,omitempty"`
	Author        string    `json:"author,omitempty"`
	Permalink     string    `json:"permalink,omitempty"`
	NumComments   int       `json:"num_comments"`
	PostCreatedAt time.Time `json:"post_created_at,omitempty"`

	// Fetch outcome
	Rows            int  `json:"rows"`
	Chunks          int  `json:"chunks"`
	FailedChunks    int  `json:"failed_chunks"`
	Resumed         bool `json:"resumed"`
	ResumedComments int  `json:"resumed_comments,omitempty"`

	// Timestamps
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// FromLink fills the thread properties from the root listing's post
func FromLink(label, runID string, link *reddit.LinkData) *ThreadMetadata {
	meta := &ThreadMetadata{
		RunID: runID,
		Label: label,
	}
	if link == nil {
		return meta
	}

	meta.PostID = link.ID
	meta.Fullname = link.Name
	meta.Title = link.Title
	meta.Subreddit = link.Subreddit
	meta.Author = link.Author
	meta.Permalink = link.Permalink
	meta.NumComments = link.NumComments
	if link.CreatedUTC > 0 {
		sec := int64(link.CreatedUTC)
		meta.PostCreatedAt = time.Unix(sec, 0).UTC()
	}
	return meta
}

// Path returns the sidecar path for label under dir
func Path(dir, label string) string {
	return filepath.Join(dir, storage.MetaFileName(label))
}

// Save writes the metadata to meta_<label>.json in dir
func (m *ThreadMetadata) Save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return storage.WriteFileAtomic(Path(dir, m.Label), func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	})
}

// Load reads the metadata sidecar for label
func Load(dir, label string) (*ThreadMetadata, error) {
	data, err := os.ReadFile(Path(dir, label))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta ThreadMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &meta, nil
}

// Exists checks if a sidecar exists for label
func Exists(dir, label string) bool {
	_, err := os.Stat(Path(dir, label))
	return err == nil
}

// Coverage is the fraction of the reported comment count that was retrieved.
// Removed comments usually keep it below 1.
func (m *ThreadMetadata) Coverage() float64 {
	if m.NumComments <= 0 {
		return 0
	}
	return float64(m.Rows) / float64(m.NumComments)
}

// Duration is the wall time of the fetch
func (m *ThreadMetadata) Duration() time.Duration {
	if m.StartedAt.IsZero() || m.FinishedAt.IsZero() {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt)
}
