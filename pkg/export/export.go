// Package export loads raw comments and user statistics into SQLite for
// ad-hoc SQL analysis.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"threadscraper/pkg/aggregate"
	"threadscraper/pkg/config"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/records"
)

const batchSize = 500

// Exporter writes into one SQLite database
type Exporter struct {
	db     *gorm.DB
	logger logger.Logger
}

// Open opens or creates the database at path and migrates the schema.
// ":memory:" opens a private in-memory database.
func Open(path string, log logger.Logger) (*Exporter, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	inMemory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// each pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&CommentRow{}, &UserStatRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.DebugWithFields("Database opened", map[string]interface{}{"path": path})
	return &Exporter{db: db, logger: log}, nil
}

// DB exposes the underlying handle for queries
func (e *Exporter) DB() *gorm.DB {
	return e.db
}

// Close releases the database
func (e *Exporter) Close() error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertComments inserts the thread's comments, updating rows already
// present for the same (thread, comment_id)
func (e *Exporter) UpsertComments(ctx context.Context, thread string, comments []records.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]CommentRow, len(comments))
	for i, c := range comments {
		rows[i] = commentRow(thread, c, now)
	}

	return e.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "thread"}, {Name: "comment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"author",
				"body",
				"score",
				"created_utc",
				"depth",
				"parent_id",
				"imported_at",
			}),
		}).
		CreateInBatches(rows, batchSize).Error
}

// ReplaceUserStats swaps the statistics of group for stats in one transaction
func (e *Exporter) ReplaceUserStats(ctx context.Context, group string, stats []aggregate.UserStats) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_name = ?", group).Delete(&UserStatRow{}).Error; err != nil {
			return err
		}
		if len(stats) == 0 {
			return nil
		}
		rows := make([]UserStatRow, len(stats))
		for i, s := range stats {
			rows[i] = userStatRow(group, s)
		}
		return tx.CreateInBatches(rows, batchSize).Error
	})
}

// CountComments returns the number of stored comments of thread
func (e *Exporter) CountComments(ctx context.Context, thread string) (int64, error) {
	var n int64
	err := e.db.WithContext(ctx).Model(&CommentRow{}).Where("thread = ?", thread).Count(&n).Error
	return n, err
}

// TopAuthors returns the most active authors of group
func (e *Exporter) TopAuthors(ctx context.Context, group string, limit int) ([]UserStatRow, error) {
	var out []UserStatRow
	err := e.db.WithContext(ctx).
		Where("group_name = ?", group).
		Order("comment_count DESC").
		Order("author ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Summary counts what an export run stored
type Summary struct {
	Threads  int
	Comments int
	Groups   int
	Users    int
	Missing  []string
}

// Run exports the raw file of every target and the user statistics of every
// group. Targets without raw output are reported as missing.
func (e *Exporter) Run(ctx context.Context, cfg *config.Config, targets []config.ThreadTarget) (*Summary, error) {
	summary := &Summary{}

	for _, t := range targets {
		rows, err := aggregate.LoadRaw(cfg.Output.Directory, t.Label)
		if errors.Is(err, aggregate.ErrMissingInput) {
			summary.Missing = append(summary.Missing, t.Label)
			continue
		}
		if err != nil {
			return summary, err
		}
		if err := e.UpsertComments(ctx, t.Label, rows); err != nil {
			return summary, fmt.Errorf("export %s: %w", t.Label, err)
		}
		summary.Threads++
		summary.Comments += len(rows)
	}

	deleted := cfg.Aggregate.DeletedAuthor
	if deleted == "" {
		deleted = config.DefaultDeletedAuthor
	}
	for _, g := range aggregate.Groups(targets) {
		rows, err := aggregate.LoadGroup(cfg.Output.Directory, g, e.logger)
		if errors.Is(err, aggregate.ErrMissingInput) {
			continue
		}
		if err != nil {
			return summary, err
		}
		stats := aggregate.UserCounts(rows, g.Game, deleted)
		if err := e.ReplaceUserStats(ctx, g.Name, stats); err != nil {
			return summary, fmt.Errorf("export user stats %s: %w", g.Name, err)
		}
		summary.Groups++
		summary.Users += len(stats)
	}

	e.logger.InfoWithFields("Export complete", map[string]interface{}{
		"threads":  summary.Threads,
		"comments": summary.Comments,
		"groups":   summary.Groups,
		"users":    summary.Users,
	})
	return summary, nil
}
