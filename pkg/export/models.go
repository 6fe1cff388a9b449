package export

import (
	"time"

	"threadscraper/pkg/aggregate"
	"threadscraper/pkg/records"
)

// CommentRow is one comment of one thread
type CommentRow struct {
	ID         uint    `gorm:"primaryKey"`
	Thread     string  `gorm:"not null;uniqueIndex:idx_thread_comment"`
	CommentID  string  `gorm:"not null;uniqueIndex:idx_thread_comment"`
	Author     string  `gorm:"index"`
	Body       string
	Score      *int
	CreatedUTC float64 `gorm:"index"`
	Depth      int
	ParentID   string
	ImportedAt time.Time
}

// TableName pins the table name
func (CommentRow) TableName() string { return "comments" }

// UserStatRow is one author's statistics within a group
type UserStatRow struct {
	ID           uint   `gorm:"primaryKey"`
	GroupName    string `gorm:"not null;index"`
	Game         string
	Author       string `gorm:"not null;index"`
	CommentCount int
	AvgScore     *float64
	TotalScore   int
	FirstComment float64
	LastComment  float64
}

// TableName pins the table name
func (UserStatRow) TableName() string { return "user_stats" }

func commentRow(thread string, c records.Comment, now time.Time) CommentRow {
	return CommentRow{
		Thread:     thread,
		CommentID:  c.ID,
		Author:     c.Author,
		Body:       c.Body,
		Score:      c.Score,
		CreatedUTC: c.CreatedUTC,
		Depth:      c.Depth,
		ParentID:   c.ParentID,
		ImportedAt: now,
	}
}

func userStatRow(group string, s aggregate.UserStats) UserStatRow {
	return UserStatRow{
		GroupName:    group,
		Game:         s.Game,
		Author:       s.Author,
		CommentCount: s.CommentCount,
		AvgScore:     s.AvgScore,
		TotalScore:   s.TotalScore,
		FirstComment: s.FirstComment,
		LastComment:  s.LastComment,
	}
}
