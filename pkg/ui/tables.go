package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"threadscraper/pkg/aggregate"
	"threadscraper/pkg/auth"
	"threadscraper/pkg/export"
	"threadscraper/pkg/scraper"
)

func (c *Console) table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...)
	if c.color {
		t = t.BorderStyle(mutedStyle).StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	} else {
		t = t.StyleFunc(func(row, col int) lipgloss.Style { return cellStyle })
	}
	return t.String()
}

func (c *Console) outcome(o string) string {
	switch o {
	case "done":
		return c.render(successStyle, o)
	case "failed":
		return c.render(errorStyle, o)
	default:
		return c.render(mutedStyle, o)
	}
}

// RunReports renders one row per processed target
func (c *Console) RunReports(reports []scraper.RunReport) string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		row := []string{r.Target.Label, r.Target.ID, c.outcome(r.Outcome()), "", "", "", "", ""}
		if res := r.Result; res != nil {
			row[3] = strconv.Itoa(res.Comments)
			row[4] = strconv.Itoa(res.Chunks)
			row[5] = strconv.Itoa(res.FailedChunks)
			if res.Metadata != nil && res.Metadata.NumComments > 0 {
				row[6] = fmt.Sprintf("%.1f%%", res.Metadata.Coverage()*100)
			}
			row[7] = FormatDuration(res.Duration)
		} else if r.Err != nil {
			row[7] = r.Err.Error()
		}
		rows = append(rows, row)
	}
	return c.table([]string{"Label", "Thread", "Outcome", "Comments", "Chunks", "Failed", "Coverage", "Time"}, rows)
}

// RunTotals renders the done/failed/skipped line under a run table
func (c *Console) RunTotals(reports []scraper.RunReport) string {
	done, failed, skipped := scraper.Summarize(reports)
	return fmt.Sprintf("%s done, %s failed, %s skipped",
		c.render(successStyle, strconv.Itoa(done)),
		c.render(errorStyle, strconv.Itoa(failed)),
		c.render(mutedStyle, strconv.Itoa(skipped)))
}

// Statuses renders what a run would do with each target
func (c *Console) Statuses(statuses []scraper.TargetStatus, now time.Time) string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		action := "fetch"
		checkpoint := "-"
		switch {
		case s.HasRaw:
			action = "skip"
		case s.Checkpoint != nil:
			action = "resume"
		}
		if s.Checkpoint != nil {
			checkpoint = fmt.Sprintf("%d rows, %s ago", s.Checkpoint.Comments, FormatDuration(now.Sub(s.Checkpoint.UpdatedAt)))
		}
		rows = append(rows, []string{s.Target.Label, s.Target.ID, s.Target.GroupName(), yesNo(s.HasRaw), checkpoint, action})
	}
	return c.table([]string{"Label", "Thread", "Group", "Raw", "Checkpoint", "Action"}, rows)
}

// GroupSummaries renders the per-group aggregation figures
func (c *Console) GroupSummaries(report *aggregate.Report) string {
	rows := make([][]string, 0, len(report.Groups))
	for _, g := range report.Groups {
		s := g.Summary
		top := ""
		if len(s.Top) > 0 {
			top = fmt.Sprintf("%s (%d)", s.Top[0].Author, s.Top[0].CommentCount)
		}
		rows = append(rows, []string{
			s.Group,
			s.Game,
			strconv.Itoa(s.UniqueUsers),
			strconv.Itoa(s.TotalComments),
			fmt.Sprintf("%.2f", s.MeanComments),
			fmt.Sprintf("%.1f%%", s.SingleCommentPct),
			strconv.Itoa(s.MaxComments),
			top,
		})
	}
	return c.table([]string{"Group", "Game", "Users", "Comments", "Mean", "Single", "Max", "Top author"}, rows)
}

// TopUsers renders the leading authors of one group
func (c *Console) TopUsers(stats []aggregate.UserStats) string {
	rows := make([][]string, 0, len(stats))
	for i, s := range stats {
		avg := "-"
		if s.AvgScore != nil {
			avg = fmt.Sprintf("%.2f", *s.AvgScore)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), s.Author, strconv.Itoa(s.CommentCount), avg, strconv.Itoa(s.TotalScore)})
	}
	return c.table([]string{"#", "Author", "Comments", "Avg score", "Total score"}, rows)
}

// Share renders a top-share computation
func (c *Console) Share(s aggregate.Share) string {
	rows := [][]string{
		{"Top fraction", fmt.Sprintf("%.4g%%", s.Fraction*100)},
		{"Authors", strconv.Itoa(s.Users)},
		{"Top authors", strconv.Itoa(s.TopN)},
		{"Their comments", strconv.Itoa(s.TopComments)},
		{"All comments", strconv.Itoa(s.TotalComments)},
		{"Share", c.render(highlightStyle, fmt.Sprintf("%.2f%%", s.Share*100))},
	}
	return c.table([]string{"Metric", "Value"}, rows)
}

// ExportSummary renders what an export stored
func (c *Console) ExportSummary(path string, s *export.Summary) string {
	rows := [][]string{
		{"Database", path},
		{"Threads", strconv.Itoa(s.Threads)},
		{"Comments", strconv.Itoa(s.Comments)},
		{"Groups", strconv.Itoa(s.Groups)},
		{"Users", strconv.Itoa(s.Users)},
	}
	if len(s.Missing) > 0 {
		rows = append(rows, []string{"Missing", c.render(warningStyle, fmt.Sprint(s.Missing))})
	}
	return c.table([]string{"Export", ""}, rows)
}

// Accounts renders stored credentials with masked tokens
func (c *Console) Accounts(accounts []*auth.Account, now time.Time) string {
	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		masked := auth.SanitizeAccount(a)
		expires := "-"
		if !a.ExpiresAt.IsZero() {
			expires = a.ExpiresAt.Local().Format(time.DateTime)
			if a.Expired(now) {
				expires = c.render(errorStyle, expires+" (expired)")
			}
		}
		rows = append(rows, []string{a.Name, masked.AccessToken, a.UserAgent, expires})
	}
	return c.table([]string{"Account", "Token", "User agent", "Expires"}, rows)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Histogram renders the first limit rows of a comment count histogram;
// limit 0 renders nothing
func (c *Console) Histogram(rows []aggregate.HistogramRow, limit int) string {
	if limit <= 0 {
		return ""
	}
	if limit > len(rows) {
		limit = len(rows)
	}
	out := make([][]string, 0, limit)
	for _, r := range rows[:limit] {
		out = append(out, []string{strconv.Itoa(r.X), strconv.Itoa(r.ActualCount), fmt.Sprintf("%.4f", r.Proportion)})
	}
	return c.table([]string{"Comments", "Users", "Proportion"}, out)
}
