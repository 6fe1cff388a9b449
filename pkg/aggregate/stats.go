package aggregate

import (
	"math"
	"sort"

	"threadscraper/pkg/records"
)

// UserStats is one contributor's activity within a group
type UserStats struct {
	Author       string
	CommentCount int
	// AvgScore is nil when none of the author's comments carried a score
	AvgScore     *float64
	TotalScore   int
	FirstComment float64
	LastComment  float64
	Game         string
}

// HistogramRow counts how many users wrote exactly X comments
type HistogramRow struct {
	X           int
	ActualCount int
	Proportion  float64
}

// Summary describes the comment distribution of one group
type Summary struct {
	Group            string
	Game             string
	UniqueUsers      int
	TotalComments    int
	MeanComments     float64
	SingleCommentPct float64
	MaxComments      int
	Top              []UserStats
}

// Share is the concentration of comments among the most active authors
type Share struct {
	Fraction      float64
	Users         int
	TopN          int
	TopComments   int
	TotalComments int
	Share         float64
	TopAuthors    []string
}

// UserCounts groups rows by author, dropping empty and deleted authors.
// Scores are averaged and summed over the comments that have one. The result
// is ordered by comment count descending, then author ascending.
func UserCounts(rows []records.Comment, game, deletedAuthor string) []UserStats {
	type acc struct {
		stats  UserStats
		scored int
	}
	byAuthor := make(map[string]*acc)

	for _, r := range rows {
		if r.Author == "" || r.Author == deletedAuthor {
			continue
		}
		a, ok := byAuthor[r.Author]
		if !ok {
			a = &acc{stats: UserStats{
				Author:       r.Author,
				FirstComment: r.CreatedUTC,
				LastComment:  r.CreatedUTC,
				Game:         game,
			}}
			byAuthor[r.Author] = a
		}
		a.stats.CommentCount++
		a.stats.FirstComment = math.Min(a.stats.FirstComment, r.CreatedUTC)
		a.stats.LastComment = math.Max(a.stats.LastComment, r.CreatedUTC)
		if r.Score != nil {
			a.stats.TotalScore += *r.Score
			a.scored++
		}
	}

	out := make([]UserStats, 0, len(byAuthor))
	for _, a := range byAuthor {
		if a.scored > 0 {
			avg := float64(a.stats.TotalScore) / float64(a.scored)
			a.stats.AvgScore = &avg
		}
		out = append(out, a.stats)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CommentCount != out[j].CommentCount {
			return out[i].CommentCount > out[j].CommentCount
		}
		return out[i].Author < out[j].Author
	})
	return out
}

// Histogram tallies users by comment count, x ascending
func Histogram(stats []UserStats) []HistogramRow {
	counts := make(map[int]int)
	for _, s := range stats {
		counts[s.CommentCount]++
	}

	rows := make([]HistogramRow, 0, len(counts))
	for x, n := range counts {
		rows = append(rows, HistogramRow{
			X:           x,
			ActualCount: n,
			Proportion:  float64(n) / float64(len(stats)),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].X < rows[j].X })
	return rows
}

// Summarize computes the distribution summary and keeps the top preview users
func Summarize(group, game string, stats []UserStats, preview int) Summary {
	s := Summary{Group: group, Game: game, UniqueUsers: len(stats)}
	if len(stats) == 0 {
		return s
	}

	single := 0
	for _, u := range stats {
		s.TotalComments += u.CommentCount
		if u.CommentCount == 1 {
			single++
		}
		if u.CommentCount > s.MaxComments {
			s.MaxComments = u.CommentCount
		}
	}
	s.MeanComments = float64(s.TotalComments) / float64(len(stats))
	s.SingleCommentPct = float64(single) / float64(len(stats)) * 100

	if preview > len(stats) {
		preview = len(stats)
	}
	s.Top = append([]UserStats(nil), stats[:preview]...)
	return s
}

// TopShare returns the share of all rows written by the top
// ceil(fraction * distinct authors) authors. Authors are counted as they
// appear, the deleted sentinel included; rows without an author count only
// towards the total.
func TopShare(rows []records.Comment, fraction float64) Share {
	counts := make(map[string]int)
	for _, r := range rows {
		if r.Author != "" {
			counts[r.Author]++
		}
	}

	type authorCount struct {
		author string
		n      int
	}
	ranked := make([]authorCount, 0, len(counts))
	for a, n := range counts {
		ranked = append(ranked, authorCount{a, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].author < ranked[j].author
	})

	share := Share{
		Fraction:      fraction,
		Users:         len(ranked),
		TopN:          int(math.Ceil(fraction * float64(len(ranked)))),
		TotalComments: len(rows),
	}
	if share.TopN > len(ranked) {
		share.TopN = len(ranked)
	}
	for _, ac := range ranked[:share.TopN] {
		share.TopComments += ac.n
		share.TopAuthors = append(share.TopAuthors, ac.author)
	}
	if share.TotalComments > 0 {
		share.Share = float64(share.TopComments) / float64(share.TotalComments)
	}
	return share
}
