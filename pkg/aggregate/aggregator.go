package aggregate

import (
	"errors"
	"fmt"
	"path/filepath"

	"threadscraper/pkg/config"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/records"
	"threadscraper/pkg/storage"
)

// Group is a set of thread labels aggregated together
type Group struct {
	Name   string
	Game   string
	Labels []string
}

// Groups folds targets into groups in order of first appearance
func Groups(targets []config.ThreadTarget) []Group {
	var groups []Group
	index := make(map[string]int)

	for _, t := range targets {
		name := t.GroupName()
		i, ok := index[name]
		if !ok {
			index[name] = len(groups)
			groups = append(groups, Group{Name: name, Game: t.GameName()})
			i = len(groups) - 1
		}
		groups[i].Labels = append(groups[i].Labels, t.Label)
	}
	return groups
}

// GroupResult holds everything derived for one group
type GroupResult struct {
	Group     Group
	Rows      int
	Users     []UserStats
	Histogram []HistogramRow
	Summary   Summary
}

// Report is the outcome of an aggregation run
type Report struct {
	Groups  []GroupResult
	Skipped []string
	Files   []string
}

// Aggregator turns raw files into user-level datasets
type Aggregator struct {
	config *config.Config
	logger logger.Logger
}

// New creates an aggregator reading from cfg.Output.Directory and writing to
// cfg.Aggregate.Directory
func New(cfg *config.Config, log logger.Logger) *Aggregator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Aggregator{config: cfg, logger: log}
}

// Run aggregates every group of targets. Groups without input are skipped;
// the combined file is written when at least one group produced data.
func (a *Aggregator) Run(targets []config.ThreadTarget) (*Report, error) {
	rawDir := a.config.Output.Directory
	outDir := a.config.Aggregate.Directory
	report := &Report{}
	var combined []UserStats

	logger.LogComponentStart(a.logger, "aggregator", map[string]interface{}{
		"input":  rawDir,
		"output": outDir,
	})

	for _, g := range Groups(targets) {
		log := a.logger.WithField("group", g.Name)

		rows, err := LoadGroup(rawDir, g, log)
		if errors.Is(err, ErrMissingInput) {
			log.WithError(err).Warn("No input for group, skipping")
			report.Skipped = append(report.Skipped, g.Name)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("load group %s: %w", g.Name, err)
		}

		res := a.aggregateGroup(g, rows)

		usersPath := filepath.Join(outDir, storage.UsersFileName(g.Name))
		if err := WriteUsers(usersPath, res.Users); err != nil {
			return report, fmt.Errorf("write users for %s: %w", g.Name, err)
		}
		histPath := filepath.Join(outDir, storage.HistogramFileName(g.Name))
		if err := WriteHistogram(histPath, res.Histogram); err != nil {
			return report, fmt.Errorf("write histogram for %s: %w", g.Name, err)
		}
		report.Files = append(report.Files, usersPath, histPath)

		log.InfoWithFields("Group aggregated", map[string]interface{}{
			"rows":         res.Rows,
			"unique_users": res.Summary.UniqueUsers,
			"max_comments": res.Summary.MaxComments,
		})
		combined = append(combined, res.Users...)
		report.Groups = append(report.Groups, res)
	}

	if len(report.Groups) > 0 {
		path := filepath.Join(outDir, storage.CombinedUsersFile)
		if err := WriteUsers(path, combined); err != nil {
			return report, fmt.Errorf("write combined users: %w", err)
		}
		report.Files = append(report.Files, path)
	}

	logger.LogComponentStop(a.logger, "aggregator", "completed")
	return report, nil
}

func (a *Aggregator) aggregateGroup(g Group, rows []records.Comment) GroupResult {
	users := UserCounts(rows, g.Game, a.deletedAuthor())
	return GroupResult{
		Group:     g,
		Rows:      len(rows),
		Users:     users,
		Histogram: Histogram(users),
		Summary:   Summarize(g.Name, g.Game, users, 10),
	}
}

// TopShare loads every raw file of the labels and computes the concentration
// share over the concatenated rows, duplicates included
func (a *Aggregator) TopShare(labels []string, fraction float64) (Share, error) {
	var rows []records.Comment
	for _, label := range labels {
		part, err := LoadRaw(a.config.Output.Directory, label)
		if err != nil {
			return Share{}, err
		}
		rows = append(rows, part...)
	}
	if fraction <= 0 {
		fraction = a.config.Aggregate.TopFraction
	}
	return TopShare(rows, fraction), nil
}

func (a *Aggregator) deletedAuthor() string {
	if a.config.Aggregate.DeletedAuthor != "" {
		return a.config.Aggregate.DeletedAuthor
	}
	return config.DefaultDeletedAuthor
}
