// Package ui renders console output for the CLI: status lines, a live
// progress line fed by fetch counters, and lipgloss tables for run, status,
// aggregation, export and account summaries.
package ui
