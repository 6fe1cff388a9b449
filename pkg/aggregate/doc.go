// Package aggregate derives user-level datasets from raw thread files.
//
// Threads sharing a group (for example the two halves of one game) are merged
// and de-duplicated by comment id. For each group it writes users_<group>.csv
// and histogram_<group>.csv, and all groups together go to
// users_all_games.csv. TopShare measures how concentrated commenting is among
// the most active authors.
package aggregate
