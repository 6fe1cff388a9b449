// Package storage owns on-disk layout: file naming by thread label or
// aggregation group, reading and writing comment CSV files, and the atomic
// temp-file-then-rename write used for every output the tool produces.
package storage
