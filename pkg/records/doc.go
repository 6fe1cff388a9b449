// Package records defines the flat comment record, its CSV encoding and the
// de-duplicating accumulator used while a thread is being fetched.
//
// Raw output files and checkpoints share one layout:
//
//	comment_id,author,body,score,created_utc,depth,parent_id
//
// An absent score is an empty cell. Ids are always handled as strings.
package records
