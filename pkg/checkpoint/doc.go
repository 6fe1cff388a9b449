// Package checkpoint saves and restores the in-progress record set of a thread.
//
// A checkpoint is a full snapshot in the same CSV layout as the final output,
// named checkpoint_<label>.csv and written atomically. Loading it rebuilds the
// record list; the caller rebuilds the seen set from it. The file is removed
// once the final output has been written, so its presence means a run for
// that label did not finish.
package checkpoint
