package scraper

import (
	"context"

	"threadscraper/pkg/reddit"
)

// ThreadClient defines the API operations the fetcher needs
type ThreadClient interface {
	FetchThread(ctx context.Context, postID string, limit, depth int) (reddit.ThreadResponse, error)
	FetchMoreChildren(ctx context.Context, linkFullname string, ids []string) ([]reddit.Thing, error)
}

// Recorder receives fetch progress counters, typically metrics.Collector
type Recorder interface {
	ChunkProcessed(label string)
	ChunkFailed(label string)
	CommentsRecorded(label string, n int)
	CheckpointSaved()
	SetQueueDepth(n int)
	ThreadFinished(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ChunkProcessed(string)        {}
func (nopRecorder) ChunkFailed(string)           {}
func (nopRecorder) CommentsRecorded(string, int) {}
func (nopRecorder) CheckpointSaved()             {}
func (nopRecorder) SetQueueDepth(int)            {}
func (nopRecorder) ThreadFinished(string)        {}

// Recorders fans every counter out to each recorder in order
type Recorders []Recorder

func (rs Recorders) ChunkProcessed(label string) {
	for _, r := range rs {
		r.ChunkProcessed(label)
	}
}

func (rs Recorders) ChunkFailed(label string) {
	for _, r := range rs {
		r.ChunkFailed(label)
	}
}

func (rs Recorders) CommentsRecorded(label string, n int) {
	for _, r := range rs {
		r.CommentsRecorded(label, n)
	}
}

func (rs Recorders) CheckpointSaved() {
	for _, r := range rs {
		r.CheckpointSaved()
	}
}

func (rs Recorders) SetQueueDepth(n int) {
	for _, r := range rs {
		r.SetQueueDepth(n)
	}
}

func (rs Recorders) ThreadFinished(outcome string) {
	for _, r := range rs {
		r.ThreadFinished(outcome)
	}
}
