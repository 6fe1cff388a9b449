package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"threadscraper/pkg/checkpoint"
	"threadscraper/pkg/config"
	errs "threadscraper/pkg/errors"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/metadata"
	"threadscraper/pkg/ratelimit"
	"threadscraper/pkg/records"
	"threadscraper/pkg/reddit"
	"threadscraper/pkg/storage"
	"threadscraper/pkg/tree"
)

var (
	// ErrRootFetchFailed means the thread's root listing could not be retrieved
	ErrRootFetchFailed = errors.New("root listing fetch failed")
	// ErrNoFullname means the root listing did not identify the thread
	ErrNoFullname = errors.New("root listing has no thread fullname")
)

// Cadences used when the fetch config leaves them unset
const (
	DefaultCheckpointEvery = 50
	DefaultProgressEvery   = 10
)

// Options control a single fetch
type Options struct {
	// ForceRestart discards an existing checkpoint before starting
	ForceRestart bool
	// RunID tags the metadata sidecar; generated when empty
	RunID string
}

// Result summarises a completed fetch
type Result struct {
	Label           string
	PostID          string
	Fullname        string
	Comments        int
	Chunks          int
	FailedChunks    int
	Checkpoints     int
	Resumed         bool
	ResumedComments int
	RawPath         string
	Duration        time.Duration
	Metadata        *metadata.ThreadMetadata
}

// Fetcher retrieves one thread's full comment tree and writes it as a flat
// record file. It is not safe for concurrent use.
type Fetcher struct {
	client   ThreadClient
	config   *config.Config
	storage  *storage.Manager
	sleeper  ratelimit.Sleeper
	recorder Recorder
	logger   logger.Logger
	now      func() time.Time

	checkpointEvery int
	progressEvery   int

	state State
}

// FetcherOption customises a Fetcher
type FetcherOption func(*Fetcher)

// WithSleeper replaces the sleeper used for pacing and the pre-root delay
func WithSleeper(s ratelimit.Sleeper) FetcherOption {
	return func(f *Fetcher) {
		if s != nil {
			f.sleeper = s
		}
	}
}

// WithRecorder registers a progress recorder
func WithRecorder(r Recorder) FetcherOption {
	return func(f *Fetcher) {
		if r != nil {
			f.recorder = r
		}
	}
}

// NewFetcher creates a fetcher writing into cfg.Output.Directory
func NewFetcher(client ThreadClient, cfg *config.Config, log logger.Logger, opts ...FetcherOption) (*Fetcher, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	storageManager, err := storage.NewManager(cfg.Output.Directory, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	f := &Fetcher{
		client:   client,
		config:   cfg,
		storage:  storageManager,
		sleeper:  ratelimit.RealSleeper{},
		recorder: nopRecorder{},
		logger:   log,
		now:      time.Now,
		state:    StateInit,

		checkpointEvery: cfg.Fetch.CheckpointEvery,
		progressEvery:   cfg.Fetch.ProgressEvery,
	}
	if f.checkpointEvery <= 0 {
		f.checkpointEvery = DefaultCheckpointEvery
	}
	if f.progressEvery <= 0 {
		f.progressEvery = DefaultProgressEvery
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// State returns the stage the last Fetch reached
func (f *Fetcher) State() State {
	return f.state
}

// Storage returns the raw output manager
func (f *Fetcher) Storage() *storage.Manager {
	return f.storage
}

func (f *Fetcher) transition(log logger.Logger, to State) {
	from := f.state
	f.state = to
	log.DebugWithFields("State transition", map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
}

// Fetch runs the state machine for target. On success the raw file and the
// metadata sidecar are written and the checkpoint is removed. On failure no
// output is written and any checkpoint is left for a later resume.
func (f *Fetcher) Fetch(ctx context.Context, target config.ThreadTarget, opts Options) (*Result, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	log := f.logger.WithFields(map[string]interface{}{
		"label":   target.Label,
		"post_id": target.ID,
		"run_id":  opts.RunID,
	})
	started := f.now()
	f.state = StateInit

	// INIT
	cpMgr, err := checkpoint.NewManager(f.config.CheckpointDir(), target.Label, log)
	if err != nil {
		f.transition(log, StateFailed)
		return nil, err
	}
	if opts.ForceRestart && cpMgr.Exists() {
		if err := cpMgr.Delete(); err != nil {
			f.transition(log, StateFailed)
			return nil, err
		}
		log.Info("Force restart, discarded existing checkpoint")
	}

	restored, err := cpMgr.Load()
	if err != nil {
		f.transition(log, StateFailed)
		return nil, err
	}
	acc := records.NewAccumulator(restored...)
	resumed := acc.Len() > 0
	if resumed {
		log.InfoWithFields("Resuming from checkpoint", map[string]interface{}{
			"comments": acc.Len(),
		})
	} else {
		log.Info("Starting fresh")
	}

	// FETCHING_ROOT
	f.transition(log, StateFetchingRoot)
	if err := f.sleeper.Sleep(ctx, f.config.Fetch.InitialDelay); err != nil {
		f.transition(log, StateFailed)
		return nil, fmt.Errorf("fetch interrupted: %w", err)
	}

	resp, err := f.client.FetchThread(ctx, target.ID, f.config.Fetch.RootLimit, f.config.Fetch.RootDepth)
	if err != nil {
		f.transition(log, StateFailed)
		log.WithError(err).WithField("error_type", string(errs.TypeOf(err))).Error("Root listing fetch failed")
		return nil, fmt.Errorf("%w: %w", ErrRootFetchFailed, err)
	}

	fullname, err := resp.Fullname()
	if err != nil {
		f.transition(log, StateFailed)
		log.WithError(err).Error("Root listing did not identify the thread")
		return nil, fmt.Errorf("%w: %w", ErrNoFullname, err)
	}
	post, _ := resp.Post()
	meta := metadata.FromLink(target.Label, opts.RunID, post)
	meta.StartedAt = started
	meta.Resumed = resumed
	meta.ResumedComments = len(restored)

	parsed := tree.Parse(resp.Comments(), acc)
	added := acc.Add(parsed.Comments...)
	f.recorder.CommentsRecorded(target.Label, added)

	queue := &batchQueue{}
	queue.Push(parsed.Batches...)
	planned := plannedChunks(parsed.Batches, f.chunkSize())

	log.InfoWithFields("Root listing fetched", map[string]interface{}{
		"fullname":     fullname,
		"num_comments": meta.NumComments,
		"new":          added,
		"batches":      len(parsed.Batches),
	})

	// EXPANDING
	f.transition(log, StateExpanding)
	pacer := ratelimit.NewPacer(f.config.Fetch.PacingDelay, f.sleeper)
	var chunks, failed, checkpoints int

	for queue.Len() > 0 {
		batch, _ := queue.Pop()
		f.recorder.SetQueueDepth(queue.Len())

		for _, chunk := range reddit.Chunk(batch, f.chunkSize()) {
			if chunks > 0 {
				if err := pacer.Pause(ctx); err != nil {
					return nil, f.interrupt(log, cpMgr, acc, err)
				}
			}
			if err := ctx.Err(); err != nil {
				return nil, f.interrupt(log, cpMgr, acc, err)
			}

			things, err := f.client.FetchMoreChildren(ctx, fullname, chunk)
			if err != nil && ctx.Err() != nil {
				return nil, f.interrupt(log, cpMgr, acc, ctx.Err())
			}
			chunks++

			if err != nil {
				failed++
				f.recorder.ChunkFailed(target.Label)
				log.WithError(err).WithFields(map[string]interface{}{
					"chunk":      chunks,
					"ids":        len(chunk),
					"error_type": string(errs.TypeOf(err)),
				}).Warn("Chunk fetch failed, skipping")
			} else {
				res := tree.Parse(things, acc)
				n := acc.Add(res.Comments...)
				f.recorder.ChunkProcessed(target.Label)
				f.recorder.CommentsRecorded(target.Label, n)
				if len(res.Batches) > 0 {
					queue.Push(res.Batches...)
					planned += plannedChunks(res.Batches, f.chunkSize())
					f.recorder.SetQueueDepth(queue.Len())
				}
			}

			if chunks%f.checkpointEvery == 0 {
				if err := cpMgr.Save(acc.Comments()); err != nil {
					log.WithError(err).Warn("Checkpoint save failed")
				} else {
					checkpoints++
					f.recorder.CheckpointSaved()
				}
			}
			if chunks%f.progressEvery == 0 {
				logger.LogFetchProgress(log, target.Label, chunks, planned, acc.Len())
			}
		}
	}

	// DONE
	final := records.Dedup(acc.Comments())
	if err := f.storage.WriteRaw(target.Label, final); err != nil {
		f.transition(log, StateFailed)
		return nil, fmt.Errorf("failed to write raw output: %w", err)
	}

	meta.Rows = len(final)
	meta.Chunks = chunks
	meta.FailedChunks = failed
	meta.FinishedAt = f.now()
	if err := meta.Save(f.storage.GetOutputDir()); err != nil {
		log.WithError(err).Warn("Failed to write thread metadata")
	}

	if err := cpMgr.Delete(); err != nil {
		log.WithError(err).Warn("Failed to remove checkpoint")
	}
	f.transition(log, StateDone)

	result := &Result{
		Label:           target.Label,
		PostID:          target.ID,
		Fullname:        fullname,
		Comments:        len(final),
		Chunks:          chunks,
		FailedChunks:    failed,
		Checkpoints:     checkpoints,
		Resumed:         resumed,
		ResumedComments: len(restored),
		RawPath:         f.storage.RawPath(target.Label),
		Duration:        meta.Duration(),
		Metadata:        meta,
	}

	log.InfoWithFields("Thread complete", map[string]interface{}{
		"comments":      result.Comments,
		"chunks":        chunks,
		"failed_chunks": failed,
		"coverage":      fmt.Sprintf("%.1f%%", meta.Coverage()*100),
		"duration":      result.Duration.String(),
	})
	return result, nil
}

// interrupt snapshots progress so a later run can resume, then reports cause
func (f *Fetcher) interrupt(log logger.Logger, cpMgr *checkpoint.Manager, acc *records.Accumulator, cause error) error {
	f.transition(log, StateFailed)
	if err := cpMgr.Save(acc.Comments()); err != nil {
		log.WithError(err).Error("Failed to save checkpoint on interrupt")
	} else {
		f.recorder.CheckpointSaved()
		log.InfoWithFields("Interrupted, checkpoint saved", map[string]interface{}{
			"comments": acc.Len(),
		})
	}
	return fmt.Errorf("fetch interrupted: %w", cause)
}

func (f *Fetcher) chunkSize() int {
	size := f.config.Fetch.ChunkSize
	if size <= 0 || size > reddit.MaxChildrenPerRequest {
		return reddit.MaxChildrenPerRequest
	}
	return size
}

func plannedChunks(batches [][]string, size int) int {
	n := 0
	for _, b := range batches {
		n += (len(b) + size - 1) / size
	}
	return n
}
