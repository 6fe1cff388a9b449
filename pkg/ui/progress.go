package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Progress renders a single live line per thread from fetch counters. It
// satisfies scraper.Recorder and prints nothing on non-interactive consoles.
type Progress struct {
	mu      sync.Mutex
	console *Console
	now     func() time.Time

	label       string
	chunks      int
	failed      int
	comments    int
	checkpoints int
	queue       int
	started     time.Time
}

// NewProgress creates a progress line on console
func NewProgress(console *Console) *Progress {
	return &Progress{console: console, now: time.Now}
}

func (p *Progress) begin(label string) {
	if p.label != label {
		p.label = label
		p.chunks, p.failed, p.comments, p.checkpoints, p.queue = 0, 0, 0, 0, 0
		p.started = p.now()
	}
}

// ChunkProcessed counts an expanded chunk
func (p *Progress) ChunkProcessed(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.begin(label)
	p.chunks++
	p.draw()
}

// ChunkFailed counts a lost chunk
func (p *Progress) ChunkFailed(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.begin(label)
	p.chunks++
	p.failed++
	p.draw()
}

// CommentsRecorded adds newly recorded comments
func (p *Progress) CommentsRecorded(label string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.begin(label)
	p.comments += n
	p.draw()
}

// CheckpointSaved counts a checkpoint write
func (p *Progress) CheckpointSaved() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkpoints++
}

// SetQueueDepth records pending continuation batches
func (p *Progress) SetQueueDepth(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = n
}

// ThreadFinished ends the current line
func (p *Progress) ThreadFinished(outcome string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.label != "" && p.console.Interactive() {
		fmt.Fprintln(p.console.Writer())
	}
	p.label = ""
}

// Line returns the current progress text without styling
func (p *Progress) Line() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.line(false)
}

func (p *Progress) line(styled bool) string {
	label := p.label
	if styled {
		label = p.console.render(labelStyle, label)
	}
	parts := []string{
		label,
		fmt.Sprintf("%d chunks", p.chunks),
		fmt.Sprintf("%d comments", p.comments),
		fmt.Sprintf("queue %d", p.queue),
		FormatDuration(p.now().Sub(p.started)),
	}
	if p.failed > 0 {
		failed := fmt.Sprintf("%d failed", p.failed)
		if styled {
			failed = p.console.render(errorStyle, failed)
		}
		parts = append(parts, failed)
	}
	return strings.Join(parts, " • ")
}

func (p *Progress) draw() {
	if !p.console.Interactive() {
		return
	}
	fmt.Fprintf(p.console.Writer(), "\r\033[K%s", p.line(true))
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
