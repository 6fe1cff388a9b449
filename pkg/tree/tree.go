// Package tree flattens a thread's nested reply structure into comment
// records and collects continuation batches for later expansion.
package tree

import (
	"threadscraper/pkg/reddit"
	"threadscraper/pkg/records"
)

// Seen reports ids that are already recorded
type Seen interface {
	Has(id string) bool
}

// Result is the output of one Parse call
type Result struct {
	// Comments are new records in pre-order, first occurrence of each id only
	Comments []records.Comment
	// Batches are continuation id lists in the order they were encountered
	Batches [][]string
	// Skipped counts nodes that could not be decoded
	Skipped int
}

// Parse walks nodes depth-first. A comment precedes its replies; ids present
// in seen, or already emitted by this call, are not emitted again but their
// replies are still walked. It performs no I/O and does not modify seen.
func Parse(nodes []reddit.Thing, seen Seen) Result {
	p := parser{seen: seen, emitted: make(map[string]struct{})}
	p.walk(nodes)
	return p.result
}

type parser struct {
	seen    Seen
	emitted map[string]struct{}
	result  Result
}

func (p *parser) walk(nodes []reddit.Thing) {
	for _, node := range nodes {
		switch node.Kind {
		case reddit.KindComment:
			data, err := node.Comment()
			if err != nil {
				p.result.Skipped++
				continue
			}
			p.record(data)
			p.walk(data.ReplyThings())
		case reddit.KindMore:
			more, err := node.More()
			if err != nil {
				p.result.Skipped++
				continue
			}
			if len(more.Children) > 0 {
				batch := make([]string, len(more.Children))
				copy(batch, more.Children)
				p.result.Batches = append(p.result.Batches, batch)
			}
		}
	}
}

func (p *parser) record(data *reddit.CommentData) {
	id := data.ID
	if id == "" {
		p.result.Skipped++
		return
	}
	if p.seen != nil && p.seen.Has(id) {
		return
	}
	if _, dup := p.emitted[id]; dup {
		return
	}
	p.emitted[id] = struct{}{}
	p.result.Comments = append(p.result.Comments, toComment(data))
}

func toComment(data *reddit.CommentData) records.Comment {
	c := records.Comment{
		ID:         data.ID,
		Author:     data.Author,
		Body:       data.Body,
		CreatedUTC: data.CreatedUTC,
		Depth:      data.Depth,
		ParentID:   data.ParentID,
	}
	if data.Score != nil {
		c.Score = records.IntPtr(*data.Score)
	}
	return c
}
