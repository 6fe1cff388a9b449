package reddit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kinds of things the API returns
const (
	KindComment = "t1"
	KindLink    = "t3"
	KindListing = "Listing"
	KindMore    = "more"
)

// Thing is the kind/data envelope every API object is wrapped in
type Thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Listing is a page of things
type Listing struct {
	Kind string      `json:"kind"`
	Data ListingData `json:"data"`
}

// ListingData holds the children of a listing
type ListingData struct {
	After    string  `json:"after"`
	Before   string  `json:"before"`
	Children []Thing `json:"children"`
}

// LinkData describes the thread post itself (kind t3)
type LinkData struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// CommentData is the payload of a t1 thing
type CommentData struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Author     string          `json:"author"`
	Body       string          `json:"body"`
	Score      *int            `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Depth      int             `json:"depth"`
	ParentID   string          `json:"parent_id"`
	LinkID     string          `json:"link_id"`
	Replies    json.RawMessage `json:"replies"`
}

// MoreData is the payload of a continuation marker
type MoreData struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Count    int      `json:"count"`
	Depth    int      `json:"depth"`
	ParentID string   `json:"parent_id"`
	Children []string `json:"children"`
}

// Comment decodes the thing as a t1 payload
func (t Thing) Comment() (*CommentData, error) {
	if t.Kind != KindComment {
		return nil, fmt.Errorf("thing kind %q is not a comment", t.Kind)
	}
	var c CommentData
	if err := json.Unmarshal(t.Data, &c); err != nil {
		return nil, fmt.Errorf("decode comment: %w", err)
	}
	return &c, nil
}

// More decodes the thing as a continuation marker
func (t Thing) More() (*MoreData, error) {
	if t.Kind != KindMore {
		return nil, fmt.Errorf("thing kind %q is not a continuation marker", t.Kind)
	}
	var m MoreData
	if err := json.Unmarshal(t.Data, &m); err != nil {
		return nil, fmt.Errorf("decode more: %w", err)
	}
	return &m, nil
}

// Link decodes the thing as a thread post
func (t Thing) Link() (*LinkData, error) {
	if t.Kind != KindLink {
		return nil, fmt.Errorf("thing kind %q is not a link", t.Kind)
	}
	var l LinkData
	if err := json.Unmarshal(t.Data, &l); err != nil {
		return nil, fmt.Errorf("decode link: %w", err)
	}
	return &l, nil
}

// ReplyThings returns the nested replies. The API sends an empty string
// instead of a listing when a comment has no replies.
func (c *CommentData) ReplyThings() []Thing {
	raw := bytes.TrimSpace(c.Replies)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var l Listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil
	}
	return l.Data.Children
}

// ThreadResponse is the two element array returned by the comments endpoint:
// the thread listing followed by the top-level comment listing
type ThreadResponse []Listing

// Post returns the thread post from element 0
func (r ThreadResponse) Post() (*LinkData, error) {
	if len(r) < 1 || len(r[0].Data.Children) == 0 {
		return nil, fmt.Errorf("thread listing is empty")
	}
	return r[0].Data.Children[0].Link()
}

// Fullname returns the thread's t3_ identifier used to scope continuation requests
func (r ThreadResponse) Fullname() (string, error) {
	post, err := r.Post()
	if err != nil {
		return "", err
	}
	if post.Name == "" {
		return "", fmt.Errorf("thread listing has no fullname")
	}
	return post.Name, nil
}

// Comments returns the top-level comment things from element 1
func (r ThreadResponse) Comments() []Thing {
	if len(r) < 2 {
		return nil
	}
	return r[1].Data.Children
}

// MoreChildrenResponse is the envelope of the continuation endpoint
type MoreChildrenResponse struct {
	JSON struct {
		Errors []json.RawMessage `json:"errors"`
		Data   struct {
			Things []Thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}
