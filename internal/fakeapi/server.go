// Package fakeapi serves generated threads over the comments and
// continuation endpoints so clients can be exercised without the network.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

// ReplyEvery is the stride of hidden comments that carry one nested
// continuation with a single reply
const ReplyEvery = 10

// Thread describes a generated thread: TopLevel comments in the root listing
// and Hidden comments behind one root level continuation marker
type Thread struct {
	ID       string
	Title    string
	TopLevel int
	Hidden   int
}

// Fullname is the thread's t3_ identifier
func (t Thread) Fullname() string {
	return "t3_" + t.ID
}

// Expected is the number of distinct comments a complete fetch records
func (t Thread) Expected() int {
	return t.TopLevel + t.Hidden + (t.Hidden+ReplyEvery-1)/ReplyEvery
}

type failure struct {
	code  int
	times int
}

// Server simulates the API with error injection and request accounting
type Server struct {
	server *httptest.Server

	mu       sync.RWMutex
	threads  map[string]Thread
	failures map[string]*failure
	headers  http.Header

	requests      int32
	rateLimitHits int32
	moreCalls     int32
}

// NewServer starts a fake API server; Close it when done
func NewServer() *Server {
	s := &Server{
		threads:  make(map[string]Thread),
		failures: make(map[string]*failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/comments/", s.handleThread)
	mux.HandleFunc("/api/morechildren.json", s.handleMoreChildren)
	s.server = httptest.NewServer(mux)
	return s
}

// URL returns the base URL of the server
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down
func (s *Server) Close() {
	s.server.Close()
}

// AddThread registers a thread
func (s *Server) AddThread(t Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[t.ID] = t
}

// FailNext answers the next times requests whose path starts with prefix
// with status code
func (s *Server) FailNext(prefix string, code, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] = &failure{code: code, times: times}
}

// Requests returns the number of requests served
func (s *Server) Requests() int {
	return int(atomic.LoadInt32(&s.requests))
}

// RateLimitHits returns how many 429 responses were sent
func (s *Server) RateLimitHits() int {
	return int(atomic.LoadInt32(&s.rateLimitHits))
}

// MoreChildrenCalls returns the number of continuation requests answered
func (s *Server) MoreChildrenCalls() int {
	return int(atomic.LoadInt32(&s.moreCalls))
}

// LastHeader returns a header of the most recent request
func (s *Server) LastHeader(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headers.Get(name)
}

// intercept records the request and applies injected failures
func (s *Server) intercept(w http.ResponseWriter, r *http.Request) bool {
	atomic.AddInt32(&s.requests, 1)

	s.mu.Lock()
	s.headers = r.Header.Clone()
	var code int
	for prefix, f := range s.failures {
		if strings.HasPrefix(r.URL.Path, prefix) && f.times > 0 {
			f.times--
			code = f.code
			break
		}
	}
	s.mu.Unlock()

	if code == 0 {
		return false
	}
	if code == http.StatusTooManyRequests {
		atomic.AddInt32(&s.rateLimitHits, 1)
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"message": http.StatusText(code), "error": code})
	return true
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	if s.intercept(w, r) {
		return
	}

	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/comments/"), ".json")
	s.mu.RLock()
	t, ok := s.threads[id]
	s.mu.RUnlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"message": "Not Found", "error": 404})
		return
	}

	comments := make([]interface{}, 0, t.TopLevel+1)
	for i := 0; i < t.TopLevel; i++ {
		comments = append(comments, comment(t, fmt.Sprintf("top%d", i), t.Fullname(), 0, i))
	}
	if t.Hidden > 0 {
		ids := make([]string, t.Hidden)
		for i := range ids {
			ids[i] = hiddenID(i)
		}
		comments = append(comments, more("root_more", t.Fullname(), 0, ids))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode([]interface{}{
		listing(thing("t3", map[string]interface{}{
			"id":           t.ID,
			"name":         t.Fullname(),
			"title":        t.Title,
			"author":       "op",
			"subreddit":    "nfl",
			"permalink":    "/r/nfl/comments/" + t.ID + "/",
			"num_comments": t.Expected(),
			"created_utc":  1700000000.0,
		})),
		listing(comments...),
	})
}

func (s *Server) handleMoreChildren(w http.ResponseWriter, r *http.Request) {
	if s.intercept(w, r) {
		return
	}
	atomic.AddInt32(&s.moreCalls, 1)

	q := r.URL.Query()
	linkID := q.Get("link_id")
	s.mu.RLock()
	t, ok := s.threads[strings.TrimPrefix(linkID, "t3_")]
	s.mu.RUnlock()
	if !ok || q.Get("api_type") != "json" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var things []interface{}
	for _, id := range strings.Split(q.Get("children"), ",") {
		var n int
		switch {
		case strings.HasPrefix(id, "reply"):
			if _, err := fmt.Sscanf(id, "reply%d", &n); err == nil {
				things = append(things, comment(t, id, "t1_"+hiddenID(n), 2, n))
			}
		case strings.HasPrefix(id, "h"):
			if _, err := fmt.Sscanf(id, "h%d", &n); err != nil || n >= t.Hidden {
				continue
			}
			things = append(things, comment(t, id, t.Fullname(), 1, n))
			if n%ReplyEvery == 0 {
				things = append(things, more("more_"+id, "t1_"+id, 2, []string{fmt.Sprintf("reply%d", n)}))
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"json": map[string]interface{}{
			"errors": []interface{}{},
			"data":   map[string]interface{}{"things": things},
		},
	})
}

func hiddenID(n int) string {
	return fmt.Sprintf("h%d", n)
}

func thing(kind string, data map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"kind": kind, "data": data}
}

func listing(children ...interface{}) map[string]interface{} {
	if children == nil {
		children = []interface{}{}
	}
	return map[string]interface{}{
		"kind": "Listing",
		"data": map[string]interface{}{"after": nil, "before": nil, "children": children},
	}
}

// comment builds a t1 thing; every 13th author is the deleted sentinel
func comment(t Thread, id, parent string, depth, n int) map[string]interface{} {
	author := fmt.Sprintf("user%d", n%7)
	if n%13 == 12 {
		author = "[deleted]"
	}
	return thing("t1", map[string]interface{}{
		"id":          id,
		"name":        "t1_" + id,
		"author":      author,
		"body":        fmt.Sprintf("comment %s on %s", id, t.ID),
		"score":       n % 5,
		"created_utc": 1700000000.0 + float64(n),
		"depth":       depth,
		"parent_id":   parent,
		"link_id":     t.Fullname(),
		"replies":     "",
	})
}

func more(id, parent string, depth int, children []string) map[string]interface{} {
	return thing("more", map[string]interface{}{
		"id":        id,
		"name":      "t1_" + id,
		"count":     len(children),
		"depth":     depth,
		"parent_id": parent,
		"children":  children,
	})
}
