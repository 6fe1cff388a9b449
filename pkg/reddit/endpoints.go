package reddit

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// ThreadPath is the comments endpoint pattern, formatted with the post id
	ThreadPath = "/comments/%s.json"

	// MoreChildrenPath is the continuation endpoint
	MoreChildrenPath = "/api/morechildren.json"

	// MaxChildrenPerRequest is the most child ids the continuation endpoint accepts
	MaxChildrenPerRequest = 100

	// DefaultRootLimit and DefaultRootDepth bound the initial listing
	DefaultRootLimit = 500
	DefaultRootDepth = 10
)

// ThreadParams builds the query for the root listing
func ThreadParams(limit, depth int) url.Values {
	if limit <= 0 {
		limit = DefaultRootLimit
	}
	if depth <= 0 {
		depth = DefaultRootDepth
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("depth", strconv.Itoa(depth))
	return params
}

// MoreChildrenParams builds the query for one continuation chunk
func MoreChildrenParams(linkFullname string, ids []string) url.Values {
	params := url.Values{}
	params.Set("link_id", linkFullname)
	params.Set("children", strings.Join(ids, ","))
	params.Set("api_type", "json")
	params.Set("limit_children", "false")
	return params
}

// Chunk splits ids into consecutive slices of at most size elements
func Chunk(ids []string, size int) [][]string {
	if size <= 0 || size > MaxChildrenPerRequest {
		size = MaxChildrenPerRequest
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// PostIDFromFullname strips the t3_ prefix
func PostIDFromFullname(fullname string) string {
	return strings.TrimPrefix(fullname, KindLink+"_")
}
