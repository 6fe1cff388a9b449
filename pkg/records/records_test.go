package records

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []Comment {
	return []Comment{
		{ID: "a", Author: "alice", Body: "first, with comma", Score: IntPtr(3), CreatedUTC: 1768700000.5, Depth: 0, ParentID: "t3_x"},
		{ID: "007", Author: "[deleted]", Body: "line one\nline two \"quoted\"", Score: nil, CreatedUTC: 1768700001, Depth: 1, ParentID: "t1_a"},
		{ID: "c", Author: "", Body: "", Score: IntPtr(-2), CreatedUTC: 0, Depth: 2, ParentID: "t1_007"},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	assert.True(t, strings.HasPrefix(buf.String(), "comment_id,author,body,score,created_utc,depth,parent_id\n"))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
	// leading zeros survive because ids are never parsed as numbers
	assert.Equal(t, "007", got[1].ID)
}

func TestReadCSVToleratesFloatRenderings(t *testing.T) {
	in := "parent_id,comment_id,author,body,score,created_utc,depth\n" +
		"t3_x,a,alice,hi,3.0,1768700000.0,1.0\n" +
		"t3_x,b,bob,hi,,1768700001.0,\n"

	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3, *got[0].Score)
	assert.Equal(t, 1, got[0].Depth)
	assert.Nil(t, got[1].Score)
	assert.Equal(t, "t3_x", got[1].ParentID)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("comment_id,author\na,b\n"))
	assert.ErrorContains(t, err, "missing column")

	_, err = ReadCSV(strings.NewReader(strings.Join(Header, ",") + "\na,x,y,high,1,0,t3_x\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadCSV(strings.NewReader(strings.Join(Header, ",") + "\n,x,y,1,1,0,t3_x\n"))
	assert.ErrorContains(t, err, "empty comment_id")

	got, err := ReadCSV(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestAccumulatorFirstSeenWins(t *testing.T) {
	acc := NewAccumulator()

	assert.Equal(t, 2, acc.Add(
		Comment{ID: "a", Body: "original"},
		Comment{ID: "b"},
	))
	assert.Equal(t, 1, acc.Add(
		Comment{ID: "a", Body: "edited"},
		Comment{ID: "c"},
	))

	assert.Equal(t, 3, acc.Len())
	assert.True(t, acc.Has("a"))
	assert.False(t, acc.Has("z"))

	comments := acc.Comments()
	assert.Equal(t, "original", comments[0].Body)
	assert.Equal(t, []string{"a", "b", "c"}, ids(comments))

	// the returned slice is a copy
	comments[0].Body = "mutated"
	assert.Equal(t, "original", acc.Comments()[0].Body)
}

func TestNewAccumulatorDeduplicatesInitial(t *testing.T) {
	acc := NewAccumulator(Comment{ID: "x", Author: "1"}, Comment{ID: "x", Author: "2"}, Comment{ID: "y"})
	assert.Equal(t, 2, acc.Len())
	assert.Equal(t, "1", acc.Comments()[0].Author)
}

func TestDedup(t *testing.T) {
	got := Dedup([]Comment{{ID: "b"}, {ID: "a"}, {ID: "b", Body: "late"}, {ID: "c"}})
	assert.Equal(t, []string{"b", "a", "c"}, ids(got))
	assert.Empty(t, got[0].Body)
}

func ids(cs []Comment) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
