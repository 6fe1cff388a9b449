package scraper

// batchQueue is a FIFO of continuation batches
type batchQueue struct {
	items [][]string
	head  int
}

func (q *batchQueue) Push(batches ...[]string) {
	q.items = append(q.items, batches...)
}

func (q *batchQueue) Pop() ([]string, bool) {
	if q.head >= len(q.items) {
		return nil, false
	}
	b := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return b, true
}

func (q *batchQueue) Len() int {
	return len(q.items) - q.head
}
