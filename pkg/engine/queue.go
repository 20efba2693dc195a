package engine

// Item is one pending propagation step: a signal arriving at a target node's
// input handle.
type Item struct {
	Target       string
	TargetHandle string
	Signal       bool
	Source       string
}

// propagationQueue is a FIFO work queue owned by a single run. It supports
// in-place filtering so terminal pruning never mutates a queue while it is
// being iterated elsewhere.
type propagationQueue struct {
	items []Item
}

func newPropagationQueue() *propagationQueue {
	return &propagationQueue{}
}

func (q *propagationQueue) Enqueue(items ...Item) {
	q.items = append(q.items, items...)
}

func (q *propagationQueue) Dequeue() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}

	item := q.items[0]
	q.items = q.items[1:]

	return item, true
}

// ReplaceWith discards every pending item the predicate rejects.
func (q *propagationQueue) ReplaceWith(keep func(Item) bool) {
	kept := q.items[:0]

	for _, item := range q.items {
		if keep(item) {
			kept = append(kept, item)
		}
	}

	q.items = kept
}

func (q *propagationQueue) Len() int {
	return len(q.items)
}
