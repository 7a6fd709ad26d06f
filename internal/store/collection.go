package store

// sequence orders the responses for one piece of cached state. Every call
// takes seq = ++issued; its response is applied only if seq > applied, so
// the last-issued call wins regardless of arrival order. inflight backs the
// loading flag so overlapping calls cannot clear it early.
type sequence struct {
	issued   uint64
	applied  uint64
	inflight int
}

func (q *sequence) begin() uint64 {
	q.inflight++
	q.issued++
	return q.issued
}

func (q *sequence) end() {
	if q.inflight > 0 {
		q.inflight--
	}
}

func (q *sequence) accept(seq uint64) bool {
	if seq <= q.applied {
		return false
	}
	q.applied = seq
	return true
}

// supersede marks a confirmed local mutation as the newest state, so
// responses to calls issued before it are discarded.
func (q *sequence) supersede() {
	q.issued++
	q.applied = q.issued
}

func (q *sequence) loading() bool { return q.inflight > 0 }

type collection[T any] struct {
	sequence
	items []T
	total int
}

func (c *collection[T]) replace(items []T, total int) {
	c.items = items
	c.total = total
}

func (c *collection[T]) reset() {
	c.supersede()
	c.items = nil
	c.total = 0
}

func (c *collection[T]) snapshot() Collection[T] {
	return Collection[T]{
		Items:   append([]T(nil), c.items...),
		Total:   c.total,
		Loading: c.loading(),
	}
}

// Collection is a read-only copy of a cached server collection.
type Collection[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Loading bool `json:"loading"`
}
