package model

import "sync/atomic"

// IDSource hands out vaccine identifiers. A catalog owns one source so ids
// are unique within it and deterministic for a given build order.
type IDSource struct {
	next atomic.Int64
}

// NewIDSource returns a source whose first id is start.
func NewIDSource(start int) *IDSource {
	s := &IDSource{}
	s.next.Store(int64(start))
	return s
}

// Next returns the next id.
func (s *IDSource) Next() int {
	return int(s.next.Add(1) - 1)
}
