package heap

import "sync"

// RememberedSet tracks which old-generation regions hold a pointer into
// the young generation, discovered by barrier.WriteBarrier.StorePointer
// (§4.C8's generational write barrier) at region granularity (§4.C9's
// "region-granularity card table"). The orchestrator drains it ahead of a
// young collection's root scan instead of rescanning the entire old
// generation.
type RememberedSet struct {
	mu      sync.Mutex
	regions map[uint64]struct{}
}

// NewRememberedSet builds an empty remembered set.
func NewRememberedSet() *RememberedSet {
	return &RememberedSet{regions: make(map[uint64]struct{})}
}

// Record marks region as containing an old-to-young pointer. Satisfies
// internal/fgc/barrier.RememberedSet.
func (s *RememberedSet) Record(region uint64) {
	s.mu.Lock()
	s.regions[region] = struct{}{}
	s.mu.Unlock()
}

// Regions returns every region start address currently recorded as dirty.
func (s *RememberedSet) Regions() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, 0, len(s.regions))
	for r := range s.regions {
		out = append(out, r)
	}
	return out
}

// Clear empties the set, called once a cycle has folded its contents into
// the root set.
func (s *RememberedSet) Clear() {
	s.mu.Lock()
	s.regions = make(map[uint64]struct{})
	s.mu.Unlock()
}
