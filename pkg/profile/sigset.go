package profile

// SigSet is a monotonic set of constraint signatures. Membership is only
// ever added during a scan, never removed; Add has insert-if-absent
// semantics so a lost race under a sharded scan costs duplicate work, not
// correctness.
type SigSet struct {
	m map[string]struct{}
}

// NewSigSet creates an empty signature set.
func NewSigSet() *SigSet {
	return &SigSet{m: make(map[string]struct{})}
}

// Has reports whether sig is in the set.
func (s *SigSet) Has(sig string) bool {
	_, ok := s.m[sig]
	return ok
}

// Add inserts sig and reports whether it was absent.
func (s *SigSet) Add(sig string) bool {
	if _, ok := s.m[sig]; ok {
		return false
	}
	s.m[sig] = struct{}{}
	return true
}

// Len returns the number of signatures in the set.
func (s *SigSet) Len() int { return len(s.m) }
