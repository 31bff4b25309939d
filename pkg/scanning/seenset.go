package scanning

import "sort"

// SeenSet - set of already recorded payloads, compared exactly
type SeenSet struct {
	values map[string]struct{}
}

// NewSeenSet - SeenSet constructor
func NewSeenSet(values ...string) *SeenSet {
	s := &SeenSet{values: make(map[string]struct{}, len(values))}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add - inserts v, returns false if it was already present
func (s *SeenSet) Add(v string) bool {
	if _, ok := s.values[v]; ok {
		return false
	}
	s.values[v] = struct{}{}
	return true
}

// Remove - deletes v, returns false if it was absent
func (s *SeenSet) Remove(v string) bool {
	if _, ok := s.values[v]; !ok {
		return false
	}
	delete(s.values, v)
	return true
}

// Contains - membership check
func (s *SeenSet) Contains(v string) bool {
	_, ok := s.values[v]
	return ok
}

// Len - number of distinct values
func (s *SeenSet) Len() int {
	return len(s.values)
}

// Values - sorted copy of the content
func (s *SeenSet) Values() []string {
	values := make([]string, 0, len(s.values))
	for v := range s.values {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
