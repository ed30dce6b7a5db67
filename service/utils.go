package service

// StringSet is a set of unique strings
type StringSet map[string]struct{}

// Add adds s to the set and returns false if it was already there
func (ss StringSet) Add(s string) bool {
	if _, ok := ss[s]; ok {
		return false
	}
	ss[s] = struct{}{}
	return true
}
