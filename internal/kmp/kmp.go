// Package kmp builds the Knuth-Morris-Pratt partial-match table used by
// the fixed-pattern mode of the match engine.
//
// The table is precomputed metadata attached to a single byte pattern
// that lets the matcher skip redundant comparisons after a mismatch,
// without ever re-reading bytes already consumed from the byte source —
// the engine is guaranteed at most one byte of push-back.
package kmp

// Table computes the KMP failure function for pattern, returned as a
// slice of length len(pattern)+1. Table[i] is the length of the longest
// proper prefix of pattern[0:i] that is also a suffix of pattern[0:i];
// the extra trailing slot (Table[len(pattern)]) holds that value for the
// whole pattern. The match engine, whose matches are non-overlapping,
// restarts from zero after a full match and does not read that slot.
//
// Computed in O(len(pattern)) time via the standard two-pointer
// construction.
func Table(pattern []byte) []int {
	n := len(pattern)
	t := make([]int, n+1)
	t[0] = 0
	if n == 0 {
		return t
	}
	t[1] = 0
	k := 0
	for i := 1; i < n; i++ {
		for k > 0 && pattern[i] != pattern[k] {
			k = t[k]
		}
		if pattern[i] == pattern[k] {
			k++
		}
		t[i+1] = k
	}
	return t
}
