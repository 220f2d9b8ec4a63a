// Package reorder isolates the sheets whose relative order changed between
// two orderings.
package reorder

import "sort"

// Move is a sheet whose position relative to the other common sheets
// changed. Indices are positions in the full before/after orders.
type Move struct {
	ID          string `json:"id"`
	BeforeIndex int    `json:"beforeIndex"`
	AfterIndex  int    `json:"afterIndex"`
}

// LIS returns the positions in seq of one longest strictly increasing
// subsequence, using patience sorting (O(n log n)).
func LIS(seq []int) []int {
	if len(seq) == 0 {
		return nil
	}
	tails := make([]int, 0, len(seq)) // positions in seq
	prev := make([]int, len(seq))
	for i, v := range seq {
		j := sort.Search(len(tails), func(k int) bool { return seq[tails[k]] >= v })
		if j > 0 {
			prev[i] = tails[j-1]
		} else {
			prev[i] = -1
		}
		if j == len(tails) {
			tails = append(tails, i)
		} else {
			tails[j] = i
		}
	}
	out := make([]int, len(tails))
	for i, k := len(tails)-1, tails[len(tails)-1]; i >= 0; i, k = i-1, prev[k] {
		out[i] = k
	}
	return out
}

// Moves reports the common ids that are not on every longest increasing
// subsequence of the before order projected into after positions. Ids
// present in only one order are ignored. The result is sorted by id.
func Moves(before, after []string) []Move {
	out := []Move{}
	beforeAt := indexOf(before)
	afterAt := indexOf(after)

	common := commonIDs(before, afterAt)
	if len(common) < 2 {
		return out
	}
	commonAfter := commonIDs(after, beforeAt)
	rank := indexOf(commonAfter)
	seq := make([]int, len(common))
	for i, id := range common {
		seq[i] = rank[id]
	}

	stable := onEveryLIS(seq)
	for i, id := range common {
		if stable[i] {
			continue
		}
		out = append(out, Move{ID: id, BeforeIndex: beforeAt[id], AfterIndex: afterAt[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// onEveryLIS marks the positions of seq shared by all longest increasing
// subsequences. A position lies on some LIS when the longest run ending at
// it plus the longest run starting at it spans the LIS; it lies on every
// LIS when it is also the only such position at its rank.
func onEveryLIS(seq []int) []bool {
	n := len(seq)
	ending := runLengths(seq)

	// longest increasing run starting at i, computed on the reversed,
	// negated sequence
	rev := make([]int, n)
	for i, v := range seq {
		rev[n-1-i] = -v
	}
	startRev := runLengths(rev)
	starting := make([]int, n)
	for i := range seq {
		starting[i] = startRev[n-1-i]
	}

	best := len(LIS(seq))
	perRank := make([]int, best+1)
	for i := range seq {
		if ending[i]+starting[i]-1 == best {
			perRank[ending[i]]++
		}
	}
	out := make([]bool, n)
	for i := range seq {
		out[i] = ending[i]+starting[i]-1 == best && perRank[ending[i]] == 1
	}
	return out
}

// runLengths returns, per position, the length of the longest strictly
// increasing subsequence ending there.
func runLengths(seq []int) []int {
	out := make([]int, len(seq))
	var tails []int // tail values
	for i, v := range seq {
		j := sort.SearchInts(tails, v)
		if j == len(tails) {
			tails = append(tails, v)
		} else {
			tails[j] = v
		}
		out[i] = j + 1
	}
	return out
}

// commonIDs returns the ids of order that are keys of other, in order and
// without repeats.
func commonIDs(order []string, other map[string]int) []string {
	var out []string
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if _, ok := other[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// indexOf maps each id to its first position.
func indexOf(ids []string) map[string]int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := m[id]; dup {
			continue
		}
		m[id] = i
	}
	return m
}
