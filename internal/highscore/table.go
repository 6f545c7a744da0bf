package highscore

import "sort"

// MaxEntries is how many records each tier keeps.
const MaxEntries = 5

// Record is one won game. It is never modified after creation.
type Record struct {
	Score         int `json:"score"`
	Moves         int `json:"moves"`
	TimeRemaining int `json:"timeRemaining"`
}

// Table maps a tier name to its records, highest score first.
type Table map[string][]Record

// NewTable returns a table with an empty sequence for every tier.
func NewTable(tiers []string) Table {
	t := make(Table, len(tiers))
	for _, tier := range tiers {
		t[tier] = []Record{}
	}
	return t
}

// Top returns up to n records of tier, highest score first.
func (t Table) Top(tier string, n int) []Record {
	entries := t[tier]
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]Record, len(entries))
	copy(out, entries)
	return out
}

// HighScore returns the best record of tier, or nil if the tier is empty.
func (t Table) HighScore(tier string) *Record {
	entries := t[tier]
	if len(entries) == 0 {
		return nil
	}
	best := entries[0]
	return &best
}

// insert adds rec to tier, keeping the tier sorted and truncated. It returns
// the 0-based rank of rec, or -1 if it fell off the table. Equal scores keep
// insertion order.
func (t Table) insert(tier string, rec Record) int {
	entries := append(t[tier], rec)
	newest := len(entries) - 1

	idx := make([]int, len(entries))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return entries[idx[i]].Score > entries[idx[j]].Score
	})

	rank := -1
	sorted := make([]Record, 0, len(entries))
	for pos, i := range idx {
		if pos >= MaxEntries {
			break
		}
		if i == newest {
			rank = pos
		}
		sorted = append(sorted, entries[i])
	}
	t[tier] = sorted
	return rank
}
