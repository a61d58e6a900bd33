package core

// CategorySet is a set of category ids.
type CategorySet map[int64]struct{}

// NewCategorySet builds a set from ids, ignoring duplicates.
func NewCategorySet(ids ...int64) CategorySet {
	s := make(CategorySet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s CategorySet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Toggle adds id if absent and removes it otherwise.
func (s CategorySet) Toggle(id int64) {
	if s.Contains(id) {
		delete(s, id)
		return
	}
	s[id] = struct{}{}
}

// Intersects reports whether any of the transaction's categories is in s.
func (s CategorySet) Intersects(t CardTransaction) bool {
	for _, c := range t.Categories {
		if s.Contains(c.ID) {
			return true
		}
	}
	return false
}

// FilterTransactions keeps a transaction iff its category set intersects
// selected. An empty selection keeps everything.
func FilterTransactions(txs []CardTransaction, selected CategorySet) []CardTransaction {
	if len(selected) == 0 {
		return txs
	}
	out := make([]CardTransaction, 0, len(txs))
	for _, t := range txs {
		if selected.Intersects(t) {
			out = append(out, t)
		}
	}
	return out
}
