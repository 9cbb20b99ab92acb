package dynarr

// Retain keeps only the elements for which keep returns true, preserving
// their order. Removed elements are dropped.
func (a *DynArr[T]) Retain(keep func(T) bool) {
	a.RetainMut(func(v *T) bool { return keep(*v) })
}

// RetainMut is Retain with a callback that may modify the elements it
// keeps.
//
// If keep or a Drop panics, the elements not yet visited are kept and the
// array stays consistent.
func (a *DynArr[T]) RetainMut(keep func(*T) bool) {
	n := a.len
	if n == 0 {
		return
	}
	s := a.spare()[:n]
	// nothing is reachable through a while elements are shuffled
	a.len = 0
	processed, deleted := 0, 0
	defer func() {
		if deleted > 0 {
			copy(s[processed-deleted:], s[processed:n])
			clear(s[n-deleted:])
		}
		a.len = n - deleted
	}()
	for processed < n {
		cur := &s[processed]
		if !keep(cur) {
			v := *cur
			processed++
			deleted++
			dropValue(v)
			continue
		}
		if deleted > 0 {
			s[processed-deleted] = *cur
		}
		processed++
	}
}

// DedupFunc removes consecutive elements for which same reports true,
// keeping the first of each run. same receives the candidate and the last
// kept element. Removed elements are dropped.
func (a *DynArr[T]) DedupFunc(same func(cur, prev *T) bool) {
	n := a.len
	if n <= 1 {
		return
	}
	s := a.spare()[:n]
	a.len = 0
	// [0, write) is the deduplicated prefix, [read, n) is unvisited
	read, write := 1, 1
	defer func() {
		gap := read - write
		if gap > 0 {
			copy(s[write:], s[read:n])
			clear(s[n-gap:])
		}
		a.len = n - gap
	}()
	for read < n {
		cur := &s[read]
		if same(cur, &s[write-1]) {
			v := *cur
			read++
			dropValue(v)
			continue
		}
		if read != write {
			s[write] = *cur
		}
		read++
		write++
	}
}

// DedupBy is DedupFunc comparing keys.
func DedupBy[T any, K comparable](a *DynArr[T], key func(*T) K) {
	a.DedupFunc(func(cur, prev *T) bool { return key(cur) == key(prev) })
}
