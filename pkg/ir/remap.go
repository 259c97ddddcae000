package ir

// Remap translates instruction indices from before a surgery operation to
// after it. Keys are old indices; an absent key means the instruction no
// longer exists in the new sequence (or, for [DisconnectAndRemove] and
// [Splice], was redirected - redirections are present as ordinary entries).
//
// Every external holder of an index into a sequence must re-resolve it
// through the remap returned by the operation that produced the new
// sequence; stale indices are meaningless.
type Remap map[int]int

// Apply translates an old index. SourceIndex always maps to itself. The
// second return is false when the index has no position in the new
// sequence.
func (r Remap) Apply(i int) (int, bool) {
	if i == SourceIndex {
		return SourceIndex, true
	}
	v, ok := r[i]
	return v, ok
}

// Then composes two remaps: the result translates an index through r,
// then through next. Indices dropped by either remap are absent from the
// composition.
func (r Remap) Then(next Remap) Remap {
	out := make(Remap, len(r))
	for i, v := range r {
		if v == SourceIndex {
			out[i] = SourceIndex
			continue
		}
		if nv, ok := next[v]; ok {
			out[i] = nv
		}
	}
	return out
}

// Identity returns the identity remap over indices [0, n).
func Identity(n int) Remap {
	r := make(Remap, n)
	for i := 0; i < n; i++ {
		r[i] = i
	}
	return r
}
