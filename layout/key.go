package layout

// customKey identifies a custom layout structurally: size and the raw slot
// kinds, with gcPtrs empty when the layout has no GC pointers. Padding is not
// part of the key, so the first builder registered for a shape decides the
// layout's non-padding ranges.
type customKey struct {
	gcPtrs string
	size   uint32
}

func builderKey(b *Builder) customKey {
	k := customKey{size: b.size}
	if b.gcPtrCount > 0 {
		k.gcPtrs = string(b.gcPtrs)
	}
	return k
}
