package arena

// DefaultPageSize is the granularity pages are rounded up to.
const DefaultPageSize = 64 * 1024

// DefaultPattern is the byte written into fresh allocations under FillPattern.
const DefaultPattern = 0xCD

// Fill selects what fresh allocations contain.
type Fill uint8

const (
	// FillNone leaves whatever the host handed out.
	FillNone Fill = iota
	// FillZero clears every allocation.
	FillZero
	// FillPattern writes Options.Pattern so reads of uninitialized memory
	// stand out.
	FillPattern
)

// Options configures an Arena.
type Options struct {
	// PageSize is the rounding granularity for new pages. 0 means DefaultPageSize.
	PageSize uintptr

	// PointerSize is the allocation granularity. 0 means 8.
	PointerSize uintptr

	// Bypass skips page rounding and takes pages from the Go heap instead of
	// the configured host, so every oversized request gets an exact page.
	Bypass bool

	Fill    Fill
	Pattern byte
}

// DefaultOptions returns default arena configuration.
func DefaultOptions() Options {
	return Options{
		PageSize:    DefaultPageSize,
		PointerSize: 8,
		Pattern:     DefaultPattern,
	}
}

func (o Options) normalized() Options {
	if o.PageSize == 0 {
		o.PageSize = DefaultPageSize
	}
	if o.PointerSize == 0 {
		o.PointerSize = 8
	}
	if o.Fill == FillPattern && o.Pattern == 0 {
		o.Pattern = DefaultPattern
	}
	return o
}
