// Package page cuts ordered item lists into fixed-size pages and computes the
// navigation window shown next to a page.
package page

// DefaultWindow is the default width of a navigation window.
const DefaultWindow = 10

// Count returns the number of pages needed for n items. It is at least 1.
// A size below 1 is treated as 1.
func Count(n, size int) int {
	if size < 1 {
		size = 1
	}
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Clamp moves page into [1, count].
func Clamp(page, count int) int {
	if count < 1 {
		count = 1
	}
	switch {
	case page < 1:
		return 1
	case page > count:
		return count
	default:
		return page
	}
}

// Bounds returns the half-open item range [lo, hi) of the given page, after
// clamping, together with the page number actually used and the page count.
func Bounds(n, page, size int) (lo, hi, number, count int) {
	if size < 1 {
		size = 1
	}
	count = Count(n, size)
	number = Clamp(page, count)
	lo = min((number-1)*size, max(n, 0))
	hi = min(lo+size, max(n, 0))
	return lo, hi, number, count
}

// Get returns a copy of the items on the given page and the page count.
// Out-of-range pages are clamped. items is never modified.
func Get[T any](items []T, page, size int) ([]T, int) {
	lo, hi, _, count := Bounds(len(items), page, size)
	out := make([]T, hi-lo)
	copy(out, items[lo:hi])
	return out, count
}

// Window returns up to width page numbers around current, within [1, count].
//
// When count exceeds width the window always starts with 1 and ends with
// count, and the pages in between are centered on current as far as the
// edges allow. Widths below 3 give a plain contiguous window.
func Window(current, count, width int) []int {
	if count < 1 {
		count = 1
	}
	if width < 1 {
		width = 1
	}
	current = Clamp(current, count)

	if count <= width {
		return seq(1, count)
	}

	if width < 3 {
		start := current - (width-1)/2
		start = max(1, min(start, count-width+1))
		return seq(start, start+width-1)
	}

	inner := width - 2
	start := current - (inner-1)/2
	start = max(2, min(start, count-inner))

	out := make([]int, 0, width)
	out = append(out, 1)
	for p := start; p < start+inner; p++ {
		out = append(out, p)
	}
	return append(out, count)
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for p := from; p <= to; p++ {
		out = append(out, p)
	}
	return out
}
