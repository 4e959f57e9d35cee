package page

import (
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestCount(t *testing.T) {
	assert.Equal(t, 1, Count(0, 10))
	assert.Equal(t, 1, Count(1, 10))
	assert.Equal(t, 1, Count(10, 10))
	assert.Equal(t, 2, Count(11, 10))
	assert.Equal(t, 4, Count(35, 10))
	assert.Equal(t, 5, Count(5, 0))
}

func TestGetClampsHigh(t *testing.T) {
	items := ints(35)
	got, count := Get(items, 999, 10)
	assert.Equal(t, 4, count)
	assert.Equal(t, []int{30, 31, 32, 33, 34}, got)
}

func TestGetClampsLow(t *testing.T) {
	items := ints(35)
	got, count := Get(items, -3, 10)
	assert.Equal(t, 4, count)
	assert.Equal(t, ints(10), got)
}

func TestGetDoesNotAlias(t *testing.T) {
	items := ints(20)
	got, _ := Get(items, 1, 5)
	got[0] = 100
	assert.Equal(t, 0, items[0])
	assert.Equal(t, 5, items[5])
}

func TestBounds(t *testing.T) {
	lo, hi, number, count := Bounds(35, 4, 10)
	assert.Equal(t, []int{30, 35, 4, 4}, []int{lo, hi, number, count})

	lo, hi, number, count = Bounds(0, 3, 10)
	assert.Equal(t, []int{0, 0, 1, 1}, []int{lo, hi, number, count})
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 50, 301} {
		items := ints(n)
		for _, size := range []int{1, 7, max(n, 1)} {
			var joined []int
			_, count := Get(items, 1, size)
			for p := 1; p <= count; p++ {
				got, c := Get(items, p, size)
				require.Equal(t, count, c)
				joined = append(joined, got...)
			}
			if n == 0 {
				assert.Empty(t, joined)
				continue
			}
			assert.Equal(t, items, joined, "n=%d size=%d", n, size)
		}
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		current, count, width int
		want                  []int
	}{
		{1, 1, 10, []int{1}},
		{3, 5, 10, []int{1, 2, 3, 4, 5}},
		{1, 10, 10, seq(1, 10)},
		{1, 30, 10, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 30}},
		{15, 30, 10, []int{1, 12, 13, 14, 15, 16, 17, 18, 19, 30}},
		{30, 30, 10, []int{1, 22, 23, 24, 25, 26, 27, 28, 29, 30}},
		{99, 30, 10, []int{1, 22, 23, 24, 25, 26, 27, 28, 29, 30}},
		{5, 30, 3, []int{1, 5, 30}},
		{5, 30, 2, []int{5, 6}},
		{30, 30, 1, []int{30}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Window(tt.current, tt.count, tt.width), "current=%d count=%d width=%d", tt.current, tt.count, tt.width)
	}
}

func TestPaginationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("pages concatenate to the input", prop.ForAll(
		func(n, size int) bool {
			items := ints(n)
			_, count := Get(items, 1, size)
			var joined []int
			for p := 1; p <= count; p++ {
				got, _ := Get(items, p, size)
				joined = append(joined, got...)
			}
			return len(joined) == n && (n == 0 || slices.Equal(items, joined))
		},
		gen.IntRange(0, 400),
		gen.IntRange(1, 60),
	))

	properties.Property("any page number yields a valid page", prop.ForAll(
		func(n, size, p int) bool {
			got, count := Get(ints(n), p, size)
			if count < 1 || len(got) > size {
				return false
			}
			return n == 0 || len(got) > 0
		},
		gen.IntRange(0, 400),
		gen.IntRange(1, 60),
		gen.IntRange(-1000, 1000),
	))

	properties.Property("window is bounded, sorted and stable", prop.ForAll(
		func(current, count, width int) bool {
			w := Window(current, count, width)
			if len(w) == 0 || len(w) > width || !slices.Equal(w, Window(current, count, width)) {
				return false
			}
			for i, p := range w {
				if p < 1 || p > count || (i > 0 && w[i-1] >= p) {
					return false
				}
			}
			if !slices.Contains(w, Clamp(current, count)) {
				return false
			}
			if count > width && width >= 3 {
				return w[0] == 1 && w[len(w)-1] == count
			}
			return true
		},
		gen.IntRange(-5, 200),
		gen.IntRange(1, 150),
		gen.IntRange(1, 15),
	))

	properties.TestingRun(t)
}
