package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Path: fmt.Sprintf("frames/%04d.jpg", i), Score: float64(n - i)}
		if i%3 == 0 {
			items[i].ROI = fmt.Sprintf("%d_%d_%d_%d", i, i, i+10, i+10)
		}
	}
	return items
}

func TestResultIsImmutable(t *testing.T) {
	items := makeItems(10)
	r := NewResult(items)

	items[0].Path = "changed"
	assert.Equal(t, "frames/0000.jpg", r.At(0).Path)

	got := r.Items()
	got[1].Path = "changed"
	assert.Equal(t, "frames/0001.jpg", r.At(1).Path)

	page := r.Slice(2, 4)
	require.Len(t, page, 2)
	page[0].Path = "changed"
	assert.Equal(t, "frames/0002.jpg", r.At(2).Path)
}

func TestResultROI(t *testing.T) {
	r := NewResult(makeItems(10))
	assert.Equal(t, 4, r.ROICount())

	roi := r.WithROI()
	require.Len(t, roi, 4)
	for i, want := range []int{0, 3, 6, 9} {
		assert.Equal(t, r.At(want), roi[i])
	}
}

func TestResultEmpty(t *testing.T) {
	assert.True(t, NewResult(nil).Empty())
	assert.True(t, NewResult([]Item{{Path: ""}}).Empty())
	assert.False(t, NewResult([]Item{{Path: "a.jpg"}}).Empty())
	assert.False(t, NewResult([]Item{{}, {}}).Empty())
}

func TestResultAllKeepsOrder(t *testing.T) {
	r := NewResult(makeItems(25))
	next := 0
	for i, it := range r.All() {
		assert.Equal(t, next, i)
		assert.Equal(t, r.At(i), it)
		next++
	}
	assert.Equal(t, 25, next)
	assert.Positive(t, r.SizeBytes())
}

func TestItemName(t *testing.T) {
	assert.Equal(t, "0001.jpg", Item{Path: "a/b/0001.jpg"}.Name())
}
