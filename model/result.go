package model

import (
	"iter"
	"path"
	"time"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
)

// Item is a single ranked match.
type Item struct {
	// Path identifies the matched image within its dataset.
	Path string `json:"path"`
	// Score is the backend ranking score.
	Score float64 `json:"score"`
	// ROI is the encoded region of interest, empty when unknown.
	ROI string `json:"roi,omitempty"`
	// Desc is a display description, filled by a metadata collaborator.
	Desc string `json:"desc,omitempty"`
}

// HasROI reports whether the item carries a region of interest.
func (it Item) HasROI() bool { return it.ROI != "" }

// Name returns the file name part of the item path.
func (it Item) Name() string { return path.Base(it.Path) }

// Result is an immutable, ordered list of items.
type Result struct {
	items     []Item
	roi       *roaring.Bitmap
	createdAt time.Time
}

// NewResult copies items into a new Result. The order of items is kept.
func NewResult(items []Item) *Result {
	r := &Result{
		items:     make([]Item, len(items)),
		roi:       roaring.New(),
		createdAt: time.Now(),
	}
	copy(r.items, items)
	for i, it := range r.items {
		if it.HasROI() {
			r.roi.Add(uint32(i))
		}
	}
	r.roi.RunOptimize()
	return r
}

// Len returns the number of items.
func (r *Result) Len() int { return len(r.items) }

// At returns the item at position i.
func (r *Result) At(i int) Item { return r.items[i] }

// CreatedAt returns when the result was built.
func (r *Result) CreatedAt() time.Time { return r.createdAt }

// Empty reports whether the result carries no usable match: either no item
// at all, or a single placeholder item without a path.
func (r *Result) Empty() bool {
	switch len(r.items) {
	case 0:
		return true
	case 1:
		return r.items[0].Path == ""
	default:
		return false
	}
}

// Items returns a copy of all items.
func (r *Result) Items() []Item {
	return r.Slice(0, len(r.items))
}

// Slice returns a copy of items[lo:hi].
func (r *Result) Slice(lo, hi int) []Item {
	out := make([]Item, hi-lo)
	copy(out, r.items[lo:hi])
	return out
}

// All iterates the items in ranking order.
func (r *Result) All() iter.Seq2[int, Item] {
	return func(yield func(int, Item) bool) {
		for i, it := range r.items {
			if !yield(i, it) {
				return
			}
		}
	}
}

// ROICount returns the number of items carrying a region of interest.
func (r *Result) ROICount() int { return int(r.roi.GetCardinality()) }

// WithROI returns, in ranking order, a copy of the items that carry a
// region of interest.
func (r *Result) WithROI() []Item {
	out := make([]Item, 0, r.roi.GetCardinality())
	it := r.roi.Iterator()
	for it.HasNext() {
		out = append(out, r.items[it.Next()])
	}
	return out
}

// SizeBytes estimates the memory held by the result.
func (r *Result) SizeBytes() int64 {
	n := int64(unsafe.Sizeof(*r)) + int64(r.roi.GetSizeInBytes())
	n += int64(len(r.items)) * int64(unsafe.Sizeof(Item{}))
	for _, it := range r.items {
		n += int64(len(it.Path) + len(it.ROI) + len(it.Desc))
	}
	return n
}
