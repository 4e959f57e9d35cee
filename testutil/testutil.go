package testutil

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/query"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Items returns a ranking list of n items with descending scores. Roughly
// roiRate of the items carry a region of interest.
// Locks only once per call.
func (r *RNG) Items(n int, roiRate float64) []model.Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = r.rand.Float64()
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			Path:  fmt.Sprintf("video%03d/frame%06d.jpg", r.rand.Intn(100), r.rand.Intn(1_000_000)),
			Score: scores[i],
		}
		if r.rand.Float64() < roiRate {
			x, y := r.rand.Intn(500), r.rand.Intn(500)
			w, h := 10+r.rand.Intn(200), 10+r.rand.Intn(200)
			items[i].ROI = ROI(x, y, x+w, y+h)
		}
	}
	return items
}

// Definitions returns n distinct text query definitions for engine and
// dataset.
func (r *RNG) Definitions(n int, engine, dataset string) []query.Definition {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, n)
	defs := make([]query.Definition, 0, n)
	for len(defs) < n {
		spec := Words[r.rand.Intn(len(Words))] + " " + Words[r.rand.Intn(len(Words))]
		if _, dup := seen[spec]; dup {
			spec = fmt.Sprintf("%s %d", spec, len(defs))
		}
		seen[spec] = struct{}{}
		defs = append(defs, query.Definition{Spec: spec, Type: query.Text, Dataset: dataset, Engine: engine})
	}
	return defs
}

// Words is a small vocabulary for generated queries.
var Words = []string{
	"cat", "dog", "car", "bicycle", "person", "tree", "house", "boat",
	"bird", "horse", "train", "bus", "chair", "table", "bottle", "sheep",
}

// ROI formats the closed rectangle (x1,y1)-(x2,y2) in the underscore form
// used by the engines.
func ROI(x1, y1, x2, y2 int) string {
	return fmt.Sprintf("%d_%d_%d_%d_%d_%d_%d_%d_%d_%d", x1, y1, x2, y1, x2, y2, x1, y2, x1, y1)
}
