package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestItems(t *testing.T) {
	rng := NewRNG(4711)

	items := rng.Items(100, 0.5)

	assert.Len(t, items, 100)
	withROI := 0
	for i, it := range items {
		assert.NotEmpty(t, it.Path)
		if i > 0 {
			assert.LessOrEqual(t, it.Score, items[i-1].Score)
		}
		if it.HasROI() {
			withROI++
		}
	}
	assert.Greater(t, withROI, 20)
	assert.Less(t, withROI, 80)
}

func TestItemsDeterministic(t *testing.T) {
	a := NewRNG(1).Items(20, 0.3)
	b := NewRNG(1).Items(20, 0.3)
	assert.Equal(t, a, b)

	rng := NewRNG(1)
	first := rng.Items(5, 0)
	rng.Reset()
	assert.Equal(t, first, rng.Items(5, 0))
}

func TestDefinitionsDistinct(t *testing.T) {
	defs := NewRNG(7).Definitions(200, "instances", "mydataset")

	seen := make(map[string]bool)
	for _, d := range defs {
		assert.False(t, seen[d.Spec], d.Spec)
		seen[d.Spec] = true
		assert.Equal(t, "instances", d.Engine)
	}
}

func TestROI(t *testing.T) {
	assert.Equal(t, "1_2_3_2_3_4_1_4_1_2", ROI(1, 2, 3, 4))
}

func TestClock(t *testing.T) {
	c := NewClock()
	start := c.Now()
	c.Advance(time.Minute)
	assert.Equal(t, time.Minute, c.Now().Sub(start))
}
