package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestProgressTracker_Frontier(t *testing.T) {
	t.Run("Unknown while no source exists", func(t *testing.T) {
		tracker := NewProgressTracker(zap.NewNop())
		_, known := tracker.Frontier()
		assert.False(t, known)
	})

	t.Run("Unknown while any registered source is unreported", func(t *testing.T) {
		tracker := NewProgressTracker(zap.NewNop())
		tracker.RegisterSource("reported")
		tracker.RegisterSource("silent")
		tracker.Advance("reported", 5000)
		_, known := tracker.Frontier()
		assert.False(t, known)
	})

	t.Run("Is the minimum bound across sources", func(t *testing.T) {
		tracker := NewProgressTracker(zap.NewNop())
		tracker.Advance("a", 5000)
		tracker.Advance("b", 3000)
		tracker.Advance("c", 8000)
		frontier, known := tracker.Frontier()
		assert.True(t, known)
		assert.Equal(t, int64(3000), frontier)
	})
}

func TestProgressTracker_Advance(t *testing.T) {
	t.Run("Bounds are monotone per source", func(t *testing.T) {
		tracker := NewProgressTracker(zap.NewNop())
		tracker.Advance("a", 5000)
		tracker.Advance("a", 2000)
		frontier, known := tracker.Frontier()
		assert.True(t, known)
		assert.Equal(t, int64(5000), frontier)
	})

	t.Run("Advancing the laggard moves the frontier", func(t *testing.T) {
		tracker := NewProgressTracker(zap.NewNop())
		tracker.Advance("a", 5000)
		tracker.Advance("b", 3000)
		tracker.Advance("b", 9000)
		frontier, _ := tracker.Frontier()
		assert.Equal(t, int64(5000), frontier)
	})

	t.Run("Advance implicitly registers the source", func(t *testing.T) {
		tracker := NewProgressTracker(zap.NewNop())
		tracker.Advance("new", 100)
		frontier, known := tracker.Frontier()
		assert.True(t, known)
		assert.Equal(t, int64(100), frontier)
	})
}
