package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForPoints(t *testing.T) {
	cases := map[int64]int{
		0:    1,
		999:  1,
		1000: 2,
		1050: 2,
		2999: 3,
		-5:   1,
	}
	for points, want := range cases {
		assert.Equal(t, want, LevelForPoints(points), "points=%d", points)
	}
}

func TestNextLevelFor(t *testing.T) {
	nl := nextLevelFor(950, 1)
	assert.Equal(t, int64(50), nl.PointsNeeded)
	assert.InDelta(t, 95.0, nl.Progress, 0.0001)

	nl = nextLevelFor(1050, 2)
	assert.Equal(t, int64(950), nl.PointsNeeded)
	assert.InDelta(t, 5.0, nl.Progress, 0.0001)

	nl = nextLevelFor(0, 1)
	assert.Equal(t, int64(1000), nl.PointsNeeded)
	assert.Zero(t, nl.Progress)
}

func TestNextLevelForClampsInconsistentPairs(t *testing.T) {
	assert.Equal(t, 100.0, nextLevelFor(2500, 1).Progress)
	assert.Equal(t, 0.0, nextLevelFor(100, 3).Progress)
}
