package services

// PointsPerLevel is the fixed width of every level band.
const PointsPerLevel = 1000

// LevelForPoints returns floor(points / PointsPerLevel) + 1.
func LevelForPoints(points int64) int {
	if points < 0 {
		points = 0
	}
	return int(points/PointsPerLevel) + 1
}

// NextLevel describes distance to the next level band.
type NextLevel struct {
	PointsNeeded int64   `json:"pointsNeeded"`
	Progress     float64 `json:"progress"`
}

// nextLevelFor computes the band metrics for a stored (points, level) pair.
func nextLevelFor(totalPoints int64, level int) NextLevel {
	if level < 1 {
		level = 1
	}
	floor := int64(level-1) * PointsPerLevel
	ceiling := int64(level) * PointsPerLevel

	progress := float64(totalPoints-floor) / PointsPerLevel * 100
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return NextLevel{
		PointsNeeded: ceiling - totalPoints,
		Progress:     progress,
	}
}
