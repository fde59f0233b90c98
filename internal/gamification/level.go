// Package gamification owns the progression rules: levels, the badge catalog
// and the ledger that applies point and streak deltas.
package gamification

var levelThresholds = []int{0, 100, 300, 600, 1000, 1500}

const (
	MaxLevel         = 10
	pointsPerLevel   = 500
	highLevelStartAt = 1500
)

// Level derives the user level from total points.
func Level(points int) int {
	if points >= highLevelStartAt {
		return min(MaxLevel, 5+(points-highLevelStartAt)/pointsPerLevel)
	}
	level := 1
	for i := 1; i < len(levelThresholds); i++ {
		if points >= levelThresholds[i] {
			level = i + 1
		}
	}
	return level
}

// levelStart returns the minimum points needed to reach level. Level 5 spans
// [1000, 2000).
func levelStart(level int) int {
	if level <= 5 {
		return levelThresholds[level-1]
	}
	return highLevelStartAt + (level-5)*pointsPerLevel
}

// PointsToNextLevel is the gap between points and the next level's
// threshold, or zero at the top level.
func PointsToNextLevel(points int) int {
	level := Level(points)
	if level >= MaxLevel {
		return 0
	}
	return max(0, levelStart(level+1)-points)
}
