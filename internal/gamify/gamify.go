// Package gamify holds the reward and level rules. The rules are pure;
// the user store applies them inside the mutation transaction.
package gamify

import "math"

// LevelThresholdMultiplier defines the experience needed for the next
// level: a user at level N levels up once experience reaches N*100.
const LevelThresholdMultiplier = 100

const (
	basePoints     = 10
	pointsPerScore = 2
	baseExperience = 20
	xpPerScore     = 3
)

// Reward is the payout for completing a task.
type Reward struct {
	Points     int  `json:"points"`
	Experience int  `json:"experience"`
	LevelUp    bool `json:"level_up"`
}

// Gamification is a user's accumulated progress.
type Gamification struct {
	Level             int `json:"level"`
	Experience        int `json:"experience"`
	ActionPoints      int `json:"action_points"`
	TotalPointsEarned int `json:"total_points_earned"`
	CurrentStreak     int `json:"current_streak"`
	LongestStreak     int `json:"longest_streak"`
}

// TaskReward computes the payout for completing a task with the given
// impact score.
func TaskReward(impactScore float64) Reward {
	return Reward{
		Points:     int(math.Floor(basePoints + impactScore*pointsPerScore)),
		Experience: int(math.Floor(baseExperience + impactScore*xpPerScore)),
	}
}

// ApplyReward adds points and experience to the ledger and performs a
// single level-up check. The level increases by at most one per call even
// if the new experience total overshoots several thresholds.
func ApplyReward(g Gamification, points, experience int) (Gamification, bool) {
	g.ActionPoints += points
	g.TotalPointsEarned += points
	g.Experience += experience

	levelUp := false
	if g.Level > 0 && g.Experience >= g.Level*LevelThresholdMultiplier {
		g.Level++
		levelUp = true
	}

	return g, levelUp
}
