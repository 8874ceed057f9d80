// Package impact ranks a user's tasks by impact score and flags the
// Pareto head of the list as high-impact.
package impact

import (
	"math"
	"sort"
)

// HighImpactRatio is the share of tasks recommended as high impact.
const HighImpactRatio = 0.2

// Task is the minimal task view the scorer needs.
type Task struct {
	ID           string  `json:"id"`
	ImpactScore  float64 `json:"impact_score"`
	IsHighImpact bool    `json:"is_high_impact"`
	Priority     string  `json:"priority"`
	Status       string  `json:"status"`
}

// ScoredTask is a task with its recommended classification.
type ScoredTask struct {
	Task
	RecommendedScore   float64 `json:"recommended_score"`
	Recommended        bool    `json:"recommended_high_impact"`
	ShouldBeHighImpact bool    `json:"should_be_high_impact"`
}

// Analysis is the result of ranking a full task set.
type Analysis struct {
	AllTasks              []ScoredTask `json:"all_tasks_with_scores"`
	RecommendedHighImpact []ScoredTask `json:"recommended_high_impact_tasks"`
	OtherTasks            []ScoredTask `json:"other_tasks"`
}

var priorityWeight = map[string]int{
	"urgent": 3,
	"high":   2,
	"medium": 1,
	"low":    0,
}

// Analyze ranks all tasks by recommended score and classifies the top
// ceil(20%) as high impact. The stored impact score is the primary ranking
// key; priority and status only break ties so the ordering stays stable.
// The input is not modified and no side effects occur.
func Analyze(tasks []Task) Analysis {
	scored := make([]ScoredTask, 0, len(tasks))
	for _, task := range tasks {
		scored = append(scored, ScoredTask{
			Task:             task,
			RecommendedScore: task.ImpactScore,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.RecommendedScore != b.RecommendedScore {
			return a.RecommendedScore > b.RecommendedScore
		}
		// Open tasks rank ahead of finished ones at equal score.
		aDone := a.Status == "done"
		bDone := b.Status == "done"
		if aDone != bDone {
			return bDone
		}
		if priorityWeight[a.Priority] != priorityWeight[b.Priority] {
			return priorityWeight[a.Priority] > priorityWeight[b.Priority]
		}
		return a.ID < b.ID
	})

	cutoff := highImpactCount(len(scored))

	analysis := Analysis{
		AllTasks:              scored,
		RecommendedHighImpact: make([]ScoredTask, 0, cutoff),
		OtherTasks:            make([]ScoredTask, 0, len(scored)-cutoff),
	}

	for i := range scored {
		recommended := i < cutoff
		scored[i].Recommended = recommended
		scored[i].ShouldBeHighImpact = recommended != scored[i].IsHighImpact
		if recommended {
			analysis.RecommendedHighImpact = append(analysis.RecommendedHighImpact, scored[i])
		} else {
			analysis.OtherTasks = append(analysis.OtherTasks, scored[i])
		}
	}

	return analysis
}

func highImpactCount(total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Ceil(float64(total) * HighImpactRatio))
}
