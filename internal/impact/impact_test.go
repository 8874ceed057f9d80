package impact

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_Empty(t *testing.T) {
	analysis := Analyze(nil)

	assert.Empty(t, analysis.AllTasks)
	assert.Empty(t, analysis.RecommendedHighImpact)
	assert.Empty(t, analysis.OtherTasks)
}

func TestAnalyze_SingleTaskIsHighImpact(t *testing.T) {
	analysis := Analyze([]Task{{ID: "a", ImpactScore: 10}})

	require.Len(t, analysis.RecommendedHighImpact, 1)
	assert.Empty(t, analysis.OtherTasks)
	assert.True(t, analysis.RecommendedHighImpact[0].Recommended)
}

func TestAnalyze_ParetoCutoff(t *testing.T) {
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{
			ID:          fmt.Sprintf("task-%02d", i),
			ImpactScore: float64(i * 10),
			Status:      "todo",
			Priority:    "medium",
		}
	}

	analysis := Analyze(tasks)

	require.Len(t, analysis.RecommendedHighImpact, 2)
	require.Len(t, analysis.OtherTasks, 8)
	assert.Equal(t, "task-09", analysis.RecommendedHighImpact[0].ID)
	assert.Equal(t, "task-08", analysis.RecommendedHighImpact[1].ID)
}

func TestAnalyze_CutoffRoundsUp(t *testing.T) {
	cases := map[int]int{1: 1, 2: 1, 5: 1, 6: 2, 10: 2, 11: 3, 100: 20}
	for total, expected := range cases {
		tasks := make([]Task, total)
		for i := range tasks {
			tasks[i] = Task{ID: fmt.Sprintf("t-%03d", i), ImpactScore: float64(i)}
		}
		analysis := Analyze(tasks)
		assert.Len(t, analysis.RecommendedHighImpact, expected, "total=%d", total)
	}
}

func TestAnalyze_PartitionsWithoutOverlap(t *testing.T) {
	tasks := make([]Task, 17)
	for i := range tasks {
		tasks[i] = Task{ID: fmt.Sprintf("t-%02d", i), ImpactScore: float64(i % 5)}
	}

	analysis := Analyze(tasks)

	seen := make(map[string]bool)
	for _, st := range analysis.RecommendedHighImpact {
		assert.False(t, seen[st.ID])
		seen[st.ID] = true
	}
	for _, st := range analysis.OtherTasks {
		assert.False(t, seen[st.ID])
		seen[st.ID] = true
	}
	assert.Len(t, seen, len(tasks))
	assert.Len(t, analysis.AllTasks, len(tasks))
}

func TestAnalyze_StoredScoreIsPrimaryKey(t *testing.T) {
	analysis := Analyze([]Task{
		{ID: "low-score-urgent", ImpactScore: 10, Priority: "urgent"},
		{ID: "high-score-low", ImpactScore: 90, Priority: "low"},
	})

	require.Len(t, analysis.RecommendedHighImpact, 1)
	assert.Equal(t, "high-score-low", analysis.RecommendedHighImpact[0].ID)
}

func TestAnalyze_TieBreaks(t *testing.T) {
	analysis := Analyze([]Task{
		{ID: "c", ImpactScore: 50, Status: "done", Priority: "urgent"},
		{ID: "b", ImpactScore: 50, Status: "todo", Priority: "low"},
		{ID: "a", ImpactScore: 50, Status: "todo", Priority: "urgent"},
	})

	require.Len(t, analysis.AllTasks, 3)
	assert.Equal(t, "a", analysis.AllTasks[0].ID)
	assert.Equal(t, "b", analysis.AllTasks[1].ID)
	assert.Equal(t, "c", analysis.AllTasks[2].ID)
}

func TestAnalyze_ShouldBeHighImpactDiff(t *testing.T) {
	tasks := []Task{
		{ID: "top", ImpactScore: 100, IsHighImpact: false},
		{ID: "mid", ImpactScore: 50, IsHighImpact: true},
		{ID: "bot-1", ImpactScore: 10, IsHighImpact: false},
		{ID: "bot-2", ImpactScore: 5, IsHighImpact: false},
		{ID: "bot-3", ImpactScore: 1, IsHighImpact: false},
	}

	analysis := Analyze(tasks)

	byID := make(map[string]ScoredTask)
	for _, st := range analysis.AllTasks {
		byID[st.ID] = st
	}

	// "top" should be promoted, "mid" should be demoted, the rest agree.
	assert.True(t, byID["top"].ShouldBeHighImpact)
	assert.True(t, byID["mid"].ShouldBeHighImpact)
	assert.False(t, byID["bot-1"].ShouldBeHighImpact)
	assert.False(t, byID["bot-2"].ShouldBeHighImpact)
	assert.False(t, byID["bot-3"].ShouldBeHighImpact)
}

func TestAnalyze_DoesNotMutateInput(t *testing.T) {
	tasks := []Task{
		{ID: "a", ImpactScore: 10},
		{ID: "b", ImpactScore: 90},
	}

	Analyze(tasks)

	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "b", tasks[1].ID)
}
