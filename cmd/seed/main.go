// Seed inserts the baseline badge and level reference data. It is safe to run
// repeatedly: existing rows are updated in place.
package main

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"

	"github.com/clienthub/clienthub/internal/config"
)

type badgeSeed struct {
	slug             string
	name             string
	description      string
	icon             string
	requirementType  string
	requirementValue int
	rewardPoints     int
}

type levelSeed struct {
	level         int
	title         string
	minExperience int
}

var badges = []badgeSeed{
	{"first-task", "First Steps", "Complete your first task", "🎯", "tasks_completed", 1, 10},
	{"ten-tasks", "Getting Things Done", "Complete 10 tasks", "✅", "tasks_completed", 10, 50},
	{"fifty-tasks", "Task Machine", "Complete 50 tasks", "⚙️", "tasks_completed", 50, 200},
	{"hundred-tasks", "Centurion", "Complete 100 tasks", "💯", "tasks_completed", 100, 500},
	{"high-impact-5", "Needle Mover", "Complete 5 high-impact tasks", "🚀", "high_impact_completed", 5, 100},
	{"high-impact-25", "Force Multiplier", "Complete 25 high-impact tasks", "⚡", "high_impact_completed", 25, 300},
	{"streak-7", "One Week Strong", "Keep a 7-day completion streak", "🔥", "streak_days", 7, 75},
	{"streak-30", "Unstoppable", "Keep a 30-day completion streak", "🌋", "streak_days", 30, 400},
	{"timer-10h", "Clocked In", "Track 10 hours of work", "⏱️", "tracked_hours", 10, 50},
	{"timer-100h", "Deep Worker", "Track 100 hours of work", "🧘", "tracked_hours", 100, 300},
}

// Level N is reached once experience crosses (N-1)*100, matching
// gamify.LevelThresholdMultiplier.
var levels = []levelSeed{
	{1, "Newcomer", 0},
	{2, "Apprentice", 100},
	{3, "Practitioner", 200},
	{4, "Professional", 300},
	{5, "Specialist", 400},
	{6, "Expert", 500},
	{7, "Veteran", 600},
	{8, "Master", 700},
	{9, "Grandmaster", 800},
	{10, "Legend", 900},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	for _, b := range badges {
		_, err := db.Exec(`
			INSERT INTO badges (slug, name, description, icon, requirement_type, requirement_value, reward_points)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (slug) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				icon = EXCLUDED.icon,
				requirement_type = EXCLUDED.requirement_type,
				requirement_value = EXCLUDED.requirement_value,
				reward_points = EXCLUDED.reward_points`,
			b.slug, b.name, b.description, b.icon, b.requirementType, b.requirementValue, b.rewardPoints)
		if err != nil {
			log.Fatalf("seed badge %s: %v", b.slug, err)
		}
	}
	log.Printf("Seeded %d badges", len(badges))

	for _, l := range levels {
		_, err := db.Exec(`
			INSERT INTO levels (level, title, min_experience)
			VALUES ($1, $2, $3)
			ON CONFLICT (level) DO UPDATE SET
				title = EXCLUDED.title,
				min_experience = EXCLUDED.min_experience`,
			l.level, l.title, l.minExperience)
		if err != nil {
			log.Fatalf("seed level %d: %v", l.level, err)
		}
	}
	log.Printf("Seeded %d levels", len(levels))
}
