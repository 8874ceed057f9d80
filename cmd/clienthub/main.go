package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/clienthub/clienthub/internal/apiclient"
	"github.com/clienthub/clienthub/internal/config"
	"github.com/clienthub/clienthub/internal/store"
)

const authSetupCommand = "clienthub auth login --email <email>"

var cliRetry = config.ClientRetryConfig{
	MaxAttempts: 3,
	BaseWait:    500 * time.Millisecond,
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "auth":
		handleAuth(os.Args[2:])
	case "whoami":
		handleWhoami(os.Args[2:])
	case "client":
		handleClient(os.Args[2:])
	case "task":
		handleTask(os.Args[2:])
	case "timer":
		handleTimer(os.Args[2:])
	case "profit":
		handleProfit(os.Args[2:])
	case "impact":
		handleImpact(os.Args[2:])
	case "version":
		fmt.Println("clienthub dev")
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`clienthub <command> [args]

Commands:
  auth login|signup  Authenticate and store a token
  whoami             Validate token and show user
  client             List and inspect clients
  task               Manage tasks
  timer              Start, check, and stop work timers
  profit             View and set client profitability
  impact             Run the 80/20 task analysis
  version            Show CLI version`)
}

func handleAuth(args []string) {
	const authUsage = "usage: clienthub auth <login|signup> [--email <email>] [--api <url>]"
	if len(args) == 0 {
		fmt.Println(authUsage)
		os.Exit(1)
	}

	switch args[0] {
	case "login", "signup":
		flags := flag.NewFlagSet("auth "+args[0], flag.ExitOnError)
		email := flags.String("email", "", "account email")
		name := flags.String("name", "", "display name (signup only)")
		api := flags.String("api", "", "API base URL")
		_ = flags.Parse(args[1:])

		cfg, err := apiclient.LoadCLIConfig()
		dieIf(err)

		if *api != "" {
			cfg.APIBaseURL = *api
		}
		if *email == "" {
			*email = prompt("Email: ")
		}
		password := prompt("Password: ")
		if strings.TrimSpace(*email) == "" || password == "" {
			die("email and password are required")
		}

		client := apiclient.New(cfg.APIBaseURL, "", cliRetry)

		var user *store.User
		if args[0] == "signup" {
			if *name == "" {
				*name = prompt("Name: ")
			}
			user, err = client.Signup(*email, password, *name)
		} else {
			user, err = client.Login(*email, password)
		}
		dieIf(err)

		cfg.Token = client.Token
		cfg.Email = user.Email
		dieIf(apiclient.SaveCLIConfig(cfg))
		fmt.Printf("Logged in as %s. Config saved to %s\n", user.Email, mustConfigPath())
	default:
		fmt.Println(authUsage)
		os.Exit(1)
	}
}

func handleWhoami(args []string) {
	flags := flag.NewFlagSet("whoami", flag.ExitOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	_ = flags.Parse(args)

	client := mustClient()
	user, err := client.Me()
	dieIf(err)

	if *jsonOut {
		printJSON(user)
		return
	}
	fmt.Printf("User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("Level %d, %d XP, %d points\n",
		user.Gamification.Level, user.Gamification.Experience, user.Gamification.ActionPoints)
}

func handleClient(args []string) {
	const clientUsage = "usage: clienthub client <list|view> ..."
	if len(args) == 0 {
		fmt.Println(clientUsage)
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		flags := flag.NewFlagSet("client list", flag.ExitOnError)
		status := flags.String("status", "", "filter by status (active|inactive|archived)")
		jsonOut := flags.Bool("json", false, "JSON output")
		_ = flags.Parse(args[1:])

		clients, err := mustClient().ListClients(*status)
		dieIf(err)

		if *jsonOut {
			printJSON(clients)
			return
		}
		if len(clients) == 0 {
			fmt.Println("No clients found.")
			return
		}
		for _, c := range clients {
			fmt.Printf("%-36s  %-10s  %-25s  %d done / %d open\n",
				c.ID, c.Status, c.Name,
				c.Metrics.TasksCompleted, c.Metrics.TasksPending+c.Metrics.TasksInProgress)
		}
	case "view":
		flags := flag.NewFlagSet("client view", flag.ExitOnError)
		jsonOut := flags.Bool("json", false, "JSON output")
		_ = flags.Parse(args[1:])
		if flags.NArg() == 0 {
			die("client id is required")
		}

		c, err := mustClient().GetClient(flags.Arg(0))
		dieIf(err)

		if *jsonOut {
			printJSON(c)
			return
		}
		fmt.Printf("%s (%s)\n", c.Name, c.Status)
		if c.Company != nil {
			fmt.Printf("Company: %s\n", *c.Company)
		}
		if c.Email != nil {
			fmt.Printf("Email: %s\n", *c.Email)
		}
		fmt.Printf("Tasks: %d completed, %d in progress, %d pending\n",
			c.Metrics.TasksCompleted, c.Metrics.TasksInProgress, c.Metrics.TasksPending)
	default:
		fmt.Println(clientUsage)
		os.Exit(1)
	}
}

func handleTask(args []string) {
	const taskUsage = "usage: clienthub task <list|create|complete|delete> ..."
	if len(args) == 0 {
		fmt.Println(taskUsage)
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		flags := flag.NewFlagSet("task list", flag.ExitOnError)
		status := flags.String("status", "", "filter by status (todo|in_progress|done)")
		jsonOut := flags.Bool("json", false, "JSON output")
		_ = flags.Parse(args[1:])

		tasks, err := mustClient().ListTasks(*status)
		dieIf(err)

		if *jsonOut {
			printJSON(tasks)
			return
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return
		}
		for _, t := range tasks {
			marker := " "
			if t.IsHighImpact {
				marker = "*"
			}
			fmt.Printf("%s %-36s  %-11s  %-6s  %s\n", marker, t.ID, t.Status, t.Priority, t.Title)
		}
	case "create":
		flags := flag.NewFlagSet("task create", flag.ExitOnError)
		clientID := flags.String("client", "", "client id")
		priority := flags.String("priority", "", "priority (low|medium|high|urgent)")
		score := flags.Float64("score", -1, "impact score (0-100)")
		estimate := flags.Int("estimate", 0, "estimated minutes")
		jsonOut := flags.Bool("json", false, "JSON output")
		_ = flags.Parse(args[1:])

		if *clientID == "" {
			die("--client is required")
		}
		if flags.NArg() == 0 {
			die("task title is required")
		}
		title := strings.Join(flags.Args(), " ")

		fields := map[string]interface{}{}
		if *priority != "" {
			fields["priority"] = *priority
		}
		if *score >= 0 {
			fields["impact_score"] = *score
		}
		if *estimate > 0 {
			fields["estimated_minutes"] = *estimate
		}

		task, err := mustClient().CreateTask(*clientID, title, fields)
		dieIf(err)

		if *jsonOut {
			printJSON(task)
			return
		}
		fmt.Printf("Created task %s\n", task.ID)
	case "complete":
		flags := flag.NewFlagSet("task complete", flag.ExitOnError)
		minutes := flags.Int("minutes", -1, "actual minutes spent")
		jsonOut := flags.Bool("json", false, "JSON output")
		_ = flags.Parse(args[1:])
		if flags.NArg() == 0 {
			die("task id is required")
		}

		var actual *int
		if *minutes >= 0 {
			actual = minutes
		}
		task, reward, err := mustClient().CompleteTask(flags.Arg(0), actual)
		dieIf(err)

		if *jsonOut {
			printJSON(map[string]interface{}{"task": task, "reward": reward})
			return
		}
		fmt.Printf("Completed: %s\n", task.Title)
		if reward != nil {
			fmt.Printf("Earned %d points, %d XP", reward.Points, reward.Experience)
			if reward.LevelUp {
				fmt.Print(" — level up!")
			}
			fmt.Println()
		}
	case "delete":
		flags := flag.NewFlagSet("task delete", flag.ExitOnError)
		_ = flags.Parse(args[1:])
		if flags.NArg() == 0 {
			die("task id is required")
		}
		dieIf(mustClient().DeleteTask(flags.Arg(0)))
		fmt.Println("Deleted.")
	default:
		fmt.Println(taskUsage)
		os.Exit(1)
	}
}

func handleTimer(args []string) {
	const timerUsage = "usage: clienthub timer <start|status|stop> ..."
	if len(args) == 0 {
		fmt.Println(timerUsage)
		os.Exit(1)
	}

	switch args[0] {
	case "start":
		flags := flag.NewFlagSet("timer start", flag.ExitOnError)
		taskID := flags.String("task", "", "task id to time")
		clientID := flags.String("client", "", "client id to time")
		_ = flags.Parse(args[1:])

		var task, client *string
		if *taskID != "" {
			task = taskID
		}
		if *clientID != "" {
			client = clientID
		}

		timer, err := mustClient().StartTimer(task, client)
		dieIf(err)
		fmt.Printf("Timer %s started at %s\n", timer.ID, timer.StartedAt.Local().Format(time.Kitchen))
	case "status":
		timer, elapsed, err := mustClient().ActiveTimer()
		dieIf(err)
		if timer == nil {
			fmt.Println("No timer running.")
			return
		}
		state := "running"
		if timer.PausedAt != nil {
			state = "paused"
		}
		fmt.Printf("Timer %s %s, %s elapsed\n", timer.ID, state, formatElapsed(elapsed))
	case "stop":
		flags := flag.NewFlagSet("timer stop", flag.ExitOnError)
		_ = flags.Parse(args[1:])

		client := mustClient()
		id := flags.Arg(0)
		if id == "" {
			active, _, err := client.ActiveTimer()
			dieIf(err)
			if active == nil {
				die("no timer running")
			}
			id = active.ID
		}

		timer, err := client.StopTimer(id)
		dieIf(err)
		fmt.Printf("Stopped after %s\n", formatElapsed(timer.DurationSeconds))
	default:
		fmt.Println(timerUsage)
		os.Exit(1)
	}
}

func handleProfit(args []string) {
	const profitUsage = "usage: clienthub profit <view|set> <client-id> ..."
	if len(args) == 0 {
		fmt.Println(profitUsage)
		os.Exit(1)
	}

	switch args[0] {
	case "view":
		flags := flag.NewFlagSet("profit view", flag.ExitOnError)
		jsonOut := flags.Bool("json", false, "JSON output")
		_ = flags.Parse(args[1:])
		if flags.NArg() == 0 {
			die("client id is required")
		}

		record, err := mustClient().GetProfitability(flags.Arg(0))
		dieIf(err)

		if *jsonOut {
			printJSON(record)
			return
		}
		printProfitability(record)
	case "set":
		flags := flag.NewFlagSet("profit set", flag.ExitOnError)
		rate := flags.Float64("rate", 0, "hourly rate")
		target := flags.Float64("target", 0, "target hours")
		spent := flags.Float64("spent", 0, "spent hours")
		jsonOut := flags.Bool("json", false, "JSON output")
		_ = flags.Parse(args[1:])
		if flags.NArg() == 0 {
			die("client id is required")
		}

		record, err := mustClient().SetProfitability(flags.Arg(0), *rate, *target, *spent)
		dieIf(err)

		if *jsonOut {
			printJSON(record)
			return
		}
		printProfitability(record)
	default:
		fmt.Println(profitUsage)
		os.Exit(1)
	}
}

func printProfitability(record *store.Profitability) {
	fmt.Printf("Rate: $%.2f/h  Target: %.1fh  Spent: %.1fh\n",
		record.HourlyRate, record.TargetHours, record.SpentHours)
	fmt.Printf("Revenue: $%.2f  Profitability: %.1f%%  Remaining: %.1fh\n",
		record.Derived.Revenue, record.Derived.ProfitabilityPct, record.Derived.RemainingHours)
}

func handleImpact(args []string) {
	flags := flag.NewFlagSet("impact", flag.ExitOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	_ = flags.Parse(args)

	analysis, err := mustClient().ImpactAnalysis()
	dieIf(err)

	if *jsonOut {
		printJSON(analysis)
		return
	}

	if len(analysis.RecommendedHighImpact) == 0 {
		fmt.Println("No tasks to analyze.")
		return
	}
	fmt.Printf("High impact (%d of %d):\n", len(analysis.RecommendedHighImpact), len(analysis.AllTasks))
	for _, t := range analysis.RecommendedHighImpact {
		fmt.Printf("  %-36s  %-6s  score %.0f\n", t.ID, t.Priority, t.RecommendedScore)
	}
}

func mustClient() *apiclient.Client {
	cfg, err := apiclient.LoadCLIConfig()
	dieIf(err)
	if strings.TrimSpace(cfg.Token) == "" {
		die(fmt.Sprintf("No auth config found. Run:\n\n  %s", authSetupCommand))
	}
	return apiclient.New(cfg.APIBaseURL, cfg.Token, cliRetry)
}

func formatElapsed(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

func printJSON(v interface{}) {
	payload, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(payload))
}

func prompt(label string) string {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	text, _ := reader.ReadString('\n')
	return strings.TrimSpace(text)
}

func die(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func dieIf(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if status, ok := apiclient.HTTPStatusCode(err); ok && status == 401 {
		die(fmt.Sprintf("Not authenticated. Run:\n\n  %s", authSetupCommand))
	}
	die(err.Error())
}

func mustConfigPath() string {
	path, err := apiclient.ConfigPath()
	if err != nil {
		return "config"
	}
	return path
}
