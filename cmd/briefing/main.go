// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Daily Briefing — mailbox summary generator
//
// Entry point for one briefing run. It:
//  1. Checks the scheduler guard (weekday + time windows in auto mode)
//  2. Loads rule configuration from YAML (regexes compiled here, fatally)
//  3. Collects inbox, sent, overdue and calendar items via the Graph API
//  4. Scores and groups messages with the prioritisation engine
//  5. Renders the HTML report and delivers it (mail, queue, or dry run)
//  6. Optionally records the run in the Postgres history log
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/bcem/briefing/internal/collector"
	"github.com/bcem/briefing/internal/config"
	"github.com/bcem/briefing/internal/graph"
	"github.com/bcem/briefing/internal/history"
	"github.com/bcem/briefing/internal/models"
	"github.com/bcem/briefing/internal/prioritise"
	"github.com/bcem/briefing/internal/queue"
	"github.com/bcem/briefing/internal/render"
	"github.com/bcem/briefing/internal/runguard"
	"github.com/bcem/briefing/internal/schedule"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

func main() {
	var (
		configPath = flag.String("config", "", "path to configuration file (required)")
		modeFlag   = flag.String("mode", "auto", "briefing mode: auto, morning, evening or force")
		dryRun     = flag.Bool("dry-run", false, "generate the report without sending it")
		since      = flag.String("since", "", "lookback override, e.g. \"2d\" or \"12h\"")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
		showLast   = flag.Int("show-last", 0, "print the N most recent runs from history and exit")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("starting daily briefing")

	if *configPath == "" {
		slog.Error("-config is required")
		os.Exit(1)
	}

	mode, err := schedule.ParseMode(*modeFlag)
	if err != nil {
		slog.Error("invalid mode", "error", err)
		os.Exit(1)
	}

	now := time.Now()
	guard := schedule.NewGuard(now)
	if !guard.ShouldRun(mode) {
		slog.Info("scheduler guard prevented execution")
		return
	}
	actualMode := guard.Resolve(mode)
	slog.Info("running briefing", "mode", actualMode)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if *since != "" {
		lookback, err := parseSince(*since)
		if err != nil {
			slog.Error("invalid -since value", "error", err)
			os.Exit(1)
		}
		cfg.Behaviour.LookbackInbox = lookback
		slog.Info("lookback overridden", "lookback", lookback)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// --- Run History (optional) ---
	var runs *history.Store
	var pgPool *pgxpool.Pool
	if cfg.HistoryDatabaseURL != "" {
		pgPool, err = pgxpool.New(ctx, cfg.HistoryDatabaseURL)
		if err != nil {
			slog.Error("failed to create Postgres pool", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		runs, err = history.NewStore(ctx, pgPool)
		if err != nil {
			slog.Error("failed to initialise run history", "error", err)
			os.Exit(1)
		}
	}

	if *showLast > 0 {
		if runs == nil {
			slog.Error("-show-last requires history.database_url")
			os.Exit(1)
		}
		printHistory(ctx, runs, *showLast)
		return
	}

	// --- Redis (optional: run guard + queue delivery) ---
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
	}

	// A real delivery inside the same window must not repeat. Dry runs and
	// forced runs bypass the guard.
	day := now.Format("2006-01-02")
	var sentGuard *runguard.Guard
	if rdb != nil && !*dryRun && mode != schedule.ModeForce {
		sentGuard = runguard.New(rdb, cfg.GuardTTL)
		ok, err := sentGuard.Acquire(ctx, day, string(actualMode))
		if err != nil {
			slog.Error("run guard check failed", "error", err)
			os.Exit(1)
		}
		if !ok {
			slog.Info("briefing already sent for this window, skipping",
				"day", day,
				"mode", actualMode,
			)
			return
		}
	}

	// --- Graph client (OAuth2 client credentials) ---
	creds := &clientcredentials.Config{
		ClientID:     cfg.Mailbox.ClientID,
		ClientSecret: cfg.Mailbox.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.Mailbox.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	client := graph.NewClient(creds.Client(ctx), graphBaseURL, cfg.Mailbox.User)

	// --- Collect ---
	start := time.Now()
	coll := collector.New(client, cfg)
	batch, err := coll.CollectAll(ctx)
	if err != nil {
		slog.Error("collection failed", "error", err)
		releaseGuard(ctx, sentGuard, day, string(actualMode))
		os.Exit(1)
	}

	// --- Prioritise and group ---
	engine := prioritise.New(cfg)
	result := engine.Run(batch.Mail(), batch.Overdue)
	calendar := engine.Calendar(batch.Calendar(), now, actualMode == schedule.ModeMorning)

	// --- Render ---
	renderer, err := render.New()
	if err != nil {
		slog.Error("failed to initialise renderer", "error", err)
		os.Exit(1)
	}
	html, err := renderer.RenderReport(result, calendar, actualMode, now)
	if err != nil {
		slog.Error("failed to render report", "error", err)
		releaseGuard(ctx, sentGuard, day, string(actualMode))
		os.Exit(1)
	}
	subject := render.RenderSubject(cfg.Report.SubjectTemplate, actualMode, now)

	if cfg.Report.PreviewHTML != "" {
		if err := render.WritePreview(cfg.Report.PreviewHTML, html); err != nil {
			slog.Error("failed to save preview", "error", err)
		}
	}

	// --- Deliver ---
	runID := uuid.New().String()
	delivered := "dry-run"

	switch {
	case *dryRun:
		logDrySummary(result, calendar, subject, cfg.Report.To)
	case cfg.Report.Deliver == "queue":
		publisher := queue.NewPublisher(rdb, cfg.BriefingQueue)
		b := &queue.Briefing{
			RunID:         runID,
			Mode:          string(actualMode),
			GeneratedAt:   now,
			To:            cfg.Report.To,
			Subject:       subject,
			HTML:          html,
			TotalMail:     totalItems(result),
			TotalCalendar: len(calendar),
		}
		if err := publisher.PublishBriefing(ctx, b); err != nil {
			slog.Error("queue delivery failed", "error", err)
			releaseGuard(ctx, sentGuard, day, string(actualMode))
			os.Exit(1)
		}
		delivered = "queue"
	default:
		if err := client.SendMail(ctx, cfg.Report.To, subject, html); err != nil {
			slog.Error("mail delivery failed", "error", err)
			releaseGuard(ctx, sentGuard, day, string(actualMode))
			os.Exit(1)
		}
		delivered = "mail"
	}

	// --- Record run ---
	if runs != nil {
		droppedTotal := 0
		for _, n := range result.Dropped {
			droppedTotal += n
		}
		err := runs.Record(ctx, history.Run{
			RunID:         runID,
			Mode:          string(actualMode),
			Delivered:     delivered,
			MailTotal:     totalItems(result),
			CalendarTotal: len(calendar),
			Skipped:       result.Skipped,
			Dropped:       droppedTotal,
			Elapsed:       time.Since(start),
		})
		if err != nil {
			slog.Error("failed to record run history", "error", err)
		}
	}

	slog.Info("daily briefing completed",
		"run_id", runID,
		"delivered", delivered,
		"emails", totalItems(result),
		"calendar_items", len(calendar),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}

// parseSince parses lookback overrides like "2d" or "12h". Sub-day values
// still scan at least one day, matching the Graph date filters.
func parseSince(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 24*time.Hour {
		d = 24 * time.Hour
	}
	return d, nil
}

// logDrySummary prints what would have been sent, including a sample of
// the high-priority section.
func logDrySummary(result *prioritise.Result, calendar []*models.Event, subject, to string) {
	slog.Info("dry run — report not sent",
		"subject", subject,
		"to", to,
		"emails", totalItems(result),
		"calendar_items", len(calendar),
		"skipped", result.Skipped,
	)

	high := result.Groups[models.GroupHighPriority]
	for i, item := range high {
		if i == 5 {
			break
		}
		slog.Info("high priority item",
			"subject", item.Subject,
			"from", item.SenderName,
			"score", item.Score,
			"reason", item.Reason(),
		)
	}
}

// printHistory logs the most recent runs from the history store.
func printHistory(ctx context.Context, runs *history.Store, n int) {
	recent, err := runs.ListRecent(ctx, n)
	if err != nil {
		slog.Error("failed to list run history", "error", err)
		os.Exit(1)
	}
	for _, r := range recent {
		slog.Info("run",
			"run_id", r.RunID,
			"mode", r.Mode,
			"delivered", r.Delivered,
			"emails", r.MailTotal,
			"calendar_items", r.CalendarTotal,
			"skipped", r.Skipped,
			"dropped", r.Dropped,
			"elapsed", r.Elapsed,
			"at", r.CreatedAt.Format(time.RFC3339),
		)
	}
}

func totalItems(result *prioritise.Result) int {
	total := 0
	for _, items := range result.Groups {
		total += len(items)
	}
	return total
}

// releaseGuard frees the sent marker after a failed delivery so a retry
// inside the same window is not blocked.
func releaseGuard(ctx context.Context, g *runguard.Guard, day, mode string) {
	if g == nil {
		return
	}
	if err := g.Release(ctx, day, mode); err != nil {
		slog.Error("failed to release run guard", "error", err)
	}
}
