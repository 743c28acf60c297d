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

// Package collector gathers one batch of mailbox and calendar content for
// a briefing run: recent inbox and sent items, today's (and optionally
// tomorrow's) calendar, and overdue follow-ups from a longer lookback.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bcem/briefing/internal/config"
	"github.com/bcem/briefing/internal/graph"
	"github.com/bcem/briefing/internal/models"
)

// Batch holds everything collected for one run.
type Batch struct {
	Inbox            []*models.Message
	Sent             []*models.Message
	Overdue          []*models.Message
	CalendarToday    []*models.Event
	CalendarTomorrow []*models.Event
}

// Mail returns inbox and sent items combined, the set the engine scores.
func (b *Batch) Mail() []*models.Message {
	out := make([]*models.Message, 0, len(b.Inbox)+len(b.Sent))
	out = append(out, b.Inbox...)
	out = append(out, b.Sent...)
	return out
}

// Calendar returns today's and tomorrow's events combined.
func (b *Batch) Calendar() []*models.Event {
	out := make([]*models.Event, 0, len(b.CalendarToday)+len(b.CalendarTomorrow))
	out = append(out, b.CalendarToday...)
	out = append(out, b.CalendarTomorrow...)
	return out
}

// Collector runs the per-folder fetches for one briefing.
type Collector struct {
	client          *graph.Client
	behaviour       config.BehaviourConfig
	includeTomorrow bool

	// now is swappable for tests.
	now func() time.Time
}

// New creates a collector bound to one mailbox client and the configured
// lookback windows.
func New(client *graph.Client, cfg *config.Config) *Collector {
	return &Collector{
		client:          client,
		behaviour:       cfg.Behaviour,
		includeTomorrow: cfg.IncludeTomorrowFirstMeeting,
		now:             time.Now,
	}
}

// CollectAll fetches the full batch. A failed inbox fetch aborts the run;
// the other fetches degrade to empty sets so a partial briefing can still
// go out.
func (c *Collector) CollectAll(ctx context.Context) (*Batch, error) {
	now := c.now()
	since := now.Add(-c.behaviour.LookbackInbox)
	batch := &Batch{}

	inbox, err := c.client.ListMessages(ctx, graph.FolderInbox, since)
	if err != nil {
		return nil, fmt.Errorf("collect inbox: %w", err)
	}
	batch.Inbox = inbox
	slog.Info("collected inbox items", "count", len(batch.Inbox))

	sent, err := c.client.ListMessages(ctx, graph.FolderSent, since)
	if err != nil {
		slog.Error("failed to collect sent items, continuing without them", "error", err)
	} else {
		batch.Sent = sent
	}
	slog.Info("collected sent items", "count", len(batch.Sent))

	todayStart := startOfDay(now)
	todayEnd := todayStart.AddDate(0, 0, 1)

	today, err := c.client.ListCalendarView(ctx, todayStart, todayEnd)
	if err != nil {
		slog.Error("failed to collect today's calendar, continuing without it", "error", err)
	} else {
		batch.CalendarToday = today
	}
	slog.Info("collected calendar items for today", "count", len(batch.CalendarToday))

	if c.includeTomorrow {
		tomorrow, err := c.client.ListCalendarView(ctx, todayEnd, todayEnd.AddDate(0, 0, 1))
		if err != nil {
			slog.Error("failed to collect tomorrow's calendar, continuing without it", "error", err)
		} else {
			batch.CalendarTomorrow = tomorrow
		}
		slog.Info("collected calendar items for tomorrow", "count", len(batch.CalendarTomorrow))
	}

	overdue, err := c.client.ListOverdue(ctx, c.behaviour.OverdueAge, c.behaviour.LookbackOverdue)
	if err != nil {
		slog.Error("failed to collect overdue items, continuing without them", "error", err)
	} else {
		batch.Overdue = overdue
	}
	slog.Info("collected overdue items", "count", len(batch.Overdue))

	return batch, nil
}

// startOfDay returns local midnight for t.
func startOfDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
