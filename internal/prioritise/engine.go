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

// Package prioritise scores collected messages against the configured
// rules and partitions them into the report's mutually exclusive groups.
// The engine is a batch transform: it holds no state between runs, and
// messages are independent of one another.
package prioritise

import (
	"log/slog"
	"sort"
	"time"

	"github.com/bcem/briefing/internal/config"
	"github.com/bcem/briefing/internal/models"
	"github.com/bcem/briefing/internal/rules"
)

// Engine scores and groups one batch of messages.
type Engine struct {
	cfg *config.Config
}

// New creates an engine bound to an immutable configuration.
func New(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Result is the grouped output handed to the renderer. Dropped counts how
// many items each group lost to truncation; Skipped counts malformed
// records dropped before scoring.
type Result struct {
	Groups  map[models.Group][]*models.Message
	Dropped map[models.Group]int
	Skipped int
}

// Run scores the main set (inbox + sent) and the overdue set, assigns
// groups, then sorts and truncates each group. The overdue set comes from
// a separate, longer-lookback query and lands in overdue_month regardless
// of score; the two passes are not deduplicated against each other.
func (e *Engine) Run(messages, overdue []*models.Message) *Result {
	res := &Result{
		Groups:  make(map[models.Group][]*models.Message),
		Dropped: make(map[models.Group]int),
	}

	for _, msg := range messages {
		if !e.admit(msg, res) {
			continue
		}
		e.score(msg)
		e.assignGroup(msg)
		res.Groups[msg.Group] = append(res.Groups[msg.Group], msg)
	}

	for _, msg := range overdue {
		if !e.admit(msg, res) {
			continue
		}
		e.score(msg)
		msg.Group = models.GroupOverdueMonth
		res.Groups[msg.Group] = append(res.Groups[msg.Group], msg)
	}

	for group, items := range res.Groups {
		sortByScore(items)
		if max := e.cfg.Report.MaxItemsPerSection; len(items) > max {
			res.Dropped[group] = len(items) - max
			res.Groups[group] = items[:max]
		}
	}

	slog.Info("prioritised messages",
		"total", len(messages)+len(overdue),
		"skipped", res.Skipped,
		"groups", len(res.Groups),
	)

	return res
}

// admit applies the pre-scoring filters: malformed records are skipped and
// counted, ignored senders are excluded entirely so they never appear in
// any group.
func (e *Engine) admit(msg *models.Message, res *Result) bool {
	if msg == nil || msg.SenderAddress == "" {
		res.Skipped++
		slog.Debug("skipping malformed message record", "reason", "missing sender address")
		return false
	}
	if rules.MatchesDomain(msg.Domain(), e.cfg.Priority.IgnoreDomains) {
		return false
	}
	return true
}

// score runs the matcher and accumulates deltas and reasons onto the
// message. The first keyword rule (in declaration order) that carries a
// suggestion wins; later suggestions never override it.
func (e *Engine) score(msg *models.Message) {
	msg.Score = 0
	msg.Reasons = nil
	msg.SuggestedAction = ""

	for _, m := range rules.Evaluate(msg, &e.cfg.Priority) {
		msg.Score += m.Delta
		if m.Reason != "" {
			msg.Reasons = append(msg.Reasons, m.Reason)
		}
		if m.Suggest != "" && msg.SuggestedAction == "" {
			msg.SuggestedAction = m.Suggest
		}
	}
}

// assignGroup picks the message's group. The score threshold takes
// precedence over every domain mapping: a team-mapped sender that scores
// high still lands in high_priority.
func (e *Engine) assignGroup(msg *models.Message) {
	if msg.Score >= e.cfg.Priority.HighPriorityThreshold {
		msg.Group = models.GroupHighPriority
		return
	}

	domain := msg.Domain()
	if label, ok := e.cfg.Priority.GroupMappings[domain]; ok {
		msg.Group = models.GroupCustomersTeam
		msg.GroupLabel = label
		return
	}

	if !e.isInternal(domain) {
		msg.Group = models.GroupCustomersDirect
		return
	}

	msg.Group = models.GroupInternal
}

// isInternal reports whether the sender domain belongs to the
// organisation. Without an explicit internal_domains list, the report
// recipient's own domain is the internal one.
func (e *Engine) isInternal(domain string) bool {
	internal := e.cfg.Priority.InternalDomains
	if len(internal) == 0 {
		own := e.cfg.RecipientDomain()
		return own != "" && domain == own
	}
	return rules.MatchesDomain(domain, internal)
}

// Calendar filters events to those starting today (local time), adds the
// single earliest event starting tomorrow when running the morning
// briefing with look-ahead enabled, and sorts by start time. Events are
// never scored or truncated.
func (e *Engine) Calendar(events []*models.Event, now time.Time, morning bool) []*models.Event {
	today := now.Local()
	tomorrow := today.AddDate(0, 0, 1)

	var out []*models.Event
	var firstTomorrow *models.Event

	for _, ev := range events {
		if ev == nil {
			continue
		}
		start := ev.Start.Local()
		switch {
		case sameDay(start, today):
			out = append(out, ev)
		case sameDay(start, tomorrow):
			if firstTomorrow == nil || start.Before(firstTomorrow.Start.Local()) {
				firstTomorrow = ev
			}
		}
	}

	if morning && e.cfg.IncludeTomorrowFirstMeeting && firstTomorrow != nil {
		out = append(out, firstTomorrow)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})

	return out
}

// sortByScore orders a group by descending score, ties broken by most
// recent timestamp first.
func sortByScore(items []*models.Message) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ReceivedAt.After(items[j].ReceivedAt)
	})
}

// sameDay reports whether two local times fall on the same calendar day.
func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
