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

package prioritise

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/bcem/briefing/internal/config"
	"github.com/bcem/briefing/internal/models"
)

// testConfig builds a config with the reference scoring defaults.
func testConfig() *config.Config {
	return &config.Config{
		Priority: config.Priorities{
			VIPDomains:      []string{},
			VIPSenders:      []string{"ceo@board.example"},
			IgnoreDomains:   []string{"newsletter.example"},
			DownrankDomains: []string{},
			GroupMappings: map[string]string{
				"globallubricant.com": "Jason's Clients",
			},
			KeywordRules: []config.KeywordRule{
				{Pattern: regexp.MustCompile(`(?i)urgent`), Raw: `(?i)urgent`, Tier: config.TierCritical, Suggest: "Respond today"},
			},
			VIPDomainBonus:        10,
			VIPSenderBonus:        15,
			DownrankPenalty:       -5,
			HighPriorityThreshold: 15,
		},
		Report: config.ReportConfig{
			To:                 "me@mycompany.example",
			MaxItemsPerSection: 20,
		},
		IncludeTomorrowFirstMeeting: true,
	}
}

func msg(id, sender, subject string) *models.Message {
	return &models.Message{
		ID:            id,
		Subject:       subject,
		SenderAddress: sender,
		ReceivedAt:    time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
		Importance:    models.ImportanceNormal,
	}
}

// TestRun_VIPUrgentUnread: VIP sender + critical keyword + unread lands in
// high_priority with the summed score.
func TestRun_VIPUrgentUnread(t *testing.T) {
	engine := New(testConfig())

	m := msg("m1", "ceo@board.example", "URGENT: board meeting")
	m.Unread = true

	res := engine.Run([]*models.Message{m}, nil)

	if m.Score != 37 {
		t.Errorf("score = %d, want 15 (VIP sender) + 20 (critical keyword) + 2 (unread) = 37", m.Score)
	}
	if m.Group != models.GroupHighPriority {
		t.Errorf("group = %q, want high_priority", m.Group)
	}
	if m.SuggestedAction != "Respond today" {
		t.Errorf("suggested action = %q, want the rule's suggestion", m.SuggestedAction)
	}
	if got := m.Reason(); got != "VIP sender + Respond today + Unread" {
		t.Errorf("reason trail = %q", got)
	}
	if len(res.Groups[models.GroupHighPriority]) != 1 {
		t.Errorf("high_priority group should hold the message")
	}
}

// TestRun_TeamMapping: a mapped domain with no score lands in the team
// bucket carrying its display label.
func TestRun_TeamMapping(t *testing.T) {
	engine := New(testConfig())

	m := msg("m1", "sales@globallubricant.com", "Q3 order volumes")
	engine.Run([]*models.Message{m}, nil)

	if m.Score != 0 {
		t.Errorf("score = %d, want 0", m.Score)
	}
	if m.Group != models.GroupCustomersTeam {
		t.Errorf("group = %q, want customers_team", m.Group)
	}
	if m.GroupLabel != "Jason's Clients" {
		t.Errorf("group label = %q, want Jason's Clients", m.GroupLabel)
	}
}

// TestRun_IgnoredDomainNeverAppears: ignored senders are excluded before
// scoring, regardless of how high they would have scored.
func TestRun_IgnoredDomainNeverAppears(t *testing.T) {
	engine := New(testConfig())

	m := msg("m1", "spam@newsletter.example", "URGENT urgent URGENT")
	m.Flagged = true
	m.Unread = true

	res := engine.Run([]*models.Message{m}, []*models.Message{m})

	for group, items := range res.Groups {
		if len(items) != 0 {
			t.Errorf("group %q should be empty, has %d items", group, len(items))
		}
	}
	if m.Score != 0 {
		t.Errorf("ignored message must not be scored, got %d", m.Score)
	}
	if res.Skipped != 0 {
		t.Errorf("ignored is not skipped-as-malformed, got skipped=%d", res.Skipped)
	}
}

// TestRun_ThresholdBeatsMapping: a team-mapped sender scoring at or above
// the threshold still lands in high_priority.
func TestRun_ThresholdBeatsMapping(t *testing.T) {
	engine := New(testConfig())

	m := msg("m1", "sales@globallubricant.com", "urgent: contract renewal")
	engine.Run([]*models.Message{m}, nil)

	if m.Score < 15 {
		t.Fatalf("setup broken: score %d below threshold", m.Score)
	}
	if m.Group != models.GroupHighPriority {
		t.Errorf("group = %q, want high_priority to take precedence over the mapping", m.Group)
	}
}

// TestRun_DirectVsInternal: external senders go to customers_direct,
// senders on the recipient's own domain to internal.
func TestRun_DirectVsInternal(t *testing.T) {
	engine := New(testConfig())

	external := msg("m1", "buyer@othercorp.example", "price list")
	internal := msg("m2", "colleague@mycompany.example", "lunch")
	engine.Run([]*models.Message{external, internal}, nil)

	if external.Group != models.GroupCustomersDirect {
		t.Errorf("external sender group = %q, want customers_direct", external.Group)
	}
	if internal.Group != models.GroupInternal {
		t.Errorf("internal sender group = %q, want internal", internal.Group)
	}
}

// TestRun_ExplicitInternalDomains: an explicit internal_domains list
// replaces the recipient-domain default.
func TestRun_ExplicitInternalDomains(t *testing.T) {
	cfg := testConfig()
	cfg.Priority.InternalDomains = []string{"subsidiary.example"}
	engine := New(cfg)

	m := msg("m1", "dev@subsidiary.example", "deploy notes")
	ownDomain := msg("m2", "me@mycompany.example", "note to self")
	engine.Run([]*models.Message{m, ownDomain}, nil)

	if m.Group != models.GroupInternal {
		t.Errorf("listed domain group = %q, want internal", m.Group)
	}
	// With an explicit list, the recipient's domain is no longer implied.
	if ownDomain.Group != models.GroupCustomersDirect {
		t.Errorf("unlisted domain group = %q, want customers_direct", ownDomain.Group)
	}
}

// TestRun_Truncation: each group keeps only the N highest-scoring items,
// ties broken by most recent timestamp, and reports the dropped count.
func TestRun_Truncation(t *testing.T) {
	cfg := testConfig()
	cfg.Report.MaxItemsPerSection = 3
	// Raise the threshold so every message stays in one group.
	cfg.Priority.HighPriorityThreshold = 100
	cfg.Priority.KeywordRules = []config.KeywordRule{
		{Pattern: regexp.MustCompile(`crit`), Raw: `crit`, Tier: config.TierCritical},  // +20
		{Pattern: regexp.MustCompile(`high`), Raw: `high`, Tier: config.TierHigh},      // +10
		{Pattern: regexp.MustCompile(`med`), Raw: `med`, Tier: config.TierMedium},      // +5
	}
	engine := New(cfg)

	base := time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC)
	var batch []*models.Message

	// Six messages scoring 5.
	for i := 0; i < 6; i++ {
		m := msg(fmt.Sprintf("med-%d", i), "colleague@mycompany.example", "med")
		m.ReceivedAt = base.Add(time.Duration(i) * time.Minute)
		batch = append(batch, m)
	}
	// Two scoring 12 (high keyword + unread), distinct timestamps.
	for i := 0; i < 2; i++ {
		m := msg(fmt.Sprintf("high-%d", i), "colleague@mycompany.example", "high")
		m.Unread = true
		m.ReceivedAt = base.Add(time.Duration(i) * time.Hour)
		batch = append(batch, m)
	}
	// Two scoring 20.
	for i := 0; i < 2; i++ {
		m := msg(fmt.Sprintf("crit-%d", i), "colleague@mycompany.example", "crit")
		m.ReceivedAt = base.Add(time.Duration(i) * time.Hour)
		batch = append(batch, m)
	}

	res := engine.Run(batch, nil)

	items := res.Groups[models.GroupInternal]
	if len(items) != 3 {
		t.Fatalf("expected exactly 3 items after truncation, got %d", len(items))
	}
	if items[0].Score != 20 || items[1].Score != 20 {
		t.Errorf("top two should score 20, got %d and %d", items[0].Score, items[1].Score)
	}
	// Ties broken most-recent-first.
	if items[0].ID != "crit-1" {
		t.Errorf("first item = %q, want the newer of the two 20s", items[0].ID)
	}
	if items[2].Score != 12 {
		t.Errorf("third item score = %d, want 12", items[2].Score)
	}
	if items[2].ID != "high-1" {
		t.Errorf("third item = %q, want the newer of the two 12s", items[2].ID)
	}
	if res.Dropped[models.GroupInternal] != 7 {
		t.Errorf("dropped = %d, want 7", res.Dropped[models.GroupInternal])
	}
}

// TestRun_SkipsMalformedRecords: a record without a sender address is
// skipped and counted, and the rest of the batch continues.
func TestRun_SkipsMalformedRecords(t *testing.T) {
	engine := New(testConfig())

	broken := msg("m1", "", "no sender")
	ok := msg("m2", "colleague@mycompany.example", "fine")

	res := engine.Run([]*models.Message{broken, ok}, nil)

	if res.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", res.Skipped)
	}
	if len(res.Groups[models.GroupInternal]) != 1 {
		t.Errorf("the well-formed record should still be grouped")
	}
}

// TestRun_OverduePass: overdue items land in overdue_month regardless of
// score, and a record present in both input sets appears twice — the two
// passes are separate queries and are not deduplicated.
func TestRun_OverduePass(t *testing.T) {
	engine := New(testConfig())

	m := msg("m1", "ceo@board.example", "URGENT: still waiting")
	m.Flagged = true

	overdueCopy := *m
	res := engine.Run([]*models.Message{m}, []*models.Message{&overdueCopy})

	if len(res.Groups[models.GroupHighPriority]) != 1 {
		t.Errorf("main pass should place the message in high_priority")
	}
	if len(res.Groups[models.GroupOverdueMonth]) != 1 {
		t.Errorf("overdue pass should place the copy in overdue_month")
	}
	if overdueCopy.Group != models.GroupOverdueMonth {
		t.Errorf("overdue group = %q, want overdue_month", overdueCopy.Group)
	}
	if overdueCopy.Score != m.Score {
		t.Errorf("overdue copy should be scored identically: %d vs %d", overdueCopy.Score, m.Score)
	}
}

// TestRun_Additivity: removing one matching rule changes the score by
// exactly that rule's delta.
func TestRun_Additivity(t *testing.T) {
	cfg := testConfig()
	engine := New(cfg)

	m := msg("m1", "ceo@board.example", "urgent question")
	m.Unread = true
	engine.Run([]*models.Message{m}, nil)
	withRule := m.Score

	cfg2 := testConfig()
	cfg2.Priority.KeywordRules = nil // drop the critical rule (+20)
	engine2 := New(cfg2)

	m2 := msg("m1", "ceo@board.example", "urgent question")
	m2.Unread = true
	engine2.Run([]*models.Message{m2}, nil)

	if withRule-m2.Score != 20 {
		t.Errorf("removing the +20 rule changed score by %d, want exactly 20", withRule-m2.Score)
	}
}

// TestRun_SuggestionFirstWins: when two matching rules both carry a
// suggestion, the first declared rule's suggestion is retained.
func TestRun_SuggestionFirstWins(t *testing.T) {
	cfg := testConfig()
	cfg.Priority.KeywordRules = []config.KeywordRule{
		{Pattern: regexp.MustCompile(`contract`), Raw: `contract`, Tier: config.TierHigh, Suggest: "Review the contract"},
		{Pattern: regexp.MustCompile(`urgent`), Raw: `urgent`, Tier: config.TierCritical, Suggest: "Respond today"},
	}
	engine := New(cfg)

	m := msg("m1", "colleague@mycompany.example", "urgent contract")
	engine.Run([]*models.Message{m}, nil)

	if m.SuggestedAction != "Review the contract" {
		t.Errorf("suggested action = %q, want the first declared rule's", m.SuggestedAction)
	}
}

// TestRun_Deterministic: repeated evaluation of the same batch yields
// identical scores, reasons and groups.
func TestRun_Deterministic(t *testing.T) {
	engine := New(testConfig())

	build := func() []*models.Message {
		a := msg("m1", "ceo@board.example", "URGENT: numbers")
		a.Unread = true
		b := msg("m2", "sales@globallubricant.com", "order")
		return []*models.Message{a, b}
	}

	first := build()
	engine.Run(first, nil)

	for i := 0; i < 5; i++ {
		again := build()
		engine.Run(again, nil)
		for j := range again {
			if again[j].Score != first[j].Score {
				t.Fatalf("run %d: score changed for %s: %d vs %d", i, again[j].ID, again[j].Score, first[j].Score)
			}
			if again[j].Group != first[j].Group {
				t.Fatalf("run %d: group changed for %s", i, again[j].ID)
			}
			if again[j].Reason() != first[j].Reason() {
				t.Fatalf("run %d: reason trail changed for %s", i, again[j].ID)
			}
		}
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	engine := New(testConfig())
	res := engine.Run(nil, nil)

	if len(res.Groups) != 0 || res.Skipped != 0 {
		t.Errorf("empty batch should produce empty output, got %+v", res)
	}
}

func event(id string, start time.Time) *models.Event {
	return &models.Event{
		ID:      id,
		Subject: "Meeting " + id,
		Start:   start,
		End:     start.Add(time.Hour),
	}
}

// TestCalendar_MorningLookahead: morning mode with look-ahead includes
// today's events plus the single earliest event tomorrow, sorted by start.
func TestCalendar_MorningLookahead(t *testing.T) {
	engine := New(testConfig())
	now := time.Date(2026, 8, 27, 7, 0, 0, 0, time.Local)

	events := []*models.Event{
		event("today-14", time.Date(2026, 8, 27, 14, 0, 0, 0, time.Local)),
		event("today-9", time.Date(2026, 8, 27, 9, 0, 0, 0, time.Local)),
		event("tomorrow-8", time.Date(2026, 8, 28, 8, 0, 0, 0, time.Local)),
		event("tomorrow-11", time.Date(2026, 8, 28, 11, 0, 0, 0, time.Local)),
	}

	out := engine.Calendar(events, now, true)

	wantIDs := []string{"today-9", "today-14", "tomorrow-8"}
	if len(out) != len(wantIDs) {
		t.Fatalf("expected %d events, got %d", len(wantIDs), len(out))
	}
	for i, want := range wantIDs {
		if out[i].ID != want {
			t.Errorf("event %d = %q, want %q", i, out[i].ID, want)
		}
	}
}

// TestCalendar_EveningExcludesTomorrow: evening mode never looks ahead.
func TestCalendar_EveningExcludesTomorrow(t *testing.T) {
	engine := New(testConfig())
	now := time.Date(2026, 8, 27, 18, 0, 0, 0, time.Local)

	events := []*models.Event{
		event("today-9", time.Date(2026, 8, 27, 9, 0, 0, 0, time.Local)),
		event("today-14", time.Date(2026, 8, 27, 14, 0, 0, 0, time.Local)),
		event("tomorrow-8", time.Date(2026, 8, 28, 8, 0, 0, 0, time.Local)),
	}

	out := engine.Calendar(events, now, false)

	if len(out) != 2 {
		t.Fatalf("expected 2 events, got %d", len(out))
	}
	if out[0].ID != "today-9" || out[1].ID != "today-14" {
		t.Errorf("got %q, %q; want today's events in start order", out[0].ID, out[1].ID)
	}
}

// TestCalendar_LookaheadDisabled: morning mode without the config flag
// behaves like evening.
func TestCalendar_LookaheadDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.IncludeTomorrowFirstMeeting = false
	engine := New(cfg)
	now := time.Date(2026, 8, 27, 7, 0, 0, 0, time.Local)

	events := []*models.Event{
		event("today-9", time.Date(2026, 8, 27, 9, 0, 0, 0, time.Local)),
		event("tomorrow-8", time.Date(2026, 8, 28, 8, 0, 0, 0, time.Local)),
	}

	out := engine.Calendar(events, now, true)
	if len(out) != 1 || out[0].ID != "today-9" {
		t.Errorf("look-ahead disabled should drop tomorrow's event, got %v", out)
	}
}

// TestCalendar_FiltersOtherDays: events outside today/tomorrow are never
// included, whatever the mode.
func TestCalendar_FiltersOtherDays(t *testing.T) {
	engine := New(testConfig())
	now := time.Date(2026, 8, 27, 7, 0, 0, 0, time.Local)

	events := []*models.Event{
		event("yesterday", time.Date(2026, 8, 26, 9, 0, 0, 0, time.Local)),
		event("next-week", time.Date(2026, 9, 3, 9, 0, 0, 0, time.Local)),
	}

	out := engine.Calendar(events, now, true)
	if len(out) != 0 {
		t.Errorf("expected no events, got %d", len(out))
	}
}
