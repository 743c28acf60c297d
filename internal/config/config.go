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

// Package config loads configuration from a YAML file and environment
// variables. All keyword rule patterns are compiled here; a pattern that
// does not compile is a fatal load error, so the engine never sees an
// invalid rule.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Tier is the priority tier of a keyword rule.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
)

// KeywordRule is one compiled keyword rule. Rules are evaluated in
// declaration order against subject + body preview.
type KeywordRule struct {
	Pattern *regexp.Regexp
	Raw     string
	Tier    Tier
	Suggest string
}

// Priorities holds the declarative scoring rules. All domain and sender
// lists are lowercased at load time.
type Priorities struct {
	VIPDomains      []string
	VIPSenders      []string
	IgnoreDomains   []string
	DownrankDomains []string
	InternalDomains []string
	GroupMappings   map[string]string // sender domain -> display label
	KeywordRules    []KeywordRule

	VIPDomainBonus        int
	VIPSenderBonus        int
	DownrankPenalty       int
	HighPriorityThreshold int
}

// MailboxConfig holds Graph API credentials and the mailbox to scan.
type MailboxConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	User         string // UPN or user ID of the mailbox
}

// BehaviourConfig controls collection windows.
type BehaviourConfig struct {
	LookbackInbox   time.Duration // inbox + sent scan window
	LookbackOverdue time.Duration // longer window for the overdue scan
	OverdueAge      time.Duration // flagged/unread older than this are overdue
}

// ReportConfig controls rendering and delivery.
type ReportConfig struct {
	To                 string
	SubjectTemplate    string
	MaxItemsPerSection int
	PreviewHTML        string // if set, write the rendered HTML here
	Deliver            string // "mail" (Graph sendMail) or "queue" (Redis)
}

// Config holds all configuration for the briefing service.
type Config struct {
	Mailbox   MailboxConfig
	Behaviour BehaviourConfig
	Priority  Priorities
	Report    ReportConfig

	// Calendar
	IncludeTomorrowFirstMeeting bool

	// Redis (optional: run guard + queue delivery)
	RedisURL      string
	BriefingQueue string
	GuardTTL      time.Duration

	// Postgres run history (optional)
	HistoryDatabaseURL string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Mailbox struct {
		TenantID     string `yaml:"tenant_id"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		User         string `yaml:"user"`
	} `yaml:"mailbox"`
	Behaviour struct {
		LookbackDaysInbox   int `yaml:"lookback_days_inbox"`
		LookbackDaysOverdue int `yaml:"lookback_days_overdue"`
		OverdueDays         int `yaml:"overdue_days"`
	} `yaml:"behaviour"`
	Priorities struct {
		VIPDomains      []string          `yaml:"vip_domains"`
		VIPSenders      []string          `yaml:"vip_senders"`
		IgnoreDomains   []string          `yaml:"ignore_domains"`
		DownrankDomains []string          `yaml:"downrank_domains"`
		InternalDomains []string          `yaml:"internal_domains"`
		GroupMappings   map[string]string `yaml:"group_mappings"`
		KeywordRules    []struct {
			Pattern  string `yaml:"pattern"`
			Priority string `yaml:"priority"`
			Suggest  string `yaml:"suggest"`
		} `yaml:"keyword_rules"`
		Scores struct {
			VIPDomain             int `yaml:"vip_domain"`
			VIPSender             int `yaml:"vip_sender"`
			Downrank              int `yaml:"downrank"`
			HighPriorityThreshold int `yaml:"high_priority_threshold"`
		} `yaml:"scores"`
	} `yaml:"priorities"`
	Calendar struct {
		IncludeTomorrowFirstMeeting bool `yaml:"include_tomorrow_first_meeting"`
	} `yaml:"calendar"`
	Report struct {
		To                 string `yaml:"to"`
		SubjectTemplate    string `yaml:"subject_template"`
		MaxItemsPerSection int    `yaml:"max_items_per_section"`
		PreviewHTML        string `yaml:"preview_html"`
		Deliver            string `yaml:"deliver"`
	} `yaml:"report"`
	Redis struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"redis"`
	History struct {
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"history"`
}

// Load reads configuration from the given YAML file (with env var
// expansion) and environment variables for non-YAML settings.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	if raw.Mailbox.TenantID == "" || raw.Mailbox.ClientID == "" || raw.Mailbox.ClientSecret == "" {
		return nil, fmt.Errorf("mailbox credentials are required — check config and environment variables")
	}
	if raw.Mailbox.User == "" {
		return nil, fmt.Errorf("mailbox.user is required")
	}
	if raw.Report.To == "" {
		return nil, fmt.Errorf("report.to is required")
	}

	cfg := &Config{
		Mailbox: MailboxConfig{
			TenantID:     raw.Mailbox.TenantID,
			ClientID:     raw.Mailbox.ClientID,
			ClientSecret: raw.Mailbox.ClientSecret,
			User:         raw.Mailbox.User,
		},
		Behaviour: BehaviourConfig{
			LookbackInbox:   daysOrDefault(raw.Behaviour.LookbackDaysInbox, 2),
			LookbackOverdue: daysOrDefault(raw.Behaviour.LookbackDaysOverdue, 90),
			OverdueAge:      daysOrDefault(raw.Behaviour.OverdueDays, 30),
		},
		Report: ReportConfig{
			To:                 raw.Report.To,
			SubjectTemplate:    raw.Report.SubjectTemplate,
			MaxItemsPerSection: raw.Report.MaxItemsPerSection,
			PreviewHTML:        raw.Report.PreviewHTML,
			Deliver:            strings.ToLower(strings.TrimSpace(raw.Report.Deliver)),
		},
		IncludeTomorrowFirstMeeting: raw.Calendar.IncludeTomorrowFirstMeeting,
		RedisURL:                    firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		BriefingQueue:               firstNonEmpty(raw.Redis.Queue, envOrDefault("BRIEFING_QUEUE", "briefings")),
		GuardTTL:                    envOrDefaultDuration("GUARD_TTL", 20*time.Hour),
		HistoryDatabaseURL:          firstNonEmpty(raw.History.DatabaseURL, os.Getenv("HISTORY_DATABASE_URL")),
	}

	if cfg.Report.SubjectTemplate == "" {
		cfg.Report.SubjectTemplate = "Daily Briefing — {{ timestamp_local }} ({{ mode }})"
	}
	if cfg.Report.MaxItemsPerSection <= 0 {
		cfg.Report.MaxItemsPerSection = envOrDefaultInt("MAX_ITEMS_PER_SECTION", 20)
	}
	switch cfg.Report.Deliver {
	case "":
		cfg.Report.Deliver = "mail"
	case "mail", "queue":
	default:
		return nil, fmt.Errorf("report.deliver must be \"mail\" or \"queue\", got %q", cfg.Report.Deliver)
	}
	if cfg.Report.Deliver == "queue" && cfg.RedisURL == "" {
		return nil, fmt.Errorf("report.deliver \"queue\" requires redis.url")
	}

	p, err := buildPriorities(raw)
	if err != nil {
		return nil, err
	}
	cfg.Priority = *p

	return cfg, nil
}

// buildPriorities normalizes the rule lists and compiles keyword patterns.
func buildPriorities(raw rawConfig) (*Priorities, error) {
	p := &Priorities{
		VIPDomains:      lowerAll(raw.Priorities.VIPDomains),
		VIPSenders:      lowerAll(raw.Priorities.VIPSenders),
		IgnoreDomains:   lowerAll(raw.Priorities.IgnoreDomains),
		DownrankDomains: lowerAll(raw.Priorities.DownrankDomains),
		InternalDomains: lowerAll(raw.Priorities.InternalDomains),
		GroupMappings:   make(map[string]string, len(raw.Priorities.GroupMappings)),

		VIPDomainBonus:        intOrDefault(raw.Priorities.Scores.VIPDomain, 10),
		VIPSenderBonus:        intOrDefault(raw.Priorities.Scores.VIPSender, 15),
		DownrankPenalty:       intOrDefault(raw.Priorities.Scores.Downrank, -5),
		HighPriorityThreshold: intOrDefault(raw.Priorities.Scores.HighPriorityThreshold, 15),
	}

	if p.DownrankPenalty > 0 {
		return nil, fmt.Errorf("priorities.scores.downrank must not be positive, got %d", p.DownrankPenalty)
	}

	for domain, label := range raw.Priorities.GroupMappings {
		domain = strings.ToLower(strings.TrimSpace(domain))
		label = strings.TrimSpace(label)
		if domain == "" || label == "" {
			return nil, fmt.Errorf("group_mappings entries need both a domain and a label")
		}
		p.GroupMappings[domain] = label
	}

	for i, r := range raw.Priorities.KeywordRules {
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("keyword_rules[%d]: pattern is required", i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("keyword_rules[%d]: invalid pattern %q: %w", i, r.Pattern, err)
		}
		tier := Tier(strings.ToLower(strings.TrimSpace(r.Priority)))
		switch tier {
		case TierCritical, TierHigh, TierMedium, TierLow:
		case "":
			tier = TierMedium
		default:
			return nil, fmt.Errorf("keyword_rules[%d]: unknown priority %q", i, r.Priority)
		}
		p.KeywordRules = append(p.KeywordRules, KeywordRule{
			Pattern: re,
			Raw:     r.Pattern,
			Tier:    tier,
			Suggest: strings.TrimSpace(r.Suggest),
		})
	}

	return p, nil
}

// RecipientDomain returns the lowercased domain of report.to. When no
// explicit internal_domains list is configured, this domain is treated as
// the internal one.
func (c *Config) RecipientDomain() string {
	_, domain, ok := strings.Cut(c.Report.To, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(domain)
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func daysOrDefault(days, fallback int) time.Duration {
	if days <= 0 {
		days = fallback
	}
	return time.Duration(days) * 24 * time.Hour
}

func intOrDefault(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
