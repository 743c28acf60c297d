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

// Package rules evaluates a single message against the configured
// priority rules. Every evaluator is a pure function of (message, config):
// no I/O, deterministic output order, and rules are never mutually
// exclusive — a message may match several at once.
package rules

import (
	"strings"

	"github.com/bcem/briefing/internal/config"
	"github.com/bcem/briefing/internal/models"
)

// Match is one fired rule: a score delta, a human-readable reason
// fragment, and an optional suggested action.
type Match struct {
	Delta   int
	Reason  string
	Suggest string
}

// tierDelta maps a keyword rule's priority tier to its score delta.
var tierDelta = map[config.Tier]int{
	config.TierCritical: 20,
	config.TierHigh:     10,
	config.TierMedium:   5,
	config.TierLow:      0,
}

// Evaluate runs all three evaluators in their fixed order: domain rules,
// keyword rules in declaration order, then attribute rules.
func Evaluate(msg *models.Message, p *config.Priorities) []Match {
	var matches []Match
	matches = append(matches, EvaluateDomainRules(msg, p)...)
	matches = append(matches, EvaluateKeywordRules(msg, p)...)
	matches = append(matches, EvaluateAttributeRules(msg)...)
	return matches
}

// EvaluateDomainRules checks the sender against the VIP and downrank
// lists. The three checks are independent and cumulative: a sender that is
// somehow both VIP and downranked gets both deltas, summed.
func EvaluateDomainRules(msg *models.Message, p *config.Priorities) []Match {
	var matches []Match
	domain := msg.Domain()

	if MatchesDomain(domain, p.VIPDomains) {
		matches = append(matches, Match{Delta: p.VIPDomainBonus, Reason: "VIP domain"})
	}

	sender := strings.ToLower(msg.SenderAddress)
	for _, vip := range p.VIPSenders {
		if sender == vip {
			matches = append(matches, Match{Delta: p.VIPSenderBonus, Reason: "VIP sender"})
			break
		}
	}

	if MatchesDomain(domain, p.DownrankDomains) {
		matches = append(matches, Match{Delta: p.DownrankPenalty, Reason: "Downranked domain"})
	}

	return matches
}

// EvaluateKeywordRules applies each compiled keyword rule, in declaration
// order, against subject + body preview. Case sensitivity is up to the
// pattern's own inline flags. The reason fragment is the rule's suggestion
// text when present, otherwise a generic description of the pattern.
func EvaluateKeywordRules(msg *models.Message, p *config.Priorities) []Match {
	var matches []Match
	text := msg.Subject + " " + msg.BodyPreview

	for _, r := range p.KeywordRules {
		if !r.Pattern.MatchString(text) {
			continue
		}
		reason := r.Suggest
		if reason == "" {
			reason = "matched rule: " + r.Raw
		}
		matches = append(matches, Match{
			Delta:   tierDelta[r.Tier],
			Reason:  reason,
			Suggest: r.Suggest,
		})
	}

	return matches
}

// EvaluateAttributeRules scores the message's own attributes: importance,
// follow-up flag and unread state.
func EvaluateAttributeRules(msg *models.Message) []Match {
	var matches []Match

	switch msg.Importance {
	case models.ImportanceHigh:
		matches = append(matches, Match{Delta: 3, Reason: "High importance"})
	case models.ImportanceLow:
		matches = append(matches, Match{Delta: -1, Reason: "Low importance"})
	}

	if msg.Flagged {
		matches = append(matches, Match{Delta: 5, Reason: "Flagged"})
	}
	if msg.Unread {
		matches = append(matches, Match{Delta: 2, Reason: "Unread"})
	}

	return matches
}

// MatchesDomain reports whether domain equals, or is a subdomain of, any
// entry in the list. Entries are expected lowercased; domain comparison is
// case-insensitive.
func MatchesDomain(domain string, entries []string) bool {
	domain = strings.ToLower(domain)
	if domain == "" {
		return false
	}
	for _, e := range entries {
		if domain == e || strings.HasSuffix(domain, "."+e) {
			return true
		}
	}
	return false
}
