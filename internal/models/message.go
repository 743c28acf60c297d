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

// Package models defines the data structures shared across the briefing service.
package models

import (
	"strings"
	"time"
)

// Importance is the sender-assigned importance of a message.
type Importance int

const (
	ImportanceLow Importance = iota
	ImportanceNormal
	ImportanceHigh
)

// String returns the display label used in the rendered report.
func (i Importance) String() string {
	switch i {
	case ImportanceHigh:
		return "High"
	case ImportanceLow:
		return "Low"
	default:
		return "Normal"
	}
}

// Message represents one normalized email (inbound or sent) as collected
// from the mailbox. The Score, Reasons, SuggestedAction, Group and
// GroupLabel fields are zero until the prioritisation engine has run.
type Message struct {
	ID             string
	Subject        string
	SenderName     string
	SenderAddress  string
	ReceivedAt     time.Time
	Importance     Importance
	Flagged        bool
	Unread         bool
	HasAttachments bool
	Categories     []string
	Folder         string
	BodyPreview    string

	// Populated by the prioritisation engine.
	Score           int
	Reasons         []string
	SuggestedAction string
	Group           Group
	GroupLabel      string
}

// Domain returns the lowercased domain part of the sender address,
// or "" if the address has no @.
func (m *Message) Domain() string {
	_, domain, ok := strings.Cut(m.SenderAddress, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(domain)
}

// Reason returns the joined reason trail for display.
func (m *Message) Reason() string {
	return strings.Join(m.Reasons, " + ")
}
