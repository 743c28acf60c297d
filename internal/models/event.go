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

package models

import "time"

// ResponseStatus is the user's reply state for a calendar invitation.
type ResponseStatus int

const (
	ResponseNone ResponseStatus = iota
	ResponseOrganizer
	ResponseTentative
	ResponseAccepted
	ResponseDeclined
	ResponseNotResponded
)

// String returns the display label for a response status.
func (r ResponseStatus) String() string {
	switch r {
	case ResponseOrganizer:
		return "Organizer"
	case ResponseTentative:
		return "Tentative"
	case ResponseAccepted:
		return "Accepted"
	case ResponseDeclined:
		return "Declined"
	case ResponseNotResponded:
		return "Not responded"
	default:
		return "None"
	}
}

// Event represents one normalized calendar event. Events are never scored;
// the engine only filters them by day and sorts them by start time.
type Event struct {
	ID            string
	Subject       string
	Start         time.Time
	End           time.Time
	Location      string
	Organizer     string
	AllDay        bool
	Recurring     bool
	AttendeeCount int
	Response      ResponseStatus
	BodyPreview   string
}
