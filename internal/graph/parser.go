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

package graph

import (
	"log/slog"
	"strings"
	"time"

	"github.com/bcem/briefing/internal/models"
)

// graphMessage represents the relevant fields from a Graph API message.
type graphMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    struct {
		EmailAddress struct {
			Address string `json:"address"`
			Name    string `json:"name"`
		} `json:"emailAddress"`
	} `json:"from"`
	ReceivedDateTime string `json:"receivedDateTime"`
	Importance       string `json:"importance"`
	Flag             struct {
		FlagStatus string `json:"flagStatus"`
	} `json:"flag"`
	IsRead         bool     `json:"isRead"`
	HasAttachments bool     `json:"hasAttachments"`
	Categories     []string `json:"categories"`
	BodyPreview    string   `json:"bodyPreview"`
}

// messagesPage is one page of a /messages list response.
type messagesPage struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

// graphEvent represents the relevant fields from a Graph API calendarView item.
type graphEvent struct {
	ID       string        `json:"id"`
	Subject  string        `json:"subject"`
	Start    graphDateTime `json:"start"`
	End      graphDateTime `json:"end"`
	Location struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	Organizer struct {
		EmailAddress struct {
			Name string `json:"name"`
		} `json:"emailAddress"`
	} `json:"organizer"`
	IsAllDay  bool   `json:"isAllDay"`
	EventType string `json:"type"` // singleInstance, occurrence, exception, seriesMaster
	Attendees []struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"attendees"`
	ResponseStatus struct {
		Response string `json:"response"`
	} `json:"responseStatus"`
	BodyPreview string `json:"bodyPreview"`
}

// eventsPage is one page of a /calendarView list response.
type eventsPage struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

// graphDateTime is Graph's dateTimeTimeZone pair.
type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// convertMessage turns a Graph message into a normalized Message record.
func convertMessage(m graphMessage, folder string) *models.Message {
	subject := m.Subject
	if subject == "" {
		subject = "(No subject)"
	}

	received, err := time.Parse(time.RFC3339, m.ReceivedDateTime)
	if err != nil {
		slog.Warn("unparseable receivedDateTime, using zero time",
			"message_id", m.ID,
			"value", m.ReceivedDateTime,
		)
	}

	return &models.Message{
		ID:             m.ID,
		Subject:        subject,
		SenderName:     m.From.EmailAddress.Name,
		SenderAddress:  m.From.EmailAddress.Address,
		ReceivedAt:     received,
		Importance:     parseImportance(m.Importance),
		Flagged:        strings.EqualFold(m.Flag.FlagStatus, "flagged"),
		Unread:         !m.IsRead,
		HasAttachments: m.HasAttachments,
		Categories:     m.Categories,
		Folder:         folder,
		BodyPreview:    m.BodyPreview,
	}
}

// convertEvent turns a Graph calendarView item into a normalized Event record.
func convertEvent(e graphEvent) *models.Event {
	subject := e.Subject
	if subject == "" {
		subject = "(No subject)"
	}

	return &models.Event{
		ID:            e.ID,
		Subject:       subject,
		Start:         parseGraphTime(e.Start),
		End:           parseGraphTime(e.End),
		Location:      e.Location.DisplayName,
		Organizer:     e.Organizer.EmailAddress.Name,
		AllDay:        e.IsAllDay,
		Recurring:     e.EventType == "occurrence" || e.EventType == "seriesMaster" || e.EventType == "exception",
		AttendeeCount: len(e.Attendees),
		Response:      parseResponseStatus(e.ResponseStatus.Response),
		BodyPreview:   e.BodyPreview,
	}
}

// parseImportance maps Graph's importance string onto the Importance enum.
func parseImportance(s string) models.Importance {
	switch strings.ToLower(s) {
	case "high":
		return models.ImportanceHigh
	case "low":
		return models.ImportanceLow
	default:
		return models.ImportanceNormal
	}
}

// parseResponseStatus maps Graph's responseStatus.response values.
func parseResponseStatus(s string) models.ResponseStatus {
	switch strings.ToLower(s) {
	case "organizer":
		return models.ResponseOrganizer
	case "tentativelyaccepted":
		return models.ResponseTentative
	case "accepted":
		return models.ResponseAccepted
	case "declined":
		return models.ResponseDeclined
	case "notresponded":
		return models.ResponseNotResponded
	default:
		return models.ResponseNone
	}
}

// parseGraphTime parses a dateTimeTimeZone pair. Graph returns fractional
// seconds without an offset, e.g. "2026-08-27T09:00:00.0000000" with a
// separate time zone name. Unknown zones fall back to UTC.
func parseGraphTime(dt graphDateTime) time.Time {
	loc := time.UTC
	if dt.TimeZone != "" {
		if l, err := time.LoadLocation(dt.TimeZone); err == nil {
			loc = l
		}
	}

	value := dt.DateTime
	if len(value) > 19 {
		value = value[:19]
	}

	t, err := time.ParseInLocation("2006-01-02T15:04:05", value, loc)
	if err != nil {
		slog.Warn("unparseable event time, using zero time", "value", dt.DateTime)
		return time.Time{}
	}
	return t
}
