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

// Package graph retrieves mailbox and calendar content from the Microsoft
// Graph API and sends the finished briefing via sendMail. It replaces the
// desktop Outlook automation layer with plain REST calls.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/bcem/briefing/internal/models"
)

// Well-known mail folder names understood by the Graph API.
const (
	FolderInbox = "inbox"
	FolderSent  = "sentitems"
)

// messageSelect lists the message fields the briefing needs — nothing else
// is transferred.
const messageSelect = "id,subject,from,receivedDateTime,importance,flag,isRead,hasAttachments,categories,bodyPreview"

// eventSelect lists the calendarView fields the briefing needs.
const eventSelect = "id,subject,start,end,location,organizer,isAllDay,type,attendees,responseStatus,bodyPreview"

// Client retrieves content for one mailbox from the Graph API. The HTTP
// client is expected to carry OAuth2 client-credential tokens.
type Client struct {
	httpClient   *http.Client
	graphBaseURL string
	user         string
	pageSize     int
}

// NewClient creates a Graph API client for the given mailbox user.
func NewClient(httpClient *http.Client, graphBaseURL, user string) *Client {
	return &Client{
		httpClient:   httpClient,
		graphBaseURL: graphBaseURL,
		user:         user,
		pageSize:     50,
	}
}

// ListMessages retrieves all messages in a well-known folder received
// since the given time, following pagination.
func (c *Client) ListMessages(ctx context.Context, folder string, since time.Time) ([]*models.Message, error) {
	q := url.Values{}
	q.Set("$select", messageSelect)
	q.Set("$filter", fmt.Sprintf("receivedDateTime ge %s", since.UTC().Format(time.RFC3339)))
	q.Set("$orderby", "receivedDateTime desc")
	q.Set("$top", fmt.Sprintf("%d", c.pageSize))

	listURL := fmt.Sprintf("%s/users/%s/mailFolders/%s/messages?%s",
		c.graphBaseURL, url.PathEscape(c.user), folder, q.Encode())

	return c.collectMessages(ctx, listURL, folderLabel(folder))
}

// ListOverdue retrieves flagged-or-unread messages older than the cutoff,
// scanned over a longer lookback window than the regular inbox pass.
func (c *Client) ListOverdue(ctx context.Context, olderThan, lookback time.Duration) ([]*models.Message, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-olderThan).Format(time.RFC3339)
	windowStart := now.Add(-lookback).Format(time.RFC3339)

	q := url.Values{}
	q.Set("$select", messageSelect)
	q.Set("$filter", fmt.Sprintf(
		"receivedDateTime ge %s and receivedDateTime le %s and (flag/flagStatus eq 'flagged' or isRead eq false)",
		windowStart, cutoff))
	q.Set("$orderby", "receivedDateTime desc")
	q.Set("$top", fmt.Sprintf("%d", c.pageSize))

	listURL := fmt.Sprintf("%s/users/%s/mailFolders/%s/messages?%s",
		c.graphBaseURL, url.PathEscape(c.user), FolderInbox, q.Encode())

	return c.collectMessages(ctx, listURL, "Overdue")
}

// ListCalendarView retrieves all calendar events overlapping [start, end).
// Recurring events are expanded into occurrences by the calendarView
// endpoint.
func (c *Client) ListCalendarView(ctx context.Context, start, end time.Time) ([]*models.Event, error) {
	q := url.Values{}
	q.Set("startDateTime", start.UTC().Format(time.RFC3339))
	q.Set("endDateTime", end.UTC().Format(time.RFC3339))
	q.Set("$select", eventSelect)
	q.Set("$orderby", "start/dateTime")
	q.Set("$top", fmt.Sprintf("%d", c.pageSize))

	listURL := fmt.Sprintf("%s/users/%s/calendarView?%s",
		c.graphBaseURL, url.PathEscape(c.user), q.Encode())

	var events []*models.Event
	for listURL != "" {
		page, err := fetchPage[eventsPage](ctx, c.httpClient, listURL)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		for _, e := range page.Value {
			events = append(events, convertEvent(e))
		}
		listURL = page.NextLink
	}

	return events, nil
}

// sendMailRequest is the Graph sendMail payload.
type sendMailRequest struct {
	Message struct {
		Subject string `json:"subject"`
		Body    struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"body"`
		ToRecipients []struct {
			EmailAddress struct {
				Address string `json:"address"`
			} `json:"emailAddress"`
		} `json:"toRecipients"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

// SendMail delivers the rendered HTML briefing to the recipient via the
// Graph sendMail action.
func (c *Client) SendMail(ctx context.Context, to, subject, htmlBody string) error {
	var req sendMailRequest
	req.Message.Subject = subject
	req.Message.Body.ContentType = "HTML"
	req.Message.Body.Content = htmlBody
	req.Message.ToRecipients = make([]struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	}, 1)
	req.Message.ToRecipients[0].EmailAddress.Address = to
	req.SaveToSentItems = false

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal sendMail request: %w", err)
	}

	sendURL := fmt.Sprintf("%s/users/%s/sendMail", c.graphBaseURL, url.PathEscape(c.user))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("graph sendMail returned HTTP %d: %s", resp.StatusCode, msg)
	}

	slog.Info("briefing sent", "to", to, "subject", subject)
	return nil
}

// collectMessages follows pagination and converts each page.
func (c *Client) collectMessages(ctx context.Context, listURL, folder string) ([]*models.Message, error) {
	var messages []*models.Message
	for listURL != "" {
		page, err := fetchPage[messagesPage](ctx, c.httpClient, listURL)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		for _, m := range page.Value {
			messages = append(messages, convertMessage(m, folder))
		}
		listURL = page.NextLink
	}
	return messages, nil
}

// fetchPage retrieves and decodes one list page.
func fetchPage[T any](ctx context.Context, client *http.Client, pageURL string) (*T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "outlook.body-content-type=\"text\"")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		slog.Warn("graph resource not found", "url", pageURL)
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph API returned HTTP %d", resp.StatusCode)
	}

	var page T
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}

	return &page, nil
}

// folderLabel maps a Graph folder name to the label shown in the report.
func folderLabel(folder string) string {
	switch folder {
	case FolderSent:
		return "Sent"
	default:
		return "Inbox"
	}
}
