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

// Package queue publishes finished briefings to a Redis list. This is the
// alternative delivery channel for setups where an external notifier
// (chat bot, web UI) consumes the report instead of email.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Briefing is the queue payload for one rendered report.
type Briefing struct {
	RunID         string    `json:"run_id"`
	Mode          string    `json:"mode"`
	GeneratedAt   time.Time `json:"generated_at"`
	To            string    `json:"to"`
	Subject       string    `json:"subject"`
	HTML          string    `json:"html"`
	TotalMail     int       `json:"total_mail"`
	TotalCalendar int       `json:"total_calendar"`
}

// Publisher sends briefings to a Redis list.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// PublishBriefing serialises the briefing and pushes it onto the queue.
func (p *Publisher) PublishBriefing(ctx context.Context, b *Briefing) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal briefing: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, payload).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published briefing to queue",
		"run_id", b.RunID,
		"mode", b.Mode,
		"queue", p.queueName,
	)

	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
