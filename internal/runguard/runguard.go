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

// Package runguard prevents duplicate briefings using a Redis key with
// TTL. A retried or rescheduled invocation inside the same window finds
// the key already set and skips delivery.
package runguard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a sent marker is remembered. Shorter than a
	// day so tomorrow's window is never blocked by clock drift.
	DefaultTTL = 20 * time.Hour

	// keyPrefix namespaces guard keys in Redis.
	keyPrefix = "briefing:sent:"
)

// Guard tracks which briefing windows have already been delivered.
type Guard struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a run guard backed by Redis. A zero ttl means DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{rdb: rdb, ttl: ttl}
}

// Acquire returns true if no briefing has been sent for this day+mode yet.
// If true, the window is marked as sent atomically (SETNX).
func (g *Guard) Acquire(ctx context.Context, day, mode string) (bool, error) {
	key := fmt.Sprintf("%s%s:%s", keyPrefix, day, mode)

	// SET NX = set only if key does not exist. Returns true if the key was set.
	set, err := g.rdb.SetNX(ctx, key, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("run guard SETNX: %w", err)
	}

	return set, nil
}

// Release removes the sent marker, used when delivery fails after the
// window was acquired so a retry can go through.
func (g *Guard) Release(ctx context.Context, day, mode string) error {
	key := fmt.Sprintf("%s%s:%s", keyPrefix, day, mode)
	if err := g.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("run guard DEL: %w", err)
	}
	return nil
}
