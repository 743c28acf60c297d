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

// Package schedule gates briefing runs. In auto mode the briefing only
// goes out on weekdays inside the morning and evening windows; explicit
// modes run unconditionally so a manual invocation always works.
package schedule

import (
	"fmt"
	"log/slog"
	"time"
)

// Mode selects which briefing to produce.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeMorning Mode = "morning"
	ModeEvening Mode = "evening"
	ModeForce   Mode = "force"
)

// ParseMode validates a mode flag value.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeMorning, ModeEvening, ModeForce:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want auto, morning, evening or force)", s)
}

// Auto-mode run windows, local time.
const (
	morningWindowStart = 9
	morningWindowEnd   = 10
	eveningWindowStart = 17
	eveningWindowEnd   = 18
)

// Guard decides whether a briefing should run at the given moment.
type Guard struct {
	now time.Time
}

// NewGuard creates a guard evaluated against the given local time.
func NewGuard(now time.Time) *Guard {
	return &Guard{now: now.Local()}
}

// ShouldRun reports whether this invocation should proceed. Force bypasses
// every check; morning and evening allow manual execution on any day;
// auto requires a weekday inside one of the run windows.
func (g *Guard) ShouldRun(mode Mode) bool {
	switch mode {
	case ModeForce:
		slog.Info("running in force mode, bypassing all checks")
		return true
	case ModeMorning, ModeEvening:
		slog.Info("manual mode, running unconditionally", "mode", mode)
		return true
	case ModeAuto:
	default:
		return true
	}

	switch g.now.Weekday() {
	case time.Saturday, time.Sunday:
		slog.Info("auto mode: weekend, skipping", "day", g.now.Weekday().String())
		return false
	}

	hour := g.now.Hour()
	if (hour >= morningWindowStart && hour < morningWindowEnd) ||
		(hour >= eveningWindowStart && hour < eveningWindowEnd) {
		slog.Info("auto mode: inside briefing window", "hour", hour)
		return true
	}

	slog.Info("auto mode: outside briefing windows",
		"time", g.now.Format("15:04"),
	)
	return false
}

// ModeFromTime resolves auto or force into the concrete briefing mode:
// morning before noon, evening after.
func (g *Guard) ModeFromTime() Mode {
	if g.now.Hour() < 12 {
		return ModeMorning
	}
	return ModeEvening
}

// Resolve maps the requested mode to the mode the renderer should use.
func (g *Guard) Resolve(mode Mode) Mode {
	if mode == ModeAuto || mode == ModeForce {
		return g.ModeFromTime()
	}
	return mode
}
