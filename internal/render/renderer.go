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

// Package render turns the grouped briefing result into the HTML report
// that gets mailed out. The template is embedded so the binary is
// self-contained.
package render

import (
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bcem/briefing/internal/models"
	"github.com/bcem/briefing/internal/prioritise"
	"github.com/bcem/briefing/internal/schedule"
)

//go:embed report.html.tmpl
var reportTemplate string

// Section is one rendered report section.
type Section struct {
	Group   models.Group
	Title   string
	Items   []*models.Message
	Dropped int
}

// reportContext is the data handed to the template.
type reportContext struct {
	TimestampLocal string
	Mode           string
	Sections       []Section
	Calendar       []*models.Event
	TotalMail      int
	TotalCalendar  int
	Skipped        int
}

// Renderer renders the briefing report.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded report template.
func New() (*Renderer, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatTime":      formatTime,
		"formatDate":      formatDate,
		"truncateSubject": truncateSubject,
	}).Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// RenderReport produces the full HTML briefing. Sections appear in the
// fixed report order; empty groups are omitted.
func (r *Renderer) RenderReport(res *prioritise.Result, calendar []*models.Event, mode schedule.Mode, now time.Time) (string, error) {
	ctx := reportContext{
		TimestampLocal: now.Local().Format("2006-01-02 15:04"),
		Mode:           titleCase(string(mode)),
		Calendar:       calendar,
		TotalCalendar:  len(calendar),
		Skipped:        res.Skipped,
	}

	for _, group := range models.ReportOrder {
		items := res.Groups[group]
		if len(items) == 0 {
			continue
		}
		ctx.Sections = append(ctx.Sections, Section{
			Group:   group,
			Title:   sectionTitle(group, items),
			Items:   items,
			Dropped: res.Dropped[group],
		})
		ctx.TotalMail += len(items)
	}

	var sb strings.Builder
	if err := r.tmpl.Execute(&sb, ctx); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	return sb.String(), nil
}

// RenderSubject fills the configured subject template. Placeholders are
// the same the original report configs used: {{ timestamp_local }} and
// {{ mode }}.
func RenderSubject(subjectTemplate string, mode schedule.Mode, now time.Time) string {
	subject := strings.ReplaceAll(subjectTemplate, "{{ timestamp_local }}", now.Local().Format("2006-01-02 15:04"))
	subject = strings.ReplaceAll(subject, "{{ mode }}", titleCase(string(mode)))
	return subject
}

// WritePreview saves the rendered HTML to disk for inspection.
func WritePreview(path, html string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preview dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	slog.Info("preview saved", "path", path)
	return nil
}

// sectionTitle picks the heading for a section. A team-customer section
// whose items all carry the same mapped label uses that label directly.
func sectionTitle(group models.Group, items []*models.Message) string {
	if group != models.GroupCustomersTeam || len(items) == 0 {
		return group.Label()
	}
	label := items[0].GroupLabel
	for _, m := range items[1:] {
		if m.GroupLabel != label {
			return group.Label()
		}
	}
	if label == "" {
		return group.Label()
	}
	return label
}

func formatTime(t time.Time) string {
	return t.Local().Format("15:04")
}

func formatDate(t time.Time) string {
	return t.Local().Format("02 Jan")
}

func truncateSubject(s string) string {
	const max = 60
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
