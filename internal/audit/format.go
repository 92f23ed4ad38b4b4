package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	label := result.IncidentID
	if label == "" {
		label = "(all incidents)"
	}
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Incident: %s | No entries found.\n", label)
	}

	var b strings.Builder

	first := formatDateRange(result.Summary.FirstTimestamp)
	last := formatTimeOnly(result.Summary.LastTimestamp)
	b.WriteString(fmt.Sprintf("Incident: %s | %s–%s UTC\n", label, first, last))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		score := "-"
		if e.Score != nil {
			score = fmt.Sprintf("%d", *e.Score)
		}
		b.WriteString(fmt.Sprintf("%-10s %-18s %-14s %-4s %-7s %s\n",
			formatTimeOnly(e.Timestamp),
			e.Event,
			truncate(e.IncidentID, 14),
			score,
			e.Level,
			truncate(formatDetails(e.Details), 40)))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatDetails(d map[string]string) string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+d[k])
	}
	return strings.Join(parts, " ")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{}
	if s.TriageCount > 0 {
		parts = append(parts, fmt.Sprintf("%d triage", s.TriageCount))
	}
	if s.AICallCount > 0 {
		parts = append(parts, fmt.Sprintf("%d ai call", s.AICallCount))
	}
	if s.AIFailureCount > 0 {
		parts = append(parts, fmt.Sprintf("%d ai failure", s.AIFailureCount))
	}
	if s.FallbackCount > 0 {
		parts = append(parts, fmt.Sprintf("%d fallback", s.FallbackCount))
	}
	return fmt.Sprintf("Summary: %s | Max score: %d\n", strings.Join(parts, ", "), s.MaxScore)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
