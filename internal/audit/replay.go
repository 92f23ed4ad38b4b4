package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// ReplayFilter holds filtering criteria for incident replay.
type ReplayFilter struct {
	IncidentID string    // empty = every incident
	From       time.Time // zero value = no lower bound
	To         time.Time // zero value = no upper bound
}

// ReplaySummary holds event counts and metadata for a replayed incident.
type ReplaySummary struct {
	Total          int    `json:"total"`
	TriageCount    int    `json:"triage_count"`
	AICallCount    int    `json:"ai_call_count"`
	AIFailureCount int    `json:"ai_failure_count"`
	FallbackCount  int    `json:"fallback_count"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
	MaxScore       int    `json:"max_score"`
}

// ReplayResult holds filtered entries and summary for an incident replay.
type ReplayResult struct {
	IncidentID string        `json:"incident_id"`
	Entries    []Entry       `json:"entries"`
	Summary    ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns entries matching the filter.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{
		IncidentID: filter.IncidentID,
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip malformed lines
		}

		if filter.IncidentID != "" && entry.IncidentID != filter.IncidentID {
			continue
		}

		if !filter.From.IsZero() || !filter.To.IsZero() {
			ts, err := time.Parse(TimestampFormat, entry.Timestamp)
			if err != nil {
				continue
			}
			if !filter.From.IsZero() && ts.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && ts.After(filter.To) {
				continue
			}
		}

		result.Entries = append(result.Entries, entry)
		updateSummary(&result.Summary, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	return result, nil
}

func updateSummary(s *ReplaySummary, entry Entry) {
	s.Total++

	switch entry.Event {
	case EventTriageCompleted:
		s.TriageCount++
	case EventAICallAttempt:
		s.AICallCount++
	case EventAICallFailed:
		s.AIFailureCount++
	case EventAIFallbackUsed:
		s.FallbackCount++
	}

	if entry.Score != nil && *entry.Score > s.MaxScore {
		s.MaxScore = *entry.Score
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}
