package audit

import (
	"strconv"
	"strings"

	"github.com/ppiankov/socwatch/internal/model"
)

// RecordResult appends a triage_completed entry for r.
func (l *Log) RecordResult(r *model.Result) error {
	score := r.Scoring.Score
	return l.Record(Entry{
		Event:      EventTriageCompleted,
		IncidentID: r.Incident.IncidentID,
		Score:      &score,
		Level:      string(r.Scoring.Level),
		Mode:       r.Meta.Mode,
		PolicyHash: r.Meta.PolicyHash,
		Details: map[string]string{
			"allowed":           strings.Join(r.Policy.AllowedActions, ","),
			"denied":            strings.Join(r.Policy.DeniedActions, ","),
			"requires_approval": strconv.FormatBool(r.Policy.RequiresApproval),
		},
	})
}
