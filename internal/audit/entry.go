package audit

// Event types recorded in the audit log.
const (
	EventTriageCompleted = "triage_completed"
	EventAIFallbackUsed  = "ai_fallback_used"
	EventAICallAttempt   = "ai_call_attempt"
	EventAICallSuccess   = "ai_call_success"
	EventAICallFailed    = "ai_call_failed"
)

// Entry is one line in the hash-chained JSONL audit log.
// Details is a string map: json.Marshal sorts map keys, so the line stays
// byte-stable for hashing.
type Entry struct {
	Timestamp  string            `json:"ts"`
	Event      string            `json:"event"`
	IncidentID string            `json:"incident_id,omitempty"`
	Score      *int              `json:"score,omitempty"`
	Level      string            `json:"level,omitempty"`
	Mode       string            `json:"mode,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	PolicyHash string            `json:"policy_hash,omitempty"`
	PrevHash   string            `json:"prev_hash"`
}
