package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/socwatch/internal/mitre"
	"github.com/ppiankov/socwatch/internal/model"
	"github.com/ppiankov/socwatch/internal/policy"
	"github.com/ppiankov/socwatch/internal/scoring"
)

// --- Input/Output types ---

// TriageInput defines parameters for the socwatch_triage tool.
type TriageInput struct {
	Incident map[string]any `json:"incident" jsonschema:"incident record with incident_id, source, title, severity, timestamp and optional entities"`
	Signals  map[string]any `json:"signals,omitempty" jsonschema:"enrichment signals keyed by provider (virustotal, abuseipdb, whois, asn, context)"`
	AI       bool           `json:"ai,omitempty" jsonschema:"also run the advisory layer"`
}

// TriageOutput wraps the triage result.
type TriageOutput struct {
	Result *model.Result `json:"result"`
}

// ScoreInput defines parameters for the socwatch_score tool.
type ScoreInput struct {
	Signals map[string]any `json:"signals" jsonschema:"enrichment signals keyed by provider"`
}

// ScoreOutput holds the score and technique hypotheses.
type ScoreOutput struct {
	Scoring scoring.Result     `json:"scoring"`
	Mitre   []mitre.Hypothesis `json:"mitre"`
}

// PolicyCheckInput defines parameters for the socwatch_policy_check tool.
type PolicyCheckInput struct {
	Score    int            `json:"score" jsonschema:"deterministic risk score 0-100"`
	Entities []model.Entity `json:"entities,omitempty" jsonschema:"incident entities as type/value pairs"`
}

// PolicyCheckOutput contains the policy decision.
type PolicyCheckOutput struct {
	Level      string         `json:"level"`
	Decision   model.Decision `json:"decision"`
	PolicyHash string         `json:"policy_hash,omitempty"`
}

// --- Handlers ---

func (s *Server) handleTriage(ctx context.Context, req *mcpsdk.CallToolRequest, input TriageInput) (*mcpsdk.CallToolResult, TriageOutput, error) {
	if input.Incident == nil {
		return nil, TriageOutput{}, fmt.Errorf("incident is required")
	}

	var (
		res *model.Result
		err error
	)
	if input.AI {
		res, err = s.svc.TriageAI(ctx, input.Incident, input.Signals)
	} else {
		res, err = s.svc.Triage(ctx, input.Incident, input.Signals)
	}
	if err != nil {
		return nil, TriageOutput{}, err
	}
	return nil, TriageOutput{Result: res}, nil
}

func (s *Server) handleScore(ctx context.Context, req *mcpsdk.CallToolRequest, input ScoreInput) (*mcpsdk.CallToolResult, ScoreOutput, error) {
	return nil, ScoreOutput{
		Scoring: scoring.Score(input.Signals, s.scoring),
		Mitre:   mitre.Infer(input.Signals, mitre.Options{}),
	}, nil
}

func (s *Server) handlePolicyCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input PolicyCheckInput) (*mcpsdk.CallToolResult, PolicyCheckOutput, error) {
	if input.Score < 0 || input.Score > 100 {
		return nil, PolicyCheckOutput{}, fmt.Errorf("score must be between 0 and 100, got %d", input.Score)
	}

	var (
		rules []policy.Rule
		hash  string
	)
	if s.rules != nil {
		rs, err := s.rules.Load()
		if err != nil {
			return nil, PolicyCheckOutput{}, fmt.Errorf("policy source: %w", err)
		}
		rules, hash = rs.Rules, rs.Hash
	}

	level := scoring.LevelFor(input.Score, s.scoring)
	decision := policy.Evaluate(scoring.Result{Score: input.Score, Level: level}, input.Entities, rules)
	return nil, PolicyCheckOutput{Level: string(level), Decision: decision, PolicyHash: hash}, nil
}
