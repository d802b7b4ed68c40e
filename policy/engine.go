// Package policy decides whether a caller may use a given model.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.model_policy.decision"),
		rego.Module("model_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input is the policy evaluation input for one chat turn.
type Input struct {
	UserID  string `json:"user_id"`
	ModelID string `json:"model_id"`
	Known   bool   `json:"known"`
	Tier    string `json:"tier"`
}

// Evaluate returns the policy decision ("allow" or "deny") for a turn.
// A policy with no matching rule denies.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "deny", nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "deny", nil
}

// DefaultPolicy allows catalog models and denies unknown model ids.
const DefaultPolicy = `
package model_policy

default decision = "deny"

decision = "allow" {
	input.known
}
`
