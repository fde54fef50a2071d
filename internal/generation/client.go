// Package generation wraps the five request/response operations the workflow
// needs from the generation backend. Transport mechanics (timeouts, retries)
// live here; the orchestrator only sees the Client contract and a single
// failure kind.
package generation

import (
	"context"
	"fmt"

	"github.com/policyforge/policyforge/internal/policy"
)

// IntentRequest carries the raw intent form fields to the backend. All
// fields except AdditionalContext are required; the form boundary validates
// them before the orchestrator is ever invoked.
type IntentRequest struct {
	PlatformType      string `json:"platform_type"`
	Industry          string `json:"industry"`
	UserBehavior      string `json:"user_behavior"`
	RealWorldConcerns string `json:"real_world_concerns"`
	ModerationStyle   string `json:"moderation_style"`
	AdditionalContext string `json:"additional_context"`
}

// EnrichedIntent is the backend's augmented intent payload. The orchestrator
// treats everything except Intent as opaque and forwards Intent unchanged
// into the initial policy generation call.
type EnrichedIntent struct {
	Intent       string            `json:"intent"`
	Context      map[string]string `json:"context,omitempty"`
	Requirements []string          `json:"requirements,omitempty"`
}

// DerivedPolicies bundles the two documents computed from a machine policy.
type DerivedPolicies struct {
	Public    policy.Document
	Moderator policy.Document
}

// Client is the contract the orchestrator depends on. Every operation fails
// with a *Error on non-success backend response or transport error; no other
// failure kind is distinguished.
type Client interface {
	SubmitIntent(ctx context.Context, req IntentRequest) (EnrichedIntent, error)
	GenerateInitialPolicy(ctx context.Context, intent EnrichedIntent) (policy.Document, error)
	GenerateExamples(ctx context.Context, machine policy.Document) (policy.ExampleSet, error)
	RefinePolicy(ctx context.Context, machine policy.Document, reviewed policy.ExampleSet) (policy.Document, error)
	GenerateDerivedPolicies(ctx context.Context, machine policy.Document) (DerivedPolicies, error)
}

// Error is the single generation failure kind. Message is human-readable and
// surfaced inline at the stage where the failure occurred.
type Error struct {
	Op      string
	Message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap exposes the transport-level cause, when any.
func (e *Error) Unwrap() error { return e.cause }

func failf(op string, cause error, format string, args ...any) *Error {
	return &Error{Op: op, Message: fmt.Sprintf(format, args...), cause: cause}
}
