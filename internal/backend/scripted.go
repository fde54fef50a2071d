package backend

import (
	"context"
	"fmt"
)

// ScriptedClient answers every prompt with canned, schema-valid JSON. It
// backs local runs without an API key and the backend tests.
type ScriptedClient struct{}

func (ScriptedClient) Complete(_ context.Context, prompt Prompt) (string, error) {
	switch prompt.Task {
	case TaskInitialPolicy, TaskRefinePolicy:
		return scriptedMachinePolicy, nil
	case TaskPublicPolicy:
		return scriptedPublicPolicy, nil
	case TaskModeratorPolicy:
		return scriptedModeratorPolicy, nil
	case TaskExamples:
		return scriptedExamples, nil
	default:
		return "", fmt.Errorf("backend: no scripted answer for task %q", prompt.Task)
	}
}

const scriptedMachinePolicy = `{
  "name": "Scripted Harassment Policy",
  "description": "Detects targeted harassment directed at individual users.",
  "scope": "Applies to all user-generated text content.",
  "violation_criteria": [
    "Direct insults aimed at a named user",
    "Repeated unwanted contact after a request to stop"
  ],
  "non_violation_examples": [
    "Criticism of ideas without targeting a person"
  ],
  "edge_case_guidance": [
    "Quoted harassment for reporting purposes is not a violation"
  ],
  "output_format": {
    "type": "classification",
    "labels": ["violation", "borderline", "non-violation"],
    "confidence_required": true
  }
}`

const scriptedPublicPolicy = `{
  "name": "Scripted Harassment Policy",
  "summary": "We do not allow targeted harassment of other users.",
  "rationale": "Everyone should be able to participate without being attacked.",
  "scope": "Applies to all public posts and direct messages.",
  "violation_examples": [
    "Insulting another user by name",
    "Messaging someone repeatedly after being asked to stop"
  ],
  "non_violation_examples": [
    "Disagreeing strongly with an opinion"
  ],
  "faq": [
    "Q: Can I criticize public figures? A: Criticism of ideas is allowed; personal attacks are not."
  ]
}`

const scriptedModeratorPolicy = `{
  "name": "Scripted Harassment Policy",
  "description": "Moderator guidance for handling targeted harassment reports.",
  "scope": "Applies to reported text content across the platform.",
  "violation_examples": [
    "A thread of insults aimed at one user"
  ],
  "non_violation_examples": [
    "Heated but mutual argument between two users"
  ],
  "edge_case_notes": [
    "Check whether the target asked the sender to stop"
  ],
  "enforcement_guidance": [
    "First offense: warning. Repeat offense: temporary suspension."
  ],
  "severity": "high"
}`

const scriptedExamples = `{
  "examples": [
    {"text": "You are worthless and everyone here hates you.", "label": "violation"},
    {"text": "Stop messaging me. -- followed by three more messages", "label": "violation"},
    {"text": "Nobody asked for your opinion, idiot.", "label": "violation"},
    {"text": "People like you ruin every thread you touch.", "label": "violation"},
    {"text": "I completely disagree with your take on this.", "label": "non-violation"},
    {"text": "This proposal has serious flaws, here is why.", "label": "non-violation"},
    {"text": "Look at this harassment I received: 'you are worthless'.", "label": "non-violation"},
    {"text": "Classic you, always late to the party ;)", "label": "borderline"}
  ]
}`
