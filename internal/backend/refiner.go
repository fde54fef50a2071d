package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/policyforge/policyforge/internal/policy"
)

// Refine rewrites a machine policy using human-reviewed example labels. The
// result is a full replacement document, not a patch.
func (g *Generator) Refine(ctx context.Context, machine policy.Document, reviewed []policy.ExampleRecord) (policy.Document, error) {
	machineJSON, err := documentJSON(machine)
	if err != nil {
		return policy.Document{}, err
	}
	if len(reviewed) == 0 {
		return policy.Document{}, fmt.Errorf("backend: reviewed examples are required to refine")
	}
	reviewedData, err := json.Marshal(reviewed)
	if err != nil {
		return policy.Document{}, fmt.Errorf("backend: encode reviewed examples: %w", err)
	}
	return g.completeDocument(ctx, refinePolicyPrompt(machineJSON, string(reviewedData)), policy.VariantMachine)
}
