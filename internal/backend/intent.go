package backend

import (
	"fmt"
	"strings"

	"github.com/policyforge/policyforge/internal/generation"
)

// EnrichIntent expands the raw intent form into the structured payload the
// policy writer consumes. It is pure: no model call, no I/O.
func EnrichIntent(req generation.IntentRequest) (generation.EnrichedIntent, error) {
	missing := missingIntentFields(req)
	if len(missing) > 0 {
		return generation.EnrichedIntent{}, fmt.Errorf("backend: intent is missing required fields: %s", strings.Join(missing, ", "))
	}
	intent := strings.TrimSpace(fmt.Sprintf(`
Platform Type: %s
Industry: %s
Target Behavior: %s
Real-World Concerns: %s
Moderation Approach: %s
Additional Context: %s

The goal is to write policies that effectively detect and moderate the above behavior, taking into account platform norms, user expectations, and the need for clear guidance and automation.
`, req.PlatformType, req.Industry, req.UserBehavior, req.RealWorldConcerns, req.ModerationStyle, req.AdditionalContext))

	return generation.EnrichedIntent{
		Intent: intent,
		Context: map[string]string{
			"platform_type":       req.PlatformType,
			"industry":            req.Industry,
			"user_behavior":       req.UserBehavior,
			"real_world_concerns": req.RealWorldConcerns,
			"moderation_style":    req.ModerationStyle,
			"additional_context":  req.AdditionalContext,
		},
		Requirements: []string{
			fmt.Sprintf("Detect and moderate %s", req.UserBehavior),
			fmt.Sprintf("Consider %s", req.RealWorldConcerns),
			fmt.Sprintf("Apply %s moderation approach", req.ModerationStyle),
			fmt.Sprintf("Account for %s platform norms", req.PlatformType),
		},
	}, nil
}

func missingIntentFields(req generation.IntentRequest) []string {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	require("platform_type", req.PlatformType)
	require("industry", req.Industry)
	require("user_behavior", req.UserBehavior)
	require("real_world_concerns", req.RealWorldConcerns)
	require("moderation_style", req.ModerationStyle)
	return missing
}
