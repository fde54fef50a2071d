package backend

import (
	"fmt"
	"strings"
)

const policyExpertSystem = "You are a senior trust and safety policy expert with extensive experience in " +
	"content moderation and policy enforcement. Your expertise includes analyzing user-generated content " +
	"across various platforms and understanding how policies are applied in real-world scenarios. You excel " +
	"at identifying subtle policy violations, edge cases, and culturally contextual content."

func initialPolicyPrompt(intent string) Prompt {
	var sb strings.Builder
	sb.WriteString("Write a machine-readable content moderation policy for the following intent:\n\n")
	sb.WriteString(`"""` + intent + `"""` + "\n\n")
	sb.WriteString("Return only a JSON object with these fields:\n")
	sb.WriteString("- `name`: Short policy name\n")
	sb.WriteString("- `description`: What the policy detects and why\n")
	sb.WriteString("- `scope`: The content and surfaces the policy applies to\n")
	sb.WriteString("- `violation_criteria`: List of precise, testable conditions that constitute a violation\n")
	sb.WriteString("- `non_violation_examples`: List of content patterns that must NOT be flagged\n")
	sb.WriteString("- `edge_case_guidance`: List of rules for ambiguous or contextual content\n")
	sb.WriteString("- `output_format`: Object with `type`, `labels` (list of strings), and `confidence_required` (boolean)\n\n")
	sb.WriteString("The policy must be precise enough for automated enforcement. Prefer concrete, observable criteria over vague language.")
	return Prompt{Task: TaskInitialPolicy, System: policyExpertSystem, User: sb.String()}
}

func publicPolicyPrompt(machineJSON string) Prompt {
	var sb strings.Builder
	sb.WriteString("Here is a machine-readable content moderation policy:\n\n")
	sb.WriteString(`"""` + machineJSON + `"""` + "\n\n")
	sb.WriteString("Write the user-facing version of this policy. It should be clear, friendly, and free of internal jargon.\n\n")
	sb.WriteString("Return only a JSON object with these fields:\n")
	sb.WriteString("- `name`: Same policy name\n")
	sb.WriteString("- `summary`: One-paragraph plain-language summary of what is not allowed\n")
	sb.WriteString("- `rationale`: Why the platform has this policy\n")
	sb.WriteString("- `scope`: Where the policy applies, in user terms\n")
	sb.WriteString("- `violation_examples`: List of illustrative examples of violations\n")
	sb.WriteString("- `non_violation_examples`: List of examples of allowed content users might worry about\n")
	sb.WriteString("- `faq`: List of question-and-answer strings addressing common concerns")
	return Prompt{Task: TaskPublicPolicy, System: policyExpertSystem, User: sb.String()}
}

func moderatorPolicyPrompt(machineJSON string) Prompt {
	var sb strings.Builder
	sb.WriteString("Here is a machine-readable content moderation policy:\n\n")
	sb.WriteString(`"""` + machineJSON + `"""` + "\n\n")
	sb.WriteString("Write the internal moderator handbook version of this policy.\n\n")
	sb.WriteString("Return only a JSON object with these fields:\n")
	sb.WriteString("- `name`: Same policy name\n")
	sb.WriteString("- `description`: What moderators are enforcing and why\n")
	sb.WriteString("- `scope`: The content and report queues this policy covers\n")
	sb.WriteString("- `violation_examples`: List of concrete examples moderators will encounter\n")
	sb.WriteString("- `non_violation_examples`: List of look-alike content that must not be actioned\n")
	sb.WriteString("- `edge_case_notes`: List of judgment calls and how to resolve them\n")
	sb.WriteString("- `enforcement_guidance`: List of actions per offense tier\n")
	sb.WriteString("- `severity`: One of \"low\", \"medium\", \"high\", or \"critical\"")
	return Prompt{Task: TaskModeratorPolicy, System: policyExpertSystem, User: sb.String()}
}

func examplesPrompt(machineJSON string) Prompt {
	var sb strings.Builder
	sb.WriteString("Here is a machine-readable content moderation policy:\n\n")
	sb.WriteString(`"""` + machineJSON + `"""` + "\n\n")
	sb.WriteString("Generate exactly 8 high-quality synthetic examples to test this policy, distributed as:\n")
	sb.WriteString("- 4 violations\n- 3 non-violations\n- 1 borderline case\n\n")
	sb.WriteString("Each example is an object with:\n")
	sb.WriteString("- `text`: The example content\n")
	sb.WriteString("- `label`: One of \"violation\", \"non-violation\", or \"borderline\"\n\n")
	sb.WriteString("Ensure diversity across communication styles, cultural contexts, platform-specific patterns, ")
	sb.WriteString("and user intentions. Examples should be realistic but avoid extreme or harmful content; focus on ")
	sb.WriteString("testing policy boundaries.\n\n")
	sb.WriteString("Return only a JSON object with a field `examples` containing the list of 8 example objects.")
	return Prompt{Task: TaskExamples, System: policyExpertSystem, User: sb.String()}
}

func refinePolicyPrompt(machineJSON, reviewedJSON string) Prompt {
	var sb strings.Builder
	sb.WriteString("Here is the current machine policy:\n\n")
	sb.WriteString(`"""` + machineJSON + `"""` + "\n\n")
	sb.WriteString("And here are the reviewed examples with their human-corrected labels:\n\n")
	sb.WriteString(`"""` + reviewedJSON + `"""` + "\n\n")
	sb.WriteString("Refine the machine policy to better handle the edge cases and nuances revealed by the reviewed ")
	sb.WriteString("examples. Make the policy more precise and comprehensive while keeping it machine-readable.\n\n")
	sb.WriteString("Return a JSON object using the same schema as the input machine policy.")
	system := fmt.Sprintf("%s Your task is to refine the machine policy based on reviewed examples to ensure it captures all edge cases and nuances correctly.", policyExpertSystem)
	return Prompt{Task: TaskRefinePolicy, System: system, User: sb.String()}
}
