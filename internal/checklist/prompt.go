package checklist

import (
	"fmt"
	"strings"
)

// ConfirmationMessage is the feedback for a transcript that covers every point.
const ConfirmationMessage = "The agent has covered all points as per the script."

// TopicLinePrefix starts the instruction line naming the checklist under evaluation.
const TopicLinePrefix = "Checklist topic: "

// BuildInstruction renders the evaluation instruction for one checklist.
func BuildInstruction(c ReferenceChecklist, company string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a professional Customer Support Script Adherence Checker working for %s. ", company)
	sb.WriteString("You will be provided with a transcript of a call between the customer support agent and the customer.\n")
	sb.WriteString(TopicLinePrefix + c.Title + "\n\n")

	sb.WriteString("Your job is to:\n\n")
	fmt.Fprintf(&sb, "1. Carefully read through the entire transcript and evaluate if the agent has mentioned %s of the %s app as outlined in the reference script.\n", c.Focus, company)
	sb.WriteString("2. For each point in the reference script, determine:\n")
	sb.WriteString("   - If the point was fully covered, partially covered, or missed entirely.\n")
	sb.WriteString("   - If partially covered or missed, provide exactly what the agent said and explain how it differs from the expected script.\n")
	sb.WriteString("   - Provide a suggested response that the agent should use next time to fully cover the point.\n")
	sb.WriteString("3. At the end, decide whether all points were fully covered.\n\n")

	sb.WriteString("--- Reference Script ---\n")
	if c.Preamble != "" {
		sb.WriteString(c.Preamble + "\n")
	}
	for _, p := range c.Points {
		fmt.Fprintf(&sb, "%s. %s\n", p.ID, p.Text)
	}
	sb.WriteString("\n")

	sb.WriteString("Respond with a JSON object with exactly two fields:\n")
	sb.WriteString("- \"fully_covered\": true only if every point was fully covered, otherwise false.\n")
	sb.WriteString("- \"feedback\": a string.\n\n")
	sb.WriteString("If any point was partially covered or missed, the feedback must list each such point in this format:\n")
	sb.WriteString("- Point [Number] ([Label]): [Summary of the error]\n")
	sb.WriteString("  - What the agent said: [Agent's words]\n")
	sb.WriteString("  - Suggested correction: [What the agent should have said]\n\n")
	fmt.Fprintf(&sb, "If all points are fully covered, the feedback must be exactly: %q", ConfirmationMessage)

	return sb.String()
}

// TopicFromInstruction extracts the checklist title from an evaluation instruction.
func TopicFromInstruction(instruction string) (string, bool) {
	for _, line := range strings.Split(instruction, "\n") {
		if strings.HasPrefix(line, TopicLinePrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, TopicLinePrefix)), true
		}
	}
	return "", false
}

// MissedPointFeedback renders one missed point in the report format.
func MissedPointFeedback(p Point, said, suggestion string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- Point %s (%s): not covered as per the script.\n", p.ID, p.Label)
	fmt.Fprintf(&sb, "  - What the agent said: %s\n", said)
	fmt.Fprintf(&sb, "  - Suggested correction: %s", suggestion)
	return sb.String()
}
