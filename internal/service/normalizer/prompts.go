package normalizer

import (
	"fmt"

	"ai-script-adherence-service/internal/keywords"
)

// correctionInstruction builds the system prompt for fragment correction.
// The keyword list is embedded verbatim after the company name.
func correctionInstruction(company string, kw keywords.List) string {
	names := company
	if joined := kw.Join(); joined != "" {
		names += ", " + joined
	}

	return fmt.Sprintf("You are a helpful assistant for the company %s. "+
		"Your task is to correct any spelling discrepancies in the transcribed text. "+
		"Make sure that the names of the following products are spelled correctly: %s. "+
		"Only add necessary punctuation such as periods, commas, and capitalization, "+
		"and use only the context provided. "+
		"Do not add, remove, or reorder content. Return only the corrected text.",
		company, names)
}
