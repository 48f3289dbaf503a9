package rag

import (
	"fmt"
	"strings"

	"equity-backend/internal/localindex"
)

const missingContextNotice = "No definitions or context from the framework document were retrieved. " +
	"Focus analysis solely on the User Document if possible, or state inability to apply the framework critically."

// formatLocalContext renders retrieved framework chunks into the prompt's
// context block, annotated with score, section and position so the model
// can weigh them.
func formatLocalContext(results []localindex.Result) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, 0, len(results))
	for i, res := range results {
		header := []string{fmt.Sprintf("Local Source %d/%d", i+1, len(results))}
		header = append(header, fmt.Sprintf("Score: %.4f", res.Score))
		if n := len(res.Chunk.Metadata.Headings); n > 0 {
			header = append(header, fmt.Sprintf("Section: %q", res.Chunk.Metadata.Headings[n-1]))
		} else {
			header = append(header, "Section: N/A")
		}
		if res.Chunk.Metadata.PositionIndex >= 0 && res.Chunk.Metadata.PositionTotal > 0 {
			header = append(header, fmt.Sprintf("Position: %d/%d", res.Chunk.Metadata.PositionIndex+1, res.Chunk.Metadata.PositionTotal))
		}
		parts = append(parts, fmt.Sprintf("-- %s --\n%s", strings.Join(header, " | "), strings.TrimSpace(res.Chunk.Text)))
	}
	return strings.Join(parts, "\n\n")
}

// buildPrompt assembles the single analysis prompt: task framing, the
// framework context block, the user query, the critical-analysis
// instructions, and any focus emphasis or caller-supplied instructions.
func buildPrompt(fileName, query, localContext string, focus Focus, custom string) string {
	if localContext == "" {
		localContext = missingContextNotice
	}
	var b strings.Builder
	fmt.Fprintf(&b, `**Your Task:** You are a critical analytical assistant helping a user analyze their uploaded document ('User Document: %s') by applying the principles and definitions from the equity framework provided below. The goal is to conduct a **balanced and critical analysis**, identifying specific examples of **both positive alignment (equity advancements/pros) and potential concerns, shortcomings, or misalignments (equity issues/cons)** within the User Document related to the user's query, based on the framework's dimensions.

**Framework Definitions:**
--- START CONTEXT FROM FRAMEWORK DOCUMENT ---
%s
--- END CONTEXT FROM FRAMEWORK DOCUMENT ---

**User Query:** %s

**Instructions for Critical Analysis:**
1.  **Understand the Framework:** Carefully review the definitions and concepts related to the four equity dimensions (Recognitional, Procedural, Distributional, Structural) provided in the framework context. Note the ideals each dimension strives for.
2.  **Search the User Document:** Actively search the *User Document* (using the provided file search tool, if available) for specific details, decisions, statements, descriptions, or actions related to the **subject of the User Query**.
3.  **Apply the Framework Critically:** For each relevant detail found in the User Document pertaining to the **User Query's subject**:
    *   Evaluate it against the definitions of the equity dimensions.
    *   Determine if the detail primarily exemplifies **positive alignment** with a dimension (a strength/pro) **OR if it raises potential concerns, indicates a shortcoming, or represents potential inequity** related to that dimension (a weakness/con).
    *   Clearly explain *why*, referencing the framework definitions. For concerns/cons, explain *how* the detail might fall short of the equity ideal defined in the framework.
4.  **Provide Evidence:** Cite specific examples, text snippets, or findings from the *User Document* to support your analysis for *both* positive aspects and identified concerns/cons. Use file search citations if provided by the tool.
5.  **Synthesize Findings into a Balanced View:** Structure your response clearly, addressing the user's query by presenting your critical analysis. Aim for a balanced perspective, discussing both strengths and weaknesses concerning equity as found in the User Document.
6.  **Acknowledge Sources:** Explicitly state whether information comes from the framework context (definitions) or the User Document (specific details being analyzed).
7.  **Handle Missing Information:** If the User Document lacks sufficient detail to analyze critically against a specific dimension, or if the framework context was missing, or if file search failed, state that clearly. Acknowledge limitations in the analysis due to missing information. Do not invent pros or cons.

**Output:** Provide a **balanced and critical analysis** of the elements found in the User Document relevant to the User Query. Explain how they align well *and* where they potentially fall short concerning the equity dimensions, backing claims with evidence from the User Document. If file search was used, include citations.`, fileName, localContext, query)

	if focus != FocusGeneral && focus != FocusCustom {
		fmt.Fprintf(&b, "\n\n**Analysis Emphasis:** Pay particular attention to %s", focus.Description())
	}
	if custom = strings.TrimSpace(custom); custom != "" {
		fmt.Fprintf(&b, "\n\n**Additional Instructions from the User:** %s", custom)
	}
	return b.String()
}
