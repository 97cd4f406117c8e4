package ai

import (
	"fmt"
	"strings"
)

const baseSystemInstruction = `You are Aivan, an expert Full Stack Web Developer.
Your goal is to generate COMPLETE, WORKING HTML websites in a single file.

### CRITICAL OUTPUT RULES:
1. **NO PREAMBLE**: Start your response DIRECTLY with the code or a very brief confirmation.
2. **HTML FORMAT**: You MUST output the code inside a standard code block or starting with <!DOCTYPE html>.
3. **SINGLE FILE**: CSS and JS must be embedded within the HTML file (using <style> and <script> tags).
4. **NO PLACEHOLDERS**: Do not use "..." or comments like "rest of code here". Write the full, functional code.
`

const creatorInstruction = `MODE: **CREATOR**.
TASK: Generate or Modify HTML/CSS/JS code.`

const consultantInstruction = `MODE: **CONSULTANT**.
TASK: Answer questions or explain the code. Do not generate full code unless asked.`

// historyWindow bounds how many prior turns are replayed into the prompt.
const historyWindow = 10

// BuildPrompt assembles the system instruction and the user prompt for one
// turn: recent history first, then the current code re-embedded so the model
// edits in place instead of regenerating, then the new request.
func BuildPrompt(req Request) (systemInstruction, fullPrompt string) {
	fullPrompt = req.Prompt

	if req.CurrentCode != "" {
		codeContext := fmt.Sprintf(
			"\n\n[EXISTING CODE TO MODIFY]\n```html\n%s\n```\n\nIMPORTANT: Return the FULL updated code, not just diffs.\n",
			req.CurrentCode,
		)
		fullPrompt = codeContext + fullPrompt
	}

	if len(req.History) > 0 {
		recent := req.History
		if len(recent) > historyWindow {
			recent = recent[len(recent)-historyWindow:]
		}
		var b strings.Builder
		b.WriteString("Chat History:\n")
		for _, m := range recent {
			name := "Aivan"
			if m.Role == "user" {
				name = "User"
			}
			fmt.Fprintf(&b, "%s: %s\n", name, m.Content)
		}
		b.WriteString("\nUser Request:\n")
		fullPrompt = b.String() + fullPrompt
	}

	instruction := creatorInstruction
	if req.Mode == ModeQuestion {
		instruction = consultantInstruction
	}
	return baseSystemInstruction + "\n" + instruction, fullPrompt
}
