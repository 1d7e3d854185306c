package agent

import (
	"fmt"

	"github.com/lmercat/webpilot/internal/tools"
	"github.com/lmercat/webpilot/internal/types"
)

// ContinuationPrompt nudges the model onward after a tool result.
const ContinuationPrompt = "Continue with the task. What's the next step?"

// summaryPrompt instructs the summarizer model.
const summaryPrompt = "You condense agent conversation transcripts. " +
	"Summarize the key actions taken, pages visited, information found, " +
	"and any pending work, in a short paragraph. Reply with the summary only."

const systemPromptTemplate = `You are an autonomous web browsing agent. You complete tasks by driving a real browser through tools.

To use a tool, reply with ONLY a JSON object in this exact shape:

` + "```json" + `
{"tool": "<tool name>", "arguments": {<tool arguments>}}
` + "```" + `

One tool call per reply, nothing else in the reply. When the task is done, reply with your final answer as plain text with no JSON object.

Rules:
- Work step by step; inspect the page before acting on it.
- If a page blocks you or shows a captcha, use solve_captcha before retrying.
- Prefer page_text over screenshots when you need page content.
- Save results the user asked for with write_file.

%s`

// SystemPrompt renders the agent's system instruction including the
// tool list.
func SystemPrompt(defs []types.ToolDefinition) string {
	return fmt.Sprintf(systemPromptTemplate, tools.SummarizeDefinitions(defs))
}
