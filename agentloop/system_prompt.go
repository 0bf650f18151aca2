package agentloop

import (
	"fmt"
	"strings"
	"time"
)

// maxFileListing caps the data file listing in the system prompt.
const maxFileListing = 50

// DefaultSystemPrompt instructs the model to alternate one reasoning step
// with one Python snippet and to finish with a final answer.
const DefaultSystemPrompt = `You are an expert data scientist assistant that follows the ReAct framework (Reasoning + Acting).

CRITICAL RULES:
1. Execute ONLY ONE action at a time.
2. Be methodical: validate data before advanced analysis.
3. Never assume the structure or content of data; inspect it first.
4. Never run potentially destructive operations.

GUIDELINES:
- Work incrementally and observe each result before moving on.
- Never guess column names; examine the data first.
- If you do not know which data files exist, run "import os; print(os.listdir())".
- "Code executed successfully" or "Generated plot/image" in an observation means your code worked.
- Plots are shown to the user automatically.
- Interpreter state persists between actions; build on earlier steps instead of starting over.

WAIT FOR THE RESULT OF THE ACTION BEFORE PROCEEDING.

Use exactly one of these two formats.

Format 1, to take an action:

Thought: What to do next and why, referring to what earlier observations showed.

Action Input:
` + "```python" + `
<python code to run>
` + "```" + `

Format 2, ONLY when the task is completely finished:

Thought: A reflection on the whole process.

Final Answer:
<a complete summary of the analysis, key findings and recommendations>

Example:

Thought: I need to understand the dataset before analysing it, so I will load it and look at its shape, columns, types and first rows.

Action Input:
` + "```python" + `
import pandas as pd

df = pd.read_csv("data.csv")
print(f"Shape: {df.shape}")
print(f"Columns: {df.columns.tolist()}")
print(df.dtypes)
print(df.head())
` + "```"

// PromptContext describes the run for the environment block of the system
// prompt.
type PromptContext struct {
	Model     string
	DataFiles []string
	Now       time.Time
}

// BuildEnvironmentContext renders the <environment> block.
func BuildEnvironmentContext(pc PromptContext) string {
	now := pc.Now
	if now.IsZero() {
		now = time.Now()
	}

	var sb strings.Builder
	sb.WriteString("<environment>\n")
	fmt.Fprintf(&sb, "Today's date: %s\n", now.Format("2006-01-02"))
	if pc.Model != "" {
		fmt.Fprintf(&sb, "Model: %s\n", pc.Model)
	}
	if len(pc.DataFiles) > 0 {
		sb.WriteString("Data files in the interpreter working directory:\n")
		for i, name := range pc.DataFiles {
			if i == maxFileListing {
				fmt.Fprintf(&sb, "- ... and %d more\n", len(pc.DataFiles)-maxFileListing)
				break
			}
			fmt.Fprintf(&sb, "- %s\n", name)
		}
	}
	sb.WriteString("</environment>")
	return sb.String()
}

// BuildSystemPrompt assembles the system entry: the base prompt, the
// environment block, then any user instructions.
func BuildSystemPrompt(cfg Config, pc PromptContext) string {
	base := cfg.SystemPrompt
	if base == "" {
		base = DefaultSystemPrompt
	}
	parts := []string{strings.TrimSpace(base), BuildEnvironmentContext(pc)}
	if cfg.UserInstructions != "" {
		parts = append(parts, "# User Instructions\n\n"+strings.TrimSpace(cfg.UserInstructions))
	}
	return strings.Join(parts, "\n\n")
}
