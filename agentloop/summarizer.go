package agentloop

import (
	"fmt"
	"strings"

	"github.com/martinemde/codeloop/interpreter"
)

// Fixed lines of the summaries.
const (
	NoResultDigest  = "Execution failed - no result returned"
	NoTextOutput    = "No text output"
	NoOutputSuccess = "Code executed successfully (no explicit output generated)"
	ImageGenerated  = "Generated plot/image"
)

// otherOutputPreview is how much of an unrecognised output the digest keeps.
const otherOutputPreview = 100

// Image is an image payload extracted from a display_data output.
type Image struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

// DisplaySummary projects a result for the user: the text block and any
// images, in output order. Images are replaced in the text by a count line.
func DisplaySummary(res *interpreter.Result) (string, []Image) {
	if res == nil {
		return NoResultDigest, nil
	}

	var parts []string
	var images []Image
	if res.Degraded() {
		parts = append(parts, "Execution error: "+res.ErrorMessage)
	}
	for _, out := range res.Outputs {
		if out.Type == interpreter.OutputDisplayData {
			if mt, payload, ok := out.Data.Image(); ok {
				images = append(images, Image{MIMEType: mt, Data: payload})
				continue
			}
		}
		if text := outputText(out.Data); text != "" {
			parts = append(parts, text)
		}
	}
	if len(res.Errors) > 0 {
		parts = append(parts, "Errors:")
		parts = append(parts, res.Errors...)
	}

	if len(images) > 0 {
		parts = append(parts, fmt.Sprintf("Generated %d plot(s)/image(s) - displayed below", len(images)))
	}
	if len(parts) == 0 {
		return NoTextOutput, images
	}
	return strings.Join(parts, "\n"), images
}

// HistorySummary projects a result into the digest the model reads as its
// observation. No output class and no error is dropped.
func HistorySummary(res *interpreter.Result) string {
	if res == nil {
		return NoResultDigest
	}

	lines := []string{"Status: " + res.Status}
	if res.Degraded() {
		lines = append(lines, "Execution error: "+res.ErrorMessage)
	}

	for _, out := range res.Outputs {
		switch out.Type {
		case interpreter.OutputStdout:
			if text := outputText(out.Data); text != "" {
				lines = append(lines, text)
			}
		case interpreter.OutputDisplayData:
			if _, _, ok := out.Data.Image(); ok {
				lines = append(lines, ImageGenerated)
			} else if text, ok := out.Data.PlainText(); ok {
				lines = append(lines, text)
			} else {
				lines = append(lines, otherOutputLine(out))
			}
		default:
			lines = append(lines, otherOutputLine(out))
		}
	}

	if len(res.Errors) > 0 {
		lines = append(lines, "Errors:")
		lines = append(lines, res.Errors...)
	}

	if res.Status == interpreter.StatusSuccess && len(res.Outputs) == 0 && len(res.Errors) == 0 {
		lines = append(lines, NoOutputSuccess)
	}
	return strings.Join(lines, "\n")
}

// outputText renders output data as text with trailing newlines removed.
// MIME bundles use their text/plain form when present.
func outputText(d interpreter.OutputData) string {
	if d.IsText() {
		return strings.TrimRight(d.Text, "\n")
	}
	if text, ok := d.PlainText(); ok {
		return strings.TrimRight(text, "\n")
	}
	return d.String()
}

func otherOutputLine(out interpreter.Output) string {
	text := out.Data.String()
	if r := []rune(text); len(r) > otherOutputPreview {
		text = string(r[:otherOutputPreview])
	}
	return fmt.Sprintf("%s: %s", out.Type, text)
}
