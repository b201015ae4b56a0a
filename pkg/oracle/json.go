package oracle

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrParse marks an oracle response that did not match the expected
// schema. Callers treat it as a recoverable source failure.
var ErrParse = eris.New("oracle: response did not match expected schema")

// CompleteJSON runs a completion and unmarshals the response into out.
// Markdown code fences and surrounding prose are stripped first. A
// response that still fails to unmarshal returns an error wrapping
// ErrParse, never a partial out.
func CompleteJSON(ctx context.Context, c Client, req Request, out any) (*Response, error) {
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	text := CleanJSON(resp.Text)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return resp, eris.Wrap(ErrParse, err.Error())
	}
	return resp, nil
}

// CleanJSON attempts to extract a JSON object from text that may
// contain markdown code fences or other wrapping.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
