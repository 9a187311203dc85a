package extraction

import (
	"fmt"
	"strings"

	"github.com/poiesic/broadlistening/ai"
)

// DefaultPrompt is used when no extraction prompt is configured.
const DefaultPrompt = `You are a professional research assistant helping to organise public comments.
Read the comment and extract every distinct opinion it expresses.
Each opinion must be a single short sentence that stands on its own.
If the comment expresses no opinion, return an empty list.
Reply with JSON of the form {"extractedOpinionList": ["..."]}.`

var responseSchema = ai.NewResponseSchema("ExtractionResponse", `{
  "type": "object",
  "properties": {
    "extractedOpinionList": {
      "type": "array",
      "description": "extracted opinions",
      "items": {"type": "string"}
    }
  },
  "required": ["extractedOpinionList"],
  "additionalProperties": false
}`)

type response struct {
	ExtractedOpinionList []string `json:"extractedOpinionList"`
}

// parseReply accepts the structured object or a bare JSON array of strings.
func parseReply(text string) ([]string, error) {
	var reply response
	if err := responseSchema.Decode(text, &reply); err == nil {
		return nonEmpty(reply.ExtractedOpinionList), nil
	}

	var list []string
	if err := ai.DecodeJSON(text, &list); err == nil {
		return nonEmpty(list), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnparseable, abbreviate(text, 120))
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func abbreviate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
