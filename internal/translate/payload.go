package translate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// fenceTokens are markdown wrappers generative providers put around JSON
var fenceTokens = []string{"```json", "```JSON", "```"}

func stripFences(raw string) string {
	for _, token := range fenceTokens {
		raw = strings.ReplaceAll(raw, token, "")
	}
	return strings.TrimSpace(raw)
}

// ParseBatch decodes a batch payload into a text -> translation mapping.
// Non-string and blank values are dropped; anything that is not a JSON
// object after stripping fences is an error.
func ParseBatch(raw string) (map[string]string, error) {
	clean := stripFences(raw)
	if clean == "" {
		return nil, ErrEmptyResult
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &decoded); err != nil {
		return nil, fmt.Errorf("decode batch payload: %w", err)
	}

	out := make(map[string]string, len(decoded))
	for k, v := range decoded {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out[k] = s
		}
	}
	return out, nil
}
