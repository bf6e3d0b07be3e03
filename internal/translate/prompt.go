package translate

import (
	"encoding/json"
	"fmt"
)

// DefaultTargetLanguage is the language words are translated into
const DefaultTargetLanguage = "Chinese"

func singlePrompt(lang, text string) string {
	return fmt.Sprintf(
		"Translate the English word %q to %s. Provide ONLY the concise %s meaning(s). "+
			"Do not include the English word in the output. "+
			"If it has multiple common meanings, separate them with commas.",
		text, lang, lang,
	)
}

func batchSystemPrompt(lang string) string {
	return fmt.Sprintf(
		"You are a translator. Output ONLY valid JSON. Key: English word, Value: %s translation. Concise.",
		lang,
	)
}

func batchUserPrompt(texts []string) string {
	b, _ := json.Marshal(texts)
	return "Words: " + string(b)
}
