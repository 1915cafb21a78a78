package insight

import (
	"fmt"
	"strings"
)

// Languages
const (
	LangEnglish = "en"
	LangChinese = "zh"
)

// Langs is the allow-list of insight languages
func Langs() []string {
	return []string{LangEnglish, LangChinese}
}

const maxInsightWords = 80

func languageInstruction(lang string) string {
	if lang == LangChinese {
		return "Write the insight in Simplified Chinese."
	}
	return "Write the insight in English."
}

// SystemPrompt is the fixed instruction block sent with every generation
func SystemPrompt(lang string) string {
	rules := []string{
		"You write one short insight for a panel of an economic and trade dashboard.",
		"Ground every statement strictly in the data supplied by the user message.",
		"Never invent figures, dates, sources or trends that are not in the data.",
		"When data is a proxy, nowcast, stub or best-effort scrape, say so explicitly.",
		"When values are missing or marked stale, state what is missing instead of guessing.",
		"Prefer source_updated_at over fetch times when referring to how current the data is.",
		fmt.Sprintf("Keep the insight under %d words, at most three sentences.", maxInsightWords),
		languageInstruction(lang),
		`Respond with a single JSON object and nothing else: {"insight": string, "references": [{"title": string, "url": string}]}.`,
		"References may only cite sources or URLs that appear in the data.",
	}
	return strings.Join(rules, "\n")
}

// UserPrompt frames the canonical input object
func UserPrompt(cardKey, tabKey, scope, lang string, canonicalInput []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Panel: %s / %s\n", cardKey, tabKey)
	fmt.Fprintf(&b, "Scope: %s\n", scope)
	fmt.Fprintf(&b, "Language: %s\n\n", lang)
	b.WriteString("Data (JSON):\n")
	b.Write(canonicalInput)
	return b.String()
}
