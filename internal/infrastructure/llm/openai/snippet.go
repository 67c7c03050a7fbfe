package openai

import "strings"

// defaultMaxDocChars bounds the document text sent with a single completion
// so long PDFs fit the model context alongside the system prompt and the
// response token budget. At roughly four characters per token this leaves
// gpt-4 headroom for a 2000-token answer.
const defaultMaxDocChars = 24000

// capDocumentText truncates text to at most maxChars runes. The cut prefers
// the last line break in the window so a page marker or sentence is not
// severed mid-way, as long as that keeps at least half the window.
func capDocumentText(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = defaultMaxDocChars
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	window := string(runes[:maxChars])
	if cut := strings.LastIndexByte(window, '\n'); cut >= len(window)/2 {
		window = window[:cut]
	}
	return strings.TrimRight(window, " \t\n")
}
