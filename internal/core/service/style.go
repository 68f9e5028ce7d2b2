package service

import "fmt"

// Tone and length options accepted by text generation. Unknown values fall
// back to the defaults rather than failing the request.
const (
	DefaultTone   = "professional"
	DefaultLength = "medium"
)

// toneDirectives maps each tone option to the style directive injected into
// the system prompt.
var toneDirectives = map[string]string{
	"professional": "Write in a polished, businesslike voice suitable for corporate communication.",
	"friendly":     "Write in a warm, approachable voice, as if talking to a colleague you like.",
	"casual":       "Write in a relaxed, conversational voice with everyday language.",
	"formal":       "Write in a precise, ceremonious voice with no contractions or slang.",
	"humorous":     "Write in a playful voice with light humour, staying tasteful.",
}

// lengthDirectives maps each length option to a word-count directive.
var lengthDirectives = map[string]string{
	"short":  "Keep each variant under 50 words.",
	"medium": "Keep each variant between 50 and 120 words.",
	"long":   "Keep each variant between 120 and 250 words.",
}

// buildTextSystemPrompt assembles the system instruction for a text
// generation from the tone and length options, substituting defaults for
// anything unrecognised.
func buildTextSystemPrompt(tone, length string) string {
	toneDirective, ok := toneDirectives[tone]
	if !ok {
		toneDirective = toneDirectives[DefaultTone]
	}
	lengthDirective, ok := lengthDirectives[length]
	if !ok {
		lengthDirective = lengthDirectives[DefaultLength]
	}
	return fmt.Sprintf(
		"You are a copywriter producing marketing copy. %s %s Return only the copy itself, no preamble.",
		toneDirective, lengthDirective)
}

// normalizeStyle returns the effective tone and length after fallback, for
// recording on the generation.
func normalizeStyle(tone, length string) (string, string) {
	if _, ok := toneDirectives[tone]; !ok {
		tone = DefaultTone
	}
	if _, ok := lengthDirectives[length]; !ok {
		length = DefaultLength
	}
	return tone, length
}
