// Package sanitize provides text sanitization utilities. It serves two
// boundaries: stripping HTML from user-provided text before storage, and
// neutralizing user data before interpolation into LLM prompts. All prompt
// interpolation in the codebase goes through the Prompt* functions so the
// injection defenses are auditable in one place.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// htmlTagRegex matches HTML tags
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	// whitespaceRegex collapses runs of whitespace, including newlines
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Field length caps for prompt interpolation.
const (
	maxPersonNameLen   = 100
	maxTitleLen        = 120
	maxCompanyLen      = 150
	maxActivityTypeLen = 50
	maxFreeTextLen     = 500
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
// This is a defense-in-depth measure; frontend should also escape output.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes a string for safe text storage by stripping HTML.
func Text(s string) string {
	return StripHTML(s)
}

// TextPtr is a helper for optional string pointers
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}

// promptField is the shared pipeline for prompt interpolation: strip HTML,
// drop control characters, flatten newlines so user data cannot fabricate
// new prompt sections, and cap the length.
func promptField(s string, maxLen int) string {
	result := StripHTML(s)
	result = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, result)
	result = whitespaceRegex.ReplaceAllString(result, " ")
	result = strings.TrimSpace(result)
	if len(result) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(result[cut]) {
			cut--
		}
		result = strings.TrimSpace(result[:cut])
	}
	return result
}

// PromptPersonName sanitizes a person name for prompt interpolation.
func PromptPersonName(s string) string {
	return promptField(s, maxPersonNameLen)
}

// PromptTitle sanitizes a job title for prompt interpolation.
func PromptTitle(s string) string {
	return promptField(s, maxTitleLen)
}

// PromptCompany sanitizes a company name for prompt interpolation.
func PromptCompany(s string) string {
	return promptField(s, maxCompanyLen)
}

// PromptActivityType sanitizes an arbitrary event-type string for prompt
// interpolation. Activity types come from external trackers and are the
// least trusted input in the pipeline.
func PromptActivityType(s string) string {
	return promptField(s, maxActivityTypeLen)
}

// PromptFreeText sanitizes longer free text (historical reasons, notes)
// for prompt interpolation.
func PromptFreeText(s string) string {
	return promptField(s, maxFreeTextLen)
}
