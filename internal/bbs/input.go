package bbs

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// ExitMarker is the menu choice that leaves a dialogue.
const ExitMarker = "X"

// EndMarker finishes free-text capture.
const EndMarker = "END"

// Normalize trims text and reduces a two-character input whose second
// character is the exit marker to its first character, so "rx" reads as
// "r". It is applied once per message, before any matching.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) != 2 {
		return text
	}
	first, size := utf8.DecodeRuneInString(text)
	if strings.EqualFold(text[size:], ExitMarker) {
		return string(first)
	}
	return text
}

// choice is the upper-cased menu letter of an input.
func choice(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

func isEnd(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), EndMarker)
}

// index parses a non-negative list number.
func index(input string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
