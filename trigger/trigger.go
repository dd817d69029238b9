// Package trigger binds keys and pointer presses to pad handlers.
//
// Key events carry a physical key code in the W3C KeyboardEvent.code form
// ("KeyA", "Comma", "Digit1"). Bindings compare the normalised code, so a
// binding follows the key position on a US layout rather than the
// character the active layout prints on it.
package trigger

import (
	"strings"
	"unicode"
)

// KeyEvent is one key press from any input surface.
type KeyEvent struct {
	Code string
}

var codePrefixes = []string{"Key", "Digit"}

var namedCodes = map[string]string{
	"Quote":        "'",
	"Comma":        ",",
	"Period":       ".",
	"Semicolon":    ";",
	"Slash":        "/",
	"Backslash":    "\\",
	"Minus":        "-",
	"Equal":        "=",
	"BracketLeft":  "[",
	"BracketRight": "]",
	"Backquote":    "`",
	"Space":        " ",
}

// runeCodes maps printed characters, shifted or not, to their key code.
var runeCodes = map[rune]string{
	'\'': "Quote", '"': "Quote",
	',': "Comma", '<': "Comma",
	'.': "Period", '>': "Period",
	';': "Semicolon", ':': "Semicolon",
	'/': "Slash", '?': "Slash",
	'\\': "Backslash", '|': "Backslash",
	'-': "Minus", '_': "Minus",
	'=': "Equal", '+': "Equal",
	'[': "BracketLeft", '{': "BracketLeft",
	']': "BracketRight", '}': "BracketRight",
	'`': "Backquote", '~': "Backquote",
	' ': "Space",
	'!': "Digit1", '@': "Digit2", '#': "Digit3", '$': "Digit4", '%': "Digit5",
	'^': "Digit6", '&': "Digit7", '*': "Digit8", '(': "Digit9", ')': "Digit0",
}

// Normalize maps a physical key code to the lower-case character a
// binding is written with: the Key or Digit prefix is stripped, named
// punctuation codes become their character.
func Normalize(code string) string {
	if ch, ok := namedCodes[code]; ok {
		return ch
	}
	for _, p := range codePrefixes {
		if rest, ok := strings.CutPrefix(code, p); ok && len(rest) == 1 {
			return strings.ToLower(rest)
		}
	}
	return strings.ToLower(code)
}

// CodeForKey returns the US-layout key code that prints r, or "" if
// there is none. Surfaces that only report characters use it to produce
// KeyEvents.
func CodeForKey(r rune) string {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return "Key" + string(unicode.ToUpper(r))
	case r >= '0' && r <= '9':
		return "Digit" + string(r)
	}
	return runeCodes[r]
}
