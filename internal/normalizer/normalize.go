// Package normalizer turns raw model completions into bounded, sanitized
// flashcard and quiz item sets.
//
// The pipeline is Normalize -> Parse -> Validate. Every stage is a pure
// function of its input; nothing here performs I/O or keeps state between
// calls.
package normalizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

var (
	thinkBlockRe = regexp.MustCompile(`(?is)<think>.*?</think>`)
	thinkTagRe   = regexp.MustCompile(`(?i)</?think>`)
	openFenceRe  = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")

	trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

// Normalize extracts the candidate JSON array text from a raw completion.
//
// Steps, in order: drop <think> blocks, keep the interior of a fenced code
// block, slice from the first '[' to the last ']', and, only when the result
// is not already valid JSON, run the lenient repairs (see Repair).
func Normalize(raw string) string {
	text := stripThinkBlocks(raw)
	text = StripFence(text)
	text = SliceArray(text)
	if gjson.Valid(text) {
		return text
	}
	return Repair(text)
}

func stripThinkBlocks(s string) string {
	s = thinkBlockRe.ReplaceAllString(s, "")
	// A dangling tag from a truncated reasoning block; the array slicing
	// that follows discards the reasoning text itself.
	s = thinkTagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// StripFence unwraps text that starts with a triple-backtick fence. The
// opening line, language tag included, is dropped and the body runs up to
// the last closing fence, so backticks quoted inside the payload survive. An
// opening fence without a closing one (truncated output) is removed on its
// own. Text that does not start with a fence is only trimmed.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := openFenceRe.ReplaceAllString(s, "")
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// SliceArray cuts s down to the span between the first '[' and the last ']'.
// Without such a pair s is returned unchanged.
func SliceArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// Repair applies the lenient textual repairs in a fixed order. Later steps
// assume the earlier ones ran:
//
//  1. strip C0 (except tab, LF, CR), DEL and C1 control characters
//  2. drop trailing commas before ']' or '}'
//  3. quote bare object keys preceding ':'
//  4. turn single-quoted keys and values into double-quoted strings
//  5. escape raw LF, CR and tab characters inside string literals
//
// Steps 2, 3 and 5 never look inside double-quoted strings, and steps 2 and
// 3 also skip the single-quoted keys and values that step 4 will convert.
// Step 5 leaves whitespace between tokens and already escaped sequences
// alone.
func Repair(s string) string {
	s = stripControlChars(s)
	s = outsideStrings(s, func(seg string) string {
		return trailingCommaRe.ReplaceAllString(seg, "$1")
	})
	s = outsideStrings(s, func(seg string) string {
		return bareKeyRe.ReplaceAllString(seg, `$1"$2":`)
	})
	s = convertSingleQuotes(s)
	s = escapeRawWhitespaceInStrings(s)
	return s
}

func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20, r == 0x7f, r >= 0x80 && r <= 0x9f:
			return -1
		}
		return r
	}, s)
}

// endOfString returns the index of the double quote closing the string that
// opens at runes[start], or len(runes)-1 when it is unterminated.
func endOfString(runes []rune, start int) int {
	for k := start + 1; k < len(runes); k++ {
		switch runes[k] {
		case '\\':
			k++
		case '"':
			return k
		}
	}
	return len(runes) - 1
}

// outsideStrings applies fn to every stretch of s that is not inside a string
// literal: double-quoted strings, and single-quoted ones in a position where
// convertSingleQuotes would treat them as a key or value.
func outsideStrings(s string, fn func(string) string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	segStart := 0
	var last rune
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		end := -1
		switch {
		case r == '"':
			end = endOfString(runes, i)
		case r == '\'' && startsLiteral(last):
			end = closingSingleQuote(runes, i+1)
		}
		if end < 0 {
			if !unicode.IsSpace(r) {
				last = r
			}
			continue
		}
		b.WriteString(fn(string(runes[segStart:i])))
		b.WriteString(string(runes[i : end+1]))
		i = end
		segStart = end + 1
		last = '"'
	}
	if segStart < len(runes) {
		b.WriteString(fn(string(runes[segStart:])))
	}
	return b.String()
}

// startsLiteral reports whether a key or value may begin after the last
// non-space rune (0 at the start of the text).
func startsLiteral(last rune) bool {
	return last == 0 || strings.ContainsRune("[{,:", last)
}

// convertSingleQuotes rewrites 'x' as "x" where a key or value may start
// (after '[', '{', ',', ':' or at the beginning). An apostrophe only closes
// the string when followed by a structural character, so values such as
// 'don't' survive.
func convertSingleQuotes(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	var last rune
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			end := endOfString(runes, i)
			b.WriteString(string(runes[i : end+1]))
			i = end
			last = '"'
		case r == '\'' && startsLiteral(last):
			end := closingSingleQuote(runes, i+1)
			if end < 0 {
				b.WriteRune(r)
				last = r
				continue
			}
			b.WriteString(doubleQuote(runes[i+1 : end]))
			i = end
			last = '"'
		default:
			b.WriteRune(r)
			if !unicode.IsSpace(r) {
				last = r
			}
		}
	}
	return b.String()
}

func closingSingleQuote(runes []rune, from int) int {
	for k := from; k < len(runes); k++ {
		switch runes[k] {
		case '\\':
			k++
		case '\'':
			next := k + 1
			for next < len(runes) && unicode.IsSpace(runes[next]) {
				next++
			}
			if next == len(runes) || strings.ContainsRune(",:}]", runes[next]) {
				return k
			}
		}
	}
	return -1
}

func doubleQuote(body []rune) string {
	var b strings.Builder
	b.Grow(len(body) + 2)
	b.WriteByte('"')
	for k := 0; k < len(body); k++ {
		r := body[k]
		switch {
		case r == '\\' && k+1 < len(body) && body[k+1] == '\'':
			b.WriteRune('\'')
			k++
		case r == '\\' && k+1 < len(body):
			b.WriteRune(r)
			b.WriteRune(body[k+1])
			k++
		case r == '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func escapeRawWhitespaceInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		if !inString {
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
			continue
		}
		if escaped {
			escaped = false
			b.WriteRune(r)
			continue
		}
		switch r {
		case '\\':
			escaped = true
			b.WriteRune(r)
		case '"':
			inString = false
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// truncateRunes hard-cuts s to at most n characters, never splitting a rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
