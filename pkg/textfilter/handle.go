// Package textfilter cleans player-chosen names before they are stored in a session
// and echoed back in room text.
package textfilter

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxHandleLength is the longest handle, in runes, a player may choose.
const MaxHandleLength = 24

var (
	ErrEmptyHandle   = errors.New("handle is empty")
	ErrHandleTooLong = fmt.Errorf("handle is longer than %d characters", MaxHandleLength)
	ErrBlockedHandle = errors.New("handle contains a blocked word")
)

// Words a handle may not contain. Matching is whole-word, so "classic" is fine.
var blockedWords = []string{
	"fuck", "shit", "damn", "ass", "bitch", "bastard", "crap",
	"piss", "cock", "dick", "pussy", "tits", "whore", "slut",
	"fag", "retard", "nigger", "nigga", "spic", "chink", "kike",
	"motherfucker", "goddamn", "asshole", "dumbass", "jackass",
	"bullshit", "dipshit", "shithead", "dickhead", "prick", "douchebag",
}

// HandleFilter validates handles. It is safe for concurrent use.
type HandleFilter struct {
	blocked *regexp.Regexp
}

// NewHandleFilter creates a filter over the built-in word list plus any extra words.
func NewHandleFilter(extra ...string) *HandleFilter {
	words := make([]string, 0, len(blockedWords)+len(extra))
	for _, w := range slices.Concat(blockedWords, extra) {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, regexp.QuoteMeta(strings.ToLower(w)))
		}
	}
	return &HandleFilter{
		blocked: regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`),
	}
}

// Clean returns the handle with runs of whitespace collapsed and every character other
// than letters, digits, space, '-', '_' and '.' removed.
func (f *HandleFilter) Clean(raw string) (string, error) {
	var sb strings.Builder
	for _, r := range strings.Join(strings.Fields(raw), " ") {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" -_.", r) {
			sb.WriteRune(r)
		}
	}
	handle := strings.Join(strings.Fields(sb.String()), " ")

	switch {
	case handle == "":
		return "", ErrEmptyHandle
	case utf8.RuneCountInString(handle) > MaxHandleLength:
		return "", ErrHandleTooLong
	case f.blocked.MatchString(handle):
		return "", ErrBlockedHandle
	}
	return handle, nil
}
