package command

import (
	"strings"

	"github.com/buildkite/shellwords"
	"golang.org/x/text/cases"
)

// Input is a matched command line split into the fixed phrase and its free-form argument.
type Input struct {
	Raw    string // normalized input as typed
	Phrase string // the phrase that matched
	Arg    string // remainder after the phrase, empty for exact matches
}

// Fields splits the argument into words, honoring quotes ("enter password 'open sesame'").
func (in Input) Fields() []string {
	if in.Arg == "" {
		return nil
	}
	parts, err := shellwords.SplitPosix(in.Arg)
	if err != nil {
		return strings.Fields(in.Arg)
	}
	return parts
}

// NormalizeInput trims, collapses internal whitespace and case folds the input.
func NormalizeInput(raw string) string {
	return cases.Fold().String(strings.Join(strings.Fields(raw), " "))
}

// matchPhrase applies the split rule. An input equal to the phrase is an exact match.
// For commands taking an argument, an input starting with the phrase followed by a space
// is a prefix match and the argument is everything after that space.
func matchPhrase(input, phrase string, takesArg bool) (arg string, exact, ok bool) {
	if input == phrase {
		return "", true, true
	}
	if takesArg && strings.HasPrefix(input, phrase+" ") {
		return strings.TrimSpace(input[len(phrase)+1:]), false, true
	}
	return "", false, false
}
