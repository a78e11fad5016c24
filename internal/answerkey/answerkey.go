// Package answerkey recovers a correct answer letter from explanation text
// written before questions carried an explicit answer key.
package answerkey

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/phrazzld/qbank-api/internal/domain"
)

var (
	// ErrNoAnswer means the text names no answer letter.
	ErrNoAnswer = fmt.Errorf("%w: explanation does not state a correct answer", domain.ErrValidation)

	// ErrAmbiguous means the text names more than one distinct letter.
	ErrAmbiguous = fmt.Errorf("%w: explanation states more than one correct answer", domain.ErrValidation)
)

// Each pattern captures one letter in group 1. Letters must be upper case so
// that the article "a" is never read as an answer.
var patterns = []*regexp.Regexp{
	// "The correct answer is C", "correct answer: (C)", "Correct option is D."
	regexp.MustCompile(`(?i:\bcorrect\s+(?:answer|option|choice|response))\s*(?:(?i:is)|:|=|-)?\s*(?:(?i:option|choice)\s+)?[\(\[]?([A-F])\b`),
	// "Answer: C", "Answer is (C)"
	regexp.MustCompile(`(?:^|[^A-Za-z])(?i:answer)\s*(?:(?i:is)|:|=)\s*[\(\[]?([A-F])\b`),
	// "(C) is correct", "Option C is the correct answer"
	regexp.MustCompile(`(?:(?i:option|choice)\s+|[\(\[])([A-F])[\)\]]?\s+(?i:is\s+(?:the\s+)?(?:correct|right))\b`),
}

// Extract returns the single upper-case letter A-F the explanation names as
// correct. Text naming no letter yields ErrNoAnswer; text naming several
// different letters yields ErrAmbiguous. Repeating the same letter is fine.
func Extract(explanation string) (string, error) {
	found := map[string]struct{}{}
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(explanation, -1) {
			found[m[1]] = struct{}{}
		}
	}

	switch len(found) {
	case 0:
		return "", ErrNoAnswer
	case 1:
		for letter := range found {
			return letter, nil
		}
	}

	letters := make([]string, 0, len(found))
	for l := range found {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	return "", fmt.Errorf("%w: %s", ErrAmbiguous, strings.Join(letters, ", "))
}

// Resolve returns correct when it is set, and otherwise the letter extracted
// from explanation.
func Resolve(correct, explanation string) (string, error) {
	if strings.TrimSpace(correct) != "" {
		return domain.NormalizeAnswer(correct)
	}
	if strings.TrimSpace(explanation) == "" {
		return "", domain.ErrInvalidAnswer
	}
	return Extract(explanation)
}
