// Package scoring flags prompt text that tends to perform badly in LLM prompts.
// For now it is a word length checker.
package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/felixbrock/crayon/internal/domain"
)

const (
	longWordLen   = 10
	maxLongTokens = 50

	baseScore      = 100
	errorPenalty   = 10
	warningPenalty = 5
)

const (
	longWordMsg       = "Long word, consider choosing a shorter word."
	longWordRationale = "Long words perform worse in LLM prompts."
	longTextMsg       = "Choose a shorter prompt."
	longTextRationale = "Long prompts are expensive and have worse LLM performance."
)

// Evaluate splits text on whitespace and flags every token of at least ten
// runes. When the flagged tokens add up to more than fifty runes a warning on
// the first token is put in front of the list.
func Evaluate(text string) ([]domain.TextFlag, int) {
	tokens := strings.Fields(text)
	flags := make([]domain.TextFlag, 0)

	inputTokens := 0
	for i, token := range tokens {
		n := utf8.RuneCountInString(token)
		if n < longWordLen {
			continue
		}
		inputTokens += n

		flags = append(flags, domain.TextFlag{
			Position:  i,
			Token:     token,
			Severity:  domain.SeverityError,
			Message:   longWordMsg,
			Rationale: longWordRationale,
		})
	}

	if inputTokens > maxLongTokens {
		warning := domain.TextFlag{
			Position:  0,
			Token:     tokens[0],
			Severity:  domain.SeverityWarning,
			Message:   longTextMsg,
			Rationale: longTextRationale,
		}
		flags = append([]domain.TextFlag{warning}, flags...)
	}

	return flags, Score(flags)
}

// Score deducts ten points per error and five per warning from 100, floored at 0.
func Score(flags []domain.TextFlag) int {
	score := baseScore
	for _, f := range flags {
		if f.Severity == domain.SeverityError {
			score -= errorPenalty
		} else {
			score -= warningPenalty
		}
	}

	if score < 0 {
		return 0
	}
	return score
}

type Token struct {
	Text     string
	Severity domain.Severity
}

// Highlight returns the whitespace-separated tokens of text, each carrying the
// most severe flag that references it, if any.
func Highlight(text string, flags []domain.TextFlag) []Token {
	fields := strings.Fields(text)
	tokens := make([]Token, len(fields))
	for i, f := range fields {
		tokens[i] = Token{Text: f}
	}

	for _, f := range flags {
		if f.Position < 0 || f.Position >= len(tokens) {
			continue
		}
		if tokens[f.Position].Severity == domain.SeverityError {
			continue
		}
		tokens[f.Position].Severity = f.Severity
	}

	return tokens
}
