package game

import (
	"fmt"
	"math/rand"
	"strings"
)

const vowels = "aeiou"

// RuleContext carries the difficulty knobs the active rule is evaluated
// against. MinWordLength applies as a floor to every rule, not only the
// min_length rule itself.
type RuleContext struct {
	MinWordLength int
	RandomLetter  byte
}

// RandomLetter picks a lowercase letter for contains/starts/ends rules.
func RandomLetter() byte {
	return byte('a' + rand.Intn(26))
}

// Rule is one entry of the word-chain rule catalog. Validate returns a
// player-facing rejection message when the word fails.
type Rule struct {
	Name        string
	Description func(ctx RuleContext) string
	Validate    func(word string, ctx RuleContext) error
}

func ruleErr(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

var ruleCatalog = []Rule{
	{
		Name: "min_length",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must be at least %d characters!", ctx.MinWordLength)
		},
		Validate: func(word string, ctx RuleContext) error {
			if len(word) < ctx.MinWordLength {
				return ruleErr("Word must be at least %d characters!", ctx.MinWordLength)
			}
			return nil
		},
	},
	{
		Name: "contains_letter",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must contain the letter '%c' and be at least %d characters long",
				ctx.RandomLetter, ctx.MinWordLength)
		},
		Validate: func(word string, ctx RuleContext) error {
			if !strings.ContainsRune(word, rune(ctx.RandomLetter)) {
				return ruleErr("Word must contain '%c'", ctx.RandomLetter)
			}
			return nil
		},
	},
	{
		Name: "not_contains_letter",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must NOT contain the letter '%c' and be at least %d characters long",
				ctx.RandomLetter, ctx.MinWordLength)
		},
		Validate: func(word string, ctx RuleContext) error {
			if strings.ContainsRune(word, rune(ctx.RandomLetter)) {
				return ruleErr("Word must NOT contain '%c'", ctx.RandomLetter)
			}
			return nil
		},
	},
	{
		Name: "starts_with_letter",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must start with the letter '%c' and be at least %d characters long",
				ctx.RandomLetter, ctx.MinWordLength)
		},
		Validate: func(word string, ctx RuleContext) error {
			if len(word) == 0 || word[0] != ctx.RandomLetter {
				return ruleErr("Word must start with '%c'", ctx.RandomLetter)
			}
			return nil
		},
	},
	{
		Name: "ends_with_letter",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must end with the letter '%c' and be at least %d characters long",
				ctx.RandomLetter, ctx.MinWordLength)
		},
		Validate: func(word string, ctx RuleContext) error {
			if len(word) == 0 || word[len(word)-1] != ctx.RandomLetter {
				return ruleErr("Word must end with '%c'", ctx.RandomLetter)
			}
			return nil
		},
	},
	{
		Name: "ends_with_tion",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must end with 'tion' and be at least %d characters long", ctx.MinWordLength)
		},
		Validate: func(word string, _ RuleContext) error {
			if !strings.HasSuffix(word, "tion") {
				return ruleErr("Word must end with 'tion'")
			}
			return nil
		},
	},
	{
		Name: "starts_with_co",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must start with 'co' and be at least %d characters long", ctx.MinWordLength)
		},
		Validate: func(word string, _ RuleContext) error {
			if !strings.HasPrefix(word, "co") {
				return ruleErr("Word must start with 'co'")
			}
			return nil
		},
	},
	{
		Name: "double_letters",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must contain at least two pairs of double letters and be at least %d characters long",
				ctx.MinWordLength)
		},
		Validate: func(word string, _ RuleContext) error {
			pairs := 0
			for i := 0; i+1 < len(word); {
				if word[i] == word[i+1] {
					pairs++
					i += 2 // non-overlapping pairs only
				} else {
					i++
				}
			}
			if pairs < 2 {
				return ruleErr("Word must have at least two pairs of double letters!")
			}
			return nil
		},
	},
	{
		Name: "exact_length",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must have exactly %d letters", ctx.MinWordLength+2)
		},
		Validate: func(word string, ctx RuleContext) error {
			target := ctx.MinWordLength + 2
			if len(word) != target {
				return ruleErr("Word must be exactly %d letters long!", target)
			}
			return nil
		},
	},
	{
		Name: "consonant_start_end",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must start and end with a consonant and be at least %d characters long",
				ctx.MinWordLength)
		},
		Validate: func(word string, _ RuleContext) error {
			w := strings.ToLower(word)
			if len(w) == 0 {
				return ruleErr("Word cannot be empty")
			}
			if isVowel(w[0]) || isVowel(w[len(w)-1]) {
				return ruleErr("Word must start and end with a consonant!")
			}
			return nil
		},
	},
	{
		Name: "vowel_start_end",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must start and end with a vowel and be at least %d characters long",
				ctx.MinWordLength)
		},
		Validate: func(word string, _ RuleContext) error {
			w := strings.ToLower(word)
			if len(w) == 0 {
				return ruleErr("Word cannot be empty")
			}
			if !isVowel(w[0]) || !isVowel(w[len(w)-1]) {
				return ruleErr("Word must start and end with a vowel!")
			}
			return nil
		},
	},
	{
		Name: "triple_letter",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must contain at least one letter that appears exactly three times and be at least %d characters long",
				ctx.MinWordLength)
		},
		Validate: func(word string, _ RuleContext) error {
			for _, count := range letterCounts(word) {
				if count == 3 {
					return nil
				}
			}
			return ruleErr("Word must contain at least one letter appearing exactly three times!")
		},
	},
	{
		Name: "palindrome",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must be a palindrome and be at least %d characters long", ctx.MinWordLength)
		},
		Validate: func(word string, _ RuleContext) error {
			for i, j := 0, len(word)-1; i < j; i, j = i+1, j-1 {
				if word[i] != word[j] {
					return ruleErr("Word must be a palindrome")
				}
			}
			return nil
		},
	},
	{
		Name: "no_repeating_letters",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must have no repeating letters and be at least %d characters long",
				ctx.MinWordLength)
		},
		Validate: func(word string, _ RuleContext) error {
			for _, count := range letterCounts(word) {
				if count > 1 {
					return ruleErr("Word must have no repeating letters!")
				}
			}
			return nil
		},
	},
	{
		Name: "exact_vowels_consonants",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must contain exactly 3 vowels and 3 consonants and be at least %d characters long",
				ctx.MinWordLength)
		},
		Validate: func(word string, _ RuleContext) error {
			v, c := vowelConsonantCounts(word)
			if v != 3 || c != 3 {
				return ruleErr("Word must contain exactly 3 vowels and 3 consonants!")
			}
			return nil
		},
	},
	{
		Name: "same_letter_three_times",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must contain the same letter three times and be at least %d characters long",
				ctx.MinWordLength)
		},
		Validate: func(word string, _ RuleContext) error {
			for _, count := range letterCounts(word) {
				if count >= 3 {
					return nil
				}
			}
			return ruleErr("Word must contain the same letter at least three times!")
		},
	},
	{
		Name: "equal_vowels_consonants",
		Description: func(ctx RuleContext) string {
			return fmt.Sprintf("Word must have an equal number of vowels and consonants and be at least %d characters long",
				ctx.MinWordLength)
		},
		Validate: func(word string, _ RuleContext) error {
			v, c := vowelConsonantCounts(word)
			if v != c {
				return ruleErr("Word must have an equal number of vowels and consonants!")
			}
			return nil
		},
	},
}

// NumRules is the length of one full rule cycle.
func NumRules() int { return len(ruleCatalog) }

// RuleByIndex returns the catalog entry at i.
func RuleByIndex(i int) (Rule, bool) {
	if i < 0 || i >= len(ruleCatalog) {
		return Rule{}, false
	}
	return ruleCatalog[i], true
}

func isVowel(b byte) bool {
	return strings.IndexByte(vowels, b) >= 0
}

func letterCounts(word string) map[rune]int {
	counts := make(map[rune]int)
	for _, r := range word {
		counts[r]++
	}
	return counts
}

func vowelConsonantCounts(word string) (int, int) {
	var v, c int
	for _, r := range strings.ToLower(word) {
		if r >= 'a' && r <= 'z' {
			if isVowel(byte(r)) {
				v++
			} else {
				c++
			}
		}
	}
	return v, c
}
