// Package textnorm provides text normalization applied before speech synthesis.
//
// The engine receives cleaner input than raw client text: abbreviations are
// expanded, integers become words, URLs and email addresses survive the
// cleanup untouched, and the result always ends like a sentence. The
// transformations are deterministic so the same text always synthesizes the
// same way.
package textnorm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Regex patterns.
const (
	urlRegexPattern        = `https?://\S+`
	emailRegexPattern      = `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`
	numberRegexPattern     = `\d+`
	whitespaceRegexPattern = `\s+`
	// Runs of the same sentence punctuation collapse to one mark. Mixed
	// runs stay intact so URLs and email addresses are never corrupted.
	// RE2 has no backreferences, so each mark gets its own alternation
	// branch; exactly one capture group is non-empty per match.
	repeatPunctRegexPattern = `(\.)\.+|(!)!+|(\?)\?+|(,),+|(;);+|(:):+`
)

// Placeholder formats for tokens that must survive cleanup.
const (
	urlPlaceholderFormat   = `__URL_TOKEN_%d__`
	emailPlaceholderFormat = `__EMAIL_TOKEN_%d__`
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
)

// Bounds for the integer-to-words conversion.
const (
	numberBaseTen      = 10
	numberBaseTwenty   = 20
	numberBaseHundred  = 100
	numberBaseThousand = 1000
	maxNumberForWords  = 999999
)

var (
	onesWords = []string{
		"", "one", "two", "three", "four", "five",
		"six", "seven", "eight", "nine",
	}
	teensWords = []string{
		"ten", "eleven", "twelve", "thirteen", "fourteen",
		"fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
	}
	tensWords = []string{
		"", "", "twenty", "thirty", "forty", "fifty",
		"sixty", "seventy", "eighty", "ninety",
	}
)

// Normalizer cleans raw text for synthesis. Construct it once and reuse it;
// all patterns are precompiled.
type Normalizer struct {
	urlPattern           *regexp.Regexp
	emailPattern         *regexp.Regexp
	numberPattern        *regexp.Regexp
	whitespacePattern    *regexp.Regexp
	repeatPunctPattern   *regexp.Regexp
	abbreviationReplacer *strings.Replacer
	symbolReplacer       *strings.Replacer
}

// New creates a normalizer with compiled patterns and replacers.
func New() *Normalizer {
	abbreviations := []string{
		"Mr.", "Mister",
		"Mrs.", "Misses",
		"Ms.", "Miss",
		"Dr.", "Doctor",
		"St.", "Saint",
		"Co.", "Company",
		"Ltd.", "Limited",
		"Corp.", "Corporation",
		"Inc.", "Incorporated",
	}

	return &Normalizer{
		urlPattern:           regexp.MustCompile(urlRegexPattern),
		emailPattern:         regexp.MustCompile(emailRegexPattern),
		numberPattern:        regexp.MustCompile(numberRegexPattern),
		whitespacePattern:    regexp.MustCompile(whitespaceRegexPattern),
		repeatPunctPattern:   regexp.MustCompile(repeatPunctRegexPattern),
		abbreviationReplacer: strings.NewReplacer(abbreviations...),
		symbolReplacer: strings.NewReplacer(
			emDash, "-",
			enDash, "-",
			figureDash, "-",
			ellipsisChar, ellipsis,
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
		),
	}
}

// Normalize runs the full cleanup pipeline. URLs and email addresses are
// shielded behind placeholders while the rest of the text is rewritten,
// then restored verbatim.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return text
	}

	cleaned := n.abbreviationReplacer.Replace(text)
	cleaned = n.expandNumbers(cleaned)

	cleaned, shielded := n.shieldTokens(cleaned)

	cleaned = n.collapseWhitespace(cleaned)

	cleaned = restoreTokens(cleaned, shielded)

	cleaned = n.repeatPunctPattern.ReplaceAllString(cleaned, "$1$2$3$4$5$6")
	cleaned = n.symbolReplacer.Replace(cleaned)

	return ensureSentenceEnding(cleaned)
}

// expandNumbers converts every integer in the text to its word form.
// Integers too large for the converter stay as digits.
func (n *Normalizer) expandNumbers(text string) string {
	return n.numberPattern.ReplaceAllStringFunc(text, func(match string) string {
		value, convErr := strconv.Atoi(match)
		if convErr != nil {
			return match
		}

		return intToWords(value)
	})
}

// shieldTokens swaps URLs and email addresses for opaque placeholders so
// the cleanup passes cannot corrupt them. Each occurrence gets its own
// placeholder, so repeated tokens restore correctly.
func (n *Normalizer) shieldTokens(text string) (string, map[string]string) {
	shielded := make(map[string]string)
	counter := 0

	shield := func(pattern *regexp.Regexp, format string, input string) string {
		return pattern.ReplaceAllStringFunc(input, func(match string) string {
			placeholder := fmt.Sprintf(format, counter)
			shielded[placeholder] = match
			counter++

			return placeholder
		})
	}

	text = shield(n.urlPattern, urlPlaceholderFormat, text)
	text = shield(n.emailPattern, emailPlaceholderFormat, text)

	return text, shielded
}

func restoreTokens(text string, shielded map[string]string) string {
	for placeholder, original := range shielded {
		text = strings.ReplaceAll(text, placeholder, original)
	}

	return text
}

// collapseWhitespace folds runs of whitespace, including newlines and
// tabs, into single spaces.
func (n *Normalizer) collapseWhitespace(text string) string {
	return strings.TrimSpace(n.whitespacePattern.ReplaceAllString(text, " "))
}

// ensureSentenceEnding appends a period when the text does not already end
// with punctuation. A trailing quote or comma is left alone so quoted
// dialogue does not grow a second period.
func ensureSentenceEnding(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	lastRune, _ := utf8.DecodeLastRuneInString(trimmed)
	if unicode.IsPunct(lastRune) {
		return trimmed
	}

	return trimmed + "."
}

// intToWords converts an integer in [0, 999999] to English words; anything
// outside that range is returned as digits.
func intToWords(number int) string {
	if number < 0 || number > maxNumberForWords {
		return strconv.Itoa(number)
	}

	if number == 0 {
		return "zero"
	}

	var parts []string

	if thousands := number / numberBaseThousand; thousands > 0 {
		parts = append(parts, underThousand(thousands)+" thousand")
		number %= numberBaseThousand
	}

	if number > 0 {
		parts = append(parts, underThousand(number))
	}

	return strings.Join(parts, " ")
}

func underThousand(number int) string {
	if number >= numberBaseHundred {
		result := onesWords[number/numberBaseHundred] + " hundred"
		if remainder := number % numberBaseHundred; remainder > 0 {
			result += " " + underHundred(remainder)
		}

		return result
	}

	return underHundred(number)
}

func underHundred(number int) string {
	switch {
	case number < numberBaseTen:
		return onesWords[number]
	case number < numberBaseTwenty:
		return teensWords[number-numberBaseTen]
	default:
		result := tensWords[number/numberBaseTen]
		if number%numberBaseTen > 0 {
			result += " " + onesWords[number%numberBaseTen]
		}

		return result
	}
}
