// Package params provides sampling parameter heuristics for speech synthesis.
//
// The recommendations map a requested use case and the length of the input
// text onto the engine's sampling knobs. The values are deliberately simple
// lookups so that clients get deterministic, explainable suggestions.
package params

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/book-expert/voice-mcp-service/internal/core"
)

// UseCase identifies the intended delivery style of the synthesized speech.
type UseCase string

// Known use cases.
const (
	UseCaseConversational UseCase = "conversational"
	UseCaseNarrative      UseCase = "narrative"
	UseCaseExpressive     UseCase = "expressive"
	UseCaseStable         UseCase = "stable"
)

// DefaultUseCase is applied when a client does not state a use case.
const DefaultUseCase = UseCaseConversational

// Base parameter values.
const (
	baseTemperature       = 0.8
	baseTopP              = 0.8
	baseRepetitionPenalty = 1.1
	baseMaxNewTokens      = 1024
)

// Text length thresholds (in characters) for the max_new_tokens ladder.
const (
	shortTextLimit  = 100
	mediumTextLimit = 300

	shortTextTokens  = 512
	mediumTextTokens = 1024
	longTextTokens   = 2048
)

// Validation bounds and format strings.
const (
	minTopP              = 0.0
	maxTopP              = 1.0
	minRepetitionPenalty = 1.0

	paramsFormat            = "temperature=%.2f top_p=%.2f repetition_penalty=%.2f max_new_tokens=%d"
	errFmtOutOfRangeFloat   = "%w: got %f"
	errFmtOutOfRangeInteger = "%w: got %d"
)

// Static validation errors.
var (
	// ErrTemperatureRange indicates that the temperature is out of the valid range [0.0, ...).
	ErrTemperatureRange = errors.New("temperature must be >= 0.0")
	// ErrTopPRange indicates that the top_p value is out of the valid range [0.0, 1.0].
	ErrTopPRange = errors.New("top_p must be between 0.0 and 1.0")
	// ErrRepetitionPenaltyRange indicates that the repetition penalty is out of the valid range [1.0, ...).
	ErrRepetitionPenaltyRange = errors.New("repetition penalty must be >= 1.0")
	// ErrMaxNewTokensRange indicates a non-positive generation budget.
	ErrMaxNewTokensRange = errors.New("max_new_tokens must be positive")
)

// Defaults returns the fixed parameter set used when optimization is disabled.
func Defaults() core.SynthesisParams {
	return core.SynthesisParams{
		Temperature:       baseTemperature,
		TopP:              baseTopP,
		RepetitionPenalty: baseRepetitionPenalty,
		MaxNewTokens:      baseMaxNewTokens,
	}
}

// ParseUseCase maps a client-supplied string onto a known use case.
// Empty and unrecognized values fall back to the default; the base
// parameter values equal the conversational row, so unknown inputs
// behave identically to stating no preference.
func ParseUseCase(raw string) UseCase {
	switch UseCase(raw) {
	case UseCaseConversational, UseCaseNarrative, UseCaseExpressive, UseCaseStable:
		return UseCase(raw)
	default:
		return DefaultUseCase
	}
}

// Recommend computes the parameter set for the given text and use case.
// The sampling knobs follow the use case; the generation budget follows
// the character count of the text.
func Recommend(text string, useCase UseCase) core.SynthesisParams {
	set := Defaults()

	switch useCase {
	case UseCaseConversational:
		// Natural, dynamic speech.
		set.Temperature = 0.8
		set.TopP = 0.8
		set.RepetitionPenalty = 1.1
	case UseCaseNarrative:
		// Smooth, storytelling style.
		set.Temperature = 0.75
		set.TopP = 0.85
		set.RepetitionPenalty = 1.05
	case UseCaseExpressive:
		// More variation and emotion.
		set.Temperature = 0.9
		set.TopP = 0.75
		set.RepetitionPenalty = 1.15
	case UseCaseStable:
		// Consistent, predictable output.
		set.Temperature = 0.7
		set.TopP = 0.9
		set.RepetitionPenalty = 1.0
	}

	set.MaxNewTokens = tokensForLength(utf8.RuneCountInString(text))

	return set
}

// Validate ensures a parameter set contains safe values before it is
// handed to an engine.
func Validate(set core.SynthesisParams) error {
	if set.Temperature < 0.0 {
		return fmt.Errorf(errFmtOutOfRangeFloat, ErrTemperatureRange, set.Temperature)
	}

	if set.TopP < minTopP || set.TopP > maxTopP {
		return fmt.Errorf(errFmtOutOfRangeFloat, ErrTopPRange, set.TopP)
	}

	if set.RepetitionPenalty < minRepetitionPenalty {
		return fmt.Errorf(errFmtOutOfRangeFloat, ErrRepetitionPenaltyRange, set.RepetitionPenalty)
	}

	if set.MaxNewTokens <= 0 {
		return fmt.Errorf(errFmtOutOfRangeInteger, ErrMaxNewTokensRange, set.MaxNewTokens)
	}

	return nil
}

// Format renders a parameter set in a stable single-line form for logs and
// tool output.
func Format(set core.SynthesisParams) string {
	return fmt.Sprintf(
		paramsFormat,
		set.Temperature,
		set.TopP,
		set.RepetitionPenalty,
		set.MaxNewTokens,
	)
}

// Describe builds the prose recommendation returned to tool callers. It
// explains every knob alongside the chosen value so an LLM can relay or
// adjust the suggestion.
func Describe(text string, useCase UseCase) string {
	set := Recommend(text, useCase)

	var b strings.Builder

	fmt.Fprintf(&b, "Parameter Recommendations for '%s' use case:\n\n", useCase)

	fmt.Fprintf(&b, "1. **temperature** = %s\n", formatKnob(set.Temperature))
	b.WriteString("   - Controls randomness in speech generation\n")
	b.WriteString("   - Higher values (0.8-1.0) = more varied, expressive speech\n")
	b.WriteString("   - Lower values (0.6-0.7) = more consistent, predictable speech\n\n")

	fmt.Fprintf(&b, "2. **top_p** = %s\n", formatKnob(set.TopP))
	b.WriteString("   - Controls diversity of word choices\n")
	b.WriteString("   - Higher values (0.9-1.0) = more diverse vocabulary\n")
	b.WriteString("   - Lower values (0.7-0.8) = more focused, natural speech\n\n")

	fmt.Fprintf(&b, "3. **repetition_penalty** = %s\n", formatKnob(set.RepetitionPenalty))
	b.WriteString("   - Prevents repetitive phrases\n")
	b.WriteString("   - Higher values (1.1-1.2) = strong prevention\n")
	b.WriteString("   - Lower values (1.0-1.05) = more natural flow\n\n")

	fmt.Fprintf(&b, "4. **max_new_tokens** = %d\n", set.MaxNewTokens)
	b.WriteString("   - Maximum length of generated speech\n")
	b.WriteString("   - Automatically adjusted based on input text length\n\n")

	fmt.Fprintf(&b, "Text length: %d characters\n", utf8.RuneCountInString(text))
	fmt.Fprintf(&b, "Recommended max_new_tokens: %d\n\n", set.MaxNewTokens)

	b.WriteString("Use these parameters in synthesize_speech tool for optimal results!")

	return b.String()
}

// tokensForLength maps a character count onto a generation budget.
func tokensForLength(length int) int {
	switch {
	case length < shortTextLimit:
		return shortTextTokens
	case length < mediumTextLimit:
		return mediumTextTokens
	default:
		return longTextTokens
	}
}

// formatKnob renders a float the way the recommendation docs quote them:
// minimal digits, but always with a decimal point (1.0, not 1).
func formatKnob(value float64) string {
	formatted := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.Contains(formatted, ".") {
		formatted += ".0"
	}

	return formatted
}
