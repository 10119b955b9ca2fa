package validation

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/vibecheck/api/internal/errors"
)

// DefaultMaxPromptLength bounds prompts when no limit is configured.
const DefaultMaxPromptLength = 500

// PromptValidationResult contains the outcome of prompt validation
type PromptValidationResult struct {
	IsValid bool
	Prompt  string // trimmed prompt, set when valid
	Reason  string
}

// QuickValidatePrompt checks a mood prompt without any network call.
func QuickValidatePrompt(prompt string, maxLength int) PromptValidationResult {
	if maxLength <= 0 {
		maxLength = DefaultMaxPromptLength
	}

	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return PromptValidationResult{Reason: apperrors.MsgPromptRequired}
	}
	if utf8.RuneCountInString(trimmed) > maxLength {
		return PromptValidationResult{Reason: apperrors.MsgPromptTooLong}
	}

	return PromptValidationResult{IsValid: true, Prompt: trimmed}
}

// ValidatePrompt returns the trimmed prompt, or a validation AppError carrying the
// client-facing message.
func ValidatePrompt(prompt string, maxLength int) (string, error) {
	result := QuickValidatePrompt(prompt, maxLength)
	if result.IsValid {
		return result.Prompt, nil
	}

	code := "PROMPT_REQUIRED"
	suggestion := "Describe the vibe you are after."
	if result.Reason == apperrors.MsgPromptTooLong {
		code = "PROMPT_TOO_LONG"
		suggestion = "Shorten the prompt."
	}
	return "", apperrors.NewValidationError(result.Reason, code, suggestion)
}
