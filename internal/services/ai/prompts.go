package ai

import (
	"fmt"
	"strings"
)

// NoneSentinel is what the model is told to answer when no listed genre fits.
const NoneSentinel = "none"

const genreRoleSection = `You are a music genre selector. Your job is to imagine what the user prompt would be like and choose the best fitting genre.`

const genreRulesSection = `Return exactly one genre from this list and do not invent new genres: %s.
Return only the genre name from the list. If unsure, respond with "%s".
No extra words, no explanations. Example: "pop", not "Pop music".`

const genreTaskSection = `User said: "%s"

Respond with exactly one genre name from the list only.`

// BuildGenrePrompt builds the single-message instruction that asks the model to
// pick one genre out of genres for the user's prompt. genres should already be sorted.
func BuildGenrePrompt(genres []string, prompt string) string {
	var sb strings.Builder
	sb.WriteString(genreRoleSection)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf(genreRulesSection, strings.Join(genres, ", "), NoneSentinel))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(genreTaskSection, sanitizePrompt(prompt)))
	return sb.String()
}

// sanitizePrompt keeps user text from closing the quoted block early.
func sanitizePrompt(prompt string) string {
	return strings.ReplaceAll(strings.TrimSpace(prompt), `"`, `'`)
}
