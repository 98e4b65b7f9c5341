package perplexity

import (
	"fmt"
	"sort"
	"strings"

	"review_dashboard/internal/domain"
)

const systemPrompt = "You are a property management analyst. Provide concise, actionable insights in valid JSON format only."

const promptTemplate = `
You are a property management analyst. Analyze the provided reviews and respond with ONLY a valid JSON object (no markdown formatting, no code blocks).

Required JSON format:
{
  "summary": "2-line summary here (max 200 chars)",
  "issueLevel": "critical|emerging|improvement|good",
  "painPoints": ["point 1", "point 2", "point 3"],
  "improvementSuggestions": ["suggestion 1", "suggestion 2", "suggestion 3"],
  "confidence": 0.85
}

Rules:
- Response must be valid JSON only
- Summary must be at most 2 lines and 200 characters
- issueLevel must be one of: critical, emerging, improvement, good
- painPoints must be an array of exactly 3 strings
- improvementSuggestions must be an array of exactly 3 strings
- confidence must be a number between 0 and 1

Reviews for %s:
%s

Respond with JSON only:`

// BuildPrompt embeds the property name and one digest line per review.
func BuildPrompt(propertyName string, reviews []domain.Review) string {
	return fmt.Sprintf(promptTemplate, propertyName, reviewDigest(reviews))
}

func reviewDigest(reviews []domain.Review) string {
	lines := make([]string, 0, len(reviews))
	for _, r := range reviews {
		cats := make([]string, 0, len(r.CategoryRatings))
		for _, name := range sortedKeys(r.CategoryRatings) {
			cats = append(cats, fmt.Sprintf("%s: %g/10", name, r.CategoryRatings[name]))
		}
		lines = append(lines, fmt.Sprintf("Rating: %g/10, Categories: %s, Review: %q",
			r.Rating, strings.Join(cats, ", "), r.PublicReview))
	}
	return strings.Join(lines, "\n\n")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stripFences removes a ```json / ``` wrapper around the model output.
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// outermostObject is the one fallback parse attempt: the text between the
// first '{' and the last '}'.
func outermostObject(s string) (string, bool) {
	i, j := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if i < 0 || j <= i {
		return "", false
	}
	return s[i : j+1], true
}
