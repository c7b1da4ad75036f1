package negotiate

import (
	"regexp"
	"strings"
)

// ConfirmationMarker is the literal phrase the prompt instructs the model
// to emit once, and only once, a day and a time are both agreed. Its
// presence is the sole trigger for a commit attempt.
const ConfirmationMarker = "Reunião Agendada!"

var (
	timeTokenPattern = regexp.MustCompile(`\d{2}:\d{2}`)
	reasoningPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// ExtractTime returns the first HH:MM-shaped token of the text. Later
// tokens in the same reply are ignored.
func ExtractTime(text string) (string, bool) {
	match := timeTokenPattern.FindString(text)

	return match, match != ""
}

// HasConfirmationMarker reports whether the model declared the booking
// finalized. Generated text is never trusted beyond this marker and the
// time token; the calendar re-validates everything.
func HasConfirmationMarker(text string) bool {
	return strings.Contains(text, ConfirmationMarker)
}

// StripReasoning removes inline reasoning traces so scratch content never
// reaches the contact.
func StripReasoning(text string) string {
	return strings.TrimSpace(reasoningPattern.ReplaceAllString(text, ""))
}
