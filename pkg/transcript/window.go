// Package transcript bounds the conversation history handed to the
// Evaluator agent so prompt size does not grow unbounded over a long
// session.
package transcript

import "github.com/lattice-hire/interviewer/pkg/interview"

// Window returns the most recent windowSize messages plus the opening
// warmup exchange (the first Interviewer/Candidate pair), deduplicated and
// in original order. If the transcript is already within windowSize it is
// returned unchanged.
func Window(full []interview.Message, windowSize int) []interview.Message {
	if windowSize <= 0 || len(full) <= windowSize {
		return full
	}

	opening := openingExchange(full)
	recentStart := len(full) - windowSize

	result := make([]interview.Message, 0, len(opening)+windowSize)
	result = append(result, opening...)
	for i := recentStart; i < len(full); i++ {
		if i < len(opening) {
			continue // already included via the opening exchange
		}
		result = append(result, full[i])
	}
	return result
}

// openingExchange returns the first Interviewer message and the first
// Candidate reply that follows it, establishing the warmup project anchor
// context the Evaluator needs even once it scrolls out of the window.
func openingExchange(full []interview.Message) []interview.Message {
	var opening []interview.Message
	for _, m := range full {
		opening = append(opening, m)
		if m.Speaker == interview.SpeakerCandidate {
			break
		}
		if len(opening) >= 2 {
			break
		}
	}
	return opening
}

// ToPromptLines renders messages into a simple "Speaker: content" form
// suitable for inclusion in an agent's system/user prompt.
func ToPromptLines(messages []interview.Message) []string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = string(m.Speaker) + ": " + m.Content
	}
	return lines
}
