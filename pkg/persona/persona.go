// Package persona defines the interviewer persona that influences prompt
// tone. It is read-only during the session.
package persona

import "strings"

// Persona is the interviewer's voice.
type Persona struct {
	Name          string
	ProbingStyle  string
	HintStyle     string
	Encouragement string
}

// Default returns a neutral, professional persona used when the caller
// does not supply one.
func Default() Persona {
	return Persona{
		Name:          "Alex",
		ProbingStyle:  "curious and specific, always anchored in a concrete project",
		HintStyle:     "gentle nudge toward the missing detail, never gives the answer away",
		Encouragement: "brief acknowledgement before moving the conversation forward",
	}
}

// catalog holds the built-in personas a /sessions/start request may select
// by name.
var catalog = []Persona{
	Default(),
	{
		Name:          "Priya",
		ProbingStyle:  "supportive and patient, builds up from the candidate's own framing",
		HintStyle:     "offers a scoped example to react to when the candidate stalls",
		Encouragement: "warm, names what the candidate did well before probing further",
	},
	{
		Name:          "Marcus",
		ProbingStyle:  "direct and challenging, pushes on trade-offs and failure modes",
		HintStyle:     "restates the question more narrowly rather than hinting at content",
		Encouragement: "sparing, keeps the pace brisk",
	},
}

// ByName resolves a persona by name, case-insensitively. Unknown or empty
// names fall back to Default.
func ByName(name string) Persona {
	for _, p := range catalog {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return Default()
}
