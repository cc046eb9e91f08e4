package agents

import (
	"context"
	"fmt"

	"github.com/lattice-hire/interviewer/pkg/candidate"
	"github.com/lattice-hire/interviewer/pkg/gateway"
	"github.com/lattice-hire/interviewer/pkg/persona"
)

// WarmupMode selects which of the Warmup agent's three utterances is being
// requested. The Flow Manager decides the mode; the agent decides the
// wording.
type WarmupMode string

const (
	// ModeOpening asks a broad warmup question at the start of the session.
	ModeOpening WarmupMode = "opening"
	// ModeWrapup asks the single wrap-up question that opens the final
	// exchange before the interview closes.
	ModeWrapup WarmupMode = "wrapup"
	// ModeClosing produces the closing remark that ends the session.
	ModeClosing WarmupMode = "closing"
)

// Warmup calls the Warmup agent. It also covers the wrapup exchange: the
// wrap-up question and the closing remark are the same kind of
// persona-driven, non-scored utterance as the opening question.
type Warmup struct {
	gw     *gateway.Gateway
	route  gateway.LlmRoute
	schema gateway.OutputSchema
}

// NewWarmup builds a Warmup agent bound to the Route Registry's warmup route.
func NewWarmup(gw *gateway.Gateway, route gateway.LlmRoute, schema gateway.OutputSchema) *Warmup {
	return &Warmup{gw: gw, route: route, schema: schema}
}

// Ask produces the warmup question, wrap-up question, or closing remark,
// depending on mode.
func (w *Warmup) Ask(ctx context.Context, p persona.Persona, prof candidate.Profile, prior []string, mode WarmupMode) (WarmupOutput, error) {
	var instruction string
	switch mode {
	case ModeWrapup:
		instruction = "The interview is wrapping up. Ask one final, open question: anything the candidate wants to add, revisit, or ask."
	case ModeClosing:
		instruction = "The interview is ending. Offer a brief, warm closing remark thanking the candidate — no new question."
	default:
		instruction = "Ask a warm, open-ended opening question inviting the candidate to describe a project they're proud of."
	}

	task := fmt.Sprintf(
		"Persona: %s (probing style: %s; encouragement: %s)\nCandidate: %s, %.1f years experience. Summary: %s\n\nPrior conversation:\n%s\n\n%s",
		p.Name, p.ProbingStyle, p.Encouragement,
		prof.CandidateName, prof.ExperienceYears, prof.ResumeSummary,
		joinLines(prior),
		instruction,
	)

	var out WarmupOutput
	if err := w.gw.Call(ctx, RouteWarmup, task, w.route, w.schema, &out); err != nil {
		return WarmupOutput{}, err
	}
	return out, nil
}

// joinLines renders pre-formatted transcript lines (see
// pkg/transcript.ToPromptLines) into a single block for a prompt.
func joinLines(lines []string) string {
	if len(lines) == 0 {
		return "(none yet)"
	}
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
