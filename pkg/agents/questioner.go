package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/lattice-hire/interviewer/pkg/gateway"
	"github.com/lattice-hire/interviewer/pkg/persona"
)

// Questioner calls the Competency Questioner agent. The Flow Manager
// orders remainingCriteria (lowest observed level first, then rubric order)
// before calling Ask; escalation ordering (broad -> why -> how -> challenge
// -> edge, with hint insertion) is guidance passed in the prompt, not
// enforced by this agent — the model picks the actual escalation tag.
type Questioner struct {
	gw     *gateway.Gateway
	route  gateway.LlmRoute
	schema gateway.OutputSchema
}

// NewQuestioner builds a Questioner bound to the Route Registry's
// questioner route.
func NewQuestioner(gw *gateway.Gateway, route gateway.LlmRoute, schema gateway.OutputSchema) *Questioner {
	return &Questioner{gw: gw, route: route, schema: schema}
}

// EscalationGuidance describes where the conversation sits in the
// broad->why->how->challenge->edge cycle, and whether a hint is due.
type EscalationGuidance struct {
	IsFirstQuestion bool
	HintDue         bool
}

// Ask produces the next competency question.
func (q *Questioner) Ask(ctx context.Context, competency, projectAnchor string, remainingCriteria []string, prior []string, p persona.Persona, guidance EscalationGuidance) (QuestionerOutput, error) {
	stageHint := "Cycle through why -> how -> challenge -> edge as the conversation progresses."
	if guidance.IsFirstQuestion {
		stageHint = "This is the first question for this competency: ask a broad opening question."
	}
	if guidance.HintDue {
		stageHint += " The candidate's last answer on the targeted criterion scored low; consider a gentle hint-style question instead."
	}

	task := fmt.Sprintf(
		"Persona: %s (probing style: %s; hint style: %s)\nActive competency: %s\nProject anchor: %s\nRemaining criteria (ordered): %s\n\nPrior conversation:\n%s\n\n%s",
		p.Name, p.ProbingStyle, p.HintStyle,
		competency, projectAnchor, strings.Join(remainingCriteria, ", "),
		joinLines(prior),
		stageHint,
	)

	var out QuestionerOutput
	if err := q.gw.Call(ctx, RouteQuestioner, task, q.route, q.schema, &out); err != nil {
		return QuestionerOutput{}, err
	}
	return out, nil
}
