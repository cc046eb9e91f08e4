package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/lattice-hire/interviewer/pkg/gateway"
	"github.com/lattice-hire/interviewer/pkg/rubric"
)

// Evaluator calls the Evaluator agent. It is stateless: the Flow
// Manager passes in the prior evaluatorState summary and applies the
// returned deltas itself.
type Evaluator struct {
	gw     *gateway.Gateway
	route  gateway.LlmRoute
	schema gateway.OutputSchema
}

// NewEvaluator builds an Evaluator bound to the Route Registry's evaluator
// route.
func NewEvaluator(gw *gateway.Gateway, route gateway.LlmRoute, schema gateway.OutputSchema) *Evaluator {
	return &Evaluator{gw: gw, route: route, schema: schema}
}

// Evaluate scores the most recent exchange. competency is empty when
// stage != competency, in which case no CompetencyScore is expected back.
func (e *Evaluator) Evaluate(ctx context.Context, windowedTranscript []string, stage, competency string, comp rubric.Competency, priorSummary string) (EvaluatorOutput, error) {
	var rubricDesc strings.Builder
	if competency != "" {
		fmt.Fprintf(&rubricDesc, "Competency %q criteria:\n", competency)
		for _, crit := range comp.Criteria {
			fmt.Fprintf(&rubricDesc, "- %s (weight %.2f): L1=%q L5=%q\n", crit.Name, crit.Weight, crit.Anchors[1], crit.Anchors[5])
		}
	}

	task := fmt.Sprintf(
		"Stage: %s\nActive competency: %s\nPrior evaluator summary: %s\n\n%s\nTranscript window:\n%s\n\nScore the candidate's latest answer against the criteria above. If stage is not \"competency\", omit competencyScore.",
		stage, competency, priorSummary, rubricDesc.String(), joinLines(windowedTranscript),
	)

	var out EvaluatorOutput
	if err := e.gw.Call(ctx, RouteEvaluator, task, e.route, e.schema, &out); err != nil {
		return EvaluatorOutput{}, err
	}
	return out, nil
}
