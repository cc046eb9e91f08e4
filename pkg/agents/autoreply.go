package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/lattice-hire/interviewer/pkg/gateway"
)

// AutoReply calls the optional Candidate Auto-Reply agent, used only
// when the caller requests an auto-answered turn (e.g. demos, load tests).
type AutoReply struct {
	gw     *gateway.Gateway
	route  gateway.LlmRoute
	schema gateway.OutputSchema
}

// NewAutoReply builds an AutoReply agent bound to the Route Registry's
// autoreply route.
func NewAutoReply(gw *gateway.Gateway, route gateway.LlmRoute, schema gateway.OutputSchema) *AutoReply {
	return &AutoReply{gw: gw, route: route, schema: schema}
}

// Reply simulates a candidate answer calibrated to candidateLevel (1..5):
// lower levels omit detail and trade-offs, higher levels include failure
// modes and metrics.
func (a *AutoReply) Reply(ctx context.Context, competency, projectAnchor string, targetedCriteria []string, prior []string, candidateLevel int) (AutoReplyOutput, error) {
	task := fmt.Sprintf(
		"Simulate a candidate answer at skill level %d/5 for competency %q, project anchor %q, targeting criteria: %s.\nLower levels should omit detail and trade-offs; higher levels should include failure modes and metrics.\n\nPrior conversation:\n%s",
		candidateLevel, competency, projectAnchor, strings.Join(targetedCriteria, ", "), joinLines(prior),
	)

	var out AutoReplyOutput
	if err := a.gw.Call(ctx, RouteAutoReply, task, a.route, a.schema, &out); err != nil {
		return AutoReplyOutput{}, err
	}
	return out, nil
}
