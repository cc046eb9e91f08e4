package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/lattice-hire/interviewer/pkg/gateway"
)

// PlaceholderAnchor is the generic fallback seeded by the Flow Manager when
// the Primer exhausts its retries.
const PlaceholderAnchor = "Draw on a recent relevant project"

// Primer calls the Competency Primer agent once per session, before the
// first turn, to seed a project anchor per competency.
type Primer struct {
	gw     *gateway.Gateway
	route  gateway.LlmRoute
	schema gateway.OutputSchema
}

// NewPrimer builds a Primer bound to the Route Registry's primer route.
func NewPrimer(gw *gateway.Gateway, route gateway.LlmRoute, schema gateway.OutputSchema) *Primer {
	return &Primer{gw: gw, route: route, schema: schema}
}

// Seed asks the LLM for one project anchor per competency. On failure it
// returns the classified gateway error; the caller (Flow Manager) is
// responsible for the placeholder-seeding fallback.
func (p *Primer) Seed(ctx context.Context, jdSummary, resumeText string, competencies []string) (map[string]string, error) {
	task := fmt.Sprintf(
		"Job description summary:\n%s\n\nCandidate resume:\n%s\n\nFor each of these competencies, produce a concise 1-3 sentence project anchor grounded in the resume if possible, or a plausible hypothetical project otherwise. Never return an empty anchor.\nCompetencies: %s",
		jdSummary, resumeText, strings.Join(competencies, ", "),
	)

	var out PrimerOutput
	if err := p.gw.Call(ctx, RoutePrimer, task, p.route, p.schema, &out); err != nil {
		return nil, err
	}

	anchors := make(map[string]string, len(competencies))
	for _, c := range competencies {
		anchor := strings.TrimSpace(out.Anchors[c])
		if anchor == "" {
			anchor = PlaceholderAnchor
		}
		anchors[c] = anchor
	}
	return anchors, nil
}
