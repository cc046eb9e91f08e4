package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-hire/interviewer/pkg/candidate"
	"github.com/lattice-hire/interviewer/pkg/gateway"
	"github.com/lattice-hire/interviewer/pkg/persona"
	"github.com/lattice-hire/interviewer/pkg/rubric"
)

type singleResponseTransport struct {
	raw string
	err error
}

func (s *singleResponseTransport) Chat(_ context.Context, _, _, _ string, _ []gateway.Message, _ string, _ int) (string, error) {
	return s.raw, s.err
}

func fakeRoute() gateway.LlmRoute {
	return gateway.LlmRoute{BaseURL: "fake", Model: "m", Endpoint: "/chat", MaxRetries: 0, ResponseFormat: "json_object"}
}

// Primer.Seed must fall back to PlaceholderAnchor for any competency the
// model left blank or omitted entirely, never returning an empty anchor.
func TestPrimerSeedFillsBlankAnchorsWithPlaceholder(t *testing.T) {
	raw, _ := json.Marshal(PrimerOutput{Anchors: map[string]string{"A": "  ", "B": "a real anchor"}})
	gw := gateway.New(&singleResponseTransport{raw: string(raw)})
	p := NewPrimer(gw, fakeRoute(), gateway.NewOutputSchema[PrimerOutput]("primer"))

	anchors, err := p.Seed(context.Background(), "jd", "resume", []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, PlaceholderAnchor, anchors["A"], "blank anchor text must fall back to the placeholder")
	assert.Equal(t, "a real anchor", anchors["B"])
	assert.Equal(t, PlaceholderAnchor, anchors["C"], "a competency the model omitted entirely must also fall back")
}

func TestPrimerSeedPropagatesGatewayFailure(t *testing.T) {
	gw := gateway.New(&singleResponseTransport{raw: "not json"})
	p := NewPrimer(gw, fakeRoute(), gateway.NewOutputSchema[PrimerOutput]("primer"))

	_, err := p.Seed(context.Background(), "jd", "resume", []string{"A"})
	require.Error(t, err)
}

func TestWarmupAskClosingModeStillReturnsContent(t *testing.T) {
	raw, _ := json.Marshal(WarmupOutput{Content: "Thanks for your time today.", Metadata: WarmupMetadata{Stage: "warmup", Reasoning: "r", Escalation: "broad"}})
	gw := gateway.New(&singleResponseTransport{raw: string(raw)})
	w := NewWarmup(gw, fakeRoute(), gateway.NewOutputSchema[WarmupOutput]("warmup"))

	out, err := w.Ask(context.Background(), persona.Default(), candidate.Profile{CandidateName: "Jordan"}, nil, ModeClosing)
	require.NoError(t, err)
	assert.Equal(t, "Thanks for your time today.", out.Content)
}

func TestQuestionerAskReturnsTargetedCriteria(t *testing.T) {
	raw, _ := json.Marshal(QuestionerOutput{
		Content:  "What was the hardest tradeoff?",
		Metadata: QuestionerMetadata{Stage: "competency", Competency: "A", Reasoning: "r", Escalation: "why", TargetedCriteria: []string{"Depth"}},
	})
	gw := gateway.New(&singleResponseTransport{raw: string(raw)})
	q := NewQuestioner(gw, fakeRoute(), gateway.NewOutputSchema[QuestionerOutput]("questioner"))

	out, err := q.Ask(context.Background(), "A", "anchor", []string{"Depth"}, nil, persona.Default(), EscalationGuidance{IsFirstQuestion: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Depth"}, out.Metadata.TargetedCriteria)
}

func TestEvaluatorEvaluateOmitsCompetencyScoreOutsideCompetencyStage(t *testing.T) {
	raw, _ := json.Marshal(EvaluatorOutput{Summary: "warmup note"})
	gw := gateway.New(&singleResponseTransport{raw: string(raw)})
	e := NewEvaluator(gw, fakeRoute(), gateway.NewOutputSchema[EvaluatorOutput]("evaluator"))

	out, err := e.Evaluate(context.Background(), []string{"Interviewer: hi", "Candidate: hello"}, "warmup", "", rubric.Competency{}, "")
	require.NoError(t, err)
	assert.Nil(t, out.CompetencyScore)
	assert.Equal(t, "warmup note", out.Summary)
}

func TestAutoReplyReturnsSimulatedAnswer(t *testing.T) {
	raw, _ := json.Marshal(AutoReplyOutput{Content: "A detailed, metric-backed answer."})
	gw := gateway.New(&singleResponseTransport{raw: string(raw)})
	a := NewAutoReply(gw, fakeRoute(), gateway.NewOutputSchema[AutoReplyOutput]("autoreply"))

	out, err := a.Reply(context.Background(), "A", "anchor", []string{"Depth"}, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, "A detailed, metric-backed answer.", out.Content)
}
