package interview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture() *Context {
	criteria := map[string][]string{
		"A": {"Depth", "Clarity"},
		"B": {"Tradeoffs"},
	}
	anchors := map[string]string{
		"A": "the checkout redesign",
		"B": "the on-call rotation rewrite",
	}
	return New("sess-1", "iv-1", "cand-1", []string{"A", "B"}, criteria, anchors)
}

func TestNewContextInvariants(t *testing.T) {
	ctx := newFixture()

	assert.Equal(t, StageWarmup, ctx.Stage)
	assert.Equal(t, "", ctx.ActiveCompetency(), "no active competency outside stage=competency")

	ctx.Stage = StageCompetency
	ctx.CompetencyIndex = 0
	assert.Equal(t, "A", ctx.ActiveCompetency(), "competency equals competencyOrder[competencyIndex]")
}

func TestStageMonotonicAdvance(t *testing.T) {
	assert.True(t, StageWarmup.CanAdvanceTo(StageCompetency))
	assert.True(t, StageCompetency.CanAdvanceTo(StageCompetency))
	assert.False(t, StageWrapup.CanAdvanceTo(StageCompetency), "stage must never regress")
	assert.False(t, StageComplete.CanAdvanceTo(StageWarmup))
}

func TestEventIDsStrictlyIncreasing(t *testing.T) {
	ctx := newFixture()
	e1 := ctx.AppendEvent(EventQuestion, "A", nil)
	e2 := ctx.AppendEvent(EventAnswer, "A", nil)
	e3 := ctx.AppendEvent(EventEvaluation, "A", nil)

	assert.Less(t, e1.EventID, e2.EventID)
	assert.Less(t, e2.EventID, e3.EventID)
	assert.Equal(t, e3.EventID, ctx.LastEventID())
}

func TestEventsSinceReturnsOnlyNewer(t *testing.T) {
	ctx := newFixture()
	e1 := ctx.AppendEvent(EventQuestion, "A", nil)
	e2 := ctx.AppendEvent(EventAnswer, "A", nil)

	newer := ctx.EventsSince(e1.EventID)
	require.Len(t, newer, 1)
	assert.Equal(t, e2.EventID, newer[0].EventID)
}

func TestCompetencyCoveredIsSubsetOfCriteria(t *testing.T) {
	ctx := newFixture()
	added := ctx.CompetencyCovered["A"].Add("depth")
	assert.True(t, added)
	assert.True(t, ctx.CompetencyCovered["A"].Has("Depth"), "criterion membership is case-insensitive")

	for _, covered := range ctx.CompetencyCovered["A"].Items() {
		found := false
		for _, crit := range ctx.CompetencyCriteria["A"] {
			if strings.EqualFold(crit, covered) {
				found = true
			}
		}
		assert.True(t, found, "competencyCovered must be a subset of competencyCriteria")
	}
}

func TestCloneIsDeepCopy(t *testing.T) {
	ctx := newFixture()
	ctx.AppendEvent(EventQuestion, "A", map[string]any{"k": "v"})
	ctx.CompetencyCovered["A"].Add("Depth")
	ctx.CompetencyQuestionCounts["A"] = 2

	clone := ctx.Clone()
	clone.CompetencyQuestionCounts["A"] = 99
	clone.CompetencyCovered["A"].Add("Clarity")
	clone.Events[0].Payload["k"] = "mutated"

	assert.Equal(t, 2, ctx.CompetencyQuestionCounts["A"], "mutating the clone must not affect the original")
	assert.Equal(t, 1, ctx.CompetencyCovered["A"].Len())
	assert.Equal(t, "v", ctx.Events[0].Payload["k"])
}
