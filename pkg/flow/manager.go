// Package flow implements the Flow Manager: the stage state machine,
// coverage accounting, and turn algorithm that compose the five agents.
// Stage transitions are owned exclusively here; agents never declare stage.
package flow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lattice-hire/interviewer/pkg/agents"
	"github.com/lattice-hire/interviewer/pkg/apperrors"
	"github.com/lattice-hire/interviewer/pkg/candidate"
	"github.com/lattice-hire/interviewer/pkg/config"
	"github.com/lattice-hire/interviewer/pkg/interview"
	"github.com/lattice-hire/interviewer/pkg/persona"
	"github.com/lattice-hire/interviewer/pkg/rubric"
	"github.com/lattice-hire/interviewer/pkg/transcript"
)

// Manager composes the agents against an interview.Context. It holds no
// per-session state of its own — the Session Manager owns the Context and
// the per-session lock; Manager methods only mutate the Context passed in.
type Manager struct {
	cfg        config.FlowConfig
	primer     *agents.Primer
	warmup     *agents.Warmup
	questioner *agents.Questioner
	evaluator  *agents.Evaluator
	autoReply  *agents.AutoReply
	persona    persona.Persona
}

// New builds a Manager around the given agents and flow configuration.
func New(cfg config.FlowConfig, primer *agents.Primer, warmup *agents.Warmup, questioner *agents.Questioner, evaluator *agents.Evaluator, autoReply *agents.AutoReply, p persona.Persona) *Manager {
	return &Manager{
		cfg:        cfg,
		primer:     primer,
		warmup:     warmup,
		questioner: questioner,
		evaluator:  evaluator,
		autoReply:  autoReply,
		persona:    p,
	}
}

// Start seeds a brand-new context: the Primer is called once for project
// anchors, then the Warmup agent produces the opening message. A zero
// persona falls back to the Manager's default.
func (m *Manager) Start(ctx context.Context, sessionID, interviewID, candidateID string, r rubric.Rubric, prof candidate.Profile, jdSummary, resumeText string, p persona.Persona) (*interview.Context, error) {
	order := r.Order()
	criteria := make(map[string][]string, len(order))
	for _, name := range order {
		comp, _ := r.ByName(name)
		criteria[name] = comp.CriterionNames()
	}

	ictx := interview.New(sessionID, interviewID, candidateID, order, criteria, nil)
	if p.Name == "" {
		p = m.persona
	}
	ictx.Persona = p

	anchors, err := m.primer.Seed(ctx, jdSummary, resumeText, order)
	if err != nil {
		anchors = make(map[string]string, len(order))
		for _, name := range order {
			anchors[name] = agents.PlaceholderAnchor
		}
		ictx.AppendEvent(interview.EventHint, "", map[string]any{
			"reason": "primer exhausted retries; seeded generic placeholder anchors",
		})
	}
	ictx.CompetencyProjects = anchors

	ictx.AppendEvent(interview.EventStageEntered, "", map[string]any{"stage": string(interview.StageWarmup)})

	out, err := m.warmup.Ask(ctx, p, prof, nil, agents.ModeOpening)
	if err != nil {
		return nil, fmt.Errorf("warmup agent: %w", err)
	}

	ictx.AppendMessage(interview.Message{
		Speaker: interview.SpeakerInterviewer,
		Content: out.Content,
		Tone:    out.Metadata.Reasoning,
	})
	ictx.AppendEvent(interview.EventQuestion, "", map[string]any{"escalation": out.Metadata.Escalation})
	ictx.WarmupCount++
	ictx.QuestionsAsked++

	return ictx, nil
}

// Turn runs the full turn algorithm against ictx, which the caller must
// treat as a working copy: on error the caller must discard it and keep
// the previously committed context (rollback semantics).
func (m *Manager) Turn(ctx context.Context, ictx *interview.Context, r rubric.Rubric, prof candidate.Profile, answer string) error {
	if m.cfg.TurnDeadlineMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.TurnDeadlineMs)*time.Millisecond)
		defer cancel()
	}

	incomingStage := ictx.Stage

	// Step 1: record the candidate's answer.
	activeCompetency := ictx.ActiveCompetency()
	ictx.AppendMessage(interview.Message{
		Speaker:          interview.SpeakerCandidate,
		Content:          answer,
		Competency:       activeCompetency,
		TargetedCriteria: ictx.TargetedCriteria,
		ProjectAnchor:    ictx.ProjectAnchor,
	})
	ictx.AppendEvent(interview.EventAnswer, activeCompetency, map[string]any{"content_length": len(answer)})

	// Step 2: evaluate. Hint/follow-up events the evaluator requested are
	// held back until after the next question is recorded.
	outcome, err := m.evaluate(ctx, ictx, r, activeCompetency)
	if err != nil {
		return err
	}

	// Step 3: stage/advance decision (competency stage only).
	if ictx.Stage == interview.StageCompetency {
		m.maybeAdvanceCompetency(ictx, activeCompetency)
	}

	// Step 4: warmup advance.
	if ictx.Stage == interview.StageWarmup && ictx.WarmupCount >= m.cfg.WarmupLimit {
		m.enterCompetency(ictx, 0)
	}

	// Step 5: wrapup advance. Gated on the stage this turn started in, not
	// the stage step 3 may have just moved into: a turn that advances the
	// last competency into wrapup stops there and asks the wrap-up question,
	// so the closing remark lands on a separate turn and the candidate gets
	// an actual wrap-up Q/A round.
	if incomingStage == interview.StageWrapup {
		closing, err := m.warmup.Ask(ctx, ictx.Persona, prof, transcript.ToPromptLines(ictx.Transcript), agents.ModeClosing)
		if err != nil {
			return fmt.Errorf("closing message: %w", err)
		}
		ictx.AppendMessage(interview.Message{Speaker: interview.SpeakerInterviewer, Content: closing.Content})
		ictx.AppendEvent(interview.EventQuestion, "", map[string]any{"closing": true})
		ictx.Stage = interview.StageComplete
		ictx.AppendEvent(interview.EventStageEntered, "", map[string]any{"stage": string(interview.StageComplete)})
	} else {
		// Step 6: next question, unless the interview just completed.
		if err := m.askNext(ctx, ictx, prof); err != nil {
			return err
		}
	}

	// Step 7: hint/follow-up events requested by the evaluator follow the
	// question event.
	for _, hint := range outcome.hints {
		ictx.AppendEvent(interview.EventHint, outcome.competency, map[string]any{"hint": hint})
	}
	if outcome.followUp {
		ictx.AppendEvent(interview.EventFollowUp, outcome.competency, nil)
	}

	// Step 8: checkpoint.
	m.maybeCheckpoint(ictx)

	// Step 9: recompute overall score.
	m.recomputeOverallScore(ictx)

	ictx.Touch()
	return nil
}

// evalOutcome carries the evaluator's hint/follow-up requests out of the
// evaluate step so their events can be appended after the question event.
type evalOutcome struct {
	competency string
	hints      []string
	followUp   bool
}

func (m *Manager) evaluate(ctx context.Context, ictx *interview.Context, r rubric.Rubric, activeCompetency string) (evalOutcome, error) {
	var comp rubric.Competency
	if activeCompetency != "" {
		comp, _ = r.ByName(activeCompetency)
	}

	windowed := transcript.Window(ictx.Transcript, m.cfg.EvaluatorWindowMessages)
	out, err := m.evaluator.Evaluate(ctx, transcript.ToPromptLines(windowed), string(ictx.Stage), activeCompetency, comp, ictx.EvaluatorState.Summary)
	if err != nil {
		return evalOutcome{}, fmt.Errorf("evaluator agent: %w", err)
	}

	ictx.EvaluatorState.Summary = out.Summary
	for competency, bullets := range out.AnchorsDelta {
		ictx.EvaluatorState.Anchors[competency] = append(ictx.EvaluatorState.Anchors[competency], bullets...)
	}

	ictx.AppendEvent(interview.EventEvaluation, activeCompetency, map[string]any{"summary": out.Summary})

	if out.CompetencyScore == nil || activeCompetency == "" {
		return evalOutcome{}, nil
	}

	score := out.CompetencyScore
	levels := ictx.CompetencyCriterionLevels[activeCompetency]
	covered := ictx.CompetencyCovered[activeCompetency]

	// Criterion names in the evaluator's reply are matched to the rubric
	// case-insensitively and exactly; anything that matches no rubric
	// criterion is discarded rather than stored, so covered criteria and
	// levels never hold names the rubric does not know.
	var weightedSum, weightSum float64
	for _, cs := range score.CriterionScores {
		crit, ok := comp.CriterionByName(cs.Criterion)
		if !ok {
			continue
		}
		level := clampLevel(cs.Score)
		levels[crit.Name] = level
		if level >= 1 && strings.TrimSpace(cs.Rationale) != "" {
			covered.Add(crit.Name)
		}
		if level >= 1 {
			weight := crit.Weight
			if weight <= 0 {
				weight = 1
			}
			weightedSum += float64(level) * weight
			weightSum += weight
		}
	}
	for _, note := range out.RubricUpdates[activeCompetency] {
		markRubricUpdateCovered(covered, ictx.CompetencyCriteria[activeCompetency], note)
	}

	// totalScore is recomputed as the weight-normalized average of the
	// criterion levels that survived matching; the model's own totalScore
	// is only used when no criterion score did.
	totalScore := clampTotal(score.TotalScore)
	if weightSum > 0 {
		totalScore = weightedSum / weightSum
	}

	prior := ictx.EvaluatorState.Scores[activeCompetency]
	ictx.EvaluatorState.Scores[activeCompetency] = interview.CompetencyScore{
		Score:           totalScore,
		RubricFilled:    score.RubricFilled,
		CriterionLevels: cloneLevels(levels),
		RubricUpdates:   append(prior.RubricUpdates, out.RubricUpdates[activeCompetency]...),
		Notes:           score.Hints,
	}

	if totalScore <= float64(m.cfg.LowScoreThreshold) {
		ictx.CompetencyLowScores[activeCompetency]++
	} else {
		ictx.CompetencyLowScores[activeCompetency] = 0
	}

	return evalOutcome{
		competency: activeCompetency,
		hints:      score.Hints,
		followUp:   score.FollowUpNeeded,
	}, nil
}

// markRubricUpdateCovered adds criteria to covered when a rubric update
// note names one explicitly (case-insensitive).
func markRubricUpdateCovered(covered *interview.OrderedSet, criteria []string, note string) {
	lowerNote := strings.ToLower(note)
	for _, crit := range criteria {
		if strings.Contains(lowerNote, strings.ToLower(crit)) {
			covered.Add(crit)
		}
	}
}

// clampLevel guards against an LLM returning a criterion score outside
// 1..5 by clamping rather than trusting the model's claim. 0 is preserved
// as "not scored".
func clampLevel(score int) int {
	if score < 0 {
		return 0
	}
	if score > 5 {
		return 5
	}
	return score
}

// clampTotal is the float equivalent of clampLevel for totalScore.
func clampTotal(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 5 {
		return 5
	}
	return score
}

func cloneLevels(levels map[string]int) map[string]int {
	cp := make(map[string]int, len(levels))
	for k, v := range levels {
		cp[k] = v
	}
	return cp
}

func (m *Manager) maybeAdvanceCompetency(ictx *interview.Context, competency string) {
	if competency == "" {
		return
	}

	total := len(ictx.CompetencyCriteria[competency])
	covered := ictx.CompetencyCovered[competency].Len()
	questions := ictx.CompetencyQuestionCounts[competency]
	lowStreak := ictx.CompetencyLowScores[competency]

	fullyCovered := covered >= total
	mostlyCovered := covered >= total-1 && questions >= m.cfg.CoverageMinQuestions
	followUpExhausted := questions >= m.cfg.FollowUpLimit
	lowScoreStreak := lowStreak >= m.cfg.LowScoreStreakLimit

	if !(fullyCovered || mostlyCovered || followUpExhausted || lowScoreStreak) {
		return
	}

	if lowScoreStreak && !fullyCovered {
		ictx.AppendEvent(interview.EventHint, competency, map[string]any{
			"reason": fmt.Sprintf("%d consecutive low-scoring answers; moving on with %d of %d criteria covered", lowStreak, covered, total),
		})
	}

	m.enterCompetency(ictx, ictx.CompetencyIndex+1)
}

// enterCompetency moves the context into competencyOrder[index], skipping
// over any competency whose rubric carries no usable criteria: each one
// gets a hint event recording the degradation and is passed over rather
// than failing the session. If every remaining competency is degraded the
// interview moves straight to wrapup, exactly as if the list had ended.
func (m *Manager) enterCompetency(ictx *interview.Context, index int) {
	for index < len(ictx.CompetencyOrder) {
		competency := ictx.CompetencyOrder[index]
		if len(ictx.CompetencyCriteria[competency]) == 0 {
			ictx.AppendEvent(interview.EventHint, competency, map[string]any{
				"reason": apperrors.ErrRubricDegraded.Error(),
				"detail": fmt.Sprintf("competency %q has no usable criteria; skipping it", competency),
			})
			index++
			continue
		}

		ictx.CompetencyIndex = index
		ictx.Stage = interview.StageCompetency
		ictx.ProjectAnchor = ictx.CompetencyProjects[competency]
		ictx.TargetedCriteria = nil
		ictx.AppendEvent(interview.EventStageEntered, competency, map[string]any{"stage": string(interview.StageCompetency)})
		return
	}

	ictx.CompetencyIndex = len(ictx.CompetencyOrder)
	ictx.Stage = interview.StageWrapup
	ictx.AppendEvent(interview.EventStageEntered, "", map[string]any{"stage": string(interview.StageWrapup)})
}

func (m *Manager) askNext(ctx context.Context, ictx *interview.Context, prof candidate.Profile) error {
	switch ictx.Stage {
	case interview.StageWarmup:
		out, err := m.warmup.Ask(ctx, ictx.Persona, prof, transcript.ToPromptLines(ictx.Transcript), agents.ModeOpening)
		if err != nil {
			return fmt.Errorf("warmup agent: %w", err)
		}
		ictx.AppendMessage(interview.Message{Speaker: interview.SpeakerInterviewer, Content: out.Content, Tone: out.Metadata.Reasoning})
		ictx.AppendEvent(interview.EventQuestion, "", map[string]any{"escalation": out.Metadata.Escalation})
		ictx.WarmupCount++
		ictx.QuestionsAsked++

	case interview.StageWrapup:
		out, err := m.warmup.Ask(ctx, ictx.Persona, prof, transcript.ToPromptLines(ictx.Transcript), agents.ModeWrapup)
		if err != nil {
			return fmt.Errorf("wrapup question: %w", err)
		}
		ictx.AppendMessage(interview.Message{Speaker: interview.SpeakerInterviewer, Content: out.Content, Tone: out.Metadata.Reasoning})
		ictx.AppendEvent(interview.EventQuestion, "", map[string]any{"escalation": out.Metadata.Escalation, "wrapup": true})
		ictx.QuestionsAsked++

	case interview.StageCompetency:
		competency := ictx.ActiveCompetency()
		remaining := remainingCriteria(ictx, competency)
		guidance := agents.EscalationGuidance{
			IsFirstQuestion: ictx.CompetencyQuestionCounts[competency] == 0,
			HintDue:         lastScoreIsLow(ictx, competency, remaining),
		}

		out, err := m.questioner.Ask(ctx, competency, ictx.ProjectAnchor, remaining, transcript.ToPromptLines(ictx.Transcript), ictx.Persona, guidance)
		if err != nil {
			return fmt.Errorf("questioner agent: %w", err)
		}

		ictx.AppendMessage(interview.Message{
			Speaker:          interview.SpeakerInterviewer,
			Content:          out.Content,
			Tone:             out.Metadata.Reasoning,
			Competency:       competency,
			TargetedCriteria: out.Metadata.TargetedCriteria,
			ProjectAnchor:    ictx.ProjectAnchor,
		})
		ictx.TargetedCriteria = out.Metadata.TargetedCriteria
		ictx.AppendEvent(interview.EventQuestion, competency, map[string]any{"escalation": out.Metadata.Escalation})
		ictx.CompetencyQuestionCounts[competency]++
		ictx.QuestionsAsked++

	case interview.StageComplete:
		// No question once complete.
	}
	return nil
}

// remainingCriteria orders a competency's not-yet-covered criteria by
// lowest observed level first, then rubric order.
func remainingCriteria(ictx *interview.Context, competency string) []string {
	all := ictx.CompetencyCriteria[competency]
	covered := ictx.CompetencyCovered[competency]
	levels := ictx.CompetencyCriterionLevels[competency]

	var remaining []string
	for _, crit := range all {
		if !covered.Has(crit) {
			remaining = append(remaining, crit)
		}
	}

	sort.SliceStable(remaining, func(i, j int) bool {
		return levels[remaining[i]] < levels[remaining[j]]
	})
	return remaining
}

func lastScoreIsLow(ictx *interview.Context, competency string, remaining []string) bool {
	if len(remaining) == 0 {
		return false
	}
	levels := ictx.CompetencyCriterionLevels[competency]
	level, ok := levels[remaining[0]]
	return ok && level > 0 && level <= 2
}

// AutoAnswer synthesizes the candidate's next answer via the Candidate
// Auto-Reply agent, for callers that set autoGenerate/autoSend on a
// /turn request instead of supplying their own answer text. It does not
// mutate ictx; the caller feeds the returned text into Turn like any other
// answer.
func (m *Manager) AutoAnswer(ctx context.Context, ictx *interview.Context, candidateLevel int) (string, error) {
	if m.autoReply == nil {
		return "", fmt.Errorf("auto-reply agent not configured")
	}
	if candidateLevel < 1 || candidateLevel > 5 {
		candidateLevel = 3
	}

	competency := ictx.ActiveCompetency()
	out, err := m.autoReply.Reply(ctx, competency, ictx.ProjectAnchor, ictx.TargetedCriteria, transcript.ToPromptLines(ictx.Transcript), candidateLevel)
	if err != nil {
		return "", fmt.Errorf("auto-reply agent: %w", err)
	}
	return out.Content, nil
}

func (m *Manager) maybeCheckpoint(ictx *interview.Context) {
	interval := time.Duration(m.cfg.CheckpointIntervalMinutes * float64(time.Minute))
	if interval <= 0 {
		return
	}
	if time.Since(ictx.LastCheckpointAt) < interval {
		return
	}
	ictx.AppendEvent(interview.EventCheckpoint, ictx.ActiveCompetency(), map[string]any{"stage": string(ictx.Stage)})
	ictx.LastCheckpointAt = time.Now()
}

// recomputeOverallScore computes the weighted mean of
// rubricFilled competencies' totalScore, falling back to a simple mean
// across any competency with a score at all.
func recomputeOverallScore(ictx *interview.Context) float64 {
	var weightedSum, weightTotal float64
	var simpleSum float64
	var simpleCount int

	for _, competency := range ictx.CompetencyOrder {
		score, ok := ictx.EvaluatorState.Scores[competency]
		if !ok {
			continue
		}
		simpleSum += score.Score
		simpleCount++
		if score.RubricFilled {
			weightedSum += score.Score
			weightTotal++
		}
	}

	if weightTotal > 0 {
		return weightedSum / weightTotal
	}
	if simpleCount > 0 {
		return simpleSum / float64(simpleCount)
	}
	return 0
}

func (m *Manager) recomputeOverallScore(ictx *interview.Context) {
	ictx.OverallScore = recomputeOverallScore(ictx)
}
