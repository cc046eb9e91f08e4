// Package interview holds the mutable per-session InterviewContext: the
// stage, coverage accounting, transcript, and event log the Flow Manager
// advances turn by turn. The Session Manager owns the instance for a
// session id and hands it to the Flow Manager by reference-with-lock;
// agents never mutate it directly.
package interview

import (
	"time"

	"github.com/lattice-hire/interviewer/pkg/persona"
)

// Stage is one of the four points in the interview lifecycle. It advances
// monotonically warmup -> competency -> wrapup -> complete and never
// regresses.
type Stage string

const (
	StageWarmup     Stage = "warmup"
	StageCompetency Stage = "competency"
	StageWrapup     Stage = "wrapup"
	StageComplete   Stage = "complete"
)

// stageOrder gives each stage its rank for the monotonic-advance check.
var stageOrder = map[Stage]int{
	StageWarmup:     0,
	StageCompetency: 1,
	StageWrapup:     2,
	StageComplete:   3,
}

// CanAdvanceTo reports whether moving from s to next is a forward (or
// same-stage) transition.
func (s Stage) CanAdvanceTo(next Stage) bool {
	return stageOrder[next] >= stageOrder[s]
}

// Speaker identifies who produced a transcript Message.
type Speaker string

const (
	SpeakerInterviewer Speaker = "Interviewer"
	SpeakerCandidate   Speaker = "Candidate"
	SpeakerSystem      Speaker = "System"
)

// Message is one line of the conversation transcript.
type Message struct {
	Speaker          Speaker
	Content          string
	Tone             string
	Competency       string // empty outside competency stage
	TargetedCriteria []string
	ProjectAnchor    string
	CreatedAt        time.Time
}

// EventType enumerates the kinds of Event the Flow Manager appends.
type EventType string

const (
	EventStageEntered EventType = "stage_entered"
	EventQuestion     EventType = "question"
	EventAnswer       EventType = "answer"
	EventEvaluation   EventType = "evaluation"
	EventHint         EventType = "hint"
	EventFollowUp     EventType = "follow_up"
	EventCheckpoint   EventType = "checkpoint"
)

// Event is one append-only entry in the session's audit log. EventID is
// strictly increasing within a session.
type Event struct {
	EventID    int64
	CreatedAt  time.Time
	Stage      Stage
	Competency string // empty when not competency-scoped
	EventType  EventType
	Payload    map[string]any
}

// CriterionScore is one criterion's evaluation result within a
// CompetencyScore.
type CriterionScore struct {
	Criterion string
	Score     int // 1..5, clamped
	Weight    float64
	Rationale string
}

// CompetencyScore is the evaluator's latest scoring snapshot for one
// competency.
type CompetencyScore struct {
	Score           float64
	Notes           []string
	RubricUpdates   []string
	CriterionLevels map[string]int
	RubricFilled    bool
}

// EvaluatorState accumulates everything the Evaluator agent has produced
// across turns.
type EvaluatorState struct {
	Summary string
	Anchors map[string][]string
	Scores  map[string]CompetencyScore
}

// NewEvaluatorState returns an EvaluatorState with initialized maps.
func NewEvaluatorState() EvaluatorState {
	return EvaluatorState{
		Anchors: make(map[string][]string),
		Scores:  make(map[string]CompetencyScore),
	}
}

// Context is the full mutable per-session interview state.
type Context struct {
	SessionID   string
	InterviewID string
	CandidateID string

	// Persona is the interviewer voice chosen at session start; read-only
	// for the rest of the session.
	Persona persona.Persona

	Stage              Stage
	CompetencyOrder    []string
	CompetencyIndex    int
	CompetencyProjects map[string]string
	CompetencyCriteria map[string][]string

	// CompetencyCovered preserves insertion order per competency; membership
	// is case-insensitive on criterion name.
	CompetencyCovered map[string]*OrderedSet

	CompetencyCriterionLevels map[string]map[string]int
	CompetencyQuestionCounts  map[string]int
	CompetencyLowScores       map[string]int

	TargetedCriteria []string
	ProjectAnchor    string

	WarmupCount    int
	QuestionsAsked int

	Transcript []Message
	Events     []Event

	EvaluatorState EvaluatorState

	// OverallScore is the weighted mean of rubric-filled competencies'
	// totalScore, recomputed at the end of every turn.
	OverallScore float64

	LastTouched      time.Time
	LastCheckpointAt time.Time

	nextEventID int64
}

// New constructs the initial InterviewContext for a session: stage=warmup,
// the rubric's competency order, and the primer-seeded project anchors.
func New(sessionID, interviewID, candidateID string, competencyOrder []string, competencyCriteria map[string][]string, seededAnchors map[string]string) *Context {
	covered := make(map[string]*OrderedSet, len(competencyOrder))
	levels := make(map[string]map[string]int, len(competencyOrder))
	qCounts := make(map[string]int, len(competencyOrder))
	lowScores := make(map[string]int, len(competencyOrder))
	for _, c := range competencyOrder {
		covered[c] = NewOrderedSet()
		levels[c] = make(map[string]int)
		qCounts[c] = 0
		lowScores[c] = 0
	}

	now := time.Now()
	return &Context{
		SessionID:                 sessionID,
		InterviewID:               interviewID,
		CandidateID:               candidateID,
		Stage:                     StageWarmup,
		CompetencyOrder:           competencyOrder,
		CompetencyIndex:           0,
		CompetencyProjects:        seededAnchors,
		CompetencyCriteria:        competencyCriteria,
		CompetencyCovered:         covered,
		CompetencyCriterionLevels: levels,
		CompetencyQuestionCounts:  qCounts,
		CompetencyLowScores:       lowScores,
		EvaluatorState:            NewEvaluatorState(),
		LastTouched:               now,
		LastCheckpointAt:          now,
		nextEventID:               1,
	}
}

// ActiveCompetency returns CompetencyOrder[CompetencyIndex] while
// stage=competency, and "" in warmup/wrapup/complete.
func (c *Context) ActiveCompetency() string {
	if c.Stage != StageCompetency {
		return ""
	}
	if c.CompetencyIndex < 0 || c.CompetencyIndex >= len(c.CompetencyOrder) {
		return ""
	}
	return c.CompetencyOrder[c.CompetencyIndex]
}

// AppendEvent assigns the next monotonic EventID and appends the event,
// returning the stored copy.
func (c *Context) AppendEvent(eventType EventType, competency string, payload map[string]any) Event {
	ev := Event{
		EventID:    c.nextEventID,
		CreatedAt:  time.Now(),
		Stage:      c.Stage,
		Competency: competency,
		EventType:  eventType,
		Payload:    payload,
	}
	c.nextEventID++
	c.Events = append(c.Events, ev)
	return ev
}

// AppendMessage appends a transcript message in production order.
func (c *Context) AppendMessage(m Message) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	c.Transcript = append(c.Transcript, m)
}

// Touch refreshes the idle-expiry timestamp.
func (c *Context) Touch() {
	c.LastTouched = time.Now()
}

// EventsSince returns the events with EventID > afterID, in order — used to
// return only the newly appended events from a /turn response.
func (c *Context) EventsSince(afterID int64) []Event {
	var out []Event
	for _, ev := range c.Events {
		if ev.EventID > afterID {
			out = append(out, ev)
		}
	}
	return out
}

// LastEventID returns the highest EventID appended so far, or 0 if none.
func (c *Context) LastEventID() int64 {
	if len(c.Events) == 0 {
		return 0
	}
	return c.Events[len(c.Events)-1].EventID
}
