// Package agents implements the five LLM-driven roles of the interview
// engine. Each agent is a thin, stateless wrapper around the
// LLM Gateway: it builds a task prompt from caller-supplied context, calls
// gateway.Gateway.Call against its own typed output schema, and returns the
// decoded struct. None of the agents touch interview.Context directly — the
// Flow Manager is the only component allowed to mutate it.
package agents

// PrimerOutput is the Competency Primer's output: a project anchor
// per competency, never empty.
type PrimerOutput struct {
	Anchors map[string]string `json:"anchors" jsonschema:"required,description=Map of competency name to a 1-3 sentence resume-sourced or plausible hypothetical project anchor. Never empty."`
}

// WarmupMetadata is the metadata block of a Warmup agent reply.
type WarmupMetadata struct {
	Stage          string `json:"stage" jsonschema:"required,enum=warmup"`
	Competency     string `json:"competency,omitempty" jsonschema:"description=Always empty for the warmup agent."`
	Reasoning      string `json:"reasoning" jsonschema:"required,description=Brief internal rationale, not shown to the candidate."`
	Escalation     string `json:"escalation" jsonschema:"required,enum=broad"`
	FollowUpPrompt string `json:"followUpPrompt,omitempty"`
}

// WarmupOutput is the Warmup agent's full output.
type WarmupOutput struct {
	Content  string         `json:"content" jsonschema:"required,description=The interviewer message shown to the candidate."`
	Metadata WarmupMetadata `json:"metadata" jsonschema:"required"`
}

// QuestionerMetadata is the metadata block of a Competency Questioner reply.
type QuestionerMetadata struct {
	Stage            string   `json:"stage" jsonschema:"required,enum=competency"`
	Competency       string   `json:"competency" jsonschema:"required"`
	Reasoning        string   `json:"reasoning" jsonschema:"required"`
	Escalation       string   `json:"escalation" jsonschema:"required,enum=broad,enum=why,enum=how,enum=challenge,enum=hint,enum=edge"`
	FollowUpPrompt   string   `json:"followUpPrompt,omitempty"`
	TargetedCriteria []string `json:"targetedCriteria" jsonschema:"required,description=Ordered sequence drawn from the remaining, not-yet-covered criteria this question targets."`
}

// QuestionerOutput is the Competency Questioner's full output.
type QuestionerOutput struct {
	Content  string             `json:"content" jsonschema:"required"`
	Metadata QuestionerMetadata `json:"metadata" jsonschema:"required"`
}

// CriterionScore is one scored criterion within a CompetencyScore.
type CriterionScore struct {
	Criterion string  `json:"criterion" jsonschema:"required"`
	Score     int     `json:"score" jsonschema:"required,minimum=0,maximum=5"`
	Weight    float64 `json:"weight" jsonschema:"required"`
	Rationale string  `json:"rationale" jsonschema:"required"`
}

// CompetencyScore is the evaluator's scoring verdict for the active
// competency, present only while stage=competency.
type CompetencyScore struct {
	Competency      string           `json:"competency" jsonschema:"required"`
	TotalScore      float64          `json:"totalScore" jsonschema:"required,minimum=0,maximum=5"`
	RubricFilled    bool             `json:"rubricFilled"`
	CriterionScores []CriterionScore `json:"criterionScores" jsonschema:"required"`
	Hints           []string         `json:"hints,omitempty"`
	FollowUpNeeded  bool             `json:"followUpNeeded"`
}

// EvaluatorOutput is the Evaluator's full output.
type EvaluatorOutput struct {
	Summary         string              `json:"summary" jsonschema:"required"`
	AnchorsDelta    map[string][]string `json:"anchorsDelta,omitempty"`
	RubricUpdates   map[string][]string `json:"rubricUpdates,omitempty"`
	CompetencyScore *CompetencyScore    `json:"competencyScore,omitempty"`
}

// AutoReplyOutput is the Candidate Auto-Reply agent's output.
type AutoReplyOutput struct {
	Content string `json:"content" jsonschema:"required,description=The simulated candidate answer, calibrated to the requested level."`
}

// Route key constants — the (module, function) identity the Route
// Registry indexes by agent-function name.
const (
	RoutePrimer     = "agents.primer"
	RouteWarmup     = "agents.warmup"
	RouteQuestioner = "agents.questioner"
	RouteEvaluator  = "agents.evaluator"
	RouteAutoReply  = "agents.autoreply"
)
