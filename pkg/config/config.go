// Package config loads and validates the interview engine's single
// configuration document: flow tuning knobs, the per-agent-function route
// registry, and the LLM credential's environment variable name.
//
// Example document:
//
//	flow:
//	  warmup_limit: 1
//	  follow_up_limit: 3
//	  low_score_streak_limit: 2
//	  low_score_threshold: 2
//	  coverage_min_questions: 2
//	  evaluator_window_messages: 12
//	  turn_deadline_ms: 20000
//	  session_timeout_minutes: 30
//	  checkpoint_interval_minutes: 5
//
//	routes:
//	  # one entry per agent route: agents.primer, agents.warmup,
//	  # agents.questioner, agents.evaluator, agents.autoreply
//	  agents.primer:
//	    base_url: https://api.openai.com/v1
//	    model: gpt-4o-mini
//	    endpoint: /chat/completions
//	    timeout_ms: 15000
//	    max_retries: 2
//	    response_format: json_object
//
//	llm:
//	  api_key_env_var: OPENAI_API_KEY
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the root configuration structure.
type Document struct {
	// Flow tunes the state machine's thresholds.
	Flow FlowConfig `yaml:"flow"`

	// Routes maps "<module>.<function>" to its LLM route.
	Routes map[string]RouteConfig `yaml:"routes"`

	// LLM carries the name of the environment variable holding the
	// provider credential. The key itself is never stored here.
	LLM LLMConfig `yaml:"llm"`
}

// FlowConfig holds the Flow Manager's tuning knobs.
type FlowConfig struct {
	WarmupLimit               int     `yaml:"warmup_limit"`
	FollowUpLimit             int     `yaml:"follow_up_limit"`
	LowScoreStreakLimit       int     `yaml:"low_score_streak_limit"`
	LowScoreThreshold         int     `yaml:"low_score_threshold"`
	CoverageMinQuestions      int     `yaml:"coverage_min_questions"`
	EvaluatorWindowMessages   int     `yaml:"evaluator_window_messages"`
	TurnDeadlineMs            int     `yaml:"turn_deadline_ms"`
	SessionTimeoutMinutes     float64 `yaml:"session_timeout_minutes"`
	CheckpointIntervalMinutes float64 `yaml:"checkpoint_interval_minutes"`
	SessionCompleteGraceMins  float64 `yaml:"session_complete_grace_minutes"`
}

// RouteConfig is a single LlmRoute entry.
type RouteConfig struct {
	BaseURL        string   `yaml:"base_url"`
	Model          string   `yaml:"model"`
	Endpoint       string   `yaml:"endpoint"`
	TimeoutMs      int      `yaml:"timeout_ms"`
	MaxRetries     int      `yaml:"max_retries"`
	ResponseFormat string   `yaml:"response_format"` // "json_object" | "text"
	Temperature    *float64 `yaml:"temperature,omitempty"`
	TopP           *float64 `yaml:"top_p,omitempty"`
}

// LLMConfig names the environment variable holding the provider credential.
type LLMConfig struct {
	APIKeyEnvVar string `yaml:"api_key_env_var"`
}

// SetDefaults fills zero-valued flow knobs with sane, conservative defaults.
func (d *Document) SetDefaults() {
	f := &d.Flow
	if f.WarmupLimit == 0 {
		f.WarmupLimit = 1
	}
	if f.FollowUpLimit == 0 {
		f.FollowUpLimit = 3
	}
	if f.LowScoreStreakLimit == 0 {
		f.LowScoreStreakLimit = 2
	}
	if f.LowScoreThreshold == 0 {
		f.LowScoreThreshold = 2
	}
	if f.EvaluatorWindowMessages == 0 {
		f.EvaluatorWindowMessages = 12
	}
	if f.TurnDeadlineMs == 0 {
		f.TurnDeadlineMs = 20000
	}
	if f.SessionTimeoutMinutes == 0 {
		f.SessionTimeoutMinutes = 30
	}
	if f.CheckpointIntervalMinutes == 0 {
		f.CheckpointIntervalMinutes = 5
	}
	if f.SessionCompleteGraceMins == 0 {
		f.SessionCompleteGraceMins = 10
	}

	for name, r := range d.Routes {
		if r.MaxRetries == 0 {
			r.MaxRetries = 2
		}
		if r.TimeoutMs == 0 {
			r.TimeoutMs = 15000
		}
		if r.ResponseFormat == "" {
			r.ResponseFormat = "json_object"
		}
		d.Routes[name] = r
	}
}

// Validate checks the document for structural problems that should fail
// application startup rather than surfacing as a runtime error mid-session.
func (d *Document) Validate() error {
	var problems []string

	if d.Flow.WarmupLimit < 1 {
		problems = append(problems, "flow.warmup_limit must be >= 1")
	}
	if d.Flow.FollowUpLimit < 1 {
		problems = append(problems, "flow.follow_up_limit must be >= 1")
	}
	if d.Flow.LowScoreStreakLimit < 1 {
		problems = append(problems, "flow.low_score_streak_limit must be >= 1")
	}
	if d.Flow.LowScoreThreshold < 1 || d.Flow.LowScoreThreshold > 5 {
		problems = append(problems, "flow.low_score_threshold must be in 1..5")
	}
	if d.Flow.CoverageMinQuestions < 0 {
		problems = append(problems, "flow.coverage_min_questions must be >= 0")
	}
	if d.Flow.EvaluatorWindowMessages < 4 {
		problems = append(problems, "flow.evaluator_window_messages must be >= 4")
	}
	if d.LLM.APIKeyEnvVar == "" {
		problems = append(problems, "llm.api_key_env_var is required")
	}

	for name, r := range d.Routes {
		if r.BaseURL == "" {
			problems = append(problems, fmt.Sprintf("routes[%s].base_url is required", name))
		}
		if r.Model == "" {
			problems = append(problems, fmt.Sprintf("routes[%s].model is required", name))
		}
		if r.ResponseFormat != "json_object" && r.ResponseFormat != "text" {
			problems = append(problems, fmt.Sprintf("routes[%s].response_format must be json_object or text", name))
		}
		if r.MaxRetries < 0 {
			problems = append(problems, fmt.Sprintf("routes[%s].max_retries must be >= 0", name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads, expands, parses, and validates the configuration document at
// path. A malformed document fails with a wrapped apperrors.ErrConfigInvalid
// by convention of the caller (cmd/interviewer wraps this error).
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	expanded := os.Expand(string(raw), func(key string) string {
		return os.Getenv(key)
	})

	var doc Document
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	doc.SetDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
