// Package gateway implements the LLM Gateway: the single ingress for
// every agent's model call. It enforces JSON output against a schema,
// retries with repair prompts on malformed output, and injects the
// per-route configuration from the Route Registry.
package gateway

import (
	"context"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Message is one turn in the prompt sent to the LLM transport.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// LlmRoute configures a single agent-function's call.
type LlmRoute struct {
	BaseURL        string
	Model          string
	Endpoint       string
	TimeoutMs      int
	MaxRetries     int
	ResponseFormat string // "json_object" | "text"
	Temperature    *float64
	TopP           *float64
}

// OutputSchema describes the JSON shape an agent call must produce. Schema
// is derived once, by reflecting over the agent's Go DTO with
// invopop/jsonschema, so there is exactly one source of truth for an
// agent's output shape (the Go struct) rather than a hand-maintained JSON
// Schema literal living next to it.
type OutputSchema struct {
	Name   string
	Schema *jsonschema.Schema
}

// NewOutputSchema reflects over a zero value of T to build its schema.
func NewOutputSchema[T any](name string) OutputSchema {
	var zero T
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	schema := r.ReflectFromType(reflect.TypeOf(zero))
	return OutputSchema{Name: name, Schema: schema}
}

// LlmTransport is the only network egress point: the raw call to the
// provider's chat endpoint. The Gateway is the only caller.
type LlmTransport interface {
	Chat(ctx context.Context, baseURL, model, endpoint string, messages []Message, responseFormat string, timeoutMs int) (rawText string, err error)
}
