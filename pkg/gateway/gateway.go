package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/lattice-hire/interviewer/pkg/apperrors"
)

// Gateway is the single ingress for every model call.
type Gateway struct {
	transport LlmTransport
}

// New builds a Gateway around the given LlmTransport.
func New(transport LlmTransport) *Gateway {
	return &Gateway{transport: transport}
}

// Call sends task (plus the schema's requirement) to route's provider and
// decodes the JSON response into out, which must be a pointer to the type
// the schema was reflected from. On parse or schema-validation failure it
// retries with a repair prompt that includes the malformed output, up to
// route.MaxRetries. Timeouts count as retry-eligible failures. It never
// logs task or response bodies — only the route name, attempt count, and
// failure kind, to avoid leaking prompts or secrets into error strings.
func (g *Gateway) Call(ctx context.Context, routeName string, task string, route LlmRoute, schema OutputSchema, out any) error {
	systemHint := fmt.Sprintf(
		"Reply with a single JSON object matching this schema. Do not include any text outside the JSON object.\nSchema: %s",
		mustMarshalSchema(schema),
	)

	messages := []Message{
		{Role: "system", Content: systemHint},
		{Role: "user", Content: task},
	}

	var lastErr error
	attempts := route.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if route.TimeoutMs > 0 {
			callCtx, cancel = context.WithTimeout(ctx, time.Duration(route.TimeoutMs)*time.Millisecond)
		}

		raw, err := g.transport.Chat(callCtx, route.BaseURL, route.Model, route.Endpoint, messages, route.ResponseFormat, route.TimeoutMs)
		if cancel != nil {
			cancel()
		}

		if err != nil {
			lastErr = fmt.Errorf("%w: %v", classifyTransportErr(err), err)
			slog.Warn("llm call failed", "route", routeName, "attempt", attempt+1, "kind", "transport")
			messages = append(messages, Message{Role: "user", Content: "The previous call failed. Please try again, replying with only the JSON object."})
			continue
		}

		decodeErr := decodeInto(raw, schema, out)
		if decodeErr == nil {
			return nil
		}

		lastErr = fmt.Errorf("%w: %v", apperrors.ErrLLMInvalid, decodeErr)
		slog.Warn("llm output invalid", "route", routeName, "attempt", attempt+1, "kind", "schema_violation")

		messages = append(messages,
			Message{Role: "assistant", Content: raw},
			Message{Role: "user", Content: fmt.Sprintf(
				"That reply did not match the required schema (%s). Reply again with a single corrected JSON object matching the schema.",
				decodeErr.Error(),
			)},
		)
	}

	slog.Error("llm call exhausted retries", "route", routeName, "attempts", attempts)
	return fmt.Errorf("%w: %v", apperrors.ErrLLMFailure, lastErr)
}

// decodeInto parses raw as JSON into a generic map, then strictly decodes
// that map into out via mapstructure with ErrorUnused set — a response with
// surplus or misnamed fields is treated as invalid rather than silently
// accepted, keeping raw maps from crossing the module boundary.
func decodeInto(raw string, schema OutputSchema, out any) error {
	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(generic); err != nil {
		return fmt.Errorf("does not match schema %s: %w", schema.Name, err)
	}
	return nil
}

func mustMarshalSchema(schema OutputSchema) string {
	b, err := json.Marshal(schema.Schema)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ErrLLMTimeout
	}
	return apperrors.ErrLLMTransport
}
