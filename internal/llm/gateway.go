// Package llm abstracts the natural-language model behind a structured-output
// contract: every call declares a JSON schema and gets back a validated,
// unmarshaled response or a service-unavailable failure.
package llm

import "context"

// Gateway is the model client the analysis layer depends on.
type Gateway interface {
	// CompleteStructured sends the prompts, requires the response to conform
	// to schemaJSON and unmarshals it into out. Any deviation (transport
	// failure, empty response, non-JSON payload, schema violation) is
	// reported as an error wrapping apperr.ErrUnavailable.
	CompleteStructured(ctx context.Context, systemPrompt, userPrompt, schemaJSON string, out any) error
}
