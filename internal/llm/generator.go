// Package llm provides answer generation behind a capability interface.
package llm

import "context"

// Generator produces an answer from an assembled prompt. Implementations
// honor ctx cancellation and classify failures via GenerationError so callers
// can distinguish transient upstream trouble from permanent misconfiguration.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}
