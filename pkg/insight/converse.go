package insight

import (
	"context"

	"github.com/musterhq/muster/pkg/prompt"
)

// Converser is the single-operation LLM transport. Adapters translate
// a prompt bundle to one provider call and hand back the raw text.
type Converser interface {
	Converse(ctx context.Context, b prompt.Bundle) (string, error)
}
