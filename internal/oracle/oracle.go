// Package oracle provides the external natural-language reasoning service.
// The oracle is advisory only: it supplies justification text and tie-break
// picks, never conflict or availability facts.
package oracle

import "context"

// Oracle generates a completion for a prompt. Implementations must honor
// the context deadline; callers degrade to deterministic defaults on error.
type Oracle interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Fixed is an Oracle returning canned responses, used in tests and as the
// offline fallback.
type Fixed struct {
	Responses []string
	calls     int
}

// Complete returns the next canned response, repeating the last one when
// exhausted. An empty Fixed returns empty strings.
func (f *Fixed) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if len(f.Responses) == 0 {
		return "", nil
	}
	i := f.calls
	if i >= len(f.Responses) {
		i = len(f.Responses) - 1
	}
	f.calls++
	return f.Responses[i], nil
}
