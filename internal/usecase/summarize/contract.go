package summarize

import "context"

// Completer generates a chat completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
